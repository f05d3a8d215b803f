package store

import "time"

type User struct {
	ID          int64  `gorm:"primaryKey"`
	DisplayName string `gorm:"size:100;not null;uniqueIndex"`
	Coins       int64  `gorm:"not null"`
	Rating      int    `gorm:"not null"`
	GamesPlayed int    `gorm:"not null;default:0"`
	GamesWon    int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WinRate is the share of games won, 0 for a player with no games.
func (u User) WinRate() float64 {
	if u.GamesPlayed == 0 {
		return 0
	}
	return float64(u.GamesWon) / float64(u.GamesPlayed)
}

type Game struct {
	ID           int64  `gorm:"primaryKey"`
	RoomID       int64  `gorm:"index;not null"`
	RoomName     string `gorm:"size:100;not null"`
	Deck         int    `gorm:"not null"`
	WinnerID     int64
	StartedAt    time.Time
	EndedAt      time.Time
	Participants []Participant `gorm:"foreignKey:GameID"`
	Moves        []Move        `gorm:"foreignKey:GameID"`
}

type Participant struct {
	ID          int64  `gorm:"primaryKey"`
	GameID      int64  `gorm:"index;not null"`
	UserID      int64  `gorm:"index;not null"`
	DisplayName string `gorm:"size:100"`
	Position    int
	Won         bool
	CardsLeft   int
	CoinsDelta  int64
}

type Move struct {
	ID          int64 `gorm:"primaryKey"`
	GameID      int64 `gorm:"index;not null"`
	Seq         int   `gorm:"not null"`
	PlayerID    int64
	TargetID    int64
	Cards       string // space separated display names, e.g. "6♥ JK"
	ClaimedRank int
	Outcome     string `gorm:"size:20"`
	At          time.Time
}
