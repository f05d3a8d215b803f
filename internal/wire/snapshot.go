package wire

import (
	"time"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
)

// RoomView is the lobby level picture of a room. It never carries hands.
type RoomView struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	MaxPlayers    int                `json:"max_players"`
	Deck          engine.DeckVariant `json:"deck"`
	ShowCardCount bool               `json:"show_card_count"`
	Status        engine.RoomStatus  `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	CreatedBy     int64              `json:"created_by"`
	Players       []PlayerView       `json:"players"`
}

func (r RoomView) IsFull() bool { return len(r.Players) >= r.MaxPlayers }

// PlayerView is one seat as seen by a particular viewer. Hand is only set
// for the viewer's own seat; CardCount is nil when the room hides counts.
type PlayerView struct {
	UserID      int64               `json:"user_id"`
	DisplayName string              `json:"display_name"`
	Position    int                 `json:"position"`
	Status      engine.PlayerStatus `json:"status"`
	CardCount   *int                `json:"card_count,omitempty"`
	Hand        []engine.Card       `json:"hand,omitempty"`
}

type MoveView struct {
	Seq         int            `json:"seq"`
	PlayerID    int64          `json:"player_id"`
	TargetID    int64          `json:"target_id"`
	CardCount   int            `json:"card_count"`
	ClaimedRank engine.Rank    `json:"claimed_rank"`
	Outcome     engine.Outcome `json:"outcome"`
	At          time.Time      `json:"at"`
}

// GameView is the viewer scoped game snapshot. Before the game starts only
// Room is meaningful and Started is false.
type GameView struct {
	Room            RoomView     `json:"room"`
	Started         bool         `json:"started"`
	Phase           engine.Phase `json:"phase,omitempty"`
	CurrentPlayerID int64        `json:"current_player_id,omitempty"`
	CardsInDeck     int          `json:"cards_in_deck"`
	CardsInDiscard  int          `json:"cards_in_discard"`
	Bank            int64        `json:"bank"`
	LastMoveAt      time.Time    `json:"last_move_at,omitempty"`
	MoveCount       int          `json:"move_count"`
	LastMove        *MoveView    `json:"last_move,omitempty"`
	WinnerID        int64        `json:"winner_id,omitempty"`
}
