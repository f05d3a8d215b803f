package lobby

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
)

// User is an already authenticated player as resolved by the user
// directory.
type User struct {
	ID          int64
	DisplayName string
}

// RoomSpec is what a creator asks for.
type RoomSpec struct {
	Name          string             `json:"name"`
	MaxPlayers    int                `json:"max_players"`
	Deck          engine.DeckVariant `json:"deck"`
	ShowCardCount bool               `json:"show_card_count"`
}

// Normalize trims the name and validates bounds.
func (s RoomSpec) Normalize() (RoomSpec, error) {
	s.Name = strings.TrimSpace(s.Name)
	n := utf8.RuneCountInString(s.Name)
	if n < engine.MinRoomNameLength || n > engine.MaxRoomNameLength {
		return s, engine.Rejectf(engine.ErrInvalidArgument,
			"Room name must be between %d and %d characters", engine.MinRoomNameLength, engine.MaxRoomNameLength)
	}
	if s.MaxPlayers < engine.MinPlayers || s.MaxPlayers > engine.MaxPlayers {
		return s, engine.Rejectf(engine.ErrInvalidArgument,
			"Max players must be between %d and %d", engine.MinPlayers, engine.MaxPlayers)
	}
	if !s.Deck.Valid() {
		return s, engine.Reject(engine.ErrInvalidArgument, "Unknown deck type")
	}
	return s, nil
}

type Room struct {
	ID            int64
	Name          string
	MaxPlayers    int
	Deck          engine.DeckVariant
	ShowCardCount bool
	Status        engine.RoomStatus
	CreatedAt     time.Time
	CreatedBy     int64
	Seats         []engine.Seat // kept sorted by position
}

// NewRoom builds a Waiting room with the creator in seat 0.
func NewRoom(id int64, spec RoomSpec, creator User, now time.Time) Room {
	return Room{
		ID:            id,
		Name:          spec.Name,
		MaxPlayers:    spec.MaxPlayers,
		Deck:          spec.Deck,
		ShowCardCount: spec.ShowCardCount,
		Status:        engine.RoomWaiting,
		CreatedAt:     now,
		CreatedBy:     creator.ID,
		Seats: []engine.Seat{{
			UserID:      creator.ID,
			DisplayName: creator.DisplayName,
			Position:    0,
			Status:      engine.PlayerWaiting,
		}},
	}
}

// nextPosition is the lowest position no seat holds. With no gaps it equals
// the seat count.
func (r *Room) nextPosition() int {
	taken := make(map[int]bool, len(r.Seats))
	for _, s := range r.Seats {
		taken[s.Position] = true
	}
	p := 0
	for taken[p] {
		p++
	}
	return p
}

func (r *Room) addSeat(s engine.Seat) {
	i := len(r.Seats)
	for i > 0 && r.Seats[i-1].Position > s.Position {
		i--
	}
	r.Seats = append(r.Seats, engine.Seat{})
	copy(r.Seats[i+1:], r.Seats[i:])
	r.Seats[i] = s
}

func (r *Room) removeSeat(i int) {
	r.Seats = append(r.Seats[:i], r.Seats[i+1:]...)
}

type GameState struct {
	RoomID        int64
	CurrentPlayer int64
	DrawPile      []engine.Card
	DiscardPile   []engine.Card
	Bank          int64
	Phase         engine.Phase
	StartedAt     time.Time
	LastMoveAt    time.Time
	WinnerID      int64
	Moves         []Move
}

// Move is append only. Outcome is resolved at most once after it starts as
// Continue.
type Move struct {
	Seq         int
	PlayerID    int64
	TargetID    int64
	Cards       []engine.Card
	ClaimedRank engine.Rank
	Outcome     engine.Outcome
	At          time.Time
}

func (g *GameState) clone() *GameState {
	c := *g
	c.DrawPile = engine.CloneCards(g.DrawPile)
	c.DiscardPile = engine.CloneCards(g.DiscardPile)
	c.Moves = make([]Move, len(g.Moves))
	for i, m := range g.Moves {
		m.Cards = engine.CloneCards(m.Cards)
		c.Moves[i] = m
	}
	return &c
}

func (g *GameState) lastMove() (*Move, bool) {
	if len(g.Moves) == 0 {
		return nil, false
	}
	return &g.Moves[len(g.Moves)-1], true
}

// MoveRequest is a client's play. TargetID is optional and defaults to the
// next player.
type MoveRequest struct {
	Cards       []engine.Card `json:"cards"`
	ClaimedRank engine.Rank   `json:"claimed_rank"`
	TargetID    int64         `json:"target_player_id,omitempty"`
}
