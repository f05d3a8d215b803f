package wire

import (
	"time"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
)

// Event is one outbound notification. The set is closed: every event the
// server emits is one of the records below, keyed by EventName.
type Event interface {
	EventName() string
}

const (
	EvtRoomCreated        = "RoomCreated"
	EvtRoomUpdated        = "RoomUpdated"
	EvtRoomDeleted        = "RoomDeleted"
	EvtPlayerJoinedRoom   = "PlayerJoinedRoom"
	EvtPlayerLeftRoom     = "PlayerLeftRoom"
	EvtGameStarted        = "GameStarted"
	EvtGameStateUpdated   = "GameStateUpdated"
	EvtMoveCompleted      = "MoveCompleted"
	EvtBelieveResult      = "BelieveResult"
	EvtGameEnded          = "GameEnded"
	EvtMoveRejected       = "MoveRejected"
	EvtBelieveError       = "BelieveError"
	EvtJoinRoomFailed     = "JoinRoomFailed"
	EvtGameStartFailed    = "GameStartFailed"
	EvtRoomCreationFailed = "RoomCreationFailed"
)

type RoomCreated struct {
	Room RoomView `json:"room"`
}

type RoomUpdated struct {
	Room RoomView `json:"room"`
}

type RoomDeleted struct {
	RoomID int64 `json:"room_id"`
}

type PlayerJoinedRoom struct {
	RoomID      int64     `json:"room_id"`
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Position    int       `json:"position"`
	Timestamp   time.Time `json:"timestamp"`
}

type PlayerLeftRoom struct {
	RoomID       int64     `json:"room_id"`
	UserID       int64     `json:"user_id"`
	Disconnected bool      `json:"disconnected"`
	Timestamp    time.Time `json:"timestamp"`
}

type GameStarted struct {
	RoomID    int64     `json:"room_id"`
	State     GameView  `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

type GameStateUpdated struct {
	RoomID int64    `json:"room_id"`
	State  GameView `json:"state"`
}

type MoveCompleted struct {
	RoomID    int64     `json:"room_id"`
	Move      MoveView  `json:"move"`
	NextID    int64     `json:"next_player_id"`
	GameEnded bool      `json:"game_ended"`
	Timestamp time.Time `json:"timestamp"`
}

type BelieveResult struct {
	RoomID       int64                   `json:"room_id"`
	ChallengerID int64                   `json:"challenger_id"`
	Believe      bool                    `json:"believe"`
	MoveSeq      int                     `json:"move_seq"`
	Result       *engine.ChallengeResult `json:"result,omitempty"`
	PickedUpBy   int64                   `json:"picked_up_by,omitempty"`
	PickedUp     int                     `json:"picked_up"`
	Timestamp    time.Time               `json:"timestamp"`
}

type GameEnded struct {
	RoomID    int64     `json:"room_id"`
	WinnerID  int64     `json:"winner_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Rejections go to the requesting player only.

type MoveRejected struct {
	RoomID  int64  `json:"room_id"`
	Message string `json:"message"`
}

type BelieveError struct {
	RoomID  int64  `json:"room_id"`
	Message string `json:"message"`
}

type JoinRoomFailed struct {
	RoomID  int64  `json:"room_id"`
	Message string `json:"message"`
}

type GameStartFailed struct {
	RoomID  int64  `json:"room_id"`
	Message string `json:"message"`
}

type RoomCreationFailed struct {
	Message string `json:"message"`
}

func (RoomCreated) EventName() string        { return EvtRoomCreated }
func (RoomUpdated) EventName() string        { return EvtRoomUpdated }
func (RoomDeleted) EventName() string        { return EvtRoomDeleted }
func (PlayerJoinedRoom) EventName() string   { return EvtPlayerJoinedRoom }
func (PlayerLeftRoom) EventName() string     { return EvtPlayerLeftRoom }
func (GameStarted) EventName() string        { return EvtGameStarted }
func (GameStateUpdated) EventName() string   { return EvtGameStateUpdated }
func (MoveCompleted) EventName() string      { return EvtMoveCompleted }
func (BelieveResult) EventName() string      { return EvtBelieveResult }
func (GameEnded) EventName() string          { return EvtGameEnded }
func (MoveRejected) EventName() string       { return EvtMoveRejected }
func (BelieveError) EventName() string       { return EvtBelieveError }
func (JoinRoomFailed) EventName() string     { return EvtJoinRoomFailed }
func (GameStartFailed) EventName() string    { return EvtGameStartFailed }
func (RoomCreationFailed) EventName() string { return EvtRoomCreationFailed }
