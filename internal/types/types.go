package types

import (
	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/lobby"
	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

// Client command types.
const (
	CmdCreateRoom   = "CreateRoom"
	CmdJoinRoom     = "JoinRoom"
	CmdLeaveRoom    = "LeaveRoom"
	CmdStartGame    = "StartGame"
	CmdMakeMove     = "MakeMove"
	CmdBelieve      = "Believe"
	CmdGetGameState = "GetGameState"
	CmdListRooms    = "ListRooms"
)

type ClientMessage struct {
	Type        string          `json:"type"`
	RoomID      int64           `json:"room_id,omitempty"`
	Room        *lobby.RoomSpec `json:"room,omitempty"`
	Cards       []engine.Card   `json:"cards,omitempty"`
	ClaimedRank engine.Rank     `json:"claimed_rank,omitempty"`
	TargetID    int64           `json:"target_player_id,omitempty"`
	Believe     *bool           `json:"believe,omitempty"`
	OnlyJoin    bool            `json:"only_joinable,omitempty"`
}

// Direct reply types. Everything else a client receives is a notification
// event keyed by its event name.
const (
	MsgJoined    = "JoinedRoom"
	MsgLeft      = "LeftRoom"
	MsgGameState = "GameState"
	MsgRoomList  = "RoomList"
	MsgError     = "Error"
)

type JoinReply struct {
	Message string        `json:"message"`
	Room    wire.RoomView `json:"room"`
}

type LeaveReply struct {
	RoomID int64 `json:"room_id"`
	Left   bool  `json:"left"`
}

type ServerMessage struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}
