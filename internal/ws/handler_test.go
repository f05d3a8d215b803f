package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/hub"
	"github.com/DoyleJ11/bluff-backend/internal/lobby"
	"github.com/DoyleJ11/bluff-backend/internal/types"
	"github.com/DoyleJ11/bluff-backend/internal/userdir"
	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

var names = map[int64]string{1: "alice", 2: "bob", 3: "carol"}

func directory() userdir.Directory {
	return userdir.Func(func(_ context.Context, id int64) (userdir.User, error) {
		name, ok := names[id]
		if !ok {
			return userdir.User{}, userdir.ErrUserNotFound
		}
		return userdir.User{ID: id, DisplayName: name}, nil
	})
}

func newServer(t *testing.T) string {
	t.Helper()
	reg := NewRegistry(64, nil)
	h := hub.NewHub(context.Background(), hub.Options{Notifier: reg})
	t.Cleanup(h.Close)
	srv := httptest.NewServer(NewHandler(h, reg, directory(), nil))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, ctx context.Context, url string, userID int64) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"X-User-ID": {strconv.FormatInt(userID, 10)}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, cm types.ClientMessage) {
	t.Helper()
	b, err := json.Marshal(cm)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, b))
}

// await reads frames until one of type typ arrives and returns its data.
func await(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	for {
		_, b, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", typ)
		var msg struct {
			Type  string          `json:"type"`
			Data  json.RawMessage `json:"data"`
			Error string          `json:"error"`
		}
		require.NoError(t, json.Unmarshal(b, &msg))
		if msg.Type == typ {
			if typ == types.MsgError {
				return json.RawMessage(strconv.Quote(msg.Error))
			}
			return msg.Data
		}
	}
}

func TestHandler_RejectsUnknownUsers(t *testing.T) {
	url := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"X-User-ID": {"99"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_RoomFlow(t *testing.T) {
	url := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	alice := dial(t, ctx, url, 1)
	bob := dial(t, ctx, url, 2)

	send(t, ctx, alice, types.ClientMessage{Type: types.CmdCreateRoom, Room: &lobby.RoomSpec{
		Name: "socket table", MaxPlayers: 3, Deck: engine.Deck36, ShowCardCount: true,
	}})
	var created types.JoinReply
	require.NoError(t, json.Unmarshal(await(t, ctx, alice, types.MsgJoined), &created))
	assert.Equal(t, "socket table", created.Room.Name)

	var announced wire.RoomCreated
	require.NoError(t, json.Unmarshal(await(t, ctx, bob, wire.EvtRoomCreated), &announced))
	assert.Equal(t, created.Room.ID, announced.Room.ID)

	send(t, ctx, bob, types.ClientMessage{Type: types.CmdJoinRoom, RoomID: created.Room.ID})
	var joined types.JoinReply
	require.NoError(t, json.Unmarshal(await(t, ctx, bob, types.MsgJoined), &joined))
	assert.Equal(t, "Joined room", joined.Message)
	assert.Len(t, joined.Room.Players, 2)

	var pj wire.PlayerJoinedRoom
	require.NoError(t, json.Unmarshal(await(t, ctx, alice, wire.EvtPlayerJoinedRoom), &pj))
	assert.Equal(t, int64(2), pj.UserID)
	assert.Equal(t, "bob", pj.DisplayName)

	send(t, ctx, alice, types.ClientMessage{Type: types.CmdStartGame, RoomID: created.Room.ID})
	var failed wire.GameStartFailed
	require.NoError(t, json.Unmarshal(await(t, ctx, alice, wire.EvtGameStartFailed), &failed))
	assert.Equal(t, "At least 3 players are required", failed.Message)

	carol := dial(t, ctx, url, 3)
	send(t, ctx, carol, types.ClientMessage{Type: types.CmdJoinRoom, RoomID: created.Room.ID})
	await(t, ctx, carol, types.MsgJoined)

	send(t, ctx, alice, types.ClientMessage{Type: types.CmdStartGame, RoomID: created.Room.ID})
	var started wire.GameStarted
	require.NoError(t, json.Unmarshal(await(t, ctx, bob, wire.EvtGameStarted), &started))
	assert.Equal(t, int64(1), started.State.CurrentPlayerID)
	for _, p := range started.State.Room.Players {
		require.NotNil(t, p.CardCount)
		assert.Equal(t, 12, *p.CardCount)
		if p.UserID != 2 {
			assert.Empty(t, p.Hand, "other hands stay hidden")
		}
	}

	send(t, ctx, bob, types.ClientMessage{Type: types.CmdMakeMove, RoomID: created.Room.ID, ClaimedRank: engine.RankAce,
		Cards: []engine.Card{{Suit: engine.SuitHearts, Rank: engine.RankAce}}})
	var rejected wire.MoveRejected
	require.NoError(t, json.Unmarshal(await(t, ctx, bob, wire.EvtMoveRejected), &rejected))
	assert.Equal(t, "Not your move", rejected.Message)

	believe := true
	send(t, ctx, carol, types.ClientMessage{Type: types.CmdBelieve, RoomID: created.Room.ID, Believe: &believe})
	var berr wire.BelieveError
	require.NoError(t, json.Unmarshal(await(t, ctx, carol, wire.EvtBelieveError), &berr))
	assert.Equal(t, "No moves to check", berr.Message)

	send(t, ctx, carol, types.ClientMessage{Type: types.CmdGetGameState, RoomID: created.Room.ID})
	var view wire.GameView
	require.NoError(t, json.Unmarshal(await(t, ctx, carol, types.MsgGameState), &view))
	assert.True(t, view.Started)
	assert.Equal(t, 0, view.MoveCount)
}

func TestHandler_ProtocolErrors(t *testing.T) {
	url := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn := dial(t, ctx, url, 1)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{nope")))
	assert.JSONEq(t, `"bad json"`, string(await(t, ctx, conn, types.MsgError)))

	send(t, ctx, conn, types.ClientMessage{Type: "Shuffle"})
	assert.JSONEq(t, `"unknown type"`, string(await(t, ctx, conn, types.MsgError)))

	send(t, ctx, conn, types.ClientMessage{Type: types.CmdJoinRoom, RoomID: 404})
	var failed wire.JoinRoomFailed
	require.NoError(t, json.Unmarshal(await(t, ctx, conn, wire.EvtJoinRoomFailed), &failed))
	assert.Equal(t, "Room not found", failed.Message)
}
