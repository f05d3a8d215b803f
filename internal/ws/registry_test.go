package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bluff-backend/internal/notify"
	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

var _ notify.Notifier = (*Registry)(nil)

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case frame := <-c.Out():
			var msg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(frame, &msg); err == nil {
				out = append(out, msg.Type)
			}
		default:
			return out
		}
	}
}

func TestRegistry_Routing(t *testing.T) {
	reg := NewRegistry(8, nil)
	alice1 := reg.Register(1)
	alice2 := reg.Register(1)
	bob := reg.Register(2)
	require.Equal(t, 3, reg.Online())

	reg.JoinGroup(10, alice1)
	reg.JoinGroup(10, bob)

	require.NoError(t, reg.NotifyPlayer(1, wire.GameStateUpdated{RoomID: 10}))
	require.NoError(t, reg.NotifyRoom(10, wire.PlayerJoinedRoom{RoomID: 10, UserID: 2}))
	require.NoError(t, reg.NotifyLobby(wire.RoomUpdated{}))

	assert.Equal(t, []string{wire.EvtGameStateUpdated, wire.EvtPlayerJoinedRoom, wire.EvtRoomUpdated}, drain(alice1))
	assert.Equal(t, []string{wire.EvtGameStateUpdated, wire.EvtRoomUpdated}, drain(alice2))
	assert.Equal(t, []string{wire.EvtPlayerJoinedRoom, wire.EvtRoomUpdated}, drain(bob))
}

func TestRegistry_GroupLifecycle(t *testing.T) {
	reg := NewRegistry(8, nil)
	c := reg.Register(1)

	reg.JoinGroup(10, c)
	reg.LeaveGroup(10, c)
	require.NoError(t, reg.NotifyRoom(10, wire.RoomDeleted{RoomID: 10}))
	assert.Empty(t, drain(c))

	reg.JoinGroup(11, c)
	require.NoError(t, reg.NotifyLobby(wire.RoomDeleted{RoomID: 11}))
	assert.Equal(t, []string{wire.EvtRoomDeleted}, drain(c))
	require.NoError(t, reg.NotifyRoom(11, wire.MoveRejected{RoomID: 11}))
	assert.Empty(t, drain(c), "deleted rooms lose their group")

	reg.Unregister(c)
	reg.JoinGroup(12, c)
	require.NoError(t, reg.NotifyRoom(12, wire.RoomDeleted{RoomID: 12}))
	assert.Equal(t, 0, reg.Online())
	select {
	case <-c.Done():
	default:
		t.Fatal("unregistered client should be done")
	}
}

func TestRegistry_DropsSlowClient(t *testing.T) {
	reg := NewRegistry(1, nil)
	slow := reg.Register(1)
	fast := reg.Register(2)

	require.NoError(t, reg.NotifyLobby(wire.RoomUpdated{}))
	drain(fast)

	err := reg.NotifyLobby(wire.RoomUpdated{})
	require.ErrorIs(t, err, ErrSlowClient)
	assert.Equal(t, []string{wire.EvtRoomUpdated}, drain(fast))

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow client should have been dropped")
	}
	assert.Equal(t, 1, reg.Online())

	// dropped clients are skipped silently
	require.NoError(t, reg.NotifyPlayer(1, wire.GameStateUpdated{}))
}
