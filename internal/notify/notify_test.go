package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

type failing struct{ err error }

func (f failing) NotifyRoom(int64, wire.Event) error   { return f.err }
func (f failing) NotifyLobby(wire.Event) error         { return f.err }
func (f failing) NotifyPlayer(int64, wire.Event) error { return f.err }

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	rec := &Recorder{}
	errA := errors.New("a down")
	errB := errors.New("b down")
	f := Fanout{failing{errA}, rec, failing{errB}, Log{Logger: zap.NewNop()}}

	err := f.NotifyRoom(7, wire.RoomDeleted{RoomID: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, multierr.Errors(err), 2)

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(7), sent[0].RoomID)
	assert.Equal(t, wire.EvtRoomDeleted, sent[0].Event.EventName())
}

func TestRecorder_Named(t *testing.T) {
	rec := &Recorder{}
	_ = rec.NotifyLobby(wire.RoomCreated{})
	_ = rec.NotifyPlayer(3, wire.MoveRejected{Message: "Not your move"})
	_ = rec.NotifyLobby(wire.RoomUpdated{})

	rej := rec.Named(wire.EvtMoveRejected)
	require.Len(t, rej, 1)
	assert.Equal(t, int64(3), rej[0].UserID)
	assert.True(t, rec.Named(wire.EvtRoomCreated)[0].Lobby)

	rec.Reset()
	assert.Empty(t, rec.Sent())
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	assert.NoError(t, n.NotifyRoom(1, wire.RoomDeleted{}))
	assert.NoError(t, n.NotifyLobby(wire.RoomDeleted{}))
	assert.NoError(t, n.NotifyPlayer(1, wire.RoomDeleted{}))
}
