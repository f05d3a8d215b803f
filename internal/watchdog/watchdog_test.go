package watchdog

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/hub"
	"github.com/DoyleJ11/bluff-backend/internal/lobby"
)

var base = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

var (
	alice = lobby.User{ID: 1, DisplayName: "alice"}
	bob   = lobby.User{ID: 2, DisplayName: "bob"}
	carol = lobby.User{ID: 3, DisplayName: "carol"}
)

func setup(t *testing.T) (*hub.Hub, *Watchdog, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	h := hub.NewHub(context.Background(), hub.Options{
		Now:     func() time.Time { return base },
		NewRand: func() *rand.Rand { return rand.New(rand.NewSource(3)) },
	})
	t.Cleanup(h.Close)
	return h, New(h, Config{}, nil), ctx
}

func startedRoom(t *testing.T, ctx context.Context, h *hub.Hub) int64 {
	t.Helper()
	r, err := h.CreateRoom(ctx, lobby.RoomSpec{Name: "timers", MaxPlayers: 3, Deck: engine.Deck36}, alice)
	require.NoError(t, err)
	for _, u := range []lobby.User{bob, carol} {
		_, err := h.JoinRoom(ctx, r.ID, u)
		require.NoError(t, err)
	}
	require.NoError(t, h.StartGame(ctx, r.ID, alice.ID))
	return r.ID
}

func TestSweep_CancelsIdleWaitingRooms(t *testing.T) {
	h, w, ctx := setup(t)

	r, err := h.CreateRoom(ctx, lobby.RoomSpec{Name: "lonely", MaxPlayers: 4, Deck: engine.Deck52}, alice)
	require.NoError(t, err)

	require.NoError(t, w.Sweep(ctx, base.Add(5*time.Minute)))
	_, err = h.Room(ctx, r.ID)
	require.NoError(t, err, "still inside the wait window")

	require.NoError(t, w.Sweep(ctx, base.Add(engine.RoomWaitTimeout+time.Second)))
	require.Eventually(t, func() bool {
		_, err := h.Room(ctx, r.ID)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestSweep_SkipsSlowPlayer(t *testing.T) {
	h, w, ctx := setup(t)
	id := startedRoom(t, ctx, h)

	require.NoError(t, w.Sweep(ctx, base.Add(30*time.Second)))
	st, err := h.GameState(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, st.CurrentPlayerID)

	require.NoError(t, w.Sweep(ctx, base.Add(engine.MoveTimeout+time.Second)))
	st, err = h.GameState(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, st.CurrentPlayerID)
	assert.Equal(t, engine.PhasePlaying, st.Phase)
}

func TestSweep_EndsLongGames(t *testing.T) {
	h, w, ctx := setup(t)
	id := startedRoom(t, ctx, h)

	require.NoError(t, w.Sweep(ctx, base.Add(engine.GameTimeout+time.Minute)))
	st, err := h.GameState(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseFinished, st.Phase)
	assert.Equal(t, engine.RoomFinished, st.Room.Status)
	// equal hands: the earliest seat wins
	assert.Equal(t, alice.ID, st.WinnerID)

	// finished rooms are left alone
	require.NoError(t, w.Sweep(ctx, base.Add(2*engine.GameTimeout)))
}

func TestRun_StopsWithContext(t *testing.T) {
	_, w, _ := setup(t)
	w.cfg.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
