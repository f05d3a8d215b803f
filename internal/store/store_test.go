package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/results"
	"github.com/DoyleJ11/bluff-backend/internal/userdir"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	s, err := New(db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRegisterUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.RegisterUser(ctx, "  alice ")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.DisplayName)
	assert.Equal(t, int64(engine.DefaultCoins), u.Coins)
	assert.Equal(t, engine.DefaultRating, u.Rating)

	_, err = s.RegisterUser(ctx, "alice")
	require.ErrorIs(t, err, ErrDisplayNameTaken)

	_, err = s.RegisterUser(ctx, "   ")
	require.ErrorIs(t, err, engine.ErrInvalidArgument)
}

func TestGetUser_ImplementsDirectory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var dir userdir.Directory = s

	u, err := s.RegisterUser(ctx, "bob")
	require.NoError(t, err)

	got, err := dir.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, userdir.User{ID: u.ID, DisplayName: "bob"}, got)

	_, err = dir.GetUser(ctx, u.ID+100)
	require.ErrorIs(t, err, userdir.ErrUserNotFound)
}

func TestRecordGameResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	winner, err := s.RegisterUser(ctx, "winner")
	require.NoError(t, err)
	loser, err := s.RegisterUser(ctx, "loser")
	require.NoError(t, err)

	require.NoError(t, s.RecordGameResult(ctx, winner.ID, true, engine.CoinsDelta(true)))
	require.NoError(t, s.RecordGameResult(ctx, loser.ID, false, engine.CoinsDelta(false)))

	w, err := s.User(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1040), w.Coins)
	assert.Equal(t, 1025, w.Rating)
	assert.Equal(t, 1, w.GamesPlayed)
	assert.Equal(t, 1, w.GamesWon)
	assert.InDelta(t, 1.0, w.WinRate(), 1e-9)

	l, err := s.User(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(990), l.Coins)
	assert.Equal(t, 990, l.Rating)
	assert.Equal(t, 1, l.GamesPlayed)
	assert.Equal(t, 0, l.GamesWon)
	assert.Zero(t, l.WinRate())

	err = s.RecordGameResult(ctx, 9999, true, 40)
	require.ErrorIs(t, err, userdir.ErrUserNotFound)
}

func TestLeaderboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := map[string]int64{}
	for _, name := range []string{"ann", "ben", "cat"} {
		u, err := s.RegisterUser(ctx, name)
		require.NoError(t, err)
		ids[name] = u.ID
	}
	require.NoError(t, s.RecordGameResult(ctx, ids["cat"], true, 40))
	require.NoError(t, s.RecordGameResult(ctx, ids["ann"], false, -10))

	top, err := s.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "cat", top[0].DisplayName)
	assert.Equal(t, "ben", top[1].DisplayName)
}

func TestSaveGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	rec := results.GameRecord{
		RoomID:    7,
		RoomName:  "friday",
		Deck:      engine.Deck54,
		WinnerID:  1,
		StartedAt: start,
		EndedAt:   start.Add(10 * time.Minute),
		Participants: []results.Participant{
			{UserID: 2, DisplayName: "bob", Position: 1, CardsLeft: 4, CoinsDelta: -10},
			{UserID: 1, DisplayName: "alice", Position: 0, Won: true, CoinsDelta: 40},
		},
		Moves: []results.MoveRecord{
			{Seq: 1, PlayerID: 1, TargetID: 2, ClaimedRank: engine.RankSix, Outcome: engine.OutcomeContinue, At: start,
				Cards: []engine.Card{{Suit: engine.SuitHearts, Rank: engine.RankSix}, {Suit: engine.SuitSpades, Rank: engine.RankJoker}}},
			{Seq: 2, PlayerID: 2, TargetID: 1, ClaimedRank: engine.RankAce, Outcome: engine.OutcomeGameEnd, At: start.Add(time.Minute),
				Cards: []engine.Card{{Suit: engine.SuitClubs, Rank: engine.RankAce}}},
		},
	}
	require.NoError(t, s.SaveGame(ctx, rec))

	games, err := s.Games(ctx, 7)
	require.NoError(t, err)
	require.Len(t, games, 1)
	g := games[0]
	assert.Equal(t, "friday", g.RoomName)
	assert.Equal(t, 54, g.Deck)
	require.Len(t, g.Participants, 2)
	assert.Equal(t, "alice", g.Participants[0].DisplayName)
	require.Len(t, g.Moves, 2)
	assert.Equal(t, "6♥ JK", g.Moves[0].Cards)
	assert.Equal(t, string(engine.OutcomeGameEnd), g.Moves[1].Outcome)
}
