package userdir

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingDir(calls *atomic.Int32) Directory {
	return Func(func(_ context.Context, id int64) (User, error) {
		calls.Add(1)
		if id == 404 {
			return User{}, ErrUserNotFound
		}
		return User{ID: id, DisplayName: "player"}, nil
	})
}

func TestCached_HitsAfterFirstLookup(t *testing.T) {
	var calls atomic.Int32
	c, err := NewCached(countingDir(&calls), time.Minute, nil)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	u, err := c.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, User{ID: 7, DisplayName: "player"}, u)
	c.Wait()

	for i := 0; i < 3; i++ {
		u, err = c.GetUser(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), u.ID)
	}
	assert.Equal(t, int32(1), calls.Load())

	c.Invalidate(7)
	_, err = c.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCached_MissesAreNotCached(t *testing.T) {
	var calls atomic.Int32
	c, err := NewCached(countingDir(&calls), time.Minute, nil)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 2; i++ {
		_, err := c.GetUser(context.Background(), 404)
		require.ErrorIs(t, err, ErrUserNotFound)
		c.Wait()
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestGuests(t *testing.T) {
	u, err := Guests{}.GetUser(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, User{ID: 12, DisplayName: "Player 12"}, u)

	_, err = Guests{}.GetUser(context.Background(), 0)
	require.ErrorIs(t, err, ErrUserNotFound)
}
