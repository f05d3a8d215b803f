package userdir

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID          int64
	DisplayName string
}

// Directory resolves authenticated user ids to display names. Lookups may
// block on I/O.
type Directory interface {
	GetUser(ctx context.Context, id int64) (User, error)
}

// Func adapts a plain function to Directory.
type Func func(ctx context.Context, id int64) (User, error)

func (f Func) GetUser(ctx context.Context, id int64) (User, error) { return f(ctx, id) }

// Cached fronts a Directory with an in-process TTL cache. Misses are not
// cached.
type Cached struct {
	next  Directory
	cache *ristretto.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCached(next Directory, ttl time.Duration, log *zap.Logger) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 14, // entries, each costs 1
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("userdir: new cache: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{next: next, cache: cache, ttl: ttl, log: log.Named("userdir")}, nil
}

func (c *Cached) GetUser(ctx context.Context, id int64) (User, error) {
	if v, ok := c.cache.Get(id); ok {
		if u, ok := v.(User); ok {
			return u, nil
		}
	}
	u, err := c.next.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !c.cache.SetWithTTL(id, u, 1, c.ttl) {
		c.log.Debug("cache set dropped", zap.Int64("user_id", id))
	}
	return u, nil
}

// Invalidate drops a cached entry, e.g. after a rename.
func (c *Cached) Invalidate(id int64) { c.cache.Del(id) }

// Wait blocks until buffered writes are visible to Get.
func (c *Cached) Wait() { c.cache.Wait() }

func (c *Cached) Close() { c.cache.Close() }

// Guests accepts every positive id and names it after the id. It backs
// local runs without a database.
type Guests struct{}

func (Guests) GetUser(_ context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, ErrUserNotFound
	}
	return User{ID: id, DisplayName: fmt.Sprintf("Player %d", id)}, nil
}
