// Package watchdog enforces the move, game and room-wait timeouts by
// periodically sweeping every room in the hub.
package watchdog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/hub"
	"github.com/DoyleJ11/bluff-backend/internal/lobby"
)

type Config struct {
	Interval        time.Duration
	MoveTimeout     time.Duration
	GameTimeout     time.Duration
	RoomWaitTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.MoveTimeout <= 0 {
		c.MoveTimeout = engine.MoveTimeout
	}
	if c.GameTimeout <= 0 {
		c.GameTimeout = engine.GameTimeout
	}
	if c.RoomWaitTimeout <= 0 {
		c.RoomWaitTimeout = engine.RoomWaitTimeout
	}
	return c
}

type Watchdog struct {
	hub *hub.Hub
	cfg Config
	log *zap.Logger
	now func() time.Time
}

func New(h *hub.Hub, cfg Config, log *zap.Logger) *Watchdog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watchdog{hub: h, cfg: cfg.withDefaults(), log: log.Named("watchdog"), now: time.Now}
}

// Run sweeps on every tick until ctx is done.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Sweep(ctx, w.now()); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Warn("sweep", zap.Error(err))
			}
		}
	}
}

// Sweep applies every timeout that has expired at now.
func (w *Watchdog) Sweep(ctx context.Context, now time.Time) error {
	rooms, err := w.hub.Lobbies(ctx)
	if err != nil {
		return err
	}
	for _, lb := range rooms {
		w.check(ctx, lb, now)
	}
	return nil
}

func (w *Watchdog) check(ctx context.Context, lb *lobby.Lobby, now time.Time) {
	s := lb.Summary()
	log := w.log.With(zap.Int64("room_id", s.Room.ID))

	switch {
	case s.Room.Status == engine.RoomWaiting:
		if now.Sub(s.Room.CreatedAt) > w.cfg.RoomWaitTimeout {
			log.Info("cancelling idle room")
			w.report(log, "cancel room", lb.SetStatus(ctx, engine.RoomCancelled))
		}

	case s.Phase == engine.PhasePlaying:
		if now.Sub(s.StartedAt) > w.cfg.GameTimeout {
			log.Info("game timed out")
			w.report(log, "end game", lb.EndGame(ctx, 0))
			return
		}
		last := s.LastMoveAt
		if last.IsZero() {
			last = s.StartedAt
		}
		if now.Sub(last) > w.cfg.MoveTimeout {
			log.Info("move timed out", zap.Int64("user_id", s.CurrentPlayerID))
			w.report(log, "timeout turn", lb.TimeoutTurn(ctx, s.CurrentPlayerID))
		}
	}
}

// report logs failures. Rejections here mean the room moved on between the
// summary read and the command, which is expected.
func (w *Watchdog) report(log *zap.Logger, op string, err error) {
	if err == nil {
		return
	}
	var rej *engine.RejectError
	if errors.As(err, &rej) {
		log.Debug(op+" skipped", zap.String("reason", rej.Message))
		return
	}
	log.Warn(op, zap.Error(err))
}
