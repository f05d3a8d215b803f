// Package results delivers finished games to the stats sink and the game
// archive off the room worker's goroutine.
package results

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
)

// StatsSink is told once per participant of every finished game.
type StatsSink interface {
	RecordGameResult(ctx context.Context, userID int64, won bool, coinsDelta int64) error
}

// Archive stores a finished game for later inspection.
type Archive interface {
	SaveGame(ctx context.Context, rec GameRecord) error
}

type Participant struct {
	UserID      int64
	DisplayName string
	Position    int
	Won         bool
	CardsLeft   int
	CoinsDelta  int64
}

type MoveRecord struct {
	Seq         int
	PlayerID    int64
	TargetID    int64
	Cards       []engine.Card
	ClaimedRank engine.Rank
	Outcome     engine.Outcome
	At          time.Time
}

type GameRecord struct {
	RoomID       int64
	RoomName     string
	Deck         engine.DeckVariant
	WinnerID     int64
	StartedAt    time.Time
	EndedAt      time.Time
	Participants []Participant
	Moves        []MoveRecord
}

// Submitter is what rooms see of the worker.
type Submitter interface {
	Submit(rec GameRecord)
}

type Worker struct {
	queue   chan GameRecord
	sink    StatsSink
	archive Archive
	log     *zap.Logger
}

// NewWorker builds a worker with room for size pending games. archive may
// be nil.
func NewWorker(sink StatsSink, archive Archive, size int, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	if size <= 0 {
		size = 64
	}
	return &Worker{
		queue:   make(chan GameRecord, size),
		sink:    sink,
		archive: archive,
		log:     log,
	}
}

// Submit never blocks. A full queue drops the record and logs it.
func (w *Worker) Submit(rec GameRecord) {
	select {
	case w.queue <- rec:
	default:
		w.log.Error("results queue full, dropping game",
			zap.Int64("room_id", rec.RoomID), zap.Int64("winner_id", rec.WinnerID))
	}
}

// Run processes records until ctx is cancelled, then drains what is already
// queued with a short deadline.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case rec := <-w.queue:
			w.handle(ctx, rec)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-w.queue:
			w.handle(ctx, rec)
		default:
			return
		}
	}
}

func (w *Worker) handle(ctx context.Context, rec GameRecord) {
	log := w.log.With(zap.Int64("room_id", rec.RoomID))
	if w.sink != nil {
		for _, p := range rec.Participants {
			if err := w.sink.RecordGameResult(ctx, p.UserID, p.Won, p.CoinsDelta); err != nil {
				log.Error("record game result", zap.Int64("user_id", p.UserID), zap.Error(err))
			}
		}
	}
	if w.archive != nil {
		if err := w.archive.SaveGame(ctx, rec); err != nil {
			log.Error("archive game", zap.Error(err))
			return
		}
	}
	log.Info("game results recorded", zap.Int64("winner_id", rec.WinnerID), zap.Int("moves", len(rec.Moves)))
}
