package results

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stat struct {
	userID int64
	won    bool
	delta  int64
}

type fakeSink struct {
	mu    sync.Mutex
	stats []stat
	fail  int64
}

func (f *fakeSink) RecordGameResult(_ context.Context, userID int64, won bool, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if userID == f.fail {
		return errors.New("boom")
	}
	f.stats = append(f.stats, stat{userID, won, delta})
	return nil
}

func (f *fakeSink) snapshot() []stat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stat(nil), f.stats...)
}

type fakeArchive struct {
	mu   sync.Mutex
	recs []GameRecord
}

func (f *fakeArchive) SaveGame(_ context.Context, rec GameRecord) error {
	f.mu.Lock()
	f.recs = append(f.recs, rec)
	f.mu.Unlock()
	return nil
}

func (f *fakeArchive) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

func record() GameRecord {
	return GameRecord{
		RoomID:   1,
		WinnerID: 10,
		Participants: []Participant{
			{UserID: 10, Won: true, CoinsDelta: 40},
			{UserID: 11, CoinsDelta: -10},
			{UserID: 12, CoinsDelta: -10},
		},
	}
}

func TestWorker_RecordsEveryParticipantAndArchives(t *testing.T) {
	sink := &fakeSink{}
	arch := &fakeArchive{}
	w := NewWorker(sink, arch, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = w.Run(ctx); close(done) }()

	w.Submit(record())

	require.Eventually(t, func() bool { return arch.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []stat{{10, true, 40}, {11, false, -10}, {12, false, -10}}, sink.snapshot())

	cancel()
	<-done
}

func TestWorker_SinkErrorDoesNotStopOthers(t *testing.T) {
	sink := &fakeSink{fail: 11}
	w := NewWorker(sink, nil, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	w.Submit(record())
	require.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestWorker_DrainsOnShutdown(t *testing.T) {
	sink := &fakeSink{}
	w := NewWorker(sink, nil, 4, nil)
	w.Submit(record())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Len(t, sink.snapshot(), 3)
}

func TestWorker_SubmitNeverBlocks(t *testing.T) {
	w := NewWorker(&fakeSink{}, nil, 1, nil)
	done := make(chan struct{})
	go func() {
		w.Submit(record())
		w.Submit(record())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Submit blocked on a full queue")
	}
}
