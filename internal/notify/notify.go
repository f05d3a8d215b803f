// Package notify is the outbound boundary from the game engine to whatever
// delivers events to clients.
package notify

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

// Notifier delivers events. Implementations must not block on slow
// clients; rooms call them from inside their worker loop.
type Notifier interface {
	NotifyRoom(roomID int64, ev wire.Event) error
	NotifyLobby(ev wire.Event) error
	NotifyPlayer(userID int64, ev wire.Event) error
}

type Nop struct{}

func (Nop) NotifyRoom(int64, wire.Event) error   { return nil }
func (Nop) NotifyLobby(wire.Event) error         { return nil }
func (Nop) NotifyPlayer(int64, wire.Event) error { return nil }

// Fanout sends every event to each notifier in order and joins the errors.
type Fanout []Notifier

func (f Fanout) NotifyRoom(roomID int64, ev wire.Event) error {
	var err error
	for _, n := range f {
		err = multierr.Append(err, n.NotifyRoom(roomID, ev))
	}
	return err
}

func (f Fanout) NotifyLobby(ev wire.Event) error {
	var err error
	for _, n := range f {
		err = multierr.Append(err, n.NotifyLobby(ev))
	}
	return err
}

func (f Fanout) NotifyPlayer(userID int64, ev wire.Event) error {
	var err error
	for _, n := range f {
		err = multierr.Append(err, n.NotifyPlayer(userID, ev))
	}
	return err
}

// Log writes each event at debug level.
type Log struct {
	Logger *zap.Logger
}

func (l Log) NotifyRoom(roomID int64, ev wire.Event) error {
	l.Logger.Debug("notify room", zap.Int64("room_id", roomID), zap.String("event", ev.EventName()))
	return nil
}

func (l Log) NotifyLobby(ev wire.Event) error {
	l.Logger.Debug("notify lobby", zap.String("event", ev.EventName()))
	return nil
}

func (l Log) NotifyPlayer(userID int64, ev wire.Event) error {
	l.Logger.Debug("notify player", zap.Int64("user_id", userID), zap.String("event", ev.EventName()))
	return nil
}

// Sent is one recorded delivery. Exactly one of RoomID/UserID is set, or
// neither for lobby events.
type Sent struct {
	RoomID int64
	UserID int64
	Lobby  bool
	Event  wire.Event
}

// Recorder keeps every event in memory. It is safe for concurrent use and
// intended for tests and local tooling.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

func (r *Recorder) NotifyRoom(roomID int64, ev wire.Event) error {
	r.add(Sent{RoomID: roomID, Event: ev})
	return nil
}

func (r *Recorder) NotifyLobby(ev wire.Event) error {
	r.add(Sent{Lobby: true, Event: ev})
	return nil
}

func (r *Recorder) NotifyPlayer(userID int64, ev wire.Event) error {
	r.add(Sent{UserID: userID, Event: ev})
	return nil
}

func (r *Recorder) add(s Sent) {
	r.mu.Lock()
	r.sent = append(r.sent, s)
	r.mu.Unlock()
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Named returns the deliveries of one event name.
func (r *Recorder) Named(name string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Event.EventName() == name {
			out = append(out, s)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}
