package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/types"
	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

var ErrSlowClient = errors.New("slow client dropped")

// Client is one live connection. A user may hold several.
type Client struct {
	ID     uuid.UUID
	UserID int64

	out      chan []byte
	done     chan struct{}
	doneOnce sync.Once
}

// Out yields encoded frames for the writer.
func (c *Client) Out() <-chan []byte { return c.out }

// Done is closed once the client is unregistered or dropped for being slow.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) close() { c.doneOnce.Do(func() { close(c.done) }) }

// Registry routes notifications to connections: to everyone, to a user's
// connections, or to the connections that joined a room group.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]*Client
	byUser map[int64]map[uuid.UUID]*Client
	groups map[int64]map[uuid.UUID]*Client

	buffer int
	log    *zap.Logger
}

func NewRegistry(buffer int, log *zap.Logger) *Registry {
	if buffer <= 0 {
		buffer = 32
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		conns:  make(map[uuid.UUID]*Client),
		byUser: make(map[int64]map[uuid.UUID]*Client),
		groups: make(map[int64]map[uuid.UUID]*Client),
		buffer: buffer,
		log:    log.Named("ws"),
	}
}

func (r *Registry) Register(userID int64) *Client {
	c := &Client{
		ID:     uuid.New(),
		UserID: userID,
		out:    make(chan []byte, r.buffer),
		done:   make(chan struct{}),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
	add(r.byUser, userID, c)
	return c
}

func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	r.unregisterLocked(c)
	r.mu.Unlock()
}

func (r *Registry) unregisterLocked(c *Client) {
	if _, ok := r.conns[c.ID]; !ok {
		return
	}
	delete(r.conns, c.ID)
	remove(r.byUser, c.UserID, c.ID)
	for roomID := range r.groups {
		remove(r.groups, roomID, c.ID)
	}
	c.close()
}

func (r *Registry) JoinGroup(roomID int64, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.ID]; ok {
		add(r.groups, roomID, c)
	}
}

func (r *Registry) LeaveGroup(roomID int64, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	remove(r.groups, roomID, c.ID)
}

// Online reports how many connections are registered.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) NotifyRoom(roomID int64, ev wire.Event) error {
	r.mu.RLock()
	targets := values(r.groups[roomID])
	r.mu.RUnlock()
	return r.deliver(targets, ev)
}

func (r *Registry) NotifyLobby(ev wire.Event) error {
	r.mu.RLock()
	targets := values(r.conns)
	r.mu.RUnlock()
	err := r.deliver(targets, ev)

	if del, ok := ev.(wire.RoomDeleted); ok {
		r.mu.Lock()
		delete(r.groups, del.RoomID)
		r.mu.Unlock()
	}
	return err
}

func (r *Registry) NotifyPlayer(userID int64, ev wire.Event) error {
	r.mu.RLock()
	targets := values(r.byUser[userID])
	r.mu.RUnlock()
	return r.deliver(targets, ev)
}

// Send queues a direct reply to one client.
func (r *Registry) Send(c *Client, msg types.ServerMessage) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ws: encode %s: %w", msg.Type, err)
	}
	return r.push(c, frame)
}

func (r *Registry) deliver(targets []*Client, ev wire.Event) error {
	if len(targets) == 0 {
		return nil
	}
	frame, err := json.Marshal(types.ServerMessage{Type: ev.EventName(), Data: ev})
	if err != nil {
		return fmt.Errorf("ws: encode %s: %w", ev.EventName(), err)
	}
	var errs error
	for _, c := range targets {
		errs = multierr.Append(errs, r.push(c, frame))
	}
	return errs
}

// push never blocks. A client whose buffer is full is dropped; its writer
// sees Done and closes the socket.
func (r *Registry) push(c *Client, frame []byte) error {
	select {
	case <-c.done:
		return nil
	default:
	}
	select {
	case c.out <- frame:
		return nil
	default:
	}
	r.log.Warn("dropping slow client", zap.Stringer("conn_id", c.ID), zap.Int64("user_id", c.UserID))
	r.Unregister(c)
	return fmt.Errorf("%w: %s", ErrSlowClient, c.ID)
}

func add(m map[int64]map[uuid.UUID]*Client, key int64, c *Client) {
	set := m[key]
	if set == nil {
		set = make(map[uuid.UUID]*Client)
		m[key] = set
	}
	set[c.ID] = c
}

func remove(m map[int64]map[uuid.UUID]*Client, key int64, id uuid.UUID) {
	set := m[key]
	if set == nil {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m, key)
	}
}

func values(m map[uuid.UUID]*Client) []*Client {
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}
