package hub

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/lobby"
	"github.com/DoyleJ11/bluff-backend/internal/notify"
	"github.com/DoyleJ11/bluff-backend/internal/results"
	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Spec    lobby.RoomSpec
	Creator lobby.User
	Reply   chan *lobby.Lobby
}

type GetRoom struct {
	ID    int64
	Reply chan *lobby.Lobby // nil when unknown
}

type ListRooms struct {
	Reply chan []*lobby.Lobby
}

type RemoveRoom struct {
	ID int64
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

var ErrRoomNotFound = engine.Reject(engine.ErrNotFound, "Room not found")

type Options struct {
	Notifier notify.Notifier
	Results  results.Submitter
	Logger   *zap.Logger
	Now      func() time.Time
	// NewRand seeds each room's shuffler. Nil uses the clock.
	NewRand func() *rand.Rand
}

// Hub is the room registry. It owns the id counter and the set of room
// workers; room commands are forwarded to the owning worker outside the hub
// loop.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[int64]*lobby.Lobby
	nextID int64
	opts   Options
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[int64]*lobby.Lobby),
		opts:   opts,
		log:    opts.Logger.Named("hub"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				h.nextID++
				room := lobby.NewRoom(h.nextID, msg.Spec, msg.Creator, h.opts.Now())
				lb := lobby.NewLobby(h.ctx, room, h.lobbyOptions())
				h.rooms[room.ID] = lb
				h.log.Info("room created", zap.Int64("room_id", room.ID), zap.Int64("created_by", msg.Creator.ID))
				msg.Reply <- lb

			case GetRoom:
				msg.Reply <- h.rooms[msg.ID]

			case ListRooms:
				out := make([]*lobby.Lobby, 0, len(h.rooms))
				for _, lb := range h.rooms {
					out = append(out, lb)
				}
				msg.Reply <- out

			case RemoveRoom:
				if _, ok := h.rooms[msg.ID]; ok {
					delete(h.rooms, msg.ID)
					h.log.Info("room removed", zap.Int64("room_id", msg.ID))
				}

			case ShutdownHub:
				for _, lb := range h.rooms {
					lb.Close()
				}
				clear(h.rooms)
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) lobbyOptions() lobby.Options {
	o := lobby.Options{
		Notifier: h.opts.Notifier,
		Results:  h.opts.Results,
		Logger:   h.opts.Logger,
		Now:      h.opts.Now,
		OnRemove: h.forget,
	}
	if h.opts.NewRand != nil {
		o.Rand = h.opts.NewRand()
	}
	return o
}

// forget runs on a room worker; it must never wait on the hub loop.
func (h *Hub) forget(roomID int64) {
	select {
	case h.inbox <- RemoveRoom{ID: roomID}:
	default:
		go func() {
			select {
			case h.inbox <- RemoveRoom{ID: roomID}:
			case <-h.ctx.Done():
			}
		}()
	}
}

func request[T any](ctx context.Context, h *Hub, build func(chan T) HubMsg) (T, error) {
	var zero T
	reply := make(chan T, 1)
	select {
	case h.inbox <- build(reply):
	case <-h.done:
		return zero, context.Canceled
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, context.Canceled
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) lookup(ctx context.Context, id int64) (*lobby.Lobby, error) {
	lb, err := request(ctx, h, func(r chan *lobby.Lobby) HubMsg { return GetRoom{ID: id, Reply: r} })
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, ErrRoomNotFound
	}
	return lb, nil
}

// Lobbies returns every live room worker. The slice is a snapshot.
func (h *Hub) Lobbies(ctx context.Context) ([]*lobby.Lobby, error) {
	return request(ctx, h, func(r chan []*lobby.Lobby) HubMsg { return ListRooms{Reply: r} })
}

// CreateRoom validates spec, registers a new Waiting room with creator in
// seat 0 and announces it to the lobby.
func (h *Hub) CreateRoom(ctx context.Context, spec lobby.RoomSpec, creator lobby.User) (wire.RoomView, error) {
	spec, err := spec.Normalize()
	if err != nil {
		return wire.RoomView{}, err
	}
	lb, err := request(ctx, h, func(r chan *lobby.Lobby) HubMsg {
		return CreateRoom{Spec: spec, Creator: creator, Reply: r}
	})
	if err != nil {
		return wire.RoomView{}, err
	}
	view := lb.Summary().Room
	if err := h.opts.Notifier.NotifyLobby(wire.RoomCreated{Room: view}); err != nil {
		h.log.Warn("notify lobby", zap.String("event", wire.EvtRoomCreated), zap.Error(err))
	}
	return view, nil
}

func (h *Hub) Room(ctx context.Context, id int64) (wire.RoomView, error) {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return wire.RoomView{}, err
	}
	return lb.Summary().Room, nil
}

func (h *Hub) JoinRoom(ctx context.Context, id int64, u lobby.User) (lobby.JoinResult, error) {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return lobby.JoinResult{}, err
	}
	return lb.Join(ctx, u)
}

func (h *Hub) LeaveRoom(ctx context.Context, id, userID int64) (bool, error) {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return false, err
	}
	return lb.Leave(ctx, userID)
}

// CanStart reports whether the room exists, is Waiting and has at least two
// seats. StartGame applies the stricter player minimum.
func (h *Hub) CanStart(ctx context.Context, id int64) bool {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return false
	}
	r := lb.Summary().Room
	return r.Status == engine.RoomWaiting && len(r.Players) >= 2
}

type RoomFilter struct {
	OnlyJoinable bool
	Deck         engine.DeckVariant // zero matches any
	MaxPlayers   int                // zero matches any
	Name         string             // case-insensitive substring
}

func (f RoomFilter) match(r wire.RoomView) bool {
	if f.OnlyJoinable && (r.Status != engine.RoomWaiting || r.IsFull()) {
		return false
	}
	if f.Deck != 0 && r.Deck != f.Deck {
		return false
	}
	if f.MaxPlayers != 0 && r.MaxPlayers != f.MaxPlayers {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Name)) {
		return false
	}
	return true
}

// ListAvailable returns the rooms matching f, oldest first.
func (h *Hub) ListAvailable(ctx context.Context, f RoomFilter) ([]wire.RoomView, error) {
	lbs, err := h.Lobbies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]wire.RoomView, 0, len(lbs))
	for _, lb := range lbs {
		r := lb.Summary().Room
		if r.Status == engine.RoomCancelled || !f.match(r) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (h *Hub) UpdateStatus(ctx context.Context, id int64, st engine.RoomStatus) error {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return err
	}
	return lb.SetStatus(ctx, st)
}

// StartGame deals room id on behalf of by, who must be seated in it.
func (h *Hub) StartGame(ctx context.Context, id, by int64) error {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return err
	}
	return lb.StartGame(ctx, by)
}

func (h *Hub) MakeMove(ctx context.Context, id, playerID int64, m lobby.MoveRequest) (lobby.MoveResult, error) {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return lobby.MoveResult{}, err
	}
	return lb.MakeMove(ctx, playerID, m)
}

func (h *Hub) Challenge(ctx context.Context, id, challengerID int64, believe bool) (lobby.ChallengeResult, error) {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return lobby.ChallengeResult{}, err
	}
	return lb.Challenge(ctx, challengerID, believe)
}

func (h *Hub) EndGame(ctx context.Context, id, winnerID int64) error {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return err
	}
	return lb.EndGame(ctx, winnerID)
}

func (h *Hub) GameState(ctx context.Context, id, viewerID int64) (wire.GameView, error) {
	lb, err := h.lookup(ctx, id)
	if err != nil {
		return wire.GameView{}, err
	}
	return lb.GameState(ctx, viewerID)
}

// Close stops every room worker and then the hub itself.
func (h *Hub) Close() {
	select {
	case h.inbox <- ShutdownHub{}:
		<-h.done
	case <-h.done:
	}
}
