package lobby

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/notify"
	"github.com/DoyleJ11/bluff-backend/internal/results"
	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

type Msg interface{ isLobbyMsg() }

// Reply carries a command's answer back to the caller.
type Reply[T any] struct {
	Value T
	Err   error
}

type Join struct {
	User  User
	Reply chan Reply[JoinResult]
}

type Leave struct {
	UserID int64
	Reply  chan Reply[bool]
}

type StartGame struct {
	By    int64
	Reply chan Reply[struct{}]
}

type MakeMove struct {
	PlayerID int64
	Move     MoveRequest
	Reply    chan Reply[MoveResult]
}

type Challenge struct {
	ChallengerID int64
	Believe      bool
	Reply        chan Reply[ChallengeResult]
}

// EndGame finishes the game. A zero WinnerID picks the Playing seat with
// the fewest cards.
type EndGame struct {
	WinnerID int64
	Reply    chan Reply[struct{}]
}

type SetStatus struct {
	Status engine.RoomStatus
	Reply  chan Reply[struct{}]
}

// TimeoutTurn skips Expected's turn if it is still theirs.
type TimeoutTurn struct {
	Expected int64
	Reply    chan Reply[struct{}]
}

type GetState struct {
	ViewerID int64
	Reply    chan Reply[wire.GameView]
}

type Shutdown struct{}

func (Join) isLobbyMsg()        {}
func (Leave) isLobbyMsg()       {}
func (StartGame) isLobbyMsg()   {}
func (MakeMove) isLobbyMsg()    {}
func (Challenge) isLobbyMsg()   {}
func (EndGame) isLobbyMsg()     {}
func (SetStatus) isLobbyMsg()   {}
func (TimeoutTurn) isLobbyMsg() {}
func (GetState) isLobbyMsg()    {}
func (Shutdown) isLobbyMsg()    {}

type JoinResult struct {
	Message string
	Room    wire.RoomView
}

type MoveResult struct {
	Message   string
	State     wire.GameView
	GameEnded bool
	WinnerID  int64
}

type ChallengeResult struct {
	Message    string
	Outcome    engine.Outcome
	Result     *engine.ChallengeResult
	PickedUpBy int64
	State      wire.GameView
}

// Summary is the copy-on-write public face of a room, readable without
// going through the worker.
type Summary struct {
	Room            wire.RoomView
	Phase           engine.Phase
	CurrentPlayerID int64
	StartedAt       time.Time
	LastMoveAt      time.Time
}

type Options struct {
	Notifier notify.Notifier
	Results  results.Submitter
	Logger   *zap.Logger
	Rand     *rand.Rand
	Now      func() time.Time
	// OnRemove is called from the worker once the room is deleted. It must
	// not block.
	OnRemove func(roomID int64)
}

// Lobby is the sequential worker that owns one room and its game. Every
// mutation of the room happens on its goroutine.
type Lobby struct {
	inbox   chan Msg
	room    Room
	game    *GameState
	summary atomic.Pointer[Summary]
	removed bool

	notifier notify.Notifier
	results  results.Submitter
	log      *zap.Logger
	rng      *rand.Rand
	now      func() time.Time
	onRemove func(int64)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var errRoomGone = engine.Reject(engine.ErrNotFound, "Room not found")

func NewLobby(parent context.Context, room Room, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:    make(chan Msg, 64),
		room:     room,
		notifier: opts.Notifier,
		results:  opts.Results,
		log:      opts.Logger,
		rng:      opts.Rand,
		now:      opts.Now,
		onRemove: opts.OnRemove,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if l.notifier == nil {
		l.notifier = notify.Nop{}
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	l.log = l.log.With(zap.Int64("room_id", room.ID))
	if l.rng == nil {
		l.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if l.now == nil {
		l.now = time.Now
	}
	l.publish()

	go l.loop()
	return l
}

func (l *Lobby) ID() int64 { return l.room.ID }

// Inbox exposes the raw message channel for tests and the hub.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed when the worker has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) Summary() Summary { return *l.summary.Load() }

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return

		case m := <-l.inbox:
			var send func()
			switch msg := m.(type) {
			case Join:
				v, err := guard(l, "join", func() (JoinResult, error) { return l.join(msg.User) })
				send = func() { msg.Reply <- Reply[JoinResult]{v, err} }

			case Leave:
				v, err := guard(l, "leave", func() (bool, error) { return l.leave(msg.UserID) })
				send = func() { msg.Reply <- Reply[bool]{v, err} }

			case StartGame:
				_, err := guard(l, "start game", func() (struct{}, error) { return struct{}{}, l.startGame(msg.By) })
				send = func() { msg.Reply <- Reply[struct{}]{Err: err} }

			case MakeMove:
				v, err := guard(l, "make move", func() (MoveResult, error) { return l.makeMove(msg.PlayerID, msg.Move) })
				send = func() { msg.Reply <- Reply[MoveResult]{v, err} }

			case Challenge:
				v, err := guard(l, "challenge", func() (ChallengeResult, error) { return l.challenge(msg.ChallengerID, msg.Believe) })
				send = func() { msg.Reply <- Reply[ChallengeResult]{v, err} }

			case EndGame:
				_, err := guard(l, "end game", func() (struct{}, error) { return struct{}{}, l.endGameCmd(msg.WinnerID) })
				send = func() { msg.Reply <- Reply[struct{}]{Err: err} }

			case SetStatus:
				_, err := guard(l, "set status", func() (struct{}, error) { return struct{}{}, l.setStatus(msg.Status) })
				send = func() { msg.Reply <- Reply[struct{}]{Err: err} }

			case TimeoutTurn:
				_, err := guard(l, "timeout turn", func() (struct{}, error) { return struct{}{}, l.timeoutTurn(msg.Expected) })
				send = func() { msg.Reply <- Reply[struct{}]{Err: err} }

			case GetState:
				v, err := guard(l, "get state", func() (wire.GameView, error) { return l.gameView(msg.ViewerID), nil })
				send = func() { msg.Reply <- Reply[wire.GameView]{v, err} }

			case Shutdown:
				l.cancel()
				return
			}

			// Publish before replying so a caller never reads a summary
			// older than its own command.
			l.publish()
			if l.removed && l.onRemove != nil {
				l.onRemove(l.room.ID)
			}
			if send != nil {
				send()
			}
			if l.removed {
				l.cancel()
				return
			}
		}
	}
}

// guard runs one command and turns a panic into ErrInternal so a bad
// command never takes the worker down. A panicking command is rolled back
// to the state it started from.
func guard[T any](l *Lobby, op string, fn func() (T, error)) (v T, err error) {
	cp := l.checkpoint()
	defer func() {
		if r := recover(); r != nil {
			l.restore(cp)
			l.log.Error("command panicked", zap.String("op", op), zap.Any("panic", r), zap.Stack("stack"))
			var zero T
			v, err = zero, fmt.Errorf("%s: %w", op, engine.ErrInternal)
		}
	}()
	return fn()
}

type checkpoint struct {
	room    Room
	game    *GameState
	removed bool
}

func (l *Lobby) checkpoint() checkpoint {
	cp := checkpoint{room: l.room, removed: l.removed}
	cp.room.Seats = engine.CloneSeats(l.room.Seats)
	if l.game != nil {
		cp.game = l.game.clone()
	}
	return cp
}

func (l *Lobby) restore(cp checkpoint) {
	l.room = cp.room
	l.game = cp.game
	l.removed = cp.removed
}

func (l *Lobby) publish() {
	s := Summary{Room: l.roomView(0)}
	if l.game != nil {
		s.Phase = l.game.Phase
		s.CurrentPlayerID = l.game.CurrentPlayer
		s.StartedAt = l.game.StartedAt
		s.LastMoveAt = l.game.LastMoveAt
	}
	l.summary.Store(&s)
}

// ask sends a message built around a fresh reply channel and waits for the
// answer, the caller's context, or the worker stopping.
func ask[T any](ctx context.Context, l *Lobby, build func(chan Reply[T]) Msg) (T, error) {
	var zero T
	reply := make(chan Reply[T], 1)
	select {
	case l.inbox <- build(reply):
	case <-l.done:
		return zero, errRoomGone
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.Value, r.Err
	case <-l.done:
		// the worker may have answered right before stopping
		select {
		case r := <-reply:
			return r.Value, r.Err
		default:
			return zero, errRoomGone
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (l *Lobby) Join(ctx context.Context, u User) (JoinResult, error) {
	return ask(ctx, l, func(r chan Reply[JoinResult]) Msg { return Join{User: u, Reply: r} })
}

func (l *Lobby) Leave(ctx context.Context, userID int64) (bool, error) {
	return ask(ctx, l, func(r chan Reply[bool]) Msg { return Leave{UserID: userID, Reply: r} })
}

// StartGame deals the cards. by must hold a seat in the room.
func (l *Lobby) StartGame(ctx context.Context, by int64) error {
	_, err := ask(ctx, l, func(r chan Reply[struct{}]) Msg { return StartGame{By: by, Reply: r} })
	return err
}

func (l *Lobby) MakeMove(ctx context.Context, playerID int64, m MoveRequest) (MoveResult, error) {
	return ask(ctx, l, func(r chan Reply[MoveResult]) Msg { return MakeMove{PlayerID: playerID, Move: m, Reply: r} })
}

func (l *Lobby) Challenge(ctx context.Context, challengerID int64, believe bool) (ChallengeResult, error) {
	return ask(ctx, l, func(r chan Reply[ChallengeResult]) Msg {
		return Challenge{ChallengerID: challengerID, Believe: believe, Reply: r}
	})
}

func (l *Lobby) EndGame(ctx context.Context, winnerID int64) error {
	_, err := ask(ctx, l, func(r chan Reply[struct{}]) Msg { return EndGame{WinnerID: winnerID, Reply: r} })
	return err
}

func (l *Lobby) SetStatus(ctx context.Context, st engine.RoomStatus) error {
	_, err := ask(ctx, l, func(r chan Reply[struct{}]) Msg { return SetStatus{Status: st, Reply: r} })
	return err
}

func (l *Lobby) TimeoutTurn(ctx context.Context, expected int64) error {
	_, err := ask(ctx, l, func(r chan Reply[struct{}]) Msg { return TimeoutTurn{Expected: expected, Reply: r} })
	return err
}

func (l *Lobby) GameState(ctx context.Context, viewerID int64) (wire.GameView, error) {
	return ask(ctx, l, func(r chan Reply[wire.GameView]) Msg { return GetState{ViewerID: viewerID, Reply: r} })
}

func (l *Lobby) Close() {
	select {
	case l.inbox <- Shutdown{}:
	case <-l.done:
	}
}

func (l *Lobby) emitRoom(ev wire.Event) {
	if err := l.notifier.NotifyRoom(l.room.ID, ev); err != nil {
		l.log.Warn("notify room", zap.String("event", ev.EventName()), zap.Error(err))
	}
}

func (l *Lobby) emitLobby(ev wire.Event) {
	if err := l.notifier.NotifyLobby(ev); err != nil {
		l.log.Warn("notify lobby", zap.String("event", ev.EventName()), zap.Error(err))
	}
}

func (l *Lobby) emitPlayer(userID int64, ev wire.Event) {
	if err := l.notifier.NotifyPlayer(userID, ev); err != nil {
		l.log.Warn("notify player", zap.Int64("user_id", userID), zap.String("event", ev.EventName()), zap.Error(err))
	}
}

// broadcastState sends each seated player their own view of the game.
func (l *Lobby) broadcastState(started bool) {
	now := l.now()
	for _, s := range l.room.Seats {
		view := l.gameView(s.UserID)
		if started {
			l.emitPlayer(s.UserID, wire.GameStarted{RoomID: l.room.ID, State: view, Timestamp: now})
			continue
		}
		l.emitPlayer(s.UserID, wire.GameStateUpdated{RoomID: l.room.ID, State: view})
	}
}
