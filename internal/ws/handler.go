package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/hub"
	"github.com/DoyleJ11/bluff-backend/internal/lobby"
	"github.com/DoyleJ11/bluff-backend/internal/types"
	"github.com/DoyleJ11/bluff-backend/internal/userdir"
	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

const (
	readIdleTimeout = 2 * time.Minute
	writeTimeout    = 3 * time.Second
)

// UserID extracts the caller's already authenticated id from the X-User-ID
// header, or the user_id query parameter for browsers that cannot set
// headers on upgrade.
func UserID(r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		raw = r.URL.Query().Get("user_id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type Handler struct {
	hub   *hub.Hub
	reg   *Registry
	users userdir.Directory
	log   *zap.Logger
}

func NewHandler(h *hub.Hub, reg *Registry, users userdir.Directory, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{hub: h, reg: reg, users: users, log: log.Named("ws")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserID(r)
	if !ok {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}
	if _, err := h.users.GetUser(r.Context(), uid); err != nil {
		if errors.Is(err, userdir.ErrUserNotFound) {
			http.Error(w, "unknown user", http.StatusUnauthorized)
			return
		}
		h.log.Error("resolve user", zap.Int64("user_id", uid), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Register before the handshake completes so nothing broadcast after the
	// client sees the upgrade is missed.
	c := h.reg.Register(uid)
	defer h.reg.Unregister(c)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()
	log := h.log.With(zap.Stringer("conn_id", c.ID), zap.Int64("user_id", uid))
	log.Debug("connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.writeLoop(ctx, cancel, conn, c)

	for {
		readCtx, readCancel := context.WithTimeout(ctx, readIdleTimeout)
		_, data, err := conn.Read(readCtx)
		readCancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debug("disconnected")
			default:
				log.Debug("read failed", zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			h.reply(c, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
			continue
		}
		h.Dispatch(ctx, c, cm)
	}
}

func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *Client) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Done():
			conn.Close(websocket.StatusPolicyViolation, "too slow")
			return
		case frame := <-c.Out():
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			wcancel()
			if err != nil {
				return
			}
		}
	}
}

// Dispatch runs one client command. Failures are reported to c alone; the
// room's own notifications cover the success path.
func (h *Handler) Dispatch(ctx context.Context, c *Client, cm types.ClientMessage) {
	switch cm.Type {
	case types.CmdCreateRoom:
		if cm.Room == nil {
			h.event(c, wire.RoomCreationFailed{Message: "Room settings are required"})
			return
		}
		u, err := h.user(ctx, c.UserID)
		if err != nil {
			h.event(c, wire.RoomCreationFailed{Message: engine.Message(err)})
			return
		}
		view, err := h.hub.CreateRoom(ctx, *cm.Room, u)
		if err != nil {
			h.event(c, wire.RoomCreationFailed{Message: engine.Message(err)})
			return
		}
		h.reg.JoinGroup(view.ID, c)
		h.reply(c, types.ServerMessage{Type: types.MsgJoined, Data: types.JoinReply{Message: "Room created", Room: view}})

	case types.CmdJoinRoom:
		u, err := h.user(ctx, c.UserID)
		if err != nil {
			h.event(c, wire.JoinRoomFailed{RoomID: cm.RoomID, Message: engine.Message(err)})
			return
		}
		res, err := h.hub.JoinRoom(ctx, cm.RoomID, u)
		if err != nil {
			h.event(c, wire.JoinRoomFailed{RoomID: cm.RoomID, Message: engine.Message(err)})
			return
		}
		h.reg.JoinGroup(cm.RoomID, c)
		h.reply(c, types.ServerMessage{Type: types.MsgJoined, Data: types.JoinReply{Message: res.Message, Room: res.Room}})

	case types.CmdLeaveRoom:
		left, err := h.hub.LeaveRoom(ctx, cm.RoomID, c.UserID)
		if err != nil {
			h.reply(c, types.ServerMessage{Type: types.MsgError, Error: engine.Message(err)})
			return
		}
		h.reg.LeaveGroup(cm.RoomID, c)
		h.reply(c, types.ServerMessage{Type: types.MsgLeft, Data: types.LeaveReply{RoomID: cm.RoomID, Left: left}})

	case types.CmdStartGame:
		if err := h.hub.StartGame(ctx, cm.RoomID, c.UserID); err != nil {
			h.event(c, wire.GameStartFailed{RoomID: cm.RoomID, Message: engine.Message(err)})
		}

	case types.CmdMakeMove:
		_, err := h.hub.MakeMove(ctx, cm.RoomID, c.UserID, lobby.MoveRequest{
			Cards:       cm.Cards,
			ClaimedRank: cm.ClaimedRank,
			TargetID:    cm.TargetID,
		})
		if err != nil {
			h.event(c, wire.MoveRejected{RoomID: cm.RoomID, Message: engine.Message(err)})
		}

	case types.CmdBelieve:
		if cm.Believe == nil {
			h.event(c, wire.BelieveError{RoomID: cm.RoomID, Message: "Believe flag is required"})
			return
		}
		if _, err := h.hub.Challenge(ctx, cm.RoomID, c.UserID, *cm.Believe); err != nil {
			h.event(c, wire.BelieveError{RoomID: cm.RoomID, Message: engine.Message(err)})
		}

	case types.CmdGetGameState:
		view, err := h.hub.GameState(ctx, cm.RoomID, c.UserID)
		if err != nil {
			h.reply(c, types.ServerMessage{Type: types.MsgError, Error: engine.Message(err)})
			return
		}
		h.reply(c, types.ServerMessage{Type: types.MsgGameState, Data: view})

	case types.CmdListRooms:
		rooms, err := h.hub.ListAvailable(ctx, hub.RoomFilter{OnlyJoinable: cm.OnlyJoin})
		if err != nil {
			h.reply(c, types.ServerMessage{Type: types.MsgError, Error: engine.Message(err)})
			return
		}
		h.reply(c, types.ServerMessage{Type: types.MsgRoomList, Data: rooms})

	default:
		h.reply(c, types.ServerMessage{Type: types.MsgError, Error: "unknown type"})
	}
}

// user resolves the display name fresh for every room command.
func (h *Handler) user(ctx context.Context, id int64) (lobby.User, error) {
	u, err := h.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, userdir.ErrUserNotFound) {
			return lobby.User{}, engine.Reject(engine.ErrNotFound, "User not found")
		}
		h.log.Error("resolve user", zap.Int64("user_id", id), zap.Error(err))
		return lobby.User{}, err
	}
	return lobby.User{ID: u.ID, DisplayName: u.DisplayName}, nil
}

func (h *Handler) event(c *Client, ev wire.Event) {
	h.reply(c, types.ServerMessage{Type: ev.EventName(), Data: ev})
}

func (h *Handler) reply(c *Client, msg types.ServerMessage) {
	if err := h.reg.Send(c, msg); err != nil {
		h.log.Debug("reply dropped", zap.String("type", msg.Type), zap.Error(err))
	}
}
