package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/hub"
	"github.com/DoyleJ11/bluff-backend/internal/lobby"
	"github.com/DoyleJ11/bluff-backend/internal/store"
	"github.com/DoyleJ11/bluff-backend/internal/types"
	"github.com/DoyleJ11/bluff-backend/internal/userdir"
	"github.com/DoyleJ11/bluff-backend/internal/ws"
)

// Accounts is the persistent side of users.
type Accounts interface {
	RegisterUser(ctx context.Context, displayName string) (store.User, error)
	User(ctx context.Context, id int64) (store.User, error)
	Leaderboard(ctx context.Context, n int) ([]store.User, error)
}

type api struct {
	hub      *hub.Hub
	users    userdir.Directory
	accounts Accounts
	log      *zap.Logger
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, userdir.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidState), errors.Is(err, store.ErrDisplayNameTaken):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := engine.Message(err)
	switch {
	case errors.Is(err, userdir.ErrUserNotFound):
		msg = "User not found"
	case errors.Is(err, store.ErrDisplayNameTaken):
		msg = "Display name is taken"
	}
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func (a *api) caller(w http.ResponseWriter, r *http.Request) (lobby.User, bool) {
	id, ok := ws.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Missing user"})
		return lobby.User{}, false
	}
	u, err := a.users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, userdir.ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unknown user"})
			return lobby.User{}, false
		}
		a.fail(w, r, err)
		return lobby.User{}, false
	}
	return lobby.User{ID: u.ID, DisplayName: u.DisplayName}, true
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid " + key})
		return 0, false
	}
	return id, true
}

func (a *api) listRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := hub.RoomFilter{Name: strings.TrimSpace(q.Get("name"))}
	f.OnlyJoinable, _ = strconv.ParseBool(q.Get("joinable"))
	if v := q.Get("deck"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !engine.DeckVariant(n).Valid() {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Unknown deck type"})
			return
		}
		f.Deck = engine.DeckVariant(n)
	}
	if v := q.Get("max_players"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid max_players"})
			return
		}
		f.MaxPlayers = n
	}

	rooms, err := a.hub.ListAvailable(r.Context(), f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (a *api) createRoom(w http.ResponseWriter, r *http.Request) {
	u, ok := a.caller(w, r)
	if !ok {
		return
	}
	var spec lobby.RoomSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
		return
	}
	view, err := a.hub.CreateRoom(r.Context(), spec, u)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (a *api) getRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	view, err := a.hub.Room(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// gameState is viewer scoped; anonymous callers see no hands.
func (a *api) gameState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	viewer, _ := ws.UserID(r)
	view, err := a.hub.GameState(r.Context(), id, viewer)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *api) joinRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	u, ok := a.caller(w, r)
	if !ok {
		return
	}
	res, err := a.hub.JoinRoom(r.Context(), id, u)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.JoinReply{Message: res.Message, Room: res.Room})
}

func (a *api) leaveRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	u, ok := a.caller(w, r)
	if !ok {
		return
	}
	left, err := a.hub.LeaveRoom(r.Context(), id, u.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.LeaveReply{RoomID: id, Left: left})
}

func (a *api) startGame(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	u, ok := a.caller(w, r)
	if !ok {
		return
	}
	if err := a.hub.StartGame(r.Context(), id, u.ID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userBody struct {
	ID          int64   `json:"id"`
	DisplayName string  `json:"display_name"`
	Coins       int64   `json:"coins"`
	Rating      int     `json:"rating"`
	GamesPlayed int     `json:"games_played"`
	GamesWon    int     `json:"games_won"`
	WinRate     float64 `json:"win_rate"`
}

func toUserBody(u store.User) userBody {
	return userBody{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Coins:       u.Coins,
		Rating:      u.Rating,
		GamesPlayed: u.GamesPlayed,
		GamesWon:    u.GamesWon,
		WinRate:     u.WinRate(),
	}
}

func (a *api) registerUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
		return
	}
	u, err := a.accounts.RegisterUser(r.Context(), body.DisplayName)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserBody(u))
}

func (a *api) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	u, err := a.accounts.User(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserBody(u))
}

func (a *api) leaderboard(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 100 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be between 1 and 100"})
			return
		}
		n = parsed
	}
	users, err := a.accounts.Leaderboard(r.Context(), n)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]userBody, 0, len(users))
	for _, u := range users {
		out = append(out, toUserBody(u))
	}
	writeJSON(w, http.StatusOK, out)
}
