package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/hub"
	"github.com/DoyleJ11/bluff-backend/internal/userdir"
)

type Deps struct {
	Hub   *hub.Hub
	Users userdir.Directory
	// Accounts is optional; without it the user and leaderboard routes are
	// not mounted.
	Accounts Accounts
	WS       http.Handler
	Logger   *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	a := &api{hub: d.Hub, users: d.Users, accounts: d.Accounts, log: d.Logger.Named("http")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	// Public routes
	r.Get("/healthz", Healthz)
	if d.WS != nil {
		r.Method(http.MethodGet, "/ws", d.WS)
	}

	r.Route("/rooms", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/", a.listRooms)
		r.Post("/", a.createRoom)
		r.Route("/{roomID}", func(r chi.Router) {
			r.Get("/", a.getRoom)
			r.Get("/state", a.gameState)
			r.Post("/join", a.joinRoom)
			r.Post("/leave", a.leaveRoom)
			r.Post("/start", a.startGame)
		})
	})

	if d.Accounts != nil {
		r.Post("/users", a.registerUser)
		r.Get("/users/{userID}", a.getUser)
		r.Get("/leaderboard", a.leaderboard)
	}
	return r
}
