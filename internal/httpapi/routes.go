package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/maze-team-client/internal/feed"
	"github.com/DoyleJ11/maze-team-client/internal/hub"
	"github.com/DoyleJ11/maze-team-client/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(h *hub.Hub, f *feed.Feed, t TeamSource, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/team", GetTeam(t))
	r.Route("/players", func(r chi.Router) {
		r.Get("/", ListPlayers(h))
		r.Get("/{name}", GetPlayer(h))
		r.Get("/{name}/map", GetPlayerMap(h))
	})
	r.Get("/ws", ws.Handler(f, log))
	return r
}
