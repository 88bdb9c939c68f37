package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/DoyleJ11/maze-team-client/internal/hub"
	apitypes "github.com/DoyleJ11/maze-team-client/internal/types"
	"github.com/go-chi/chi/v5"
)

// TeamSource reports the running team. *team.Team implements it.
type TeamSource interface {
	Status() apitypes.TeamStatus
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func playerStatus(p hub.PlayerView, withMap bool) apitypes.PlayerStatus {
	st := apitypes.PlayerStatus{PlayerSnapshot: p.Snapshot, Events: p.Events, LastEvent: p.LastEvent}
	if !withMap {
		st.Map = ""
	}
	return st
}

func ListPlayers(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views := h.Players(r.Context())
		out := make([]apitypes.PlayerStatus, 0, len(views))
		for _, p := range views {
			out = append(out, playerStatus(p, false))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetPlayer(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.Player(r.Context(), chi.URLParam(r, "name"))
		if !ok {
			http.Error(w, "player not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, playerStatus(p, true))
	}
}

// GetPlayerMap serves the player's map as plain text.
func GetPlayerMap(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.Player(r.Context(), chi.URLParam(r, "name"))
		if !ok || p.Snapshot.Map == "" {
			http.Error(w, "player not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(p.Snapshot.Map))
	}
}

func GetTeam(t TeamSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if t == nil {
			http.Error(w, "team not registered", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, t.Status())
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
