package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"memory-match-server/auth"
	"memory-match-server/config"
	"memory-match-server/matcherrors"
	"memory-match-server/storage"
	"memory-match-server/ws"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	Config *config.Config
	Store  storage.EventStore // nil when telemetry is not persisted
	Hub    *ws.Hub
	Auth   ws.TokenValidator // nil when auth is not configured
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(cfg *config.Config, store storage.EventStore, hub *ws.Hub, validator ws.TokenValidator) *Handler {
	return &Handler{
		Config: cfg,
		Store:  store,
		Hub:    hub,
		Auth:   validator,
	}
}

// NewRouter mounts the websocket endpoint, health check and telemetry API.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(CORS)

	r.Get("/health", h.Health)
	r.Get("/ws", h.Hub.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)
		r.Get("/summary", h.Summary)
		r.Get("/history", h.History)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// CORS sets permissive CORS headers and answers preflight requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// HealthResponse is the JSON structure for /health.
type HealthResponse struct {
	OK        bool `json:"ok"`
	Clients   int  `json:"clients"`
	Telemetry bool `json:"telemetry"`
}

// Health reports liveness and the number of connected players.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, HealthResponse{OK: true, Clients: h.Hub.ConnectedClients(), Telemetry: h.Store != nil})
}

// Summary returns per-grid-size telemetry aggregates.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, matcherrors.ErrStorageNotEnabled.Error())
		return
	}
	summary, err := h.Store.Summary(r.Context())
	if err != nil {
		slog.Error("load summary", "tag", "api", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	writeJSON(w, summary)
}

// History returns the completed games of the authenticated user.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := h.extractUserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list := []storage.GameRecord{}
	if h.Store != nil {
		var err error
		list, err = h.Store.ListByUserID(r.Context(), userID, limit)
		if err != nil {
			slog.Error("load history", "tag", "api", "err", err)
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
	}
	writeJSON(w, list)
}

// extractUserID validates the Authorization header and returns the user ID, or empty string on failure.
func (h *Handler) extractUserID(r *http.Request) string {
	if h.Auth == nil {
		return ""
	}
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return ""
	}
	userID, err := h.Auth.UserID(token)
	if err != nil {
		return ""
	}
	return userID
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "tag", "api", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": message})
}
