// Package web provides the HTTP surface around the relay core: the
// websocket endpoint, a health check, Prometheus metrics, and static
// game-client assets.
package web

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/arcadehall/relay/internal/config"
	"github.com/arcadehall/relay/internal/frontend/ws"
	"github.com/arcadehall/relay/internal/game/room"
	"github.com/arcadehall/relay/internal/observability"
)

// healthResponse mirrors the health payload game clients and load
// balancers already expect.
type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Rooms     int    `json:"rooms"`
}

// errorResponse is the JSON body for 404s.
type errorResponse struct {
	Error string `json:"error"`
	Path  string `json:"path"`
}

// NewRouter wires up all HTTP routes and middleware.
//
// Precondition: logger, registry, metrics, and hub must be non-nil.
func NewRouter(cfg config.HTTPConfig, logger *zap.Logger, registry *room.Registry, metrics *observability.Metrics, hub *ws.Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:    "OK",
			Message:   "relay server is running",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Rooms:     registry.Count(),
		})
	})

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/", newStaticHandler(cfg.StaticDir, logger))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(mux)
}

// staticHandler serves the game client: game.html at the root, other
// assets by path, and a JSON 404 for anything unknown.
type staticHandler struct {
	dir string
	fs  http.Handler
	log *zap.Logger
}

func newStaticHandler(dir string, logger *zap.Logger) *staticHandler {
	return &staticHandler{
		dir: dir,
		fs:  http.FileServer(http.Dir(dir)),
		log: logger,
	}
}

func (s *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		http.ServeFile(w, r, filepath.Join(s.dir, "game.html"))
		return
	}

	path := filepath.Join(s.dir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		s.fs.ServeHTTP(w, r)
		return
	}

	s.log.Debug("path not found", zap.String("path", r.URL.Path))
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "Path not found", Path: r.URL.Path})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
