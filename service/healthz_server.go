package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type HealthzServer struct {
	log   log.Logger
	board *StatusBoard

	mu     sync.Mutex
	server *http.Server
}

func NewHealthzServer(logger log.Logger, board *StatusBoard) *HealthzServer {
	if logger == nil {
		logger = log.New()
	}
	if board == nil {
		board = NewStatusBoard()
	}
	return &HealthzServer{log: logger, board: board}
}

// Router returns the handler tree served by the healthz server
func (h *HealthzServer) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.HandleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/status", h.HandleStatus).Methods(http.MethodGet)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(r)
}

func (h *HealthzServer) Start(addr string) error {
	srv := &http.Server{
		Handler: h.Router(),
		Addr:    addr,
	}
	h.mu.Lock()
	h.server = srv
	h.mu.Unlock()
	return srv.ListenAndServe()
}

func (h *HealthzServer) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	srv := h.server
	h.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (h *HealthzServer) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}

func (h *HealthzServer) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.board.Snapshot()); err != nil {
		h.log.Error("failed to encode status", "err", err)
	}
}
