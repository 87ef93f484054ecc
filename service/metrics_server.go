package service

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the prometheus default gatherer on /metrics
type MetricsServer struct {
	gatherer prometheus.Gatherer

	mu     sync.Mutex
	server *http.Server
}

func NewMetricsServer(gatherer prometheus.Gatherer) *MetricsServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &MetricsServer{gatherer: gatherer}
}

func (m *MetricsServer) Router() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (m *MetricsServer) Start(addr string) error {
	srv := &http.Server{
		Handler: m.Router(),
		Addr:    addr,
	}
	m.mu.Lock()
	m.server = srv
	m.mu.Unlock()
	return srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	srv := m.server
	m.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
