package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080
)

type Config struct {
	HealthzAddr    string
	HealthzPort    int
	MetricsEnabled bool
	MetricsAddr    string
	MetricsPort    int
	Board          *StatusBoard
	Log            log.Logger
}

type Service struct {
	cfg     Config
	log     log.Logger
	Healthz *HealthzServer
	Metrics *MetricsServer
}

func New(cfg Config) *Service {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.HealthzAddr == "" {
		cfg.HealthzAddr = HealthzHost
	}
	if cfg.HealthzPort == 0 {
		cfg.HealthzPort = HealthzPort
	}
	s := &Service{
		cfg:     cfg,
		log:     cfg.Log.New("component", "service"),
		Healthz: NewHealthzServer(cfg.Log, cfg.Board),
	}
	if cfg.MetricsEnabled {
		s.Metrics = NewMetricsServer(nil)
	}
	return s
}

func (s *Service) Start() {
	s.log.Info("service starting")

	go func() {
		addr := net.JoinHostPort(s.cfg.HealthzAddr, strconv.Itoa(s.cfg.HealthzPort))
		s.log.Info("starting healthz server", "addr", addr)
		if err := s.Healthz.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("healthz_server_start", err)
		}
	}()

	if s.Metrics != nil {
		go func() {
			addr := net.JoinHostPort(s.cfg.MetricsAddr, strconv.Itoa(s.cfg.MetricsPort))
			s.log.Info("starting metrics server", "addr", addr)
			if err := s.Metrics.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("metrics_server_start", err)
			}
		}()
	}

	s.log.Info("service started")
}

func (s *Service) Shutdown(ctx context.Context) {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown(ctx)
	s.log.Info("healthz stopped")

	if s.Metrics != nil {
		_ = s.Metrics.Shutdown(ctx)
		s.log.Info("metrics stopped")
	}

	s.log.Info("service stopped")
}
