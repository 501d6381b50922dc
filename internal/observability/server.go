package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsServer exposes /metrics and /health over HTTP
type MetricsServer struct {
	addr   string
	logger *zap.Logger
	server *http.Server
	bound  string
}

// NewMetricsServer creates a server for addr (host:port)
func NewMetricsServer(addr string, logger *zap.Logger) *MetricsServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsServer{addr: addr, logger: logger}
}

// Start listens and serves in the background
func (s *MetricsServer) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"up"}`))
	})

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.bound = listener.Addr().String()
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	s.logger.Info("metrics server starting", zap.String("addr", s.bound))
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *MetricsServer) Addr() string {
	return s.bound
}

// Stop shuts the server down
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
