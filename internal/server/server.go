// Package server wires the HTTP surface: routes, middleware and the listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Brownie44l1/pokedex-api/internal/config"
	"github.com/Brownie44l1/pokedex-api/internal/handlers"
	"github.com/Brownie44l1/pokedex-api/internal/metrics"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(cfg config.ServerConfig, h *handlers.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(logger),
		instrument(m),
		cors(),
		limitBody(cfg.MaxUploadBytes),
	)
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	r.Static("/static", cfg.StaticDir)
	r.GET("/", h.Index)
	r.POST("/analyze", h.Analyze)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	shutdownTimeout time.Duration
	logger          *slog.Logger
	srv             *http.Server
}

func New(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Serve accepts on ln until ctx is done, then shuts down within the
// configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Server starting", "addr", ln.Addr().String())
	s.logger.Info("Endpoints",
		"index", "GET /",
		"analyze", "POST /analyze",
		"static", "GET /static/*",
		"health", "GET /health",
		"metrics", "GET /metrics")

	errc := make(chan error, 1)
	go func() {
		errc <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
