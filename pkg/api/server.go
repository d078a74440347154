// Package api provides the HTTP surface: the polling deep-research
// endpoints, the streaming research endpoint, the progress WebSocket, and
// health. Handlers are thin; session and supervisor logic lives below.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/events"
	"github.com/kgee-io/kgee/pkg/session"
)

// Server is the HTTP API server.
type Server struct {
	echo        *echo.Echo
	httpServer  *http.Server
	cfg         *config.Config
	sessions    *session.Manager
	runner      session.SupervisorRunner
	broker      *events.Broker
	connManager *events.ConnectionManager
	extractor   Extractor // nil until set
}

// SetExtractor wires the extraction service behind POST /api/v1/extract.
func (s *Server) SetExtractor(extractor Extractor) {
	s.extractor = extractor
}

// NewServer creates the API server and registers all routes.
func NewServer(
	cfg *config.Config,
	sessions *session.Manager,
	runner session.SupervisorRunner,
	broker *events.Broker,
	connManager *events.ConnectionManager,
) *Server {
	e := echo.New()

	s := &Server{
		echo:        e,
		cfg:         cfg,
		sessions:    sessions,
		runner:      runner,
		broker:      broker,
		connManager: connManager,
	}
	s.setupRoutes()
	return s
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")

	// Document extraction.
	v1.POST("/extract", s.extractHandler)

	// Deep research (polling front-end). Static paths before :id params.
	v1.POST("/research/deep", s.startDeepResearchHandler)
	v1.GET("/research/deep/health", s.deepResearchHealthHandler)
	v1.GET("/research/deep/:id/status", s.researchStatusHandler)
	v1.GET("/research/deep/:id/export", s.exportResearchHandler)
	v1.GET("/research/deep/:id", s.researchResultHandler)
	v1.POST("/research/deep/:id/cancel", s.cancelResearchHandler)

	// Streaming research (SSE front-end over the same supervisor core).
	v1.POST("/research/stream", s.streamResearchHandler)

	// WebSocket progress feed for dashboards.
	v1.GET("/ws", s.wsHandler)
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }
