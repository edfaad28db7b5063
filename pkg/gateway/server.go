// Package gateway exposes the event log and ingress queue to remote
// clients: polling reads over `since=<index>`, non-blocking submission,
// schedule control, and an optional WebSocket push stream.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tinypirate/tinypirate/pkg/bus"
	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/config"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
	"github.com/tinypirate/tinypirate/pkg/logger"
	"github.com/tinypirate/tinypirate/pkg/media"
	"github.com/tinypirate/tinypirate/pkg/ratelimit"
	"github.com/tinypirate/tinypirate/pkg/scheduler"
)

// version is set by the caller (main) via SetVersion.
var apiVersion = "dev"

// SetVersion sets the version string returned by the health endpoint.
func SetVersion(v string) {
	apiVersion = v
}

// ArchiveReader recovers events already evicted from the in-memory
// ring. The event archive implements it.
type ArchiveReader interface {
	FetchSince(since uint64, limit int) ([]eventlog.Event, error)
}

// Server is the Polling Gateway HTTP server.
type Server struct {
	cfg        config.GatewayConfig
	log        *eventlog.Log
	commandBus *bus.CommandBus
	classifier *command.Classifier
	schedules  *scheduler.Service
	limiter    *ratelimit.Limiter
	mediaStore media.Store
	mediaDir   string
	archive    ArchiveReader
	server     *http.Server
}

// NewServer creates the gateway over its collaborators.
func NewServer(cfg config.GatewayConfig, log *eventlog.Log, commandBus *bus.CommandBus, classifier *command.Classifier, schedules *scheduler.Service, limiter *ratelimit.Limiter, mediaStore media.Store, mediaDir string) *Server {
	return &Server{
		cfg:        cfg,
		log:        log,
		commandBus: commandBus,
		classifier: classifier,
		schedules:  schedules,
		limiter:    limiter,
		mediaStore: mediaStore,
		mediaDir:   mediaDir,
	}
}

// SetArchive attaches the durable event archive so pollers whose since
// index fell below the ring floor can recover evicted events.
func (s *Server) SetArchive(a ArchiveReader) {
	s.archive = a
}

// Handler returns the routed http.Handler with auth applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/submit", s.handleSubmit)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("POST /api/media", s.handleMediaUpload)
	mux.HandleFunc("GET /api/schedules", s.handleListSchedules)
	mux.HandleFunc("PUT /api/schedules/{id}", s.handleSetSchedule)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	publicPaths := []string{"/api/health"}
	return AuthMiddleware(s.cfg.APIKey, publicPaths, mux)
}

// Start begins listening on the configured host:port.
func (s *Server) Start() error {
	host := s.cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := s.cfg.Port
	if port == 0 {
		port = 18890
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: s.Handler(),
	}

	go func() {
		logger.InfoCF("gateway", "HTTP server starting", map[string]any{"addr": s.server.Addr})
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("gateway", "HTTP server error", map[string]any{"error": err.Error()})
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
