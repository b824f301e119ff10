package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/jobsh/internal/api/models"
	"github.com/smazurov/jobsh/internal/events"
	"github.com/smazurov/jobsh/internal/jobs"
	"github.com/smazurov/jobsh/internal/logging"
	"github.com/smazurov/jobsh/internal/metrics"
	"github.com/smazurov/jobsh/internal/version"
)

// JobLister is the read side of the job registry.
type JobLister interface {
	Jobs() []jobs.JobInfo
	Lookup(pid int) (*jobs.Record, bool)
}

// Options configures the debug server.
type Options struct {
	Jobs              JobLister
	EventBus          *events.Bus         // Optional, enables /api/events
	Logs              *logging.RingBuffer // Defaults to the global log buffer
	PrometheusHandler http.Handler        // Optional Prometheus metrics handler
	Logger            *slog.Logger        // Defaults to the "api" module logger
}

// Server is the read-only debug API of a running shell.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	jobs       JobLister
	eventBus   *events.Bus
	logs       *logging.RingBuffer
	logger     *slog.Logger
	mu         sync.Mutex
	done       chan struct{}
}

// NewServer creates the debug API with Huma v2 using Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("jobsh debug API", version.String())
	config.Info.Description = "Inspect the jobs and logs of a running jobsh shell"
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	logs := opts.Logs
	if logs == nil {
		logs = logging.GetBuffer()
	}

	server := &Server{
		api:      api,
		mux:      mux,
		jobs:     opts.Jobs,
		eventBus: opts.EventBus,
		logs:     logs,
		logger:   opts.Logger,
	}
	if server.logger == nil {
		server.logger = logging.GetLogger("api")
	}

	api.UseMiddleware(requestLogger(server.logger))

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start listens on addr and serves in the background.
// It returns the bound address, which differs from addr when addr asks for port 0.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})
	srv, done := s.httpServer, s.done
	s.mu.Unlock()

	bound := ln.Addr().String()
	s.logger.Info("Starting debug API server", "addr", bound)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+bound+"/docs")

	go func() {
		defer close(done)
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("Debug API server failed", "error", serveErr)
		}
	}()
	return bound, nil
}

// Stop closes the listener and every open connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv, done := s.httpServer, s.done
	s.httpServer = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("Stopping debug API server")
	// Event streams never finish on their own.
	err := srv.Close()
	<-done
	return err
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check that the shell is alive and report job counters",
		Tags:        []string{"health"},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "shell is running",
				Jobs:    metrics.Snapshot(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				BuildID:   info.BuildID,
				GoVersion: info.GoVersion,
				Compiler:  info.Compiler,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerJobRoutes()
	s.registerLogRoutes()
	if s.eventBus != nil {
		s.registerEventRoutes()
	}
}
