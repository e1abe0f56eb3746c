// Package server owns the process lifecycle: it wires the application through
// bootstrap, serves HTTP with the job scheduler alongside, and tears both down
// in dependency order on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebridge/carebridge/internal/bootstrap"
	"github.com/carebridge/carebridge/internal/config"
	"github.com/carebridge/carebridge/internal/db"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 60 * time.Second // file uploads and xlsx downloads
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server holds the wired application
type Server struct {
	config *config.Config
	router *gin.Engine
	db     *db.PostgresDB
	deps   *bootstrap.Dependencies
	logger zerolog.Logger
	http   *http.Server
}

// NewServer loads configuration, connects and migrates the database and
// builds every service, controller and scheduled job.
func NewServer() (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(cfg, database, lgr)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	return &Server{
		config: cfg,
		router: bootstrap.SetupRouter(cfg, deps, database, lgr),
		db:     database,
		deps:   deps,
		logger: lgr,
	}, nil
}

// Run serves HTTP and runs scheduled jobs until ctx is cancelled, a
// termination signal arrives or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.http = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	if s.deps.Scheduler != nil {
		s.deps.Scheduler.Start()
	} else {
		s.logger.Info().Msg("Scheduled jobs disabled")
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Str("mode", s.config.Server.Mode).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown requested")
	}

	if err := s.Shutdown(context.Background()); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// RunJob runs one scheduled job to completion and releases all resources,
// without starting the HTTP listener. Used by `api -job <name>` for
// re-running a missed accumulation or EDI batch by hand.
func (s *Server) RunJob(ctx context.Context, name string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.deps.Scheduler == nil {
		if err := bootstrap.SetupScheduler(s.config, s.deps); err != nil {
			return errors.Join(err, s.Shutdown(context.Background()))
		}
	}

	status, err := s.deps.Scheduler.RunNow(ctx, name)
	s.logger.Info().Str("job", name).Str("status", status).Msg("Manual job run finished")

	return errors.Join(err, s.Shutdown(context.Background()))
}

// Shutdown stops accepting requests, waits for running jobs, then closes
// the cache client and the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		} else {
			s.logger.Info().Msg("HTTP server stopped")
		}
	}

	if s.deps.Scheduler != nil {
		if err := s.deps.Scheduler.Stop(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Job scheduler did not stop in time")
			errs = append(errs, err)
		}
	}

	s.deps.Close()

	if s.db != nil {
		s.db.Close()
		s.logger.Info().Msg("Database connection pool closed")
	}

	return errors.Join(errs...)
}
