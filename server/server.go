// Package server provides the Daemon-based process lifecycle shared by
// all three votecore binaries: an optional HTTP handler plus a set of
// background daemons (queue consumer, reconciler ticker, ...), started
// in order and stopped concurrently on SIGINT/SIGQUIT, with SIGHUP
// reserved for a future config reload hook.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/caasmo/votecore/config"
)

// Daemon defines the contract for background components managed by
// the server's lifecycle (Start/Stop).
type Daemon interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}

// Server runs an optional HTTP handler alongside a set of Daemons and
// coordinates graceful shutdown across all of them.
type Server struct {
	configProvider *config.Provider
	handler        http.Handler // nil for non-HTTP binaries (voteworker, votereconcile)
	logger         *slog.Logger
	daemons        []Daemon
}

// New constructs a Server. handler may be nil for daemon-only processes.
func New(provider *config.Provider, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		configProvider: provider,
		handler:        handler,
		logger:         logger,
		daemons:        make([]Daemon, 0),
	}
}

// AddDaemon registers a daemon whose lifecycle the server will manage.
func (s *Server) AddDaemon(d Daemon) {
	if d == nil {
		s.logger.Warn("attempted to add a nil daemon")
		return
	}
	s.logger.Info("adding daemon", "daemon_name", d.Name())
	s.daemons = append(s.daemons, d)
}

func (s *Server) handleSIGHUP() {
	s.logger.Info("received SIGHUP - configuration hot-reload is not wired for this process")
}

// Run starts the HTTP server (if any) and all daemons, then blocks
// until a termination signal or a startup/runtime error, and performs
// an orderly shutdown with the server's configured timeout.
func (s *Server) Run() {
	serverCfg := s.configProvider.Get().Server

	var httpSrv *http.Server
	serverError := make(chan error, 1)

	if s.handler != nil {
		httpSrv = &http.Server{
			Addr:              serverCfg.Addr,
			Handler:           s.handler,
			ReadTimeout:       serverCfg.ReadTimeout,
			ReadHeaderTimeout: serverCfg.ReadHeaderTimeout,
			WriteTimeout:      serverCfg.WriteTimeout,
			IdleTimeout:       serverCfg.IdleTimeout,
		}
		go func() {
			s.logger.Info("starting HTTP server", "addr", serverCfg.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("HTTP server error", "err", err)
				serverError <- err
			}
		}()
	}

	s.logger.Info("starting daemons sequentially")
	var startupFailed bool
	for _, d := range s.daemons {
		s.logger.Info("starting daemon", "daemon_name", d.Name())
		if err := d.Start(); err != nil {
			s.logger.Error("daemon failed to start, initiating shutdown", "daemon_name", d.Name(), "error", err)
			serverError <- fmt.Errorf("daemon %q failed to start: %w", d.Name(), err)
			startupFailed = true
			break
		}
	}
	if !startupFailed {
		s.logger.Info("all daemons started successfully")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP)

	running := true
	for running {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGINT, syscall.SIGQUIT:
				s.logger.Info("received termination signal, shutting down", "signal", sig)
				running = false
			case syscall.SIGHUP:
				s.handleSIGHUP()
			}
		case err := <-serverError:
			s.logger.Error("shutting down due to error", "err", err)
			running = false
		}
	}

	signal.Stop(sigChan)
	close(sigChan)

	shutdownTimeout := serverCfg.ShutdownGracefulTimeout
	gracefulCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownGroup, _ := errgroup.WithContext(gracefulCtx)

	if httpSrv != nil {
		shutdownGroup.Go(func() error {
			s.logger.Info("shutting down HTTP server")
			if err := httpSrv.Shutdown(gracefulCtx); err != nil {
				s.logger.Error("HTTP server shutdown error", "err", err)
				return err
			}
			return nil
		})
	}

	for _, d := range s.daemons {
		daemon := d
		shutdownGroup.Go(func() error {
			s.logger.Info("stopping daemon", "daemon_name", daemon.Name())
			if err := daemon.Stop(gracefulCtx); err != nil {
				s.logger.Error("error stopping daemon", "daemon_name", daemon.Name(), "error", err)
				return fmt.Errorf("daemon %q failed to stop gracefully: %w", daemon.Name(), err)
			}
			return nil
		})
	}

	if err := shutdownGroup.Wait(); err != nil {
		s.logger.Error("error during shutdown", "err", err)
		os.Exit(1)
	}

	s.logger.Info("all systems stopped gracefully")
}
