// Package server builds the HTTP router and runs it until its context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snerberd/snerberd/internal/config"
)

// ShutdownFunc releases one component, such as a database pool.
type ShutdownFunc func(ctx context.Context) error

type component struct {
	name string
	stop ShutdownFunc
}

// Server is an http.Server plus the components to stop after it.
type Server struct {
	http            *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration

	mu         sync.Mutex
	components []component
}

func New(handler http.Handler, cfg *config.Config, logger *slog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.AppPort),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// OnShutdown registers fn to run once the HTTP server has drained.
// Components stop in reverse registration order.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	s.components = append(s.components, component{name: name, stop: fn})
	s.mu.Unlock()
}

func (s *Server) Addr() string { return s.http.Addr }

// Run listens on the configured port and calls Serve.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or serving fails, then
// shuts everything down. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			s.logger.Info("shutdown signal received", slog.Any("cause", context.Cause(ctx)))
		}
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.http.SetKeepAlivesEnabled(false)

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	s.mu.Lock()
	components := slices.Clone(s.components)
	s.mu.Unlock()
	slices.Reverse(components)

	for _, c := range components {
		if err := c.stop(ctx); err != nil {
			s.logger.Error("component shutdown failed", slog.String("name", c.name), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		s.logger.Info("component stopped", slog.String("name", c.name))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
