// Package server runs the HTTP surface of the service mode.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server serves the sync API. Listen binds the address, Serve blocks until
// Shutdown.
type Server struct {
	http     *http.Server
	listener net.Listener
	log      *slog.Logger
}

func New(cfg Config, handler http.Handler, log *slog.Logger) *Server {
	//nolint: exhaustruct // optional server config
	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		log: log.With(slog.String("component", "api")),
	}
}

func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	s.listener = l
	return nil
}

// Addr is the bound address once Listen returned, the configured one before.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.http.Addr
}

func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("serve before listen")
	}

	s.log.Info("Sync API listening", slog.String("addr", s.Addr()))

	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve sync api: %w", err)
	}
	return nil
}

// Start listens and serves.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	started := time.Now()

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop sync api on %s: %w", s.Addr(), err)
	}

	s.log.Info("Sync API stopped",
		slog.String("addr", s.Addr()),
		slog.Duration("drain", time.Since(started)))

	return nil
}
