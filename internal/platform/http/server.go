package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/config"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
)

// Server exposes the ops endpoints. It binds its listener in Run so that a
// ":0" address works in tests; Addr reports what was bound.
type Server struct {
	http     *http.Server
	shutdown time.Duration
	log      *log.Logger

	mu    sync.Mutex
	bound net.Addr
	ready chan struct{}
}

func New(handler http.Handler, cfg *config.Config, logger *log.Logger) *Server {
	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}

	return &Server{
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		shutdown: shutdown,
		log:      log.OrNop(logger),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bound == nil {
		return s.http.Addr
	}
	return s.bound.String()
}

// Run serves until ctx is cancelled, then drains in-flight probes for at most
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("ops listen %s: %w", s.http.Addr, err)
	}
	s.mu.Lock()
	s.bound = ln.Addr()
	s.mu.Unlock()
	close(s.ready)

	s.log.Info("ops endpoints listening", log.Str("addr", ln.Addr().String()))

	served := make(chan error, 1)
	go func() { served <- s.http.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.log.Error("ops server stopped", log.Err(err))
		return err
	case <-ctx.Done():
	}

	drain, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := s.http.Shutdown(drain); err != nil {
		s.log.Error("ops server did not drain", log.Err(err), log.Dur("timeout", s.shutdown))
		return err
	}
	s.log.Info("ops endpoints closed")

	return nil
}
