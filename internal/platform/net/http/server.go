// Package http hosts the operator HTTP server: metrics, health and optional profiling
package http

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"ghscan/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// DefaultAddr is used when no listen address is configured
const DefaultAddr = ":9090"

// Server is a thin wrapper over chi + stdlib http.Server
type Server struct {
	addr string
	mux  *chi.Mux
	srv  *stdhttp.Server
	ln   net.Listener
}

// NewServer creates a server for addr with panic recovery and access logging installed.
// opts receive the *chi.Mux so callers can mount routes
func NewServer(addr string, opts ...func(*chi.Mux)) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	m := chi.NewRouter()
	m.Use(chimw.Recoverer, AccessLog)
	for _, o := range opts {
		o(m)
	}
	return &Server{
		addr: addr,
		mux:  m,
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Mux returns the router
func (s *Server) Mux() *chi.Mux { return s.mux }

// Addr returns the listening address; after Listen it is the bound address
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Listen binds the address without serving yet
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Run serves until ctx is done or Shutdown is called
func (s *Server) Run(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	log := logger.Named("http")
	log.Info().Str("addr", s.Addr()).Msg("http listening")

	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(s.ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(sctx); err != nil {
			return err
		}
		<-errc
		return nil
	}
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
