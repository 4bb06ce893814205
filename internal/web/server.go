package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/meko-christian/mail-watcher/internal/store"
)

// Defaults of the status page.
const (
	DefaultLimit   = 20
	DefaultRefresh = 5 * time.Second
)

// Server renders the most recent subjects of a store. It only reads.
type Server struct {
	addr     string
	reader   store.Reader
	limit    int
	refresh  time.Duration
	server   *http.Server
	listener net.Listener
}

func NewServer(addr string, reader store.Reader) *Server {
	s := &Server{
		addr:    addr,
		reader:  reader,
		limit:   DefaultLimit,
		refresh: DefaultRefresh,
	}

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router of the status page: GET / and nothing else.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)

	return r
}

// Listen binds the listening socket. A failure here is fatal for the process,
// so it is kept apart from Serve and happens before the poller starts.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = ln
	slog.Info("Web server listening", "address", ln.Addr().String())

	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Serve handles requests until ctx is done and then shuts down gracefully.
// Listen must have been called.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("web server is not listening")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down web server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
