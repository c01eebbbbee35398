// Package keepalive serves a fixed liveness message so hosting platforms
// that probe HTTP see the bot as up.
package keepalive

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"sjsage522/shopcollagebot/logger"
)

const shutdownTimeout = 5 * time.Second

// Server answers GET / with the configured message
type Server struct {
	addr    string
	message string
	log     *logger.Logger
}

// NewServer creates a keep-alive server listening on addr
func NewServer(addr, message string) *Server {
	return &Server{
		addr:    addr,
		message: message,
		log:     logger.ForComponent("keepalive"),
	}
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(s.message))
	})
	return mux
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("Keep-alive server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("Keep-alive server stopped")
	return nil
}
