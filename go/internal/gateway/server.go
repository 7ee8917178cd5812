package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const shutdownTimeout = 5 * time.Second

// Server is the optional HTTP side of the daemon.
type Server struct {
	httpServer *http.Server
	manager    *ConnectionManager
}

// NewServer builds the HTTP server for addr. Routes are wrapped in CORS and
// served over h2c.
func NewServer(addr string, config ConnectionConfig, status StatusProvider, streams StreamRegistry) *Server {
	manager := NewConnectionManager(config)

	mux := http.NewServeMux()
	NewHandler(manager, status, streams).RegisterRoutes(mux)
	setupHealthCheck(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h2c.NewHandler(c.Handler(mux), &http2.Server{}),
			ReadHeaderTimeout: 10 * time.Second,
		},
		manager: manager,
	}
}

// Handler returns the root handler, for serving from an existing listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Manager returns the WebSocket connection manager.
func (s *Server) Manager() *ConnectionManager {
	return s.manager
}

// Start serves until ctx is cancelled, then shuts down and closes every
// WebSocket listener.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("gateway listening")
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	s.manager.CloseAll()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway shutdown failed")
	}
	<-errCh

	log.Info().Msg("gateway stopped")
	return nil
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
