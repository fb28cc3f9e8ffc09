package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Server wraps the HTTP server with graceful shutdown. Registered shutdown
// hooks run after in-flight requests drain, in registration order.
type Server struct {
	httpServer *http.Server
	port       string
	onShutdown []func()
}

func NewServer(port string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: handler,
			// No WriteTimeout: the SSE stream is a deliberately
			// long-lived response.
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		port: port,
	}
}

// OnShutdown registers a hook to run after the HTTP server drains.
func (s *Server) OnShutdown(fn func()) {
	s.onShutdown = append(s.onShutdown, fn)
}

// Start runs the server until it fails or an interrupt arrives.
func (s *Server) Start() error {
	serverErrors := make(chan error, 1)

	go func() {
		log.Printf("Server starting on port %s", s.port)
		serverErrors <- s.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Printf("Server shutting down: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.httpServer.Close()
			return fmt.Errorf("could not gracefully shutdown server: %w", err)
		}

		for _, fn := range s.onShutdown {
			fn()
		}

		log.Println("Server stopped gracefully")
	}

	return nil
}
