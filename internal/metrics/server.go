package metrics

import (
	"context"
	"net/http"
	"time"
)

// Server exposes the Prometheus scrape endpoint while a long-running command
// (such as a key rotation) is in flight.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a scrape server on the given address serving the
// provider's handler at /metrics.
func NewServer(addr string, provider *Provider) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start blocks serving scrape requests until Shutdown is called.
// A closed-server error is reported as nil since it is the expected way out.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the scrape server, waiting for in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
