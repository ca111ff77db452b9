// ===== internal/web/server.go =====
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dhcpwatch/internal/config"
	"dhcpwatch/internal/log"
	"dhcpwatch/internal/monitor"
	"dhcpwatch/internal/update"
)

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	monitor    *monitor.Monitor
	checker    *update.Checker
	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates a new web server. checker may be nil to disable
// update checks.
func NewServer(cfg *config.Config, mon *monitor.Monitor, checker *update.Checker) *Server {
	server := &Server{
		cfg:     cfg,
		monitor: mon,
		checker: checker,
		mux:     http.NewServeMux(),
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:              cfg.HTTPListen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

// Handler returns the request handler with request logging applied
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Start starts the HTTP server and blocks until it is shut down
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/logs", s.handleLogsAPI)
	s.mux.HandleFunc("/api/logs/clear", s.handleClearAPI)
	s.mux.HandleFunc("/api/option50", s.handleOption50API)
	s.mux.HandleFunc("/api/stats", s.handleStatsAPI)
	s.mux.HandleFunc("/api/packet", s.handlePacketAPI)
	s.mux.HandleFunc("/api/decode", s.handleDecodeAPI)
	s.mux.HandleFunc("/api/interfaces", s.handleInterfacesAPI)
	s.mux.HandleFunc("/api/capture", s.handleCaptureAPI)
	s.mux.HandleFunc("/api/capture/start", s.handleCaptureStartAPI)
	s.mux.HandleFunc("/api/capture/stop", s.handleCaptureStopAPI)
	s.mux.HandleFunc("/api/settings", s.handleSettingsAPI)
	s.mux.HandleFunc("/api/update", s.handleUpdateAPI)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Logger.Debugf("Request from %s: %s %s", r.RemoteAddr, r.Method, r.URL.String())
		next.ServeHTTP(w, r)
	})
}
