package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"unidata-cache/internal/config"
	"unidata-cache/internal/interfaces"
	"unidata-cache/internal/utils"
)

// Server represents the unidata HTTP server
type Server struct {
	resolver interfaces.Resolver
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a new HTTP server in front of resolver
func NewServer(resolver interfaces.Resolver, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		resolver: resolver,
		logger:   logger,
	}
	s.server = &http.Server{
		Handler:      s.createRouter(),
		ReadTimeout:  cfg.GetServerReadTimeout(),
		WriteTimeout: cfg.GetServerWriteTimeout(),
		IdleTimeout:  cfg.GetServerIdleTimeout(),
	}
	return s
}

// Start listens on the TCP address and serves until Stop is called.
// After Stop it returns http.ErrServerClosed, even if Stop ran first.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.logger.Info("Starting unidata HTTP server", zap.String("addr", listener.Addr().String()))
	return s.server.Serve(listener)
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping unidata HTTP server")
	return s.server.Shutdown(ctx)
}

// createRouter creates and configures the HTTP router
func (s *Server) createRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleRoot).Methods("GET")
	router.HandleFunc("/unidata/{university}", s.handleUnidata).Methods("GET")

	// Health check
	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// writeResponse writes JSON response
func (s *Server) writeResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := utils.WriteJSON(w, v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeErrorResponse writes error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, detail string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := utils.WriteJSON(w, &ErrorResponse{Detail: detail}); err != nil {
		s.logger.Error("Failed to write error response", zap.Error(err))
	}
}
