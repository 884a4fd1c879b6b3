package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cloudopsstack/cloudops-engine/internal/config"
	"github.com/cloudopsstack/cloudops-engine/internal/services"
)

// Server exposes the dashboard API and event ingestion endpoint over HTTP.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the HTTP routes onto the incident service.
func NewServer(cfg config.ServerConfig, service *services.IncidentService, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("incident service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{service: service, logger: logger}

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.HandleFunc("/events", h.postEvent).Methods(http.MethodPost)
	router.HandleFunc("/incidents", h.listIncidents).Methods(http.MethodGet)
	router.HandleFunc("/incidents/{id}", h.getIncident).Methods(http.MethodGet)
	router.HandleFunc("/incidents/{id}/resolve", h.resolveIncident).Methods(http.MethodPost)
	router.HandleFunc("/metrics", h.getMetrics).Methods(http.MethodGet)
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.NotFoundHandler = corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	}))

	readTimeout := 10 * time.Second
	writeTimeout := 30 * time.Second

	return &Server{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}, nil
}

// Start serves HTTP requests until Shutdown is invoked.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("address", s.cfg.Address))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// corsMiddleware applies the open CORS policy the dashboard expects and
// short-circuits preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
