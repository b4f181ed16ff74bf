// Package api exposes the service layer as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/abszero/smartledger/internal/auth"
	"github.com/abszero/smartledger/internal/catalog"
	"github.com/abszero/smartledger/internal/config"
	"github.com/abszero/smartledger/internal/service"
)

// Server wires the HTTP surface: routing, auth, logging, and metrics.
type Server struct {
	router   *mux.Router
	cfg      *config.Config
	jwt      *auth.JWTManager
	logger   *slog.Logger
	metrics  *httpMetrics
	gatherer prometheus.Gatherer

	authSvc *service.AuthService
	groups  *service.GroupService
	txs     *service.TransactionService
	auditor *service.Auditor
	catalog *catalog.Catalog
}

// Deps bundles the service-layer dependencies of the server.
type Deps struct {
	JWT      *auth.JWTManager
	Auth     *service.AuthService
	Groups   *service.GroupService
	Txs      *service.TransactionService
	Auditor  *service.Auditor
	Catalog  *catalog.Catalog
	Registry *prometheus.Registry
}

// New creates a Server and sets up its routes.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		cfg:      cfg,
		jwt:      deps.JWT,
		logger:   logger,
		metrics:  newHTTPMetrics(deps.Registry),
		gatherer: deps.Registry,
		authSvc:  deps.Auth,
		groups:   deps.Groups,
		txs:      deps.Txs,
		auditor:  deps.Auditor,
		catalog:  deps.Catalog,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.measureRequests, s.logRequests)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	s.router.HandleFunc("/api/auth/register", s.handleRegister).Methods("POST")
	s.router.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST")

	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(s.requireAuth)

	protected.HandleFunc("/me", s.handleProfile).Methods("GET")

	protected.HandleFunc("/groups", s.handleCreateGroup).Methods("POST")
	protected.HandleFunc("/groups/{id}", s.handleGetGroup).Methods("GET")
	protected.HandleFunc("/groups/{id}", s.handleUpdateGroup).Methods("PUT")
	protected.HandleFunc("/groups/{id}", s.handleDeleteGroup).Methods("DELETE")
	protected.HandleFunc("/groups/{id}/join", s.handleJoinGroup).Methods("POST")
	protected.HandleFunc("/groups/{id}/invites", s.handleInvite).Methods("POST")
	protected.HandleFunc("/groups/{id}/members/{sub}", s.handleRemoveMember).Methods("DELETE")

	protected.HandleFunc("/transactions", s.handleCreateTransaction).Methods("POST")
	protected.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods("GET")
	protected.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods("PUT")
	protected.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods("DELETE")

	protected.HandleFunc("/items/{id}", s.handleGetItem).Methods("GET")
	protected.HandleFunc("/audit", s.handleAudit).Methods("GET")
}

// Handler returns the CORS-wrapped root handler.
func (s *Server) Handler() http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(s.router)
}

// Start serves HTTP until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "port", s.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
