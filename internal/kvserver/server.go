package kvserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"kvblast/internal/logging"
	"kvblast/internal/storage"
)

// Build metadata, stamped by the linker in release builds.
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// Server is the built-in key-value target. All state lives in the
// pluggable storage backend.
type Server struct {
	store   storage.Store
	backend string
	router  *mux.Router
	logger  *zap.Logger
}

func New(store storage.Store, backend string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:   store,
		backend: backend,
		router:  mux.NewRouter(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	keys := s.router.PathPrefix("/keys").Subrouter()
	keys.HandleFunc("", s.listKeys).Methods(http.MethodGet)
	keys.HandleFunc("", s.setKey).Methods(http.MethodPost)
	keys.HandleFunc("", s.deleteKeys).Methods(http.MethodDelete)
	keys.HandleFunc("/{key}", s.getKey).Methods(http.MethodGet)
	keys.HandleFunc("/{key}", s.deleteKey).Methods(http.MethodDelete)
	keys.HandleFunc("/{key}/inc", s.increment).Methods(http.MethodPost)
	keys.HandleFunc("/{key}/dec", s.decrement).Methods(http.MethodPost)
	keys.HandleFunc("/{key}/ttl", s.getTTL).Methods(http.MethodGet)
	keys.HandleFunc("/{key}/ttl", s.setTTL).Methods(http.MethodPost)

	s.router.HandleFunc("/info", s.info).Methods(http.MethodGet)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ctx := logging.WithContext(r.Context(), s.logger)
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, bind string) error {
	server := &http.Server{
		Addr:    bind,
		Handler: s.router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server failed", zap.Error(err))
		}
	}()
	s.logger.Info("server started",
		zap.String("bind", bind),
		zap.String("backend", s.backend),
	)

	<-ctx.Done()
	s.logger.Info("server stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server exited properly")
	return nil
}
