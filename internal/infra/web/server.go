// Package web serves the admin and observability API: job introspection,
// service controls, session auth and the Prometheus endpoint.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/infra/cache"
	"quillscribe/internal/service"
)

// JobService is the slice of the processing services the admin API needs.
// Both the transcription and enhancement services satisfy it.
type JobService interface {
	Status(jobID string) (model.Job, error)
	Cancel(jobID string) error
	Jobs() []model.Job
	QueueLength() int
	ActiveCount() int
	RetryFailed() int
	SetOnline(online bool)
	Reconfigure(p service.Policy)
	Policy() service.Policy
	GetLastError() (domain.ErrorKind, string)
	ClearErrorState()
}

type Server struct {
	services map[string]JobService
	cache    *cache.ResultCache
	auth     *AuthManager
	apiKey   string
	log      *zerolog.Logger

	http *http.Server
}

func NewServer(
	addr string,
	transcription JobService,
	enhancement JobService,
	rc *cache.ResultCache,
	auth *AuthManager,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		services: map[string]JobService{
			"transcription": transcription,
			"enhancement":   enhancement,
		},
		cache:  rc,
		auth:   auth,
		apiKey: apiKey,
		log:    logger,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/session", s.handleLogin)
	r.Delete("/api/v1/session", s.handleLogout)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/stats", s.handleStats)
		r.Post("/cache/clear", s.handleCacheClear)
		r.Route("/services/{service}", func(r chi.Router) {
			r.Use(s.resolveService)
			r.Get("/jobs", s.handleListJobs)
			r.Get("/jobs/{id}", s.handleGetJob)
			r.Delete("/jobs/{id}", s.handleCancelJob)
			r.Post("/retry-failed", s.handleRetryFailed)
			r.Put("/online", s.handleSetOnline)
			r.Get("/policy", s.handleGetPolicy)
			r.Put("/policy", s.handlePutPolicy)
			r.Get("/last-error", s.handleLastError)
			r.Delete("/last-error", s.handleClearError)
		})
	})
	return r
}

// Start runs the listener until ctx is cancelled or ListenAndServe fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("admin server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKeyService struct{}

// resolveService maps the {service} path segment onto a JobService.
func (s *Server) resolveService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "service")
		svc, ok := s.services[name]
		if !ok {
			http.Error(w, "unknown service", http.StatusNotFound)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyService{}, svc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func serviceFrom(r *http.Request) JobService {
	svc, _ := r.Context().Value(ctxKeyService{}).(JobService)
	return svc
}
