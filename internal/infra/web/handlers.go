package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/service"
)

type jobView struct {
	ID               string    `json:"id"`
	CorrelationID    string    `json:"correlation_id,omitempty"`
	Provider         string    `json:"provider"`
	Status           string    `json:"status"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	Retries          int       `json:"retries"`
	MaxRetries       int       `json:"max_retries"`
	TimeoutSeconds   float64   `json:"timeout_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
	LastTransitionAt time.Time `json:"last_transition_at"`
}

func toJobView(j model.Job) jobView {
	return jobView{
		ID:               j.ID,
		CorrelationID:    j.CorrelationID,
		Provider:         j.Provider,
		Status:           string(j.Status),
		ErrorKind:        string(j.ErrKind),
		ErrorMessage:     j.ErrMsg,
		Retries:          j.Retries,
		MaxRetries:       j.MaxRetries,
		TimeoutSeconds:   j.Timeout.Seconds(),
		SubmittedAt:      j.SubmittedAt,
		LastTransitionAt: j.LastTransitionAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if s.apiKey == "" {
		s.log.Error().Msg("admin api key is not configured")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(s.apiKey)) != 1 {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "failed to mint session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	type svcStats struct {
		QueueLength int `json:"queue_length"`
		ActiveCount int `json:"active_count"`
		TrackedJobs int `json:"tracked_jobs"`
	}
	out := struct {
		Services map[string]svcStats `json:"services"`
		Cache    map[string]int64    `json:"cache"`
	}{
		Services: make(map[string]svcStats),
		Cache:    make(map[string]int64),
	}
	for name, svc := range s.services {
		out.Services[name] = svcStats{
			QueueLength: svc.QueueLength(),
			ActiveCount: svc.ActiveCount(),
			TrackedJobs: len(svc.Jobs()),
		}
	}
	if s.cache != nil {
		out.Cache["entries"] = int64(s.cache.Len())
		out.Cache["size_bytes"] = s.cache.Size()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	svc := serviceFrom(r)
	status := r.URL.Query().Get("status")
	views := make([]jobView, 0)
	for _, j := range svc.Jobs() {
		if status != "" && string(j.Status) != status {
			continue
		}
		views = append(views, toJobView(j))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	svc := serviceFrom(r)
	job, err := svc.Status(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	svc := serviceFrom(r)
	if err := svc.Cancel(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to cancel job", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	svc := serviceFrom(r)
	writeJSON(w, http.StatusOK, map[string]int{"resubmitted": svc.RetryFailed()})
}

func (s *Server) handleSetOnline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	serviceFrom(r).SetOnline(req.Online)
	w.WriteHeader(http.StatusNoContent)
}

type policyView struct {
	MaxConcurrent         int     `json:"max_concurrent"`
	DefaultTimeoutSeconds float64 `json:"default_timeout_seconds"`
	MaxRetries            int     `json:"max_retries"`
	RetryBaseDelaySeconds float64 `json:"retry_base_delay_seconds"`
	CachingEnabled        bool    `json:"caching_enabled"`
	MaxTextLength         int     `json:"max_text_length"`
	MaxWordCount          int     `json:"max_word_count"`
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	p := serviceFrom(r).Policy()
	writeJSON(w, http.StatusOK, policyView{
		MaxConcurrent:         p.MaxConcurrent,
		DefaultTimeoutSeconds: p.DefaultTimeout.Seconds(),
		MaxRetries:            p.MaxRetries,
		RetryBaseDelaySeconds: p.RetryBaseDelay.Seconds(),
		CachingEnabled:        p.CachingEnabled,
		MaxTextLength:         p.MaxTextLength,
		MaxWordCount:          p.MaxWordCount,
	})
}

func (s *Server) handlePutPolicy(w http.ResponseWriter, r *http.Request) {
	var req policyView
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	serviceFrom(r).Reconfigure(service.Policy{
		MaxConcurrent:  req.MaxConcurrent,
		DefaultTimeout: time.Duration(req.DefaultTimeoutSeconds * float64(time.Second)),
		MaxRetries:     req.MaxRetries,
		RetryBaseDelay: time.Duration(req.RetryBaseDelaySeconds * float64(time.Second)),
		CachingEnabled: req.CachingEnabled,
		MaxTextLength:  req.MaxTextLength,
		MaxWordCount:   req.MaxWordCount,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLastError(w http.ResponseWriter, r *http.Request) {
	kind, msg := serviceFrom(r).GetLastError()
	writeJSON(w, http.StatusOK, map[string]string{
		"kind":    string(kind),
		"message": msg,
	})
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	serviceFrom(r).ClearErrorState()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	if s.cache != nil {
		s.cache.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}
