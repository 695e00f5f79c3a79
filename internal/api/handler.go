package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"dbcheck/internal/core"
	"dbcheck/internal/data"
	"dbcheck/internal/logger"
	"dbcheck/internal/report"
	"dbcheck/internal/service"
)

type Handler struct {
	harness    *service.Harness
	suite      *core.Suite
	runs       core.RunRepository
	apiKeyHash string

	// One run at a time; the harness pins a single connection per run.
	mu sync.Mutex
}

func NewHandler(harness *service.Harness, suite *core.Suite, runs core.RunRepository, apiKeyHash string) *Handler {
	return &Handler{
		harness:    harness,
		suite:      suite,
		runs:       runs,
		apiKeyHash: apiKeyHash,
	}
}

func (h *Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.suite)
}

// StartRun executes the suite now and stores the outcome.
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	run, err := h.harness.Run(r.Context(), h.suite)
	h.mu.Unlock()

	if err != nil {
		logger.Error.Printf("run setup failed: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := h.runs.Create(run); err != nil {
		logger.Error.Printf("failed to store run %s: %v", run.ID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info.Printf("run %s: %s", run.ID, report.Summary(run))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":  run.OK(),
		"run": run,
	})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	runs, err := h.runs.GetRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []core.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetByID(chi.URLParam(r, "runID"))
	if errors.Is(err, data.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// LatestReport renders the most recent run as HTML.
func (h *Handler) LatestReport(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.GetRecent(1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(runs) == 0 {
		http.Error(w, "no runs yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteHTML(w, &runs[0]); err != nil {
		logger.Error.Printf("failed to render report: %v", err)
	}
}

// Routes mounts the API under /api and the HTML report at /report.
func (h *Handler) Routes(limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}
	r.Use(h.AuthMiddleware)
	if limiter != nil {
		r.Use(limiter.MiddlewareByAPIKey)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/checks", h.ListChecks)
		r.Post("/runs", h.StartRun)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{runID}", h.GetRun)
	})
	r.Get("/report", h.LatestReport)

	return r
}

type apiKeyCtxKey struct{}

func verifiedAPIKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(apiKeyCtxKey{}).(string)
	return key, ok
}

// AuthMiddleware requires an X-API-Key matching the configured bcrypt hash.
// With no hash configured every request is let through.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKeyHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		apiKeyStr := r.Header.Get("X-API-Key")
		if apiKeyStr == "" {
			writeError(w, http.StatusUnauthorized, "Missing X-API-Key header")
			return
		}

		if err := service.VerifyAPIKey(h.apiKeyHash, apiKeyStr); err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid X-API-Key")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyCtxKey{}, apiKeyStr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
