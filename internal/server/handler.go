// Package server is the development backend answering GET /countries,
// GET /register and POST /register.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/regform/internal/cachemanager"
	"github.com/zjrosen/regform/internal/domain"
	"github.com/zjrosen/regform/internal/form"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/server/metrics"
	"github.com/zjrosen/regform/internal/server/store"
)

const (
	countriesCacheKey = "all"
	maxBodyBytes      = 1 << 16
)

// Store is the persistence the handler needs. *store.Store satisfies it.
type Store interface {
	ListCountries(ctx context.Context) ([]domain.Country, error)
	ReplaceCountries(ctx context.Context, countries []domain.Country) error
	ListRegistrations(ctx context.Context) ([]domain.Registration, error)
	CreateRegistration(ctx context.Context, r domain.Registration) (domain.Registration, error)
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler provides the HTTP endpoints.
type Handler struct {
	store     Store
	pinger    Pinger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	limiter   *Limiter
	countries *cachemanager.ReadThrough[[]domain.Country]
	schema    form.Schema
}

// HandlerConfig configures the handler.
type HandlerConfig struct {
	// Store is required.
	Store Store
	// Pinger backs /health. Optional.
	Pinger Pinger
	// Metrics is required; /metrics serves its registry.
	Metrics *metrics.Metrics
	// Tracer for request spans. Optional.
	Tracer trace.Tracer
	// Limiter throttles POST /register. Nil disables rate limiting.
	Limiter *Limiter
	// CountriesTTL bounds how long GET /countries is served from memory.
	CountriesTTL time.Duration
	// UsernameMaxLength mirrors the client-side rule.
	UsernameMaxLength int
}

// NewHandler creates the handler.
func NewHandler(cfg HandlerConfig) *Handler {
	ttl := cfg.CountriesTTL
	if ttl <= 0 {
		ttl = cachemanager.DefaultExpiration
	}
	h := &Handler{
		store:   cfg.Store,
		pinger:  cfg.Pinger,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
		limiter: cfg.Limiter,
		schema:  form.RegistrationSchema(cfg.UsernameMaxLength),
	}
	cache := cachemanager.New[[]domain.Country]("countries", ttl, cachemanager.DefaultCleanupInterval)
	h.countries = cachemanager.NewReadThrough(cache, func(ctx context.Context, _ string) ([]domain.Country, error) {
		h.metrics.CountriesCacheMisses.Inc()
		return h.store.ListCountries(ctx)
	}, false).OnHit(func(string) {
		h.metrics.CountriesCacheHits.Inc()
	})
	return h
}

// Routes returns an http.Handler with all routes registered.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(h.observe)

	r.Get("/countries", h.ListCountries)
	r.Get("/register", h.ListRegistrations)
	r.With(h.rateLimit).Post("/register", h.CreateRegistration)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "Not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", r.Method)
	})
	return r
}

// InvalidateCountries drops the cached country list.
func (h *Handler) InvalidateCountries() {
	h.countries.Invalidate(countriesCacheKey)
}

// === Request/Response Types ===

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// === Handlers ===

// ListCountries returns the country list.
func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.loadCountries(r.Context())
	if err != nil {
		log.ErrorErr(log.CatServer, "Failed to list countries", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list countries", "")
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

// ListRegistrations returns every registration.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.store.ListRegistrations(r.Context())
	if err != nil {
		log.ErrorErr(log.CatServer, "Failed to list registrations", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list registrations", "")
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// CreateRegistration validates and stores a registration.
// The same field rules as the client apply, plus the country must be known.
func (h *Handler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}

	errs := form.Validate(h.schema, form.Values{
		form.FieldUsername: req.Username,
		form.FieldCountry:  req.Country,
	})
	if len(errs) > 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid registration", h.describe(errs))
		return
	}

	countries, err := h.loadCountries(r.Context())
	if err != nil {
		log.ErrorErr(log.CatServer, "Failed to load countries", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to register", "")
		return
	}
	if !knownCountry(countries, req.Country) {
		writeError(w, http.StatusBadRequest, "unknown_country", "Unknown country", req.Country)
		return
	}

	reg, err := h.store.CreateRegistration(r.Context(), domain.Registration{
		Username: req.Username,
		Country:  req.Country,
	})
	if errors.Is(err, store.ErrDuplicateUsername) {
		h.metrics.IncrementDuplicateRejections()
		writeError(w, http.StatusConflict, "duplicate_username", "Username already registered", req.Username)
		return
	}
	if err != nil {
		log.ErrorErr(log.CatServer, "Failed to create registration", err, "username", req.Username)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to register", "")
		return
	}

	h.metrics.IncrementRegistrationsCreated()
	log.Info(log.CatServer, "registration created", "id", reg.ID, "username", reg.Username, "country", reg.Country)
	writeJSON(w, http.StatusCreated, reg)
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) loadCountries(ctx context.Context) ([]domain.Country, error) {
	return h.countries.Get(ctx, countriesCacheKey)
}

func (h *Handler) describe(errs form.Errors) string {
	parts := make([]string, 0, len(errs))
	for _, spec := range h.schema {
		if reason, ok := errs.First(spec.Name); ok {
			parts = append(parts, h.schema.Message(spec.Name, reason))
		}
	}
	return strings.Join(parts, " ")
}

func knownCountry(countries []domain.Country, code string) bool {
	for _, c := range countries {
		if c.Code == code {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatServer, "Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
