package server

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/zjrosen/regform/internal/cachemanager"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/tracing"
)

// RequestIDHeader is read from requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFrom returns the request id stored by the requestID middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID keeps a well-formed incoming X-Request-ID or assigns a new UUID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

var propagator = propagation.TraceContext{}

// observe records metrics, a server span and a debug log line per request.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		ctx := r.Context()
		var span trace.Span
		if h.tracer != nil {
			ctx = propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
			ctx, span = h.tracer.Start(ctx, tracing.SpanPrefixServer+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String(tracing.AttrHTTPMethod, r.Method),
					attribute.String(tracing.AttrHTTPURL, r.URL.Path),
					attribute.String(tracing.AttrRequestID, RequestIDFrom(ctx)),
				))
		}

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		if span != nil {
			span.SetName(tracing.SpanPrefixServer + r.Method + " " + route)
			span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			span.End()
		}

		h.metrics.ObserveRequest(route, r.Method, status, start)
		log.DebugContext(ctx, log.CatServer, "request",
			"method", r.Method,
			"route", route,
			"status", status,
			"request_id", RequestIDFrom(ctx),
			"duration", time.Since(start))
	})
}

// rateLimit rejects clients that exceed their token bucket with 429.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if ok, retryAfter := h.limiter.Allow(key); !ok {
			h.metrics.IncrementRateLimited()
			log.Warn(log.CatServer, "rate limited", "client", key, "retry_after", retryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by IP. RealIP has already rewritten
// RemoteAddr when proxy headers are present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Limiter hands out one token bucket per client key. Idle buckets expire.
type Limiter struct {
	rps     rate.Limit
	burst   int
	buckets *cachemanager.Cache[*rate.Limiter]
}

// DefaultLimiterIdleTTL is how long an unused bucket is kept.
const DefaultLimiterIdleTTL = 15 * time.Minute

// NewLimiter creates a limiter allowing rps requests per second with burst.
// Returns nil when rps is not positive, which disables limiting.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: cachemanager.New[*rate.Limiter]("rate-limit", DefaultLimiterIdleTTL, 2*time.Minute),
	}
}

// Allow consumes a token for key. When refused it also returns how long
// until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	lim := l.buckets.GetOrCreate(key, func() *rate.Limiter {
		return rate.NewLimiter(l.rps, l.burst)
	})
	now := time.Now()
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}
