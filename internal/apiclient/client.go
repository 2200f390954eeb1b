// Package apiclient talks to the registration backend over plain HTTP.
//
// One method per endpoint, no retries and no caching. Every call opens a
// span and carries an X-Request-ID header so client and backend logs can be
// correlated.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/regform/internal/domain"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/tracing"
)

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// RequestIDHeader carries the per-call UUID.
const RequestIDHeader = "X-Request-ID"

// Operation names, used in errors, spans and logs.
const (
	OpFetchCountries    = "fetch_countries"
	OpListRegistrations = "list_registrations"
	OpCheckAvailability = "check_availability"
	OpRegister          = "register"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client is the registration API client. Safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	newID      func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New creates a client for the backend at baseURL (e.g. http://localhost:3000).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		http:       &http.Client{Timeout: DefaultTimeout},
		tracer:     noop.NewTracerProvider().Tracer("noop"),
		propagator: propagation.TraceContext{},
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchCountries returns the country list in server order.
func (c *Client) FetchCountries(ctx context.Context) ([]domain.Country, error) {
	var countries []domain.Country
	if err := c.do(ctx, OpFetchCountries, http.MethodGet, "/countries", nil, &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

// ListRegistrations returns every stored registration.
func (c *Client) ListRegistrations(ctx context.Context) ([]domain.Registration, error) {
	var regs []domain.Registration
	if err := c.do(ctx, OpListRegistrations, http.MethodGet, "/register", nil, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// CheckAvailability fetches the whole registration list and scans it for an
// exact username match. The answer can be outdated by the time Register runs.
func (c *Client) CheckAvailability(ctx context.Context, username string) (domain.AvailabilityResult, error) {
	regs, err := c.ListRegistrations(ctx)
	if err != nil {
		return domain.AvailabilityResult{}, fmt.Errorf("%s: %w", OpCheckAvailability, err)
	}
	_, taken := domain.FindUsername(regs, username)
	log.Debug(log.CatAPI, "availability checked", "username", username, "available", !taken, "scanned", len(regs))
	return domain.AvailabilityResult{Available: !taken}, nil
}

// Register posts a new registration. Any 2xx is success; the stored record is
// returned when the backend echoes one.
func (c *Client) Register(ctx context.Context, username, country string) (domain.Registration, error) {
	body := domain.RegisterRequest{Username: username, Country: country}
	var reg domain.Registration
	if err := c.do(ctx, OpRegister, http.MethodPost, "/register", body, &reg); err != nil {
		return domain.Registration{}, err
	}
	if reg.Username == "" {
		reg.Username, reg.Country = username, country
	}
	return reg, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	endpoint := c.baseURL.JoinPath(path).String()
	requestID := c.newID()

	ctx, span := c.tracer.Start(ctx, tracing.SpanPrefixAPI+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrOperation, op),
			attribute.String(tracing.AttrHTTPMethod, method),
			attribute.String(tracing.AttrHTTPURL, endpoint),
			attribute.String(tracing.AttrRequestID, requestID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WarnContext(ctx, log.CatAPI, "request failed", "op", op, "request_id", requestID, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, resp.StatusCode))
	log.DebugContext(ctx, log.CatAPI, "response",
		"op", op,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
