package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/regform/internal/domain"
	"github.com/zjrosen/regform/internal/server/metrics"
	"github.com/zjrosen/regform/internal/server/store"
)

type fixture struct {
	store   *store.Store
	metrics *metrics.Metrics
	handler *Handler
	srv     *httptest.Server
}

func newFixture(t *testing.T, limiter *Limiter) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "regform.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, err = st.SeedCountries(context.Background(), store.DefaultCountries)
	require.NoError(t, err)

	m := metrics.New()
	h := NewHandler(HandlerConfig{Store: st, Pinger: st, Metrics: m, Limiter: limiter})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &fixture{store: st, metrics: m, handler: h, srv: srv}
}

func (f *fixture) post(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.srv.URL+"/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestListCountries(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.get(t, "/countries")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var got []domain.Country
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, store.DefaultCountries, got)
}

func TestListCountries_ServedFromCache(t *testing.T) {
	f := newFixture(t, nil)

	f.get(t, "/countries")
	f.get(t, "/countries")
	f.get(t, "/countries")

	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CountriesCacheMisses))
	require.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CountriesCacheHits))
}

func TestListRegistrations_EmptyArray(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.get(t, "/register")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestCreateRegistration(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.post(t, `{"username":"alice","country":"FR"}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reg domain.Registration
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reg))
	require.NotEmpty(t, reg.ID)
	require.Equal(t, "alice", reg.Username)
	require.Equal(t, "FR", reg.Country)

	list := f.get(t, "/register")
	var regs []domain.Registration
	require.NoError(t, json.NewDecoder(list.Body).Decode(&regs))
	require.Equal(t, []domain.Registration{reg}, regs)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RegistrationsCreated))
}

func TestCreateRegistration_Duplicate(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusCreated, f.post(t, `{"username":"alice","country":"FR"}`).StatusCode)

	resp := f.post(t, `{"username":"alice","country":"BE"}`)

	require.Equal(t, http.StatusConflict, resp.StatusCode)
	e := decodeError(t, resp)
	require.Equal(t, "duplicate_username", e.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DuplicateRejections))
}

func TestCreateRegistration_BadRequests(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name    string
		body    string
		code    string
		details string
	}{
		{name: "malformed json", body: `{"username":`, code: "invalid_json"},
		{name: "missing fields", body: `{}`, code: "validation_error", details: "Username is required. Country is required."},
		{name: "uppercase", body: `{"username":"Alice","country":"FR"}`, code: "validation_error", details: "Username must be in lowercase."},
		{name: "too long", body: `{"username":"` + strings.Repeat("a", 21) + `","country":"FR"}`, code: "validation_error", details: "Username cannot exceed 20 characters."},
		{name: "unknown country", body: `{"username":"alice","country":"ZZ"}`, code: "unknown_country", details: "ZZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.post(t, tt.body)

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			e := decodeError(t, resp)
			require.Equal(t, tt.code, e.Code)
			if tt.details != "" {
				require.Equal(t, tt.details, e.Details)
			}
		})
	}
}

func TestCreateRegistration_RateLimited(t *testing.T) {
	f := newFixture(t, NewLimiter(0.001, 2))

	require.Equal(t, http.StatusCreated, f.post(t, `{"username":"a","country":"FR"}`).StatusCode)
	require.Equal(t, http.StatusCreated, f.post(t, `{"username":"b","country":"FR"}`).StatusCode)

	resp := f.post(t, `{"username":"c","country":"FR"}`)

	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	require.Equal(t, "rate_limited", decodeError(t, resp).Code)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RateLimited))

	// Reads are never limited.
	require.Equal(t, http.StatusOK, f.get(t, "/register").StatusCode)
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.get(t, "/countries")
	require.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/countries", nil)
	require.NoError(t, err)
	const id = "6f1c8f5e-4f3b-4d6e-9a2f-1b2c3d4e5f60"
	req.Header.Set(RequestIDHeader, id)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, id, resp2.Header.Get(RequestIDHeader))
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	require.Equal(t, "ok", h.Status)

	// Metrics are recorded after the response is flushed.
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("/health", "GET", "200")) == 1
	}, time.Second, 10*time.Millisecond)

	m := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, m.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(m.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), `regform_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("down") }

func TestHealth_Unhealthy(t *testing.T) {
	f := newFixture(t, nil)
	f.handler.pinger = failingPinger{}

	resp := f.get(t, "/health")

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil)

	require.Equal(t, http.StatusNotFound, f.get(t, "/nope").StatusCode)

	req, err := http.NewRequest(http.MethodDelete, f.srv.URL+"/register", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// === Server lifecycle ===

func TestServer_StartStop(t *testing.T) {
	f := newFixture(t, nil)
	srv, err := New(Config{Addr: "127.0.0.1:0", Handler: f.handler})
	require.NoError(t, err)
	require.NotZero(t, srv.Port())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, <-done)
}

func TestServer_ReloadCountries(t *testing.T) {
	f := newFixture(t, nil)
	seed := filepath.Join(t.TempDir(), "countries.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("- {code: NZ, name: New Zealand}\n"), 0o644))

	srv, err := New(Config{Addr: "127.0.0.1:0", Handler: f.handler, Store: f.store, CountriesFile: seed})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	f.get(t, "/countries") // warm the cache
	require.NoError(t, srv.ReloadCountries(context.Background()))

	var got []domain.Country
	require.NoError(t, json.NewDecoder(f.get(t, "/countries").Body).Decode(&got))
	require.Equal(t, []domain.Country{{Code: "NZ", Name: "New Zealand"}}, got)

	require.NoError(t, os.WriteFile(seed, []byte("not: [a list"), 0o644))
	require.Error(t, srv.ReloadCountries(context.Background()))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CountriesReloads.WithLabelValues("error")))
}

func TestServer_WatchCountries(t *testing.T) {
	f := newFixture(t, nil)
	seed := filepath.Join(t.TempDir(), "countries.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("- {code: FR, name: France}\n"), 0o644))

	srv, err := New(Config{Addr: "127.0.0.1:0", Handler: f.handler, Store: f.store, CountriesFile: seed})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.WatchCountries(ctx, 20*time.Millisecond) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// The watcher needs a moment to register before the write.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(seed, []byte("- {code: JP, name: Japan}\n"), 0o644))

	require.Eventually(t, func() bool {
		got, err := f.store.ListCountries(context.Background())
		return err == nil && len(got) == 1 && got[0].Code == "JP"
	}, 2*time.Second, 20*time.Millisecond)
}
