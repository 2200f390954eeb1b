// Package testutil provides fixtures for tests that need a populated
// registration backend.
package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/regform/internal/server"
	"github.com/zjrosen/regform/internal/server/metrics"
	"github.com/zjrosen/regform/internal/server/store"
)

// NewTestStore opens an empty, migrated in-memory store that is closed
// when the test ends.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// NewBackend serves st over HTTP for the rest of the test and returns the
// base URL. Rate limiting is off.
func NewBackend(t *testing.T, st *store.Store) string {
	t.Helper()
	h := server.NewHandler(server.HandlerConfig{
		Store:   st,
		Pinger:  st,
		Metrics: metrics.New(),
	})
	ts := httptest.NewServer(h.Routes())
	t.Cleanup(ts.Close)
	return ts.URL
}
