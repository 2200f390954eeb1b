package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/regform/internal/domain"
	"github.com/zjrosen/regform/internal/server/store"
)

// Builder accumulates test data and inserts it in the correct order.
type Builder struct {
	t             *testing.T
	st            *store.Store
	countries     []domain.Country
	registrations []domain.Registration
}

// NewBuilder creates a builder for the given test store.
func NewBuilder(t *testing.T, st *store.Store) *Builder {
	t.Helper()
	return &Builder{t: t, st: st}
}

// WithCountry appends a country to the list.
func (b *Builder) WithCountry(code, name string) *Builder {
	b.countries = append(b.countries, domain.Country{Code: code, Name: name})
	return b
}

// WithCountries appends countries to the list.
func (b *Builder) WithCountries(countries ...domain.Country) *Builder {
	b.countries = append(b.countries, countries...)
	return b
}

// WithRegistration adds a registration with optional configuration.
func (b *Builder) WithRegistration(username string, opts ...RegistrationOption) *Builder {
	r := defaultRegistration(username)
	for _, opt := range opts {
		opt(&r)
	}
	b.registrations = append(b.registrations, r)
	return b
}

// Build inserts all accumulated data into the store: countries first, then
// registrations in the order they were added.
func (b *Builder) Build() {
	b.t.Helper()
	ctx := context.Background()
	if len(b.countries) > 0 {
		require.NoError(b.t, b.st.ReplaceCountries(ctx, b.countries))
	}
	for _, r := range b.registrations {
		_, err := b.st.CreateRegistration(ctx, r)
		require.NoError(b.t, err)
	}
}
