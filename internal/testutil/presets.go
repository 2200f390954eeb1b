package testutil

import "github.com/zjrosen/regform/internal/server/store"

// WithStandardTestData adds the default countries and three registrations:
// alice (FR), bob (BE) and carol (DE).
func (b *Builder) WithStandardTestData() *Builder {
	return b.
		WithCountries(store.DefaultCountries...).
		WithRegistration("alice", Country("FR")).
		WithRegistration("bob", Country("BE")).
		WithRegistration("carol", Country("DE"))
}
