// Package registration drives the registration form: it owns the form state,
// schedules debounced availability checks and runs the submit state machine.
package registration

import (
	"context"

	"github.com/zjrosen/regform/internal/domain"
)

// API is the subset of the backend the session needs.
// *apiclient.Client satisfies it.
type API interface {
	FetchCountries(ctx context.Context) ([]domain.Country, error)
	CheckAvailability(ctx context.Context, username string) (domain.AvailabilityResult, error)
	Register(ctx context.Context, username, country string) (domain.Registration, error)
}
