package testutil

import "github.com/zjrosen/regform/internal/domain"

// RegistrationOption configures a registration added with WithRegistration.
type RegistrationOption func(*domain.Registration)

// Country sets the registration's country code.
func Country(code string) RegistrationOption {
	return func(r *domain.Registration) { r.Country = code }
}

// ID fixes the registration's ID instead of letting the store assign one.
func ID(id string) RegistrationOption {
	return func(r *domain.Registration) { r.ID = id }
}

// defaultRegistration returns a registration for username in France.
func defaultRegistration(username string) domain.Registration {
	return domain.Registration{Username: username, Country: "FR"}
}
