// Package presentation renders command results for the terminal or for
// scripts.
package presentation

import (
	"github.com/zjrosen/regform/internal/domain"
)

// CountryDTO is a country row.
type CountryDTO struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// AvailabilityDTO is the result of a username check.
type AvailabilityDTO struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// RegistrationDTO is a stored registration.
type RegistrationDTO struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Country  string `json:"country"`
}

// FromDomainCountries converts countries for output.
func FromDomainCountries(countries []domain.Country) []CountryDTO {
	dtos := make([]CountryDTO, 0, len(countries))
	for _, c := range countries {
		dtos = append(dtos, CountryDTO(c))
	}
	return dtos
}

// FromAvailability converts a check result for output.
func FromAvailability(username string, a domain.Availability) AvailabilityDTO {
	return AvailabilityDTO{Username: username, Available: a == domain.AvailabilityAvailable}
}

// FromDomainRegistration converts a registration for output.
func FromDomainRegistration(r domain.Registration) RegistrationDTO {
	return RegistrationDTO(r)
}
