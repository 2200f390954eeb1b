package store

import (
	"time"

	"github.com/zjrosen/regform/internal/domain"
)

// registrationModel is a row of the registrations table.
type registrationModel struct {
	Seq       int64
	ID        string
	Username  string
	Country   string
	CreatedAt int64 // unix seconds
}

func (m registrationModel) toDomain() domain.Registration {
	return domain.Registration{ID: m.ID, Username: m.Username, Country: m.Country}
}

func toRegistrationModel(r domain.Registration, now time.Time) registrationModel {
	return registrationModel{
		ID:        r.ID,
		Username:  r.Username,
		Country:   r.Country,
		CreatedAt: now.Unix(),
	}
}
