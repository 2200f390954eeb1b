package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/zjrosen/regform/internal/domain"
	"github.com/zjrosen/regform/internal/log"
)

// ErrDuplicateUsername is returned when the username is already registered.
var ErrDuplicateUsername = errors.New("username already registered")

// CreateRegistration stores r, assigning an ID when r.ID is empty.
func (s *Store) CreateRegistration(ctx context.Context, r domain.Registration) (domain.Registration, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m := toRegistrationModel(r, time.Now())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registrations (id, username, country, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.Username, m.Country, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Registration{}, fmt.Errorf("%w: %s", ErrDuplicateUsername, r.Username)
		}
		return domain.Registration{}, fmt.Errorf("failed to insert registration: %w", err)
	}

	log.Debug(log.CatStore, "registration stored", "id", r.ID, "username", r.Username)
	return r, nil
}

// ListRegistrations returns every registration in insertion order.
func (s *Store) ListRegistrations(ctx context.Context) ([]domain.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, username, country, created_at FROM registrations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	regs := []domain.Registration{}
	for rows.Next() {
		var m registrationModel
		if err := rows.Scan(&m.Seq, &m.ID, &m.Username, &m.Country, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, m.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}
	return regs, nil
}

// CountRegistrations returns the number of stored registrations.
func (s *Store) CountRegistrations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
