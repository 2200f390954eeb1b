package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/regform/internal/domain"
	"github.com/zjrosen/regform/internal/log"
)

// DefaultCountries seeds an empty database.
var DefaultCountries = []domain.Country{
	{Code: "AR", Name: "Argentina"},
	{Code: "BE", Name: "Belgium"},
	{Code: "BR", Name: "Brazil"},
	{Code: "CA", Name: "Canada"},
	{Code: "DE", Name: "Germany"},
	{Code: "ES", Name: "Spain"},
	{Code: "FR", Name: "France"},
	{Code: "IT", Name: "Italy"},
	{Code: "JP", Name: "Japan"},
	{Code: "MX", Name: "Mexico"},
	{Code: "PT", Name: "Portugal"},
	{Code: "US", Name: "United States"},
}

// ErrInvalidCountries is returned when a country list fails validation.
var ErrInvalidCountries = errors.New("invalid country list")

// ListCountries returns the countries in their stored order.
func (s *Store) ListCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name FROM countries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	countries := []domain.Country{}
	for rows.Next() {
		var c domain.Country
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate countries: %w", err)
	}
	return countries, nil
}

// ReplaceCountries swaps the whole list atomically, keeping the given order.
func (s *Store) ReplaceCountries(ctx context.Context, countries []domain.Country) error {
	if err := ValidateCountries(countries); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM countries`); err != nil {
		return fmt.Errorf("failed to clear countries: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO countries (code, name, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, c := range countries {
		if _, err := stmt.ExecContext(ctx, c.Code, c.Name, i); err != nil {
			return fmt.Errorf("failed to insert country %s: %w", c.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit countries: %w", err)
	}

	log.Info(log.CatStore, "countries replaced", "count", len(countries))
	return nil
}

// SeedCountries stores countries only when the table is empty.
// Reports whether anything was written.
func (s *Store) SeedCountries(ctx context.Context, countries []domain.Country) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM countries`).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count countries: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if err := s.ReplaceCountries(ctx, countries); err != nil {
		return false, err
	}
	return true, nil
}

// ValidateCountries requires a code and a name on every entry and unique codes.
func ValidateCountries(countries []domain.Country) error {
	seen := make(map[string]bool, len(countries))
	for i, c := range countries {
		if c.Code == "" || c.Name == "" {
			return fmt.Errorf("%w: entry %d needs both code and name", ErrInvalidCountries, i)
		}
		if seen[c.Code] {
			return fmt.Errorf("%w: duplicate code %q", ErrInvalidCountries, c.Code)
		}
		seen[c.Code] = true
	}
	return nil
}

// LoadCountriesFile reads a YAML list of {code, name} entries.
func LoadCountriesFile(path string) ([]domain.Country, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading countries file: %w", err)
	}
	var countries []domain.Country
	if err := yaml.Unmarshal(data, &countries); err != nil {
		return nil, fmt.Errorf("parsing countries file %s: %w", path, err)
	}
	if err := ValidateCountries(countries); err != nil {
		return nil, fmt.Errorf("countries file %s: %w", path, err)
	}
	return countries, nil
}
