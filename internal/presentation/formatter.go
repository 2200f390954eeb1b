package presentation

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/zjrosen/regform/internal/ui/styles"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" or "json"; empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	format Format
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer, format Format) *Formatter {
	return &Formatter{
		writer: writer,
		format: format,
	}
}

// FormatCountries prints the country list.
func (f *Formatter) FormatCountries(countries []CountryDTO) error {
	if f.format == FormatJSON {
		return f.json(countries)
	}
	if len(countries) == 0 {
		_, err := fmt.Fprintln(f.writer, "no countries")
		return err
	}
	t := newTable("CODE", "NAME")
	for _, c := range countries {
		t.Row(c.Code, c.Name)
	}
	_, err := fmt.Fprintln(f.writer, t.Render())
	return err
}

// FormatAvailability prints a username check result.
func (f *Formatter) FormatAvailability(a AvailabilityDTO) error {
	if f.format == FormatJSON {
		return f.json(a)
	}
	var line string
	if a.Available {
		line = styles.SuccessStyle.Render(fmt.Sprintf("%s is available", a.Username))
	} else {
		line = styles.WarningStyle.Render(fmt.Sprintf("%s is already taken", a.Username))
	}
	_, err := fmt.Fprintln(f.writer, line)
	return err
}

// FormatRegistration prints a created registration.
func (f *Formatter) FormatRegistration(r RegistrationDTO) error {
	if f.format == FormatJSON {
		return f.json(r)
	}
	msg := fmt.Sprintf("registered %s (%s)", r.Username, r.Country)
	if r.ID != "" {
		msg += " id=" + r.ID
	}
	_, err := fmt.Fprintln(f.writer, styles.SuccessStyle.Render(msg))
	return err
}

func (f *Formatter) json(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.BorderDefaultColor)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}
