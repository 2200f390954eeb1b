package presentation

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/regform/internal/domain"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatText, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, f)

	_, err = ParseFormat("yaml")
	require.Error(t, err)
}

func TestFormatCountries_JSON(t *testing.T) {
	var buf bytes.Buffer
	countries := FromDomainCountries([]domain.Country{{Code: "FR", Name: "France"}})

	require.NoError(t, NewFormatter(&buf, FormatJSON).FormatCountries(countries))

	var got []CountryDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, []CountryDTO{{Code: "FR", Name: "France"}}, got)
}

func TestFormatCountries_JSONEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, FormatJSON).FormatCountries(FromDomainCountries(nil)))
	require.Equal(t, "[]\n", buf.String())
}

func TestFormatCountries_Text(t *testing.T) {
	var buf bytes.Buffer
	countries := FromDomainCountries([]domain.Country{{Code: "FR", Name: "France"}, {Code: "BE", Name: "Belgium"}})

	require.NoError(t, NewFormatter(&buf, FormatText).FormatCountries(countries))

	out := buf.String()
	require.Contains(t, out, "CODE")
	require.Contains(t, out, "France")
	require.Contains(t, out, "BE")
}

func TestFormatCountries_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, FormatText).FormatCountries(nil))
	require.Equal(t, "no countries\n", buf.String())
}

func TestFormatAvailability(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Availability
		text string
		json string
	}{
		{"available", domain.AvailabilityAvailable, "alice is available\n", `"available": true`},
		{"taken", domain.AvailabilityTaken, "alice is already taken\n", `"available": false`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto := FromAvailability("alice", tt.in)

			var text bytes.Buffer
			require.NoError(t, NewFormatter(&text, FormatText).FormatAvailability(dto))
			require.Equal(t, tt.text, text.String())

			var js bytes.Buffer
			require.NoError(t, NewFormatter(&js, FormatJSON).FormatAvailability(dto))
			require.Contains(t, js.String(), tt.json)
		})
	}
}

func TestFormatRegistration(t *testing.T) {
	dto := FromDomainRegistration(domain.Registration{ID: "42", Username: "alice", Country: "FR"})

	var text bytes.Buffer
	require.NoError(t, NewFormatter(&text, FormatText).FormatRegistration(dto))
	require.Equal(t, "registered alice (FR) id=42\n", text.String())

	var js bytes.Buffer
	require.NoError(t, NewFormatter(&js, FormatJSON).FormatRegistration(dto))
	require.JSONEq(t, `{"id":"42","username":"alice","country":"FR"}`, js.String())
}
