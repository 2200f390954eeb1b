package regform

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/regform/internal/domain"
	"github.com/zjrosen/regform/internal/form"
	"github.com/zjrosen/regform/internal/mocks"
	"github.com/zjrosen/regform/internal/pubsub"
	"github.com/zjrosen/regform/internal/registration"
)

// TestMain initializes the global zone manager and disables colors so
// rendered output can be matched as plain text.
func TestMain(m *testing.M) {
	zone.NewGlobal()
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

var testCountries = []domain.Country{
	{Code: "FR", Name: "France"},
	{Code: "BE", Name: "Belgium"},
	{Code: "DE", Name: "Germany"},
}

func newTestModel(t *testing.T, delay time.Duration) (Model, *registration.Session, *mocks.MockAPI) {
	t.Helper()
	api := mocks.NewMockAPI(t)
	s := registration.NewSession(api, registration.WithDebounce(delay))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	return New(ctx, s), s, api
}

// refresh feeds the session's current snapshot to the model the way the
// subscription would.
func refresh(m Model, s *registration.Session) Model {
	next, _ := m.Update(pubsub.Event[registration.State]{Type: pubsub.UpdatedEvent, Payload: s.State()})
	return next.(Model)
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func withCountries(t *testing.T, m Model, api *mocks.MockAPI) Model {
	t.Helper()
	api.EXPECT().FetchCountries(mock.Anything).Return(testCountries, nil).Once()
	m, _ = update(m, m.loadCountries()())
	return m
}

func TestNew_FocusesUsername(t *testing.T) {
	m, _, _ := newTestModel(t, time.Hour)
	require.Equal(t, FocusUsername, m.Focused())
	require.Contains(t, m.View(), "loading countries")
}

func TestTyping_UpdatesSession(t *testing.T) {
	m, s, _ := newTestModel(t, time.Hour)

	typeText(m, "alice")

	require.Equal(t, "alice", s.State().Username)
}

func TestTyping_UppercaseShowsError(t *testing.T) {
	m, s, _ := newTestModel(t, time.Hour)

	m = typeText(m, "Bob")
	m = refresh(m, s)

	require.Contains(t, m.View(), "Username must be in lowercase.")
}

func TestClearForm_EmptiesUsername(t *testing.T) {
	m, s, _ := newTestModel(t, time.Hour)
	m = typeText(m, "alice")

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyCtrlU})
	m = refresh(m, s)

	require.Empty(t, s.State().Username)
	require.Contains(t, m.View(), "Username is required.")
}

func TestTab_CyclesFocusAndTouchesLeftField(t *testing.T) {
	m, s, _ := newTestModel(t, time.Hour)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, FocusCountry, m.Focused())
	require.Equal(t, "Username is required.", s.State().FieldError(form.FieldUsername))
	require.Empty(t, s.State().FieldError(form.FieldCountry), "country not touched yet")

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, FocusSubmit, m.Focused())
	require.Equal(t, "Country is required.", s.State().FieldError(form.FieldCountry))

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, FocusUsername, m.Focused())

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, FocusSubmit, m.Focused())
}

func TestCountries_LoadedAndSelectedWithArrows(t *testing.T) {
	m, s, api := newTestModel(t, time.Hour)
	m = withCountries(t, m, api)
	require.Contains(t, m.View(), "France")

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m = refresh(m, s)

	require.Equal(t, "BE", s.State().Country)
	require.Contains(t, m.View(), "(•) Belgium")

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, "FR", s.State().Country)
}

func TestCountries_EnterSelectsAndAdvances(t *testing.T) {
	m, s, api := newTestModel(t, time.Hour)
	m = withCountries(t, m, api)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, "FR", s.State().Country)
	require.Equal(t, FocusSubmit, m.Focused())
}

func TestCountries_LoadFailureShowsHint(t *testing.T) {
	m, s, api := newTestModel(t, time.Hour)
	api.EXPECT().FetchCountries(mock.Anything).Return(nil, errors.New("connection refused")).Once()

	m, cmd := update(m, m.loadCountries()())
	require.Nil(t, cmd)
	m = refresh(m, s)

	require.True(t, m.State().CountriesLoaded)
	view := m.View()
	require.Contains(t, view, "no countries available (ctrl+r to retry)")
	require.NotContains(t, view, "loading countries")
	require.NotContains(t, view, "✗", "country failures raise no message")
}

func TestAvailability_Rendered(t *testing.T) {
	m, _, _ := newTestModel(t, time.Hour)

	tests := []struct {
		name  string
		state registration.State
		want  string
	}{
		{"checking", registration.State{Checking: true}, "checking availability"},
		{"available", registration.State{Availability: domain.AvailabilityAvailable}, "username is available"},
		{"taken", registration.State{Availability: domain.AvailabilityTaken}, "username is already taken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _ := update(m, pubsub.Event[registration.State]{Payload: tt.state})
			require.Contains(t, next.View(), tt.want)
		})
	}

	require.NotContains(t, m.View(), "username is")
}

func TestSubmit_InvalidShowsAllErrors(t *testing.T) {
	m, s, _ := newTestModel(t, time.Hour)

	m, _ = update(m, m.submit()())
	m = refresh(m, s)

	view := m.View()
	require.Contains(t, view, "Username is required.")
	require.Contains(t, view, "Country is required.")
	require.NotContains(t, view, registration.FailureMessage)
}

func TestSubmit_SuccessResetsForm(t *testing.T) {
	m, s, api := newTestModel(t, time.Hour)
	m = withCountries(t, m, api)
	api.EXPECT().Register(mock.Anything, "alice", "BE").
		Return(domain.Registration{ID: "1", Username: "alice", Country: "BE"}, nil).Once()

	m = typeText(m, "alice")
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, FocusSubmit, m.Focused())

	m, cmd := update(m, m.submit()())
	require.NotNil(t, cmd)
	m = refresh(m, s)

	require.Equal(t, FocusUsername, m.Focused())
	require.Empty(t, m.username.Value())
	require.Empty(t, s.State().Username)
	require.Equal(t, 0, m.cursor)
	view := m.View()
	require.Contains(t, view, "Registered alice")
	require.NotContains(t, view, "is required", "reset form shows no errors")
}

func TestSubmit_FailureShowsMessageAndKeepsValues(t *testing.T) {
	m, s, api := newTestModel(t, time.Hour)
	m = withCountries(t, m, api)
	api.EXPECT().Register(mock.Anything, "alice", "FR").
		Return(domain.Registration{}, errors.New("status 409")).Once()

	m = typeText(m, "alice")
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = update(m, m.submit()())
	m = refresh(m, s)

	require.Equal(t, "alice", m.username.Value())
	require.Equal(t, FocusSubmit, m.Focused())
	require.Contains(t, m.View(), registration.FailureMessage)
}

func TestSubmitButton_DisabledWhileSubmitting(t *testing.T) {
	m, _, _ := newTestModel(t, time.Hour)

	m, _ = update(m, pubsub.Event[registration.State]{Payload: registration.State{Phase: registration.PhaseSubmitting}})

	require.Contains(t, m.View(), "Registering")
}

func TestHelp_Toggle(t *testing.T) {
	m, _, _ := newTestModel(t, time.Hour)
	short := m.View()

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyF1})
	require.True(t, m.help.ShowAll)
	require.Greater(t, strings.Count(m.View(), "\n"), strings.Count(short, "\n"))

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyF1})
	require.False(t, m.help.ShowAll)
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t, time.Hour)

	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	require.Equal(t, tea.QuitMsg{}, cmd())
}

func TestWindowSize_NarrowTruncatesCountryNames(t *testing.T) {
	m, _, api := newTestModel(t, time.Hour)
	api.EXPECT().FetchCountries(mock.Anything).
		Return([]domain.Country{{Code: "GB", Name: "United Kingdom of Great Britain and Northern Ireland"}}, nil).Once()
	m, _ = update(m, m.loadCountries()())

	m, _ = update(m, tea.WindowSizeMsg{Width: 30, Height: 30})

	view := m.View()
	require.Contains(t, view, "…")
	require.NotContains(t, view, "Northern Ireland")
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name               string
		cursor, n, rows    int
		wantStart, wantEnd int
	}{
		{"fits", 0, 3, 6, 0, 3},
		{"top", 0, 10, 4, 0, 4},
		{"middle", 5, 10, 4, 3, 7},
		{"bottom", 9, 10, 4, 6, 10},
		{"no rows", 2, 5, 0, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := window(tt.cursor, tt.n, tt.rows)
			require.Equal(t, tt.wantStart, start)
			require.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestRowsFor(t *testing.T) {
	require.Equal(t, 3, rowsFor(10))
	require.Equal(t, 6, rowsFor(24))
	require.Equal(t, 12, rowsFor(100))
}
