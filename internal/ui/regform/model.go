// Package regform is the terminal registration form.
//
// The model never owns form state: every edit goes to a
// registration.Session and the view renders the snapshots the session
// publishes. Network calls run as tea.Cmds.
package regform

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/regform/internal/form"
	"github.com/zjrosen/regform/internal/keys"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/pubsub"
	"github.com/zjrosen/regform/internal/registration"
	"github.com/zjrosen/regform/internal/ui/styles"
	"github.com/zjrosen/regform/internal/ui/toaster"
)

// Focus identifies the focused control.
type Focus int

const (
	FocusUsername Focus = iota
	FocusCountry
	FocusSubmit
	focusCount
)

const (
	zoneUsername = "regform-username"
	zoneSubmit   = "regform-submit"
	zoneCountry  = "regform-country-"

	defaultWidth      = 60
	defaultVisibleRow = 6
)

// Model is the Bubble Tea model of the registration form.
type Model struct {
	ctx      context.Context
	session  *registration.Session
	listener *pubsub.Listener[registration.State]

	state registration.State

	keys     keys.KeyMap
	help     help.Model
	username textinput.Model
	spinner  spinner.Model
	toaster  toaster.Model

	focus       Focus
	cursor      int // highlighted row in the country list
	visibleRows int
	showHelp    bool

	width  int
	height int
}

// New creates the form model bound to session. ctx bounds the state
// subscription and every request the form issues.
func New(ctx context.Context, session *registration.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "lowercase, up to 20 characters"
	ti.Prompt = ""
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextPlaceholderColor)
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(styles.SpinnerColor)

	return Model{
		ctx:         ctx,
		session:     session,
		listener:    pubsub.NewListener[registration.State](ctx, session),
		state:       session.State(),
		keys:        keys.DefaultKeyMap(),
		help:        help.New(),
		username:    ti,
		spinner:     sp,
		toaster:     toaster.New(toaster.DefaultDuration),
		visibleRows: defaultVisibleRow,
		width:       defaultWidth,
	}
}

// Init loads the countries and starts listening for session state.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.listener.Next(),
		m.loadCountries(),
	)
}

// State returns the last session snapshot the model has seen.
func (m Model) State() registration.State {
	return m.state
}

// Focused returns the focused control.
func (m Model) Focused() Focus {
	return m.focus
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.visibleRows = rowsFor(msg.Height)
		return m, nil

	case pubsub.Event[registration.State]:
		m.state = msg.Payload
		m.clampCursor()
		return m, m.listener.Next()

	case countriesLoadedMsg:
		// No user-visible message on failure: the view shows the
		// empty-list hint.
		if msg.err != nil {
			log.Debug(log.CatUI, "countries unavailable", "error", msg.err)
		}
		m.state.Countries = msg.countries
		m.state.CountriesLoaded = true
		m.clampCursor()
		return m, nil

	case submitDoneMsg:
		return m.handleSubmitDone(msg)

	case checkDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, registration.ErrSuperseded) {
			log.Debug(log.CatUI, "manual availability check failed", "error", msg.err)
		}
		return m, nil

	case toaster.ExpiredMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.focus == FocusUsername {
		var cmd tea.Cmd
		m.username, cmd = m.username.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.NextField):
		return m.setFocus((m.focus + 1) % focusCount)

	case key.Matches(msg, m.keys.PrevField):
		return m.setFocus((m.focus + focusCount - 1) % focusCount)

	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keys.Check):
		return m, m.check()

	case key.Matches(msg, m.keys.Reload):
		return m, m.loadCountries()
	}

	switch m.focus {
	case FocusCountry:
		return m.handleCountryKey(msg)
	case FocusSubmit:
		if key.Matches(msg, m.keys.Select) {
			return m, m.submit()
		}
		return m, nil
	}

	// Username field.
	if key.Matches(msg, m.keys.Select) {
		return m.setFocus(FocusCountry)
	}
	if key.Matches(msg, m.keys.ClearForm) {
		m.username.SetValue("")
		m.syncUsername()
		return m, nil
	}
	var cmd tea.Cmd
	m.username, cmd = m.username.Update(msg)
	m.syncUsername()
	return m, cmd
}

func (m Model) handleCountryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.state.Countries)
	switch {
	case key.Matches(msg, m.keys.Up):
		if n > 0 && m.cursor > 0 {
			m.cursor--
			m.selectCountry(m.cursor)
		}
	case key.Matches(msg, m.keys.Down):
		if n > 0 && m.cursor < n-1 {
			m.cursor++
			m.selectCountry(m.cursor)
		}
	case key.Matches(msg, m.keys.Select):
		if n > 0 {
			m.selectCountry(m.cursor)
		}
		return m.setFocus(FocusSubmit)
	case key.Matches(msg, m.keys.ClearForm):
		if err := m.session.SetCountry(""); err != nil {
			log.Debug(log.CatUI, "clear country", "error", err)
		}
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if zone.Get(zoneSubmit).InBounds(msg) {
		return m, m.submit()
	}
	if zone.Get(zoneUsername).InBounds(msg) {
		return m.setFocus(FocusUsername)
	}
	for i := range m.state.Countries {
		if zone.Get(countryZone(i)).InBounds(msg) {
			m.cursor = i
			m.selectCountry(i)
			return m.setFocus(FocusCountry)
		}
	}
	return m, nil
}

// setFocus moves focus and marks the field being left as touched.
func (m Model) setFocus(f Focus) (tea.Model, tea.Cmd) {
	if f == m.focus {
		return m, nil
	}
	switch m.focus {
	case FocusUsername:
		m.touch(form.FieldUsername)
		m.username.Blur()
	case FocusCountry:
		m.touch(form.FieldCountry)
	}
	m.focus = f
	if f == FocusUsername {
		return m, m.username.Focus()
	}
	return m, nil
}

func (m *Model) touch(field string) {
	if err := m.session.Touch(field); err != nil {
		log.Debug(log.CatUI, "touch failed", "field", field, "error", err)
	}
}

func (m *Model) syncUsername() {
	if err := m.session.SetUsername(m.username.Value()); err != nil {
		log.Debug(log.CatUI, "set username failed", "error", err)
	}
}

func (m *Model) selectCountry(i int) {
	if i < 0 || i >= len(m.state.Countries) {
		return
	}
	if err := m.session.SetCountry(m.state.Countries[i].Code); err != nil {
		log.Debug(log.CatUI, "set country failed", "error", err)
	}
}

func (m *Model) clampCursor() {
	n := len(m.state.Countries)
	if n == 0 {
		m.cursor = 0
		return
	}
	if m.state.Country != "" {
		for i, c := range m.state.Countries {
			if c.Code == m.state.Country {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
}

func (m Model) handleSubmitDone(msg submitDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.username.SetValue("")
		m.cursor = 0
		next, focusCmd := m.setFocus(FocusUsername)
		m = next.(Model)
		var toastCmd tea.Cmd
		m.toaster, toastCmd = m.toaster.Success(fmt.Sprintf("Registered %s", msg.reg.Username))
		return m, tea.Batch(focusCmd, toastCmd)
	case errors.Is(msg.err, registration.ErrInvalidForm), errors.Is(msg.err, registration.ErrSubmitInProgress):
		return m, nil
	default:
		// The session already holds the user-facing message.
		log.Debug(log.CatUI, "submit failed", "error", msg.err)
		return m, nil
	}
}

// === Commands ===

func (m Model) loadCountries() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		countries, err := s.LoadCountries(ctx)
		return countriesLoadedMsg{countries: countries, err: err}
	}
}

func (m Model) submit() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		reg, err := s.Submit(ctx)
		return submitDoneMsg{reg: reg, err: err}
	}
}

func (m Model) check() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		av, err := s.CheckAvailability(ctx)
		return checkDoneMsg{availability: av, err: err}
	}
}

func countryZone(i int) string {
	return fmt.Sprintf("%s%d", zoneCountry, i)
}

// rowsFor sizes the country list to the terminal height.
func rowsFor(height int) int {
	rows := height - 18 // title, username block, button, status, help
	if rows < 3 {
		return 3
	}
	if rows > 12 {
		return 12
	}
	return rows
}
