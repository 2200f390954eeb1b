package regform

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/regform/internal/domain"
	"github.com/zjrosen/regform/internal/form"
	"github.com/zjrosen/regform/internal/ui/styles"
)

const (
	title       = "Create an account"
	minFieldLen = 24
)

// View renders the form.
func (m Model) View() string {
	inner := m.innerWidth()

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(title))
	b.WriteString("\n")

	b.WriteString(m.renderUsername(inner))
	b.WriteString("\n\n")
	b.WriteString(m.renderCountries(inner))
	b.WriteString("\n\n")
	b.WriteString(m.renderSubmit())

	if msg := m.state.ErrorMessage; msg != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.FieldErrorStyle.Render(wordwrap.String(msg, inner)))
	}
	if m.toaster.Visible() {
		b.WriteString("\n\n")
		b.WriteString(m.toaster.View())
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))

	return zone.Scan(styles.FormStyle.Render(b.String()))
}

func (m Model) innerWidth() int {
	w := m.width - styles.FormStyle.GetHorizontalFrameSize()
	if w < minFieldLen {
		return minFieldLen
	}
	return w
}

func (m Model) label(text string, focused bool) string {
	if focused {
		return styles.LabelFocusedStyle.Render(text)
	}
	return styles.LabelStyle.Render(text)
}

func (m Model) renderUsername(inner int) string {
	focused := m.focus == FocusUsername

	fieldStyle := styles.FieldStyle
	if focused {
		fieldStyle = styles.FieldFocusedStyle
	}
	fieldWidth := inner - fieldStyle.GetHorizontalFrameSize()
	if fieldWidth > 40 {
		fieldWidth = 40
	}
	ti := m.username
	ti.Width = fieldWidth - 1 // cursor cell
	field := zone.Mark(zoneUsername, fieldStyle.Width(fieldWidth).Render(ti.View()))

	lines := []string{
		m.label("Username", focused),
		field,
	}
	if status := m.availabilityLine(); status != "" {
		lines = append(lines, status)
	}
	if msg := m.state.FieldError(form.FieldUsername); msg != "" {
		lines = append(lines, styles.FieldErrorStyle.Render(wordwrap.String(msg, inner)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) availabilityLine() string {
	if m.state.Checking {
		return m.spinner.View() + " " + styles.HintStyle.Render("checking availability…")
	}
	switch m.state.Availability {
	case domain.AvailabilityAvailable:
		return styles.SuccessStyle.Render("✓ username is available")
	case domain.AvailabilityTaken:
		return styles.WarningStyle.Render("✗ username is already taken")
	}
	return ""
}

func (m Model) renderCountries(inner int) string {
	focused := m.focus == FocusCountry
	lines := []string{m.label("Country", focused)}

	countries := m.state.Countries
	switch {
	case !m.state.CountriesLoaded:
		lines = append(lines, m.spinner.View()+" "+styles.HintStyle.Render("loading countries…"))
	case len(countries) == 0:
		lines = append(lines, styles.HintStyle.Render("no countries available (ctrl+r to retry)"))
	default:
		start, end := window(m.cursor, len(countries), m.visibleRows)
		if start > 0 {
			lines = append(lines, styles.HintStyle.Render("  ↑ more"))
		}
		for i := start; i < end; i++ {
			lines = append(lines, zone.Mark(countryZone(i), m.countryRow(countries[i], i, inner)))
		}
		if end < len(countries) {
			lines = append(lines, styles.HintStyle.Render("  ↓ more"))
		}
	}

	if msg := m.state.FieldError(form.FieldCountry); msg != "" {
		lines = append(lines, styles.FieldErrorStyle.Render(wordwrap.String(msg, inner)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) countryRow(c domain.Country, i, inner int) string {
	selected := c.Code == m.state.Country
	prefix := "  "
	if m.focus == FocusCountry && i == m.cursor {
		prefix = styles.SelectionIndicatorStyle.Render(">") + " "
	}
	mark := "( ) "
	if selected {
		mark = "(•) "
	}
	code := " " + styles.HintStyle.Render(c.Code)
	nameWidth := inner - ansi.StringWidth(prefix) - len(mark) - ansi.StringWidth(code)
	name := runewidth.Truncate(c.Name, max(nameWidth, 1), "…")
	if selected {
		name = styles.SuccessStyle.Render(name)
	}
	return prefix + mark + name + code
}

func (m Model) renderSubmit() string {
	label := "Register"
	style := styles.PrimaryButtonStyle
	switch {
	case m.state.Submitting():
		label = m.spinner.View() + " Registering"
		style = styles.DisabledButtonStyle
	case m.focus == FocusSubmit:
		style = styles.PrimaryButtonFocused
	}
	return zone.Mark(zoneSubmit, style.Render(label))
}

// window returns the [start, end) slice of n rows that keeps cursor visible.
func window(cursor, n, rows int) (int, int) {
	if rows <= 0 || n <= rows {
		return 0, n
	}
	start := cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}
