// Package toaster shows one short-lived confirmation line under the form,
// such as a completed registration.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/regform/internal/ui/styles"
)

// DefaultDuration applies when New is given a non-positive duration.
const DefaultDuration = 3 * time.Second

// ExpiredMsg is delivered when a toast's lifetime is over. Only the toast
// that scheduled it is hidden; a newer toast stays up.
type ExpiredMsg struct{ id uint64 }

// Model is a value type; Update and Success return the new state.
type Model struct {
	text string
	id   uint64 // zero means nothing is showing
	last uint64
	ttl  time.Duration
}

// New creates a toaster whose toasts last ttl.
func New(ttl time.Duration) Model {
	if ttl <= 0 {
		ttl = DefaultDuration
	}
	return Model{ttl: ttl}
}

// Success shows text and returns the command that expires it.
func (m Model) Success(text string) (Model, tea.Cmd) {
	m.last++
	m.id, m.text = m.last, text
	id := m.id
	return m, tea.Tick(m.ttl, func(time.Time) tea.Msg { return ExpiredMsg{id: id} })
}

// Visible reports whether a toast is up.
func (m Model) Visible() bool { return m.id != 0 }

// Text returns the toast text, or "" when hidden.
func (m Model) Text() string {
	if m.id == 0 {
		return ""
	}
	return m.text
}

func (m Model) Update(msg tea.Msg) Model {
	if exp, ok := msg.(ExpiredMsg); ok && exp.id == m.id {
		m.id, m.text = 0, ""
	}
	return m
}

func (m Model) View() string {
	if m.id == 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.StatusSuccessColor).
		Padding(0, 1).
		Render("✓ " + m.text)
}
