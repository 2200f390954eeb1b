package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap_HelpIsComplete(t *testing.T) {
	km := DefaultKeyMap()

	for _, group := range km.FullHelp() {
		for _, b := range group {
			require.NotEmpty(t, b.Keys())
			require.NotEmpty(t, b.Help().Key)
			require.NotEmpty(t, b.Help().Desc)
		}
	}
	require.Len(t, km.ShortHelp(), 4)
}

func TestDefaultKeyMap_NoPrintableKeys(t *testing.T) {
	km := DefaultKeyMap()

	for _, group := range km.FullHelp() {
		for _, b := range group {
			for _, k := range b.Keys() {
				require.Greater(t, len([]rune(k)), 1, "%q would swallow typed text", k)
			}
		}
	}
}

func TestDefaultKeyMap_Matches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		msg     tea.KeyMsg
		binding key.Binding
	}{
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, km.NextField},
		{"shift+tab", tea.KeyMsg{Type: tea.KeyShiftTab}, km.PrevField},
		{"up", tea.KeyMsg{Type: tea.KeyUp}, km.Up},
		{"down", tea.KeyMsg{Type: tea.KeyDown}, km.Down},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, km.Select},
		{"ctrl+s", tea.KeyMsg{Type: tea.KeyCtrlS}, km.Submit},
		{"ctrl+r", tea.KeyMsg{Type: tea.KeyCtrlR}, km.Reload},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit},
		{"esc", tea.KeyMsg{Type: tea.KeyEscape}, km.Quit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, key.Matches(tt.msg, tt.binding))
		})
	}
}
