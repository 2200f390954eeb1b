// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor     = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#CCCCCC"} // Main/primary text
	TextMutedColor       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"} // Hints, help text, footers
	TextPlaceholderColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#777777"} // Input placeholders

	// Semantic color names - Border
	BorderDefaultColor   = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"} // Unfocused borders
	BorderHighlightColor = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"} // Focused field

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Selection indicator color (used for ">" prefix in lists)
	SelectionIndicatorColor = lipgloss.AdaptiveColor{Light: "#1A5276", Dark: "#FFFFFF"}

	// Button colors
	ButtonTextColor           = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}
	ButtonPrimaryBgColor      = lipgloss.AdaptiveColor{Light: "#1A5276", Dark: "#1A5276"}
	ButtonPrimaryFocusBgColor = lipgloss.AdaptiveColor{Light: "#3498DB", Dark: "#3498DB"}
	ButtonDisabledBgColor     = lipgloss.AdaptiveColor{Light: "#2D2D2D", Dark: "#2D2D2D"}

	// Loading spinner color
	SpinnerColor = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#FFF"}
)

// Styles built from the colors above. Rebuilt by ApplyTheme.
var (
	TitleStyle              lipgloss.Style
	LabelStyle              lipgloss.Style
	LabelFocusedStyle       lipgloss.Style
	FieldStyle              lipgloss.Style
	FieldFocusedStyle       lipgloss.Style
	FieldErrorStyle         lipgloss.Style
	HintStyle               lipgloss.Style
	SuccessStyle            lipgloss.Style
	WarningStyle            lipgloss.Style
	SelectionIndicatorStyle lipgloss.Style
	PrimaryButtonStyle      lipgloss.Style
	PrimaryButtonFocused    lipgloss.Style
	DisabledButtonStyle     lipgloss.Style
	FormStyle               lipgloss.Style
)

func init() {
	rebuild()
}

func rebuild() {
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor).MarginBottom(1)
	LabelStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
	LabelFocusedStyle = lipgloss.NewStyle().Foreground(BorderHighlightColor).Bold(true)

	field := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	FieldStyle = field.BorderForeground(BorderDefaultColor)
	FieldFocusedStyle = field.BorderForeground(BorderHighlightColor)

	FieldErrorStyle = lipgloss.NewStyle().Foreground(StatusErrorColor)
	HintStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
	SuccessStyle = lipgloss.NewStyle().Foreground(StatusSuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(StatusWarningColor)
	SelectionIndicatorStyle = lipgloss.NewStyle().Bold(true).Foreground(SelectionIndicatorColor)

	button := lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(ButtonTextColor)
	PrimaryButtonStyle = button.Background(ButtonPrimaryBgColor)
	PrimaryButtonFocused = button.Background(ButtonPrimaryFocusBgColor).Underline(true).UnderlineSpaces(true)
	DisabledButtonStyle = button.Background(ButtonDisabledBgColor).Foreground(TextMutedColor)

	FormStyle = lipgloss.NewStyle().Padding(1, 2)
}

// ApplyTheme applies custom theme colors from configuration.
// Empty strings are ignored, keeping the default values.
func ApplyTheme(highlight, subtle, errorColor, success string) {
	if highlight != "" {
		BorderHighlightColor = lipgloss.AdaptiveColor{Light: highlight, Dark: highlight}
	}
	if subtle != "" {
		TextMutedColor = lipgloss.AdaptiveColor{Light: subtle, Dark: subtle}
		BorderDefaultColor = lipgloss.AdaptiveColor{Light: subtle, Dark: subtle}
	}
	if errorColor != "" {
		StatusErrorColor = lipgloss.AdaptiveColor{Light: errorColor, Dark: errorColor}
	}
	if success != "" {
		StatusSuccessColor = lipgloss.AdaptiveColor{Light: success, Dark: success}
	}
	rebuild()
}
