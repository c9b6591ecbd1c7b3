// Package ui provides the visual styling for the prizedesk terminal shell.
// Light and dark palettes follow the operator's theme setting.
package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"prizedesk/internal/notify"
)

var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#1b2a41")
	LightPrimary    = lipgloss.Color("#1b2a41") // Navy
	LightAccent     = lipgloss.Color("#c9a227") // Prize gold
	LightSecondary  = lipgloss.Color("#e1e4e8")
	LightMuted      = lipgloss.Color("#8a94a3")
	LightBorder     = lipgloss.Color("#dce0e5")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#141d2b")
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#c9a227") // Gold (flipped)
	DarkAccent     = lipgloss.Color("#3b5b8c")
	DarkSecondary  = lipgloss.Color("#1e2a3d")
	DarkMuted      = lipgloss.Color("#6b7a90")
	DarkBorder     = lipgloss.Color("#2a3850")
	DarkCard       = lipgloss.Color("#1a2536")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#43a047")
	Warning     = lipgloss.Color("#ffb300")
	Info        = lipgloss.Color("#2196f3")
)

// Theme holds the current color scheme
type Theme struct {
	Name       string
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Name:       "light",
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Name:       "dark",
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// DetectTheme picks dark or light from PRIZEDESK_DARK_MODE, falling back to
// the terminal background.
func DetectTheme() Theme {
	switch os.Getenv("PRIZEDESK_DARK_MODE") {
	case "1", "true":
		return DarkTheme()
	case "0", "false":
		return LightTheme()
	}
	if termenv.HasDarkBackground() {
		return DarkTheme()
	}
	return LightTheme()
}

// ThemeByName returns the named theme; anything else is detected.
func ThemeByName(name string) Theme {
	switch strings.ToLower(name) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	}
	return DetectTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Sidebar lipgloss.Style

	// Navigation
	NavItem   lipgloss.Style
	NavActive lipgloss.Style

	// Text
	Title lipgloss.Style
	Body  lipgloss.Style
	Muted lipgloss.Style
	Bold  lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Table
	Cursor  lipgloss.Style
	Overdue lipgloss.Style

	// Components
	Modal   lipgloss.Style
	Card    lipgloss.Style
	Divider lipgloss.Style
	Badge   lipgloss.Style
	Spinner lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Sidebar: lipgloss.NewStyle().
			Padding(1, 1).
			BorderRight(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.Border),

		NavItem: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Padding(0, 1),

		NavActive: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Cursor: lipgloss.NewStyle().
			Background(theme.Secondary).
			Foreground(theme.Foreground).
			Bold(true),

		Overdue: lipgloss.NewStyle().
			Foreground(Destructive),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Accent).
			Padding(1, 2),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderDivider returns a horizontal divider.
func (s Styles) RenderDivider(width int) string {
	return s.Divider.Render(strings.Repeat("─", max(width, 0)))
}

// Notification renders one notification line in its severity colour.
func (s Styles) Notification(n notify.Notification) string {
	switch n.Severity {
	case notify.Success:
		return s.Success.Render("✔ " + n.Message)
	case notify.Error:
		return s.Error.Render("✖ " + n.Message)
	case notify.Warning:
		return s.Warning.Render("⚠ " + n.Message)
	default:
		return s.Info.Render("ℹ " + n.Message)
	}
}
