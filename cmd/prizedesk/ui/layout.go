package ui

// Layout constants for panel sizing
const (
	SidebarWidth          = 24
	SidebarCollapsedWidth = 5
	HeaderHeight          = 1
	FooterHeight          = 2
	NotificationLines     = 3

	MinimumTerminalWidth  = 80
	MinimumTerminalHeight = 24
	ModalMaxWidth         = 72
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	Collapsed      bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size.
// Narrow terminals always get the collapsed sidebar.
func NewLayoutConfig(width, height int, collapsed bool) LayoutConfig {
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		Collapsed:      collapsed || width < MinimumTerminalWidth,
	}
}

// SidebarWidth returns the sidebar width for the current state.
func (l LayoutConfig) SidebarWidth() int {
	if l.Collapsed {
		return SidebarCollapsedWidth
	}
	return SidebarWidth
}

// ContentWidth returns the usable width right of the sidebar.
func (l LayoutConfig) ContentWidth() int {
	return max(l.TerminalWidth-l.SidebarWidth()-4, 20)
}

// ContentHeight returns the usable height between header and footer.
func (l LayoutConfig) ContentHeight() int {
	return max(l.TerminalHeight-HeaderHeight-FooterHeight-NotificationLines, 5)
}

// ModalWidth returns the width of a centred modal.
func (l LayoutConfig) ModalWidth() int {
	return min(ModalMaxWidth, max(l.TerminalWidth-8, 30))
}
