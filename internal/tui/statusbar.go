package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar shows the pipeline status on the left and key hints on
// the right. The refresh hint is struck through while the trigger is disabled.
func renderStatusBar(status string, width int, mode mode, refreshEnabled bool) string {
	left := " " + status

	var right string
	switch mode {
	case modeSearch, modeMinConfidence:
		right = " esc clear  enter done "
	case modeFilter:
		right = " ←/→ category  esc done "
	default:
		refresh := "r refresh"
		if !refreshEnabled {
			refresh = hintDisabledStyle.Render(refresh)
		}
		right = " / search  f category  m min  " + refresh + "  ? help  q quit "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}
