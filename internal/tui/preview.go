package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

func renderPreview(row *record.Row, width, height, scroll int) string {
	if row == nil {
		return lipglossCenter("Select an item", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(wrapText(row.Title, contentWidth))

	field := func(label, value string) string {
		return previewLabelStyle.Render(label) + previewBodyStyle.Render(value)
	}

	lines := []string{
		title,
		field("Category", row.Category),
		previewLabelStyle.Render("Source") + previewSourceStyle.Render(row.Source),
		field("Published", row.Published),
		field("Confidence", row.Confidence),
	}
	if row.URL != "" {
		lines = append(lines, previewLinkStyle.Width(contentWidth).Render("Open (o): "+row.URL))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)

	out := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(out) {
		out = out[scroll:]
	}

	if len(out) < height {
		out = append(out, make([]string, height-len(out))...)
	} else if len(out) > height {
		out = out[:height]
	}

	return strings.Join(out, "\n")
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
