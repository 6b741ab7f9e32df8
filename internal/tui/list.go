package tui

import (
	"strings"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

func renderListItem(r record.Row, selected bool, width int) string {
	if width < 10 {
		width = 30
	}

	var title string
	if selected {
		title = itemSelectedStyle.Render("> " + truncateStr(r.Title, width-4))
	} else {
		title = itemTitleStyle.Render("  " + truncateStr(r.Title, width-4))
	}

	meta := "  " + itemCategoryStyle.Render(r.Category) +
		" " + itemSourceStyle.Render(truncateStr(r.Source, width/2)) +
		" " + itemTimeStyle.Render("· "+r.Confidence)

	return title + "\n" + meta
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func renderList(rows []record.Row, cursor int, height int, width int) string {
	if len(rows) == 0 {
		return lipglossCenter("No matching items", width, height)
	}

	// Each item is 2 lines + 1 blank line = 3 lines
	itemHeight := 3
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > len(rows) {
		end = len(rows)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderListItem(rows[i], i == cursor, width))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	pad := (width - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + s
}
