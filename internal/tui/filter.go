package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

// categoryBar is the category selector. Index 0 is always "ALL".
type categoryBar struct {
	categories []string
	selected   int
	filterMode bool
}

func newCategoryBar(categories []string) categoryBar {
	var c categoryBar
	c.setCategories(categories)
	return c
}

// setCategories replaces the options. The current choice stays selected and
// is kept as an option even when no record carries it any more.
func (c *categoryBar) setCategories(categories []string) {
	current := c.value()
	c.categories = append([]string{record.AllCategories}, categories...)
	c.selected = 0
	if current == record.AllCategories {
		return
	}
	for i, cat := range c.categories {
		if cat == current {
			c.selected = i
			return
		}
	}
	c.categories = append(c.categories, current)
	c.selected = len(c.categories) - 1
}

func (c *categoryBar) value() string {
	if c.selected < 0 || c.selected >= len(c.categories) {
		return record.AllCategories
	}
	return c.categories[c.selected]
}

func (c *categoryBar) prev() {
	if c.selected > 0 {
		c.selected--
	}
}

func (c *categoryBar) next() {
	if c.selected < len(c.categories)-1 {
		c.selected++
	}
}

// cycle advances the selection, wrapping back to ALL.
func (c *categoryBar) cycle() {
	if len(c.categories) == 0 {
		return
	}
	c.selected = (c.selected + 1) % len(c.categories)
}

func (c *categoryBar) render(width int) string {
	sep := tabSeparatorStyle.Render(" · ")

	var parts []string
	for i, cat := range c.categories {
		style := tabInactiveStyle
		if i == c.selected {
			style = tabActiveStyle
		}
		label := cat
		if c.filterMode && i == c.selected {
			label = "[" + cat + "]"
		}
		parts = append(parts, style.Render(label))
	}

	// Build row with · separators, stopping when we'd exceed width
	var row string
	for i, part := range parts {
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorTabBg).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}
