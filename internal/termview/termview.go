// Package termview prints the dashboard as a one-shot terminal table.
package termview

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dashboard"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

// Table buffers what the pipeline renders and writes it out on Flush.
type Table struct {
	w      io.Writer
	rows   []record.Row
	status string
}

var _ dashboard.View = (*Table)(nil)

func New(w io.Writer) *Table {
	return &Table{w: w}
}

func (t *Table) SetRows(rows []record.Row) { t.rows = rows }

func (t *Table) SetStatus(text string) { t.status = text }

func (t *Table) Rows() []record.Row { return t.rows }

func (t *Table) Status() string { return t.status }

// Flush writes the table followed by the status line.
func (t *Table) Flush() error {
	if len(t.rows) == 0 {
		if _, err := fmt.Fprintln(t.w, pterm.Gray("No matching items")); err != nil {
			return err
		}
	} else {
		data := pterm.TableData{record.Columns}
		for _, r := range t.rows {
			cells := r.Cells()
			cells[4] = colorizeConfidence(r.Confidence)
			data = append(data, cells)
		}
		out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
		if err != nil {
			return fmt.Errorf("rendering table: %w", err)
		}
		if _, err := fmt.Fprintln(t.w, out); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(t.w, t.status)
	return err
}

// colorizeConfidence colors a rendered "NN%" value by band.
func colorizeConfidence(s string) string {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return pterm.Gray(s)
	}
	switch {
	case v >= 80:
		return pterm.Green(s)
	case v >= 60:
		return pterm.LightGreen(s)
	case v >= 40:
		return pterm.Yellow(s)
	default:
		return pterm.Red(s)
	}
}
