package record

import (
	"strconv"
	"strings"
	"time"
)

// Row is the display form of a record: one string per table column.
type Row struct {
	Category   string
	Title      string
	Source     string
	Published  string
	Confidence string
	URL        string
}

// Columns is the table header, in display order.
var Columns = []string{"Category", "Title", "Source", "Published", "Confidence"}

// Cells returns the row's values in Columns order.
func (r Row) Cells() []string {
	return []string{r.Category, r.Title, r.Source, r.Published, r.Confidence}
}

// PublishedLayout is the human-readable timestamp format used in tables.
const PublishedLayout = "Jan 2, 2006 3:04 PM"

var publishedLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{time.RFC3339, false},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02", false},
}

// ParsePublished parses the timestamp formats the dataset is known to carry.
// Date-times without an offset are local time; date-only values are UTC.
func ParsePublished(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range publishedLayouts {
		loc := time.UTC
		if l.local {
			loc = time.Local
		}
		if t, err := time.ParseInLocation(l.layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatPublished renders an ISO-8601 timestamp in local time, or returns the
// raw string unchanged when it cannot be parsed.
func FormatPublished(s string) string {
	t, ok := ParsePublished(s)
	if !ok {
		return s
	}
	return t.Local().Format(PublishedLayout)
}

// FormatConfidence renders a confidence value with a percent suffix.
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64) + "%"
}

// ToRow renders a single record.
func ToRow(r Record) Row {
	return Row{
		Category:   r.Category,
		Title:      r.Title,
		Source:     r.Source,
		Published:  FormatPublished(r.PublishedAt),
		Confidence: r.ConfidenceText() + "%",
		URL:        r.URL,
	}
}

// ToRows renders records in order, one row per record.
func ToRows(records []Record) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = ToRow(r)
	}
	return rows
}
