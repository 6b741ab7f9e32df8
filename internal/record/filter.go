package record

import (
	"math"
	"strconv"
	"strings"
)

// AllCategories is the category selector value meaning "no category filter".
const AllCategories = "ALL"

// Criteria is the combination of inputs used to filter a dataset.
type Criteria struct {
	Query         string
	Category      string
	MinConfidence float64
}

// NewCriteria builds criteria from raw UI input values.
func NewCriteria(query, category, minConfidence string) Criteria {
	return Criteria{
		Query:         query,
		Category:      category,
		MinConfidence: ParseMinConfidence(minConfidence),
	}
}

// ParseMinConfidence treats empty, non-numeric and non-finite input as zero.
func ParseMinConfidence(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// IsAll reports whether the criteria apply no category filter.
func (c Criteria) IsAll() bool {
	return c.Category == "" || c.Category == AllCategories
}

// Match reports whether r satisfies the text, category and confidence predicates.
func (c Criteria) Match(r Record) bool {
	return c.matchQuery(r, normalizeQuery(c.Query)) && c.matchCategory(r) && r.Confidence >= c.MinConfidence
}

func (c Criteria) matchQuery(r Record, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Source), q)
}

func (c Criteria) matchCategory(r Record) bool {
	return c.IsAll() || r.Category == c.Category
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Filter returns a new slice with the records matching c, in their original order.
// The input slice is never modified.
func Filter(records []Record, c Criteria) []Record {
	q := normalizeQuery(c.Query)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if c.matchQuery(r, q) && c.matchCategory(r) && r.Confidence >= c.MinConfidence {
			out = append(out, r)
		}
	}
	return out
}
