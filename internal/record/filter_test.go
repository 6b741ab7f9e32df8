package record

import (
	"math"
	"reflect"
	"testing"
)

func sampleRecords() []Record {
	return []Record{
		{Category: "A", Title: "Foo Bar", Source: "X", PublishedAt: "2024-01-01T00:00:00Z", Confidence: 80},
		{Category: "B", Title: "Baz", Source: "Y", PublishedAt: "2024-02-01T00:00:00Z", Confidence: 40},
	}
}

func TestFilterExample(t *testing.T) {
	got := Filter(sampleRecords(), Criteria{Query: "foo", Category: "ALL", MinConfidence: 0})
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Title != "Foo Bar" {
		t.Errorf("expected Foo Bar, got %q", got[0].Title)
	}
}

func TestFilterNoCriteriaReturnsAll(t *testing.T) {
	records := sampleRecords()
	got := Filter(records, Criteria{Category: AllCategories})
	if !reflect.DeepEqual(got, records) {
		t.Errorf("expected full dataset in order, got %v", got)
	}
}

func TestFilterEmptyCategoryMeansAll(t *testing.T) {
	got := Filter(sampleRecords(), Criteria{})
	if len(got) != 2 {
		t.Errorf("expected 2 records with absent category selector, got %d", len(got))
	}
}

func TestFilterInclusiveThreshold(t *testing.T) {
	got := Filter(sampleRecords(), Criteria{Category: AllCategories, MinConfidence: 40})
	if len(got) != 2 {
		t.Errorf("expected record at exactly 40 to be included, got %d records", len(got))
	}
	got = Filter(sampleRecords(), Criteria{Category: AllCategories, MinConfidence: 40.5})
	if len(got) != 1 {
		t.Errorf("expected 1 record above 40.5, got %d", len(got))
	}
}

func TestFilterQuery(t *testing.T) {
	records := []Record{
		{Category: "Visa", Title: "New Visa Rules", Source: "ISA"},
		{Category: "Visa", Title: "Unrelated", Source: "Immigration Bureau"},
		{Category: "Visa", Title: "Other", Source: "Ministry"},
	}
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"New Visa Rules", "Unrelated", "Other"}},
		{"visa", []string{"New Visa Rules"}},
		{"  RULES ", []string{"New Visa Rules"}},
		{"sa r", []string{"New Visa Rules"}},
		{"bureau", []string{"Unrelated"}},
		{"i", []string{"New Visa Rules", "Unrelated", "Other"}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		got := Filter(records, Criteria{Query: tt.query, Category: AllCategories})
		var titles []string
		for _, r := range got {
			titles = append(titles, r.Title)
		}
		if !reflect.DeepEqual(titles, tt.want) {
			t.Errorf("Filter(query=%q) = %v, want %v", tt.query, titles, tt.want)
		}
	}
}

func TestFilterCategoryCaseSensitive(t *testing.T) {
	records := []Record{
		{Category: "Visa", Title: "one"},
		{Category: "visa", Title: "two"},
	}
	got := Filter(records, Criteria{Category: "Visa"})
	if len(got) != 1 || got[0].Title != "one" {
		t.Errorf("expected only exact category match, got %v", got)
	}
}

func TestFilterIsStableSubsequence(t *testing.T) {
	records := []Record{
		{Category: "A", Title: "a1", Confidence: 10},
		{Category: "B", Title: "b1", Confidence: 90},
		{Category: "A", Title: "a2", Confidence: 70},
		{Category: "A", Title: "a3", Confidence: 50},
		{Category: "B", Title: "b2", Confidence: 20},
	}
	got := Filter(records, Criteria{Category: "A", MinConfidence: 50})
	want := []string{"a2", "a3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i, r := range got {
		if r.Title != want[i] {
			t.Errorf("position %d: got %s, want %s", i, r.Title, want[i])
		}
	}
}

func TestFilterIsPureAndIdempotent(t *testing.T) {
	records := sampleRecords()
	before := append([]Record(nil), records...)
	c := Criteria{Query: "ba", Category: AllCategories, MinConfidence: 30}

	first := Filter(records, c)
	second := Filter(records, c)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results, got %v and %v", first, second)
	}
	if !reflect.DeepEqual(records, before) {
		t.Error("Filter mutated its input")
	}

	// Mutating the result must not reach the source dataset.
	if len(first) > 0 {
		first[0].Title = "changed"
		if records[0].Title == "changed" {
			t.Error("result shares backing array with input")
		}
	}
}

func TestFilterNaNConfidenceNeverMatches(t *testing.T) {
	records := []Record{{Title: "bad", Confidence: math.NaN()}}
	if got := Filter(records, Criteria{}); len(got) != 0 {
		t.Errorf("expected NaN confidence to be excluded, got %v", got)
	}
}

func TestMatchAgreesWithFilter(t *testing.T) {
	c := Criteria{Query: "foo", Category: "A", MinConfidence: 50}
	for _, r := range sampleRecords() {
		want := len(Filter([]Record{r}, c)) == 1
		if got := c.Match(r); got != want {
			t.Errorf("Match(%q) = %v, want %v", r.Title, got, want)
		}
	}
}

func TestParseMinConfidence(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"", 0},
		{"50", 50},
		{" 75.5 ", 75.5},
		{"abc", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-10", -10},
	}
	for _, tt := range tests {
		if got := ParseMinConfidence(tt.input); got != tt.want {
			t.Errorf("ParseMinConfidence(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewCriteria(t *testing.T) {
	c := NewCriteria("q", "Visa", "not-a-number")
	if c.Query != "q" || c.Category != "Visa" || c.MinConfidence != 0 {
		t.Errorf("unexpected criteria: %+v", c)
	}
}

func TestCategories(t *testing.T) {
	records := []Record{
		{Category: "Visa"}, {Category: "Notice"}, {Category: ""}, {Category: "Visa"}, {Category: "Residence"},
	}
	got := Categories(records)
	want := []string{"Visa", "Notice", "Residence"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Categories = %v, want %v", got, want)
	}
}
