package cache

import (
	"time"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

// Item is a scraped entry as stored in the items table.
type Item struct {
	ID          int64     `json:"-"`
	SourceID    string    `json:"source_id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt string    `json:"published_at,omitempty"`
	Confidence  float64   `json:"confidence"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Record converts the item into a dashboard record. Items without a
// published date use their fetch time.
func (it Item) Record(sourceName string) record.Record {
	published := it.PublishedAt
	if published == "" && !it.FetchedAt.IsZero() {
		published = it.FetchedAt.UTC().Format(time.RFC3339)
	}
	if sourceName == "" {
		sourceName = it.SourceID
	}
	return record.Record{
		Category:    it.Category,
		Title:       it.Title,
		Source:      sourceName,
		PublishedAt: published,
		Confidence:  it.Confidence,
		URL:         it.URL,
	}
}

type SearchOpts struct {
	Query    string
	Category string
	SourceID string
	Limit    int
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)
