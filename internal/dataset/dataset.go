package dataset

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

//go:embed sample-data.json
var sampleFS embed.FS

// SampleName is the file name the embedded dataset is published under.
const SampleName = "sample-data.json"

// Loader fetches a whole dataset. Every call reads the source again.
type Loader interface {
	Load(ctx context.Context) ([]record.Record, error)
}

// New picks a loader for source: empty means the embedded sample, an
// http(s) URL is fetched over the network and anything else is a file path.
func New(source string) Loader {
	source = strings.TrimSpace(source)
	if source == "" {
		return EmbeddedLoader{}
	}
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return &HTTPLoader{URL: source}
	}
	return FileLoader{Path: source}
}

// Describe returns a short human label for where a loader reads from.
func Describe(l Loader) string {
	switch v := l.(type) {
	case EmbeddedLoader:
		return "embedded " + SampleName
	case FileLoader:
		return v.Path
	case *HTTPLoader:
		return v.URL
	default:
		return fmt.Sprintf("%T", l)
	}
}

// EmbeddedLoader serves the sample dataset compiled into the binary.
type EmbeddedLoader struct{}

func (EmbeddedLoader) Load(ctx context.Context) ([]record.Record, error) {
	data, err := Sample()
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}

// Sample returns the raw bytes of the embedded dataset.
func Sample() ([]byte, error) {
	data, err := sampleFS.ReadFile(SampleName)
	if err != nil {
		return nil, fmt.Errorf("reading embedded dataset: %w", err)
	}
	return data, nil
}

// FileLoader reads a dataset from disk.
type FileLoader struct {
	Path string
}

func (f FileLoader) Load(ctx context.Context) ([]record.Record, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer file.Close()

	records, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", f.Path, err)
	}
	return records, nil
}

// HTTPLoader fetches a dataset over HTTP, bypassing any caches on the way.
type HTTPLoader struct {
	URL    string
	Client *http.Client
}

func (h *HTTPLoader) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (h *HTTPLoader) Load(ctx context.Context) ([]record.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := h.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching dataset: unexpected status %s", resp.Status)
	}

	records, err := Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", h.URL, err)
	}
	return records, nil
}

// Decode reads a JSON array of records.
func Decode(r io.Reader) ([]record.Record, error) {
	var records []record.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}

// Encode writes records as an indented JSON array.
func Encode(w io.Writer, records []record.Record) error {
	if records == nil {
		records = []record.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
