package record

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is one dashboard entry describing a monitored item.
type Record struct {
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	PublishedAt string  `json:"published_at"`
	Confidence  float64 `json:"confidence"`
	URL         string  `json:"url,omitempty"`

	// rawConfidence is the JSON text of a confidence that is not a number.
	rawConfidence string
}

// UnmarshalJSON accepts loosely typed input. A numeric string confidence is
// parsed, null or missing is zero and anything else is NaN, which never
// passes a confidence threshold. The original text of a NaN confidence is
// kept for display and re-encoding.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Category    any             `json:"category"`
		Title       any             `json:"title"`
		Source      any             `json:"source"`
		PublishedAt any             `json:"published_at"`
		Confidence  json.RawMessage `json:"confidence"`
		URL         any             `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{
		Category:    asString(raw.Category),
		Title:       asString(raw.Title),
		Source:      asString(raw.Source),
		PublishedAt: asString(raw.PublishedAt),
		Confidence:  parseConfidence(raw.Confidence),
		URL:         asString(raw.URL),
	}
	if math.IsNaN(r.Confidence) {
		r.rawConfidence = string(bytes.TrimSpace(raw.Confidence))
	}
	return nil
}

// ConfidenceText is the confidence as it appeared in the data: the number, or
// the original value when it was not numeric.
func (r Record) ConfidenceText() string {
	if math.IsNaN(r.Confidence) && r.rawConfidence != "" {
		var s string
		if err := json.Unmarshal([]byte(r.rawConfidence), &s); err == nil {
			return s
		}
		return r.rawConfidence
	}
	return strconv.FormatFloat(r.Confidence, 'f', -1, 64)
}

// MarshalJSON writes a non-numeric confidence back as it was read, and null
// when there is no original text, since JSON has no NaN.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain struct {
		Category    string          `json:"category"`
		Title       string          `json:"title"`
		Source      string          `json:"source"`
		PublishedAt string          `json:"published_at"`
		Confidence  json.RawMessage `json:"confidence"`
		URL         string          `json:"url,omitempty"`
	}
	p := plain{
		Category:    r.Category,
		Title:       r.Title,
		Source:      r.Source,
		PublishedAt: r.PublishedAt,
		URL:         r.URL,
	}
	switch {
	case math.IsNaN(r.Confidence) && r.rawConfidence != "":
		p.Confidence = json.RawMessage(r.rawConfidence)
	case math.IsNaN(r.Confidence), math.IsInf(r.Confidence, 0):
		p.Confidence = json.RawMessage("null")
	default:
		p.Confidence = json.RawMessage(strconv.FormatFloat(r.Confidence, 'f', -1, 64))
	}
	return json.Marshal(p)
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func parseConfidence(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return math.NaN()
}

// Categories returns the distinct categories of records in order of first appearance.
func Categories(records []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.Category == "" || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Category)
	}
	return out
}
