package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/cache"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

var errNoStore = errors.New("item store not configured")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type recordsResponse struct {
	Count int             `json:"count"`
	Total int             `json:"total"`
	Items []record.Record `json:"items"`
}

func (s *Server) recordsHandler(w http.ResponseWriter, r *http.Request) {
	c, _ := criteriaFromForm(r)
	filtered, total := s.pipeline.Filter(c)
	writeJSON(w, http.StatusOK, recordsResponse{Count: len(filtered), Total: total, Items: filtered})
}

type searchResponse struct {
	Count int          `json:"count"`
	Items []cache.Item `json:"items"`
}

// parseLimit accepts 1..MaxLimit and defaults to DefaultLimit when absent.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return cache.DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > cache.MaxLimit {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", cache.MaxLimit)
	}
	return n, nil
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore.Error())
		return
	}

	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := cache.SearchOpts{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		SourceID: q.Get("source_id"),
		Limit:    limit,
	}
	items, err := s.db.Search(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Count: len(items), Items: items})
}

type scrapeResponse struct {
	Fetched  int      `json:"fetched"`
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors,omitempty"`
}

func (s *Server) scrapeHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore.Error())
		return
	}

	res, err := s.Scrape(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := scrapeResponse{Fetched: res.Fetched, Inserted: res.Inserted}
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}
