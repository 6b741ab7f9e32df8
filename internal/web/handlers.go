package web

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dashboard"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dataset"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

type categoryCount struct {
	Name  string
	Count int
}

type overviewPage struct {
	Title      string
	Nav        []navLink
	Dataset    string
	Total      int
	Categories []categoryCount
	HasStore   bool
	LastScrape time.Time
}

type dashboardPage struct {
	Title          string
	Nav            []navLink
	Query          string
	Category       string
	MinConfidence  string
	Categories     []string
	Columns        []string
	Rows           []record.Row
	Status         string
	RefreshEnabled bool
}

// criteriaFromForm reads q, cat and minc from the query string or a posted form.
func criteriaFromForm(r *http.Request) (record.Criteria, url.Values) {
	_ = r.ParseForm()
	v := url.Values{}
	for _, k := range []string{"q", "cat", "minc"} {
		if val := r.Form.Get(k); val != "" {
			v.Set(k, val)
		}
	}
	return record.NewCriteria(v.Get("q"), v.Get("cat"), v.Get("minc")), v
}

func (s *Server) overviewHandler(w http.ResponseWriter, r *http.Request) {
	records := s.pipeline.Records()

	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.Category]++
	}
	var cats []categoryCount
	for _, c := range record.Categories(records) {
		cats = append(cats, categoryCount{Name: c, Count: counts[c]})
	}

	page := overviewPage{
		Title:      "Overview",
		Nav:        navLinks(r.URL.Path),
		Dataset:    s.datasetName,
		Total:      len(records),
		Categories: cats,
		HasStore:   s.db != nil,
	}
	if s.db != nil {
		if t, err := s.db.LastRefresh(); err == nil {
			page.LastScrape = t
		}
	}

	s.renderPage(w, "index.html", http.StatusOK, page)
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	c, _ := criteriaFromForm(r)
	view := newHTMLView()
	s.pipeline.Render(view, c)
	view.refreshEnabled = !s.pipeline.Refreshing()
	s.renderDashboard(w, r, http.StatusOK, c, view)
}

// categoryOptions lists ALL, the dataset's categories, and the current
// choice when no record carries it.
func categoryOptions(records []record.Record, current string) []string {
	opts := append([]string{record.AllCategories}, record.Categories(records)...)
	for _, o := range opts {
		if o == current {
			return opts
		}
	}
	return append(opts, current)
}

// refreshHandler runs a refresh and redirects back to the dashboard with the
// same criteria. A failed refresh is rendered in place so its status shows.
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	c, values := criteriaFromForm(r)
	view := newHTMLView()

	err := s.pipeline.Refresh(r.Context(), view, c)
	switch {
	case err == nil, errors.Is(err, dashboard.ErrRefreshInProgress):
		target := "/dashboard.html"
		if enc := values.Encode(); enc != "" {
			target += "?" + enc
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	default:
		s.logger.Warn("refresh failed", zap.Error(err))
		s.renderDashboard(w, r, http.StatusBadGateway, c, view)
	}
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, c record.Criteria, view *htmlView) {
	category := c.Category
	if category == "" {
		category = record.AllCategories
	}
	page := dashboardPage{
		Title:          "Dashboard",
		Nav:            navLinks("/dashboard.html"),
		Query:          r.Form.Get("q"),
		Category:       category,
		MinConfidence:  r.Form.Get("minc"),
		Categories:     categoryOptions(s.pipeline.Records(), category),
		Columns:        record.Columns,
		Rows:           view.rows,
		Status:         view.status,
		RefreshEnabled: view.refreshEnabled,
	}
	s.renderPage(w, "dashboard.html", status, page)
}

func (s *Server) renderPage(w http.ResponseWriter, name string, status int, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// datasetHandler publishes the current dataset. It must never be cached so
// a refresh always sees the latest file.
func (s *Server) datasetHandler(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := dataset.Encode(&buf, s.pipeline.Records()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
