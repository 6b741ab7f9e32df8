package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/cache"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/config"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dashboard"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dataset"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

type flakyLoader struct {
	calls int
}

func (f *flakyLoader) Load(ctx context.Context) ([]record.Record, error) {
	f.calls++
	if f.calls > 1 {
		return nil, errors.New("upstream unavailable")
	}
	return dataset.EmbeddedLoader{}.Load(ctx)
}

func newTestServer(t *testing.T, loader dataset.Loader, opts Options) http.Handler {
	t.Helper()
	p := dashboard.New(loader, dashboard.WithDelay(0))
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("loading dataset: %v", err)
	}
	opts.Pipeline = p
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s.Routes()
}

func testDB(t *testing.T) *cache.Cache {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "items.db"))
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestActivePage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "index.html"},
		{"", "index.html"},
		{"/index.html", "index.html"},
		{"/dashboard.html", "dashboard.html"},
		{"/site/dashboard.html", "dashboard.html"},
		{"/site/", "site"},
	}
	for _, tt := range tests {
		if got := ActivePage(tt.path); got != tt.want {
			t.Errorf("ActivePage(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNavHighlighting(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{})

	tests := []struct {
		path   string
		active string
		other  string
	}{
		{"/", "index.html", "dashboard.html"},
		{"/index.html", "index.html", "dashboard.html"},
		{"/dashboard.html", "dashboard.html", "index.html"},
	}
	for _, tt := range tests {
		body := get(t, h, tt.path).Body.String()
		if !strings.Contains(body, `href="`+tt.active+`" class="active"`) {
			t.Errorf("%s: expected %s to be active", tt.path, tt.active)
		}
		if strings.Contains(body, `href="`+tt.other+`" class="active"`) {
			t.Errorf("%s: expected %s not to be active", tt.path, tt.other)
		}
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{})
	rec := get(t, h, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestOverview(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{DB: testDB(t), DatasetName: "embedded sample-data.json"})
	body := get(t, h, "/").Body.String()

	for _, want := range []string{"8 items loaded", "embedded sample-data.json", `dashboard.html?cat=Visa`, "Last scrape: never"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected overview to contain %q", want)
		}
	}
}

func TestDashboardRendersAll(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{})
	rec := get(t, h, "/dashboard.html")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if n := strings.Count(body, "<tr><td>"); n != 8 {
		t.Errorf("expected 8 rows, got %d", n)
	}
	if !strings.Contains(body, "Showing 8 of 8 items (sample data)") {
		t.Error("expected full status line")
	}
	if strings.Contains(body, `id="refresh" type="submit" disabled`) {
		t.Error("expected refresh button enabled")
	}
}

func TestDashboardFilters(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{})

	body := get(t, h, "/dashboard.html?q=visa").Body.String()
	if n := strings.Count(body, "<tr><td>"); n != 1 {
		t.Errorf("expected 1 row for q=visa, got %d", n)
	}
	if !strings.Contains(body, "Showing 1 of 8 items (sample data)") {
		t.Error("expected filtered status line")
	}

	body = get(t, h, "/dashboard.html?cat=Visa&minc=80").Body.String()
	if n := strings.Count(body, "<tr><td>"); n != 1 {
		t.Errorf("expected 1 Visa row >= 80, got %d", n)
	}
	if !strings.Contains(body, `<option value="Visa" selected>`) {
		t.Error("expected Visa option selected")
	}
	if !strings.Contains(body, `name="minc" min="0" max="100" value="80"`) {
		t.Error("expected min confidence echoed back")
	}

	body = get(t, h, "/dashboard.html?cat=Tourism").Body.String()
	if n := strings.Count(body, "<tr><td>"); n != 0 {
		t.Errorf("expected no rows for an unknown category, got %d", n)
	}
	if !strings.Contains(body, `<option value="Tourism" selected>`) {
		t.Error("expected unknown category kept as the selected option")
	}
	if strings.Contains(body, `<option value="ALL" selected>`) {
		t.Error("expected ALL not selected")
	}
}

func TestCategoryOptions(t *testing.T) {
	records := []record.Record{{Category: "Visa"}, {Category: "Notice"}, {Category: "Visa"}}
	tests := []struct {
		current string
		want    string
	}{
		{"ALL", "ALL,Visa,Notice"},
		{"Notice", "ALL,Visa,Notice"},
		{"Tourism", "ALL,Visa,Notice,Tourism"},
	}
	for _, tt := range tests {
		if got := strings.Join(categoryOptions(records, tt.current), ","); got != tt.want {
			t.Errorf("categoryOptions(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
}

func TestDatasetAsset(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{})
	rec := get(t, h, "/assets/sample-data.json")

	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
	records, err := dataset.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(records) != 8 {
		t.Errorf("expected 8 records, got %d", len(records))
	}
}

func TestRecordsAPI(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{})
	rec := get(t, h, "/api/records?minc=80")

	var resp struct {
		Count int             `json:"count"`
		Total int             `json:"total"`
		Items []record.Record `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Count != 2 || resp.Total != 8 || len(resp.Items) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Items[0].Confidence != 92 {
		t.Errorf("expected dataset order kept, got %v first", resp.Items[0].Confidence)
	}
}

func TestRefreshRedirects(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{})
	rec := postForm(t, h, "/refresh", url.Values{"q": {"visa"}})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard.html?q=visa" {
		t.Errorf("unexpected redirect %q", loc)
	}
}

func TestRefreshFailureKeepsRows(t *testing.T) {
	h := newTestServer(t, &flakyLoader{}, Options{})
	rec := postForm(t, h, "/refresh", url.Values{})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Refresh failed: ") {
		t.Error("expected failure status")
	}
	if n := strings.Count(body, "<tr><td>"); n != 8 {
		t.Errorf("expected previous rows kept, got %d", n)
	}
	if !strings.Contains(body, `href="dashboard.html" class="active"`) {
		t.Error("expected dashboard nav entry active on the failure page")
	}

	// The dataset is still served after the failure
	if n := strings.Count(get(t, h, "/dashboard.html").Body.String(), "<tr><td>"); n != 8 {
		t.Errorf("expected 8 rows after failed refresh, got %d", n)
	}
}

func TestSearchWithoutStore(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{})
	if rec := get(t, h, "/api/search"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	db.UpsertItems([]cache.Item{
		{SourceID: "isa", Category: "Visa", Title: "New visa rules", URL: "https://isa.example/a", Confidence: 70, FetchedAt: now},
		{SourceID: "isa", Category: "Notice", Title: "Counter hours", URL: "https://isa.example/b", Confidence: 30, FetchedAt: now},
		{SourceID: "mofa", Category: "Visa", Title: "Nomad visa", URL: "https://mofa.example/c", Confidence: 70, FetchedAt: now},
	})
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{DB: db})

	tests := []struct {
		target string
		code   int
		count  int
	}{
		{"/api/search", http.StatusOK, 3},
		{"/api/search?category=Visa", http.StatusOK, 2},
		{"/api/search?category=ALL&source_id=isa", http.StatusOK, 2},
		{"/api/search?q=nomad", http.StatusOK, 1},
		{"/api/search?limit=1", http.StatusOK, 1},
		{"/api/search?limit=200", http.StatusOK, 3},
		{"/api/search?limit=0", http.StatusBadRequest, 0},
		{"/api/search?limit=201", http.StatusBadRequest, 0},
		{"/api/search?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.target)
		if rec.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.code, rec.Code)
			continue
		}
		if tt.code != http.StatusOK {
			var e map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&e); err != nil || e["error"] == "" {
				t.Errorf("%s: expected JSON error body", tt.target)
			}
			continue
		}
		var resp struct {
			Count int          `json:"count"`
			Items []cache.Item `json:"items"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: decoding: %v", tt.target, err)
		}
		if resp.Count != tt.count || len(resp.Items) != tt.count {
			t.Errorf("%s: expected %d items, got %d", tt.target, tt.count, resp.Count)
		}
	}
}

func TestScrape(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<ul><li><a href="/a">New visa rules</a></li><li><a href="/b">Residence card renewal</a></li></ul>`)
	}))
	defer src.Close()

	db := testDB(t)
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{
		DB: db,
		Sources: []config.Source{{
			ID: "isa", Type: "html", URL: src.URL, ItemSelector: "li", TitleSelector: "a", LinkSelector: "a", Enabled: true,
		}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp scrapeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Fetched != 2 || resp.Inserted != 2 {
		t.Errorf("unexpected response %+v", resp)
	}

	items, _ := db.Search(cache.SearchOpts{})
	if len(items) != 2 {
		t.Errorf("expected 2 stored items, got %d", len(items))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, dataset.EmbeddedLoader{}, Options{})
	if rec := get(t, h, "/refresh"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET /refresh, got %d", rec.Code)
	}
}
