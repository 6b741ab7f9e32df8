package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dashboard"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dataset"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

const fullStatus = "Showing 8 of 8 items (sample data)"

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

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(a *App, s string) {
	for _, r := range s {
		a.Update(key(string(r)))
	}
}

func loadedApp(t *testing.T, loader dataset.Loader, opts RunOpts) *App {
	t.Helper()
	opts.Pipeline = dashboard.New(loader, dashboard.WithDelay(0))
	a := NewApp(opts)
	a.Update(a.Init()())
	return a
}

func TestInitialLoad(t *testing.T) {
	a := loadedApp(t, dataset.EmbeddedLoader{}, RunOpts{})

	if a.status != fullStatus {
		t.Errorf("unexpected status %q", a.status)
	}
	if len(a.rows) != 8 {
		t.Errorf("expected 8 rows, got %d", len(a.rows))
	}
	want := "ALL,Visa,Residence,Employment,Notice,Naturalization"
	if got := strings.Join(a.categoryBar.categories, ","); got != want {
		t.Errorf("categories = %s, want %s", got, want)
	}
}

func TestInitialLoadFailure(t *testing.T) {
	a := loadedApp(t, dataset.FileLoader{Path: t.TempDir() + "/missing.json"}, RunOpts{})

	if !strings.HasPrefix(a.status, "Failed to load data: ") {
		t.Errorf("expected failure status, got %q", a.status)
	}
	if len(a.rows) != 0 {
		t.Errorf("expected no rows, got %d", len(a.rows))
	}
}

func TestSearchFiltersLive(t *testing.T) {
	a := loadedApp(t, dataset.EmbeddedLoader{}, RunOpts{})

	a.Update(key("/"))
	if a.mode != modeSearch {
		t.Fatalf("expected search mode")
	}
	typeText(a, "visa")

	if len(a.rows) != 1 {
		t.Errorf("expected 1 row for 'visa', got %d", len(a.rows))
	}
	if a.status != "Showing 1 of 8 items (sample data)" {
		t.Errorf("unexpected status %q", a.status)
	}

	a.Update(key("esc"))
	if a.mode != modeNormal {
		t.Errorf("expected normal mode after esc")
	}
	if len(a.rows) != 8 || a.searchInput.Value() != "" {
		t.Errorf("expected esc to clear the query, got %d rows and %q", len(a.rows), a.searchInput.Value())
	}
}

func TestMinConfidence(t *testing.T) {
	a := loadedApp(t, dataset.EmbeddedLoader{}, RunOpts{})

	a.Update(key("m"))
	typeText(a, "70")
	a.Update(key("enter"))

	if len(a.rows) != 4 {
		t.Errorf("expected 4 rows at >= 70, got %d", len(a.rows))
	}
	if a.minInput.Value() != "70" {
		t.Errorf("expected enter to keep the value, got %q", a.minInput.Value())
	}
}

func TestMinConfidenceInvalidMeansZero(t *testing.T) {
	a := loadedApp(t, dataset.EmbeddedLoader{}, RunOpts{})

	a.Update(key("m"))
	typeText(a, "abc")

	if len(a.rows) != 8 {
		t.Errorf("expected invalid threshold to match everything, got %d", len(a.rows))
	}
}

func TestCategorySelection(t *testing.T) {
	a := loadedApp(t, dataset.EmbeddedLoader{}, RunOpts{})

	a.Update(key("c"))
	if a.categoryBar.value() != "Visa" || len(a.rows) != 2 {
		t.Errorf("expected 2 Visa rows, got %q with %d rows", a.categoryBar.value(), len(a.rows))
	}

	a.Update(key("f"))
	a.Update(key("right"))
	if a.categoryBar.value() != "Residence" || len(a.rows) != 2 {
		t.Errorf("expected 2 Residence rows, got %q with %d rows", a.categoryBar.value(), len(a.rows))
	}
	a.Update(key("esc"))
	if a.mode != modeNormal || a.categoryBar.filterMode {
		t.Error("expected filter mode to end on esc")
	}
}

func TestPresetCriteria(t *testing.T) {
	a := loadedApp(t, dataset.EmbeddedLoader{}, RunOpts{Category: "Visa", MinConfidence: "80"})

	if len(a.rows) != 1 {
		t.Errorf("expected 1 row for Visa >= 80, got %d", len(a.rows))
	}
	if a.status != "Showing 1 of 8 items (sample data)" {
		t.Errorf("unexpected status %q", a.status)
	}
}

func TestRefresh(t *testing.T) {
	a := loadedApp(t, dataset.EmbeddedLoader{}, RunOpts{})

	_, cmd := a.Update(key("r"))
	if cmd == nil {
		t.Fatal("expected refresh command")
	}
	if a.status != dashboard.RefreshingStatus {
		t.Errorf("expected interim status, got %q", a.status)
	}
	if a.refreshEnabled {
		t.Error("expected trigger disabled during refresh")
	}

	if _, cmd := a.Update(key("r")); cmd != nil {
		t.Error("expected second refresh to be ignored")
	}

	a.Update(a.reloadCmd()())
	if a.status != fullStatus {
		t.Errorf("unexpected status after refresh %q", a.status)
	}
	if !a.refreshEnabled {
		t.Error("expected trigger enabled after refresh")
	}
	if a.pipeline.Refreshing() {
		t.Error("expected refresh slot released")
	}
}

func TestRefreshFailureKeepsRows(t *testing.T) {
	a := loadedApp(t, &flakyLoader{}, RunOpts{})

	a.Update(key("r"))
	a.Update(a.reloadCmd()())

	if !strings.HasPrefix(a.status, "Refresh failed: ") {
		t.Errorf("expected failure status, got %q", a.status)
	}
	if len(a.rows) != 8 {
		t.Errorf("expected previous rows kept, got %d", len(a.rows))
	}
	if !a.refreshEnabled {
		t.Error("expected trigger re-enabled after failure")
	}
}

func TestCursorNavigation(t *testing.T) {
	a := loadedApp(t, dataset.EmbeddedLoader{}, RunOpts{})

	a.Update(key("j"))
	a.Update(key("j"))
	if a.cursor != 2 {
		t.Errorf("expected cursor 2, got %d", a.cursor)
	}
	a.Update(key("k"))
	if a.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", a.cursor)
	}

	// Narrowing the rows clamps the cursor
	a.Update(key("m"))
	typeText(a, "90")
	if a.cursor != 0 {
		t.Errorf("expected cursor reset, got %d", a.cursor)
	}
}

func TestViewRenders(t *testing.T) {
	a := loadedApp(t, dataset.EmbeddedLoader{}, RunOpts{Source: "embedded sample-data.json"})
	a.Update(tea.WindowSizeMsg{Width: 140, Height: 40})

	out := a.View()
	for _, want := range []string{"jpmon", fullStatus, "Visa"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}

	a.Update(key("?"))
	if !strings.Contains(a.View(), "Keyboard Shortcuts") {
		t.Error("expected help screen")
	}
}
