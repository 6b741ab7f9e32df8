package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dataset"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

// ErrRefreshInProgress is returned when a refresh is requested while another one runs.
var ErrRefreshInProgress = errors.New("refresh already in progress")

const (
	DefaultDelay = 600 * time.Millisecond
	DefaultLabel = "sample data"

	RefreshingStatus = "Refreshing (demo)…"
)

// View is the presentation boundary the pipeline writes to.
type View interface {
	SetRows(rows []record.Row)
	SetStatus(text string)
}

// RefreshTrigger is implemented by views that expose a refresh control.
type RefreshTrigger interface {
	SetRefreshEnabled(enabled bool)
}

// Pipeline holds the current dataset and redraws views from it.
type Pipeline struct {
	loader dataset.Loader
	delay  time.Duration
	label  string

	mu      sync.RWMutex
	records []record.Record

	refreshing atomic.Bool
}

type Option func(*Pipeline)

// WithDelay sets the artificial wait before a refresh reloads the dataset.
func WithDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithLabel sets the suffix shown in the status line. Empty drops it.
func WithLabel(label string) Option {
	return func(p *Pipeline) { p.label = label }
}

func New(loader dataset.Loader, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader: loader,
		delay:  DefaultDelay,
		label:  DefaultLabel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load fetches the dataset for the first time. On failure the dataset is
// left empty and the error is returned.
func (p *Pipeline) Load(ctx context.Context) error {
	records, err := p.loader.Load(ctx)
	if err != nil {
		p.replace(nil)
		return fmt.Errorf("loading dataset: %w", err)
	}
	p.replace(records)
	return nil
}

// LoadInto runs Load and renders the result, or the failure, into view.
func (p *Pipeline) LoadInto(ctx context.Context, view View, c record.Criteria) error {
	if err := p.Load(ctx); err != nil {
		view.SetRows(nil)
		view.SetStatus("Failed to load data: " + err.Error())
		return err
	}
	p.Render(view, c)
	return nil
}

func (p *Pipeline) replace(records []record.Record) {
	if records == nil {
		records = []record.Record{}
	}
	p.mu.Lock()
	p.records = records
	p.mu.Unlock()
}

// Records returns the current dataset. Callers must not modify it.
func (p *Pipeline) Records() []record.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.records
}

func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

func (p *Pipeline) Delay() time.Duration { return p.delay }

func (p *Pipeline) Refreshing() bool { return p.refreshing.Load() }

// Filter applies c to the current dataset and returns the matches with the dataset size.
func (p *Pipeline) Filter(c record.Criteria) (filtered []record.Record, total int) {
	all := p.Records()
	return record.Filter(all, c), len(all)
}

// Render filters the dataset, replaces the view's rows and updates its status line.
func (p *Pipeline) Render(view View, c record.Criteria) []record.Record {
	filtered, total := p.Filter(c)
	view.SetRows(record.ToRows(filtered))
	view.SetStatus(p.Status(len(filtered), total))
	return filtered
}

// Status formats the status line for a render.
func (p *Pipeline) Status(filtered, total int) string {
	s := fmt.Sprintf("Showing %d of %d items", filtered, total)
	if p.label != "" {
		s += " (" + p.label + ")"
	}
	return s
}

// BeginRefresh claims the refresh slot, disables the view's trigger and shows
// the interim status. It returns false if a refresh is already running.
func (p *Pipeline) BeginRefresh(view View) bool {
	if !p.refreshing.CompareAndSwap(false, true) {
		return false
	}
	setTrigger(view, false)
	view.SetStatus(RefreshingStatus)
	return true
}

// Reload waits the refresh delay and fetches the dataset again without
// touching the current one.
func (p *Pipeline) Reload(ctx context.Context) ([]record.Record, error) {
	if p.delay > 0 {
		t := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return p.loader.Load(ctx)
}

// FinishRefresh swaps in the reloaded dataset, redraws the view and releases
// the refresh slot. When err is set the previous dataset is kept.
func (p *Pipeline) FinishRefresh(view View, records []record.Record, err error, c record.Criteria) error {
	defer func() {
		setTrigger(view, true)
		p.refreshing.Store(false)
	}()

	if err != nil {
		filtered, _ := p.Filter(c)
		view.SetRows(record.ToRows(filtered))
		view.SetStatus("Refresh failed: " + err.Error())
		return fmt.Errorf("refreshing dataset: %w", err)
	}
	p.replace(records)
	p.Render(view, c)
	return nil
}

// Refresh runs a whole refresh cycle synchronously.
func (p *Pipeline) Refresh(ctx context.Context, view View, c record.Criteria) error {
	if !p.BeginRefresh(view) {
		return ErrRefreshInProgress
	}
	records, err := p.Reload(ctx)
	return p.FinishRefresh(view, records, err, c)
}

func setTrigger(view View, enabled bool) {
	if t, ok := view.(RefreshTrigger); ok {
		t.SetRefreshEnabled(enabled)
	}
}
