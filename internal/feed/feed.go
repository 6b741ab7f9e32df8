package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/cache"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/classify"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/config"
)

const (
	UserAgent = "jp-immigration-monitor/1.0"

	scopeSelector = ":scope"
	maxNodes      = 50
	maxTitleLen   = 300
	maxDescLen    = 300
)

type Fetcher interface {
	Fetch(ctx context.Context, source config.Source) ([]cache.Item, error)
}

// NewFetcher returns the fetcher matching the source type.
func NewFetcher(source config.Source, client *http.Client) (Fetcher, error) {
	switch source.Type {
	case "html":
		return &HTMLFetcher{Client: client}, nil
	case "rss", "atom":
		return NewRSSFetcher(client), nil
	default:
		return nil, fmt.Errorf("source %q: unknown type %q", source.ID, source.Type)
	}
}

func defaultClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// HTMLFetcher scrapes list pages with CSS selectors.
type HTMLFetcher struct {
	Client *http.Client
}

func (f *HTMLFetcher) Fetch(ctx context.Context, source config.Source) ([]cache.Item, error) {
	client := f.Client
	if client == nil {
		client = defaultClient()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Label(), err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Label(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", source.Label(), resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source.Label(), err)
	}

	base, err := url.Parse(source.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing %s url: %w", source.Label(), err)
	}

	return ParseHTML(doc, source, base, time.Now()), nil
}

// ParseHTML extracts items from an already parsed document. Only the first
// 50 nodes matched by the item selector are considered.
func ParseHTML(doc *goquery.Document, source config.Source, base *url.URL, now time.Time) []cache.Item {
	nodes := doc.Find(source.ItemSelector)
	if nodes.Length() > maxNodes {
		nodes = nodes.Slice(0, maxNodes)
	}

	var items []cache.Item
	nodes.Each(func(_ int, node *goquery.Selection) {
		titleNode := selectWithin(node, source.TitleSelector)
		linkNode := selectWithin(node, source.LinkSelector)

		title := truncate(collapse(titleNode.Text()), maxTitleLen)
		href, ok := linkNode.Attr("href")
		href = strings.TrimSpace(href)
		if title == "" || !ok || href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		link := base.ResolveReference(ref).String()

		items = append(items, newItem(source, title, "", link, "", now))
	})
	return items
}

// selectWithin applies sel relative to node. An empty selector or ":scope"
// means the node itself; otherwise the first match is used.
func selectWithin(node *goquery.Selection, sel string) *goquery.Selection {
	sel = strings.TrimSpace(sel)
	if sel == "" || sel == scopeSelector {
		return node
	}
	return node.Find(sel).First()
}

// RSSFetcher reads RSS and Atom feeds.
type RSSFetcher struct {
	parser *gofeed.Parser
}

func NewRSSFetcher(client *http.Client) *RSSFetcher {
	p := gofeed.NewParser()
	p.UserAgent = UserAgent
	if client == nil {
		client = defaultClient()
	}
	p.Client = client
	return &RSSFetcher{parser: p}
}

func (f *RSSFetcher) Fetch(ctx context.Context, source config.Source) ([]cache.Item, error) {
	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Label(), err)
	}

	now := time.Now()
	items := make([]cache.Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := truncate(collapse(item.Title), maxTitleLen)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		var published string
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC().Format(time.RFC3339)
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		desc = truncate(stripHTML(desc), maxDescLen)

		items = append(items, newItem(source, title, desc, link, published, now))
	}
	return items, nil
}

func newItem(source config.Source, title, desc, link, published string, now time.Time) cache.Item {
	cat, conf := classify.Classify(title, desc)
	category := source.Category
	if category == "" {
		category = string(cat)
	}
	return cache.Item{
		SourceID:    source.ID,
		Category:    category,
		Title:       title,
		URL:         link,
		PublishedAt: published,
		Confidence:  conf,
		FetchedAt:   now,
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return collapse(b.String())
}

type FetchOpts struct {
	// RateLimit is the minimum pause between two source fetches.
	RateLimit time.Duration
	Client    *http.Client
	// OnSource is called after each source with its item count or error.
	OnSource func(source config.Source, n int, err error)
}

type FetchResult struct {
	Items  []cache.Item
	Errors []error
}

// FetchAll fetches sources one after another. A failing source is recorded
// in Errors and skipped.
func FetchAll(ctx context.Context, sources []config.Source, opts FetchOpts) FetchResult {
	var result FetchResult

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Every(opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	for _, src := range sources {
		if err := limiter.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("fetching %s: %w", src.Label(), err))
			break
		}

		var items []cache.Item
		fetcher, err := NewFetcher(src, opts.Client)
		if err == nil {
			items, err = fetcher.Fetch(ctx, src)
		}
		if opts.OnSource != nil {
			opts.OnSource(src, len(items), err)
		}
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Items = append(result.Items, items...)
	}
	return result
}

type CollectResult struct {
	Fetched  int
	Inserted int
	Errors   []error
}

// Collect fetches all sources and stores new items.
func Collect(ctx context.Context, db *cache.Cache, sources []config.Source, opts FetchOpts) (CollectResult, error) {
	res := FetchAll(ctx, sources, opts)

	inserted, err := db.UpsertItems(res.Items)
	if err != nil {
		return CollectResult{}, fmt.Errorf("storing items: %w", err)
	}
	if err := db.SetLastRefresh(); err != nil {
		return CollectResult{}, fmt.Errorf("recording refresh: %w", err)
	}

	return CollectResult{
		Fetched:  len(res.Items),
		Inserted: inserted,
		Errors:   res.Errors,
	}, nil
}
