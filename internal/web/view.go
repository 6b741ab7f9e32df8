package web

import (
	"path"
	"strings"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dashboard"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

// htmlView collects one render of the pipeline for a single response.
type htmlView struct {
	rows           []record.Row
	status         string
	refreshEnabled bool
}

var (
	_ dashboard.View           = (*htmlView)(nil)
	_ dashboard.RefreshTrigger = (*htmlView)(nil)
)

func newHTMLView() *htmlView {
	return &htmlView{refreshEnabled: true}
}

func (v *htmlView) SetRows(rows []record.Row) { v.rows = rows }

func (v *htmlView) SetStatus(text string) { v.status = text }

func (v *htmlView) SetRefreshEnabled(enabled bool) { v.refreshEnabled = enabled }

const defaultPage = "index.html"

type navLink struct {
	Href   string
	Label  string
	Active bool
}

var navPages = []struct{ href, label string }{
	{"index.html", "Overview"},
	{"dashboard.html", "Dashboard"},
}

// ActivePage returns the last path segment of urlPath, or index.html for
// the site root.
func ActivePage(urlPath string) string {
	p := path.Base(strings.TrimSuffix(urlPath, "/"))
	if p == "" || p == "." || p == "/" {
		return defaultPage
	}
	return p
}

// navLinks marks the entry whose href equals the active page.
func navLinks(urlPath string) []navLink {
	active := ActivePage(urlPath)
	links := make([]navLink, 0, len(navPages))
	for _, p := range navPages {
		links = append(links, navLink{Href: p.href, Label: p.label, Active: p.href == active})
	}
	return links
}
