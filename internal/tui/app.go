package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/browser"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dashboard"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeMinConfidence
	modeFilter
	modeHelp
)

// App is the interactive dashboard. It is the pipeline's view: rows and
// status are written into it from Update only.
type App struct {
	ctx      context.Context
	pipeline *dashboard.Pipeline
	source   string

	rows           []record.Row
	status         string
	refreshEnabled bool

	cursor int
	focus  focusPane
	mode   mode

	width  int
	height int

	searchInput textinput.Model
	minInput    textinput.Model
	spinner     spinner.Model
	categoryBar categoryBar

	previewScroll int
	currentDate   string
	err           error
}

var (
	_ dashboard.View           = (*App)(nil)
	_ dashboard.RefreshTrigger = (*App)(nil)
)

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Ctx      context.Context
	Pipeline *dashboard.Pipeline
	// Source describes where the dataset comes from, for the header.
	Source string
	Query  string
	// Category and MinConfidence preset the selectors.
	Category      string
	MinConfidence string
}

func NewApp(opts RunOpts) *App {
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	si := textinput.New()
	si.Placeholder = "Search title or source..."
	si.Prompt = searchPromptStyle.Render("/ ")
	si.CharLimit = 100
	si.SetValue(opts.Query)

	mi := textinput.New()
	mi.Placeholder = "0"
	mi.Prompt = inputLabelStyle.Render("min ")
	mi.CharLimit = 6
	mi.Width = 6
	mi.SetValue(opts.MinConfidence)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	bar := newCategoryBar(nil)
	if opts.Category != "" && opts.Category != record.AllCategories {
		bar = newCategoryBar([]string{opts.Category})
		bar.selected = 1
	}

	return &App{
		ctx:            ctx,
		pipeline:       opts.Pipeline,
		source:         opts.Source,
		refreshEnabled: true,
		status:         "Loading…",
		searchInput:    si,
		minInput:       mi,
		spinner:        sp,
		categoryBar:    bar,
		currentDate:    time.Now().Format("Jan 2"),
	}
}

// SetRows replaces every row of the table.
func (a *App) SetRows(rows []record.Row) {
	a.rows = rows
	if a.cursor >= len(a.rows) {
		a.cursor = max(0, len(a.rows)-1)
	}
	a.previewScroll = 0
}

func (a *App) SetStatus(text string) { a.status = text }

func (a *App) SetRefreshEnabled(enabled bool) { a.refreshEnabled = enabled }

func (a *App) criteria() record.Criteria {
	return record.NewCriteria(a.searchInput.Value(), a.categoryBar.value(), a.minInput.Value())
}

func (a *App) render() {
	a.pipeline.Render(a, a.criteria())
}

func (a *App) syncCategories() {
	a.categoryBar.setCategories(record.Categories(a.pipeline.Records()))
}

func (a *App) Init() tea.Cmd {
	return a.loadCmd()
}

// loadCmd runs the initial fetch off the event loop. The pipeline guards
// its own dataset, so only the result is handed back.
func (a *App) loadCmd() tea.Cmd {
	p := a.pipeline
	ctx := a.ctx
	return func() tea.Msg {
		return datasetLoadedMsg{err: p.Load(ctx)}
	}
}

func (a *App) reloadCmd() tea.Cmd {
	p := a.pipeline
	ctx := a.ctx
	return func() tea.Msg {
		records, err := p.Reload(ctx)
		return refreshDoneMsg{records: records, err: err}
	}
}

func (a *App) refresh() tea.Cmd {
	if !a.pipeline.BeginRefresh(a) {
		return nil
	}
	return tea.Batch(a.reloadCmd(), a.spinner.Tick)
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := browser.Open(url); err != nil {
			return browserErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case datasetLoadedMsg:
		if msg.err != nil {
			a.SetRows(nil)
			a.SetStatus("Failed to load data: " + msg.err.Error())
			return a, nil
		}
		a.syncCategories()
		a.render()
		return a, nil

	case refreshDoneMsg:
		// The failure is already reported through the status line.
		_ = a.pipeline.FinishRefresh(a, msg.records, msg.err, a.criteria())
		if msg.err == nil {
			a.syncCategories()
			a.render()
		}
		return a, nil

	case browserErrMsg:
		a.err = msg.err
		return a, nil

	case spinner.TickMsg:
		if a.pipeline.Refreshing() {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeSearch:
		return a.handleInputKey(msg, &a.searchInput)
	case modeMinConfidence:
		return a.handleInputKey(msg, &a.minInput)
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.rows)-1 {
			a.cursor++
			a.previewScroll = 0
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "o", "enter":
		if a.cursor < len(a.rows) && a.rows[a.cursor].URL != "" {
			return a, openBrowserCmd(a.rows[a.cursor].URL)
		}
		return a, nil
	case "/":
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "m":
		a.mode = modeMinConfidence
		a.minInput.Focus()
		return a, textinput.Blink
	case "f":
		a.mode = modeFilter
		a.categoryBar.filterMode = true
		return a, nil
	case "c":
		a.categoryBar.cycle()
		a.cursor = 0
		a.render()
		return a, nil
	case "r":
		return a, a.refresh()
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

// handleInputKey edits a text field and re-renders on every change.
func (a *App) handleInputKey(msg tea.KeyMsg, input *textinput.Model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		input.SetValue("")
		input.Blur()
		a.render()
		return a, nil
	case "enter":
		a.mode = modeNormal
		input.Blur()
		return a, nil
	}

	before := input.Value()
	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	if input.Value() != before {
		a.cursor = 0
		a.render()
	}
	return a, cmd
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f", "enter":
		a.mode = modeNormal
		a.categoryBar.filterMode = false
		return a, nil
	case "left", "h":
		a.categoryBar.prev()
	case "right", "l":
		a.categoryBar.next()
	default:
		return a, nil
	}
	a.cursor = 0
	a.render()
	return a, nil
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  jpmon")
	}

	if a.mode == modeHelp {
		return a.renderHelp()
	}

	headerHeight := 1
	filterHeight := 2
	statusHeight := 1
	contentHeight := a.height - headerHeight - filterHeight - statusHeight - 4 // borders

	listWidth := int(float64(a.width) * 0.45)
	previewWidth := a.width - listWidth - 1

	if contentHeight < 3 {
		contentHeight = 3
	}

	headerLeft := headerStyle.Render("jpmon") + " " + headerDateStyle.Render(a.source)
	headerRight := headerDateStyle.Render(a.currentDate)
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	filter := a.categoryBar.render(a.width)
	inputs := " " + a.searchInput.View() + "   " + a.minInput.View()

	innerListW := listWidth - 4
	listContent := renderList(a.rows, a.cursor, contentHeight, innerListW)

	listStyle := listPaneStyle
	if a.focus == focusList {
		listStyle = listPaneActiveStyle
	}
	listPane := listStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)

	var selected *record.Row
	if a.cursor < len(a.rows) {
		selected = &a.rows[a.cursor]
	}
	previewContent := renderPreview(selected, previewWidth-4, contentHeight, a.previewScroll)

	previewStyle := previewPaneStyle
	if a.focus == focusPreview {
		previewStyle = previewPaneActiveStyle
	}
	previewPane := previewStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	status := renderStatusBar(a.status, a.width, a.mode, a.refreshEnabled)
	if a.pipeline.Refreshing() {
		status = a.spinner.View() + " " + status
	}
	if a.err != nil {
		status = lipgloss.NewStyle().Foreground(colorAccent).Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, filter, inputs, content, status)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("jpmon")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓     Move through items\n" +
		"  tab           Switch focus between list and detail\n\n" +
		dim.Render("Filters") + "\n" +
		"  /             Search title and source\n" +
		"  f             Choose category (←/→)\n" +
		"  c             Cycle category\n" +
		"  m             Minimum confidence\n" +
		"  esc           Clear the field being edited\n\n" +
		dim.Render("Actions") + "\n" +
		"  r             Refresh data\n" +
		"  o, enter      Open item in browser\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c    Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(app.ctx))
	_, err := p.Run()
	return err
}
