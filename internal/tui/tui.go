// Package tui provides the Bubble Tea terminal browse view.
package tui

import (
	"fmt"
	"strings"

	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/pagination"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1)
)

// Browser is the browse session driven by the view.
type Browser interface {
	Start(initial catalog.FilterSet)
	SetFilters(f catalog.FilterSet)
	ApplyFiltersNow(f catalog.FilterSet)
	FiltersPending() bool
	Next()
	Previous()
	Retry()
	Dismiss()
	View() pagination.View
	Close()
}

// Feed hands views from the session callback to the UI loop. Only the
// newest undelivered view is kept.
type Feed struct {
	ch chan pagination.View
}

// NewFeed creates a Feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan pagination.View, 1)}
}

// Publish replaces any undelivered view with v. It is meant to be the
// session's change callback and never blocks.
func (f *Feed) Publish(v pagination.View) {
	for {
		select {
		case f.ch <- v:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// Message types
type (
	// ViewMsg carries a new pagination view.
	ViewMsg struct {
		View pagination.View
	}
)

// Model is the Bubble Tea model for the browse view.
type Model struct {
	browser Browser
	feed    *Feed

	search  textinput.Model
	spinner spinner.Model

	genres  []string
	filters catalog.FilterSet
	view    pagination.View

	width  int
	height int
}

// NewModel creates a browse model. genres feeds the genre selector and may
// be empty.
func NewModel(b Browser, feed *Feed, genres []string) Model {
	ti := textinput.New()
	ti.Placeholder = "Search titles"
	ti.CharLimit = 200
	ti.Width = 40
	ti.Prompt = "/ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	return Model{
		browser: b,
		feed:    feed,
		search:  ti,
		spinner: sp,
		genres:  genres,
		view:    b.View(),
	}
}

// Init starts the spinner and the view feed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForView())
}

func (m Model) waitForView() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-m.feed.ch
		if !ok {
			return nil
		}
		return ViewMsg{View: v}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ViewMsg:
		m.view = msg.View
		return m, m.waitForView()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.browser.Close()
			return m, tea.Quit
		}
		if msg.String() == "ctrl+x" {
			m.clearFilters()
			return m, nil
		}
		if m.search.Focused() {
			return m.updateSearch(msg)
		}

		switch msg.String() {
		case "q":
			m.browser.Close()
			return m, tea.Quit
		case "/":
			return m, m.search.Focus()
		case "right", "l", "n":
			m.browser.Next()
		case "left", "h", "p":
			m.browser.Previous()
		case "g":
			m.filters.Genre = cycle(m.genres, m.filters.Genre)
			m.browser.SetFilters(m.filters)
		case "s":
			m.filters.Season = catalog.Season(cycle(seasonNames(), string(m.filters.Season)))
			m.browser.SetFilters(m.filters)
		case "r":
			if m.view.Phase == pagination.PhaseError {
				m.browser.Retry()
			}
		case "d", "esc":
			if m.view.Phase == pagination.PhaseError {
				m.browser.Dismiss()
			}
		}
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.search.Blur()
		m.browser.ApplyFiltersNow(m.filters)
		return m, nil
	case "esc", "tab":
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := m.search.Value(); q != m.filters.SearchQuery {
		m.filters.SearchQuery = q
		m.browser.SetFilters(m.filters)
	}
	return m, cmd
}

func (m *Model) clearFilters() {
	m.filters = catalog.FilterSet{}
	m.search.SetValue("")
	m.browser.ApplyFiltersNow(m.filters)
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Anime Catalog"))
	b.WriteString("\n")
	b.WriteString(m.renderFilters())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(m.renderItems())

	if m.view.Phase == pagination.PhaseError {
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(errorStyle.Render(fmt.Sprintf("Failed to load: %v", m.view.Err)) +
			"\n" + dimStyle.Render("r: retry • d: dismiss")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))
	return b.String()
}

func (m Model) renderFilters() string {
	genre := m.filters.Genre
	if genre == "" {
		genre = "All"
	}
	season := string(m.filters.Season)
	if season == "" {
		season = "Any"
	}

	parts := []string{
		m.search.View(),
		labelStyle.Render("Genre: ") + activeStyle.Render(genre),
		labelStyle.Render("Season: ") + activeStyle.Render(season),
	}
	line := strings.Join(parts, "   ")
	if m.browser.FiltersPending() {
		line += "  " + dimStyle.Render("(updating…)")
	}
	return line
}

func (m Model) renderStatus() string {
	v := m.view
	var status string
	switch {
	case v.TotalPages > 0:
		status = infoStyle.Render(fmt.Sprintf("Page %d of %d", v.Page, v.TotalPages)) +
			dimStyle.Render(fmt.Sprintf("  (%d titles)", v.Total))
	case v.Empty:
		status = infoStyle.Render("Page 0 of 0")
	default:
		status = infoStyle.Render(fmt.Sprintf("Page %d", v.Page))
	}
	if v.Loading {
		status += "  " + m.spinner.View() + " " + dimStyle.Render("Loading more…")
	}
	return status
}

func (m Model) renderItems() string {
	v := m.view
	if v.Empty {
		var b strings.Builder
		b.WriteString(infoStyle.Render("No anime match these filters."))
		if v.SuggestQuery != "" {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("Can't find %q? Suggest it to the catalog.", v.SuggestQuery)))
		}
		b.WriteString("\n")
		return b.String()
	}
	if len(v.Items) == 0 && v.Loading {
		return dimStyle.Render("Loading…") + "\n"
	}

	var b strings.Builder
	for _, it := range v.Items {
		b.WriteString(fmt.Sprintf("  %-5d %s", it.ID, it.DisplayTitle()))
		var meta []string
		if it.AverageScore > 0 {
			meta = append(meta, fmt.Sprintf("%d%%", it.AverageScore))
		}
		if it.Season != "" && it.SeasonYear != 0 {
			meta = append(meta, fmt.Sprintf("%s %d", strings.ToLower(string(it.Season)), it.SeasonYear))
		}
		if len(it.Genres) > 0 {
			meta = append(meta, strings.Join(it.Genres, ", "))
		}
		if len(meta) > 0 {
			b.WriteString("  " + dimStyle.Render(strings.Join(meta, " · ")))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) helpText() string {
	if m.search.Focused() {
		return "enter: apply • esc: done • ctrl+x: clear filters"
	}
	parts := []string{"/: search", "g: genre", "s: season"}
	if m.view.HasPrevious {
		parts = append(parts, "←: previous")
	}
	if m.view.HasNext {
		parts = append(parts, "→: next")
	}
	parts = append(parts, "ctrl+x: clear", "q: quit")
	return strings.Join(parts, " • ")
}

// cycle returns the option after current, wrapping through "" (no
// constraint).
func cycle(options []string, current string) string {
	if len(options) == 0 {
		return ""
	}
	if current == "" {
		return options[0]
	}
	for i, o := range options {
		if o == current {
			if i+1 < len(options) {
				return options[i+1]
			}
			return ""
		}
	}
	return ""
}

func seasonNames() []string {
	names := make([]string, len(catalog.Seasons))
	for i, s := range catalog.Seasons {
		names[i] = string(s)
	}
	return names
}

// Run starts the browse session and blocks until the user quits.
func Run(b Browser, feed *Feed, genres []string, initial catalog.FilterSet) error {
	b.Start(initial)
	m := NewModel(b, feed, genres)
	m.filters = initial
	m.search.SetValue(initial.SearchQuery)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	b.Close()
	return err
}
