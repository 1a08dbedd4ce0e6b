// Package tui is the interactive terminal front-end: pick a region, then a
// sub-region, then watch the live countdown.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fastcal/internal/config"
	"fastcal/internal/countdown"
	appLog "fastcal/internal/log"
	"fastcal/internal/prefs"
	"fastcal/internal/schedule"
)

// ClientID is the prefs key the terminal UI saves under.
const ClientID = "tui"

type screen int

const (
	screenRegions screen = iota
	screenSubRegions
	screenCountdown
)

// tickMsg carries the session generation it was scheduled for; ticks from
// an older selection are dropped.
type tickMsg struct {
	generation uint64
}

// Model implements tea.Model.
type Model struct {
	repo    *schedule.Repository
	session *countdown.Session
	prefs   prefs.Store
	labels  config.Labels
	loadErr error
	period  time.Duration

	screen     screen
	regions    []string
	subRegions []string
	cursor     int
	region     string
	subRegion  string
	generation uint64
	result     countdown.Result
	status     string
	width      int
}

// Options wires a Model.
type Options struct {
	Repo    *schedule.Repository
	Session *countdown.Session
	Prefs   prefs.Store
	Labels  config.Labels
	// LoadErr is shown instead of the pickers when the dataset failed.
	LoadErr error
	// Period overrides countdown.DefaultPeriod.
	Period time.Duration
}

// New returns a Model with the remembered selection restored. When both
// names restore, it opens straight on the countdown.
func New(opts Options) Model {
	m := Model{
		repo:    opts.Repo,
		session: opts.Session,
		prefs:   opts.Prefs,
		labels:  opts.Labels,
		loadErr: opts.LoadErr,
		period:  opts.Period,
	}
	if m.period <= 0 {
		m.period = countdown.DefaultPeriod
	}
	if m.prefs == nil {
		m.prefs = prefs.NewMemory()
	}
	if m.loadErr != nil || m.repo == nil {
		return m
	}

	m.regions = m.repo.ListRegions()
	region, sub := prefs.Restore(context.Background(), m.repo, m.prefs, ClientID)
	m.cursor = max(indexOf(m.regions, region), 0)
	if region == "" {
		return m
	}
	m.region = region
	m.subRegions = m.session.SelectRegion(region)
	if sub == "" {
		m.screen = screenSubRegions
		m.cursor = 0
		return m
	}
	m.selectSubRegion(sub)
	return m
}

// Init starts the tick loop if a selection was restored.
func (m Model) Init() tea.Cmd {
	if m.screen == screenCountdown {
		return m.tick()
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		if msg.generation != m.generation || m.screen != screenCountdown {
			return m, nil
		}
		m.result = m.session.Tick()
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.session != nil {
			m.session.Close()
		}
		return m, tea.Quit
	}
	if m.loadErr != nil || m.repo == nil {
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items())-1 {
			m.cursor++
		}
	case "esc", "backspace", "left", "h":
		return m.back(), nil
	case "enter", "right", "l":
		return m.choose()
	}
	return m, nil
}

func (m Model) items() []string {
	switch m.screen {
	case screenRegions:
		return m.regions
	case screenSubRegions:
		return m.subRegions
	}
	return nil
}

func (m Model) choose() (tea.Model, tea.Cmd) {
	items := m.items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return m, nil
	}
	picked := items[m.cursor]

	switch m.screen {
	case screenRegions:
		m.region = picked
		m.subRegions = m.session.SelectRegion(picked)
		m.screen = screenSubRegions
		m.cursor = 0
		if saved, err := m.prefs.SubRegion(context.Background(), ClientID, picked); err == nil {
			if i := indexOf(m.subRegions, saved); i >= 0 {
				m.cursor = i
			}
		}
		return m, nil
	case screenSubRegions:
		m.selectSubRegion(picked)
		return m, m.tick()
	}
	return m, nil
}

func (m Model) back() Model {
	switch m.screen {
	case screenCountdown:
		m.session.Clear()
		_, _, m.generation = m.session.Active()
		m.screen = screenSubRegions
		m.cursor = max(indexOf(m.subRegions, m.subRegion), 0)
		m.subRegion = ""
	case screenSubRegions:
		m.screen = screenRegions
		m.cursor = max(indexOf(m.regions, m.region), 0)
	}
	return m
}

// selectSubRegion makes (m.region, sub) active and saves it.
func (m *Model) selectSubRegion(sub string) {
	sel, err := m.session.SelectSubRegion(m.region, sub)
	if err != nil {
		appLog.Error("tui select failed", err, "region", m.region, "sub_region", sub)
	}
	m.subRegion = sub
	m.generation = sel.Generation
	m.screen = screenCountdown
	m.result = m.session.Tick()
	if err := prefs.Remember(context.Background(), m.prefs, ClientID, m.region, sub); err != nil {
		m.status = "could not save selection"
		appLog.Error("tui save selection failed", err)
	} else {
		m.status = ""
	}
}

func (m Model) tick() tea.Cmd {
	gen := m.generation
	return tea.Tick(m.period, func(time.Time) tea.Msg {
		return tickMsg{generation: gen}
	})
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	labelStyle  = lipgloss.NewStyle().Width(10)
	countStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	title := m.labels.Period
	if m.repo != nil && m.repo.Title() != "" {
		title = m.repo.Title()
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if m.loadErr != nil || m.repo == nil {
		b.WriteString(errorStyle.Render(countdown.SentinelLoadError))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("q quit"))
		return b.String()
	}

	switch m.screen {
	case screenRegions:
		b.WriteString(m.renderList("Region", m.regions))
		b.WriteString(dimStyle.Render("↑/↓ move · enter select · q quit"))
	case screenSubRegions:
		b.WriteString(m.renderList(m.region, m.subRegions))
		b.WriteString(dimStyle.Render("↑/↓ move · enter select · esc back · q quit"))
	case screenCountdown:
		b.WriteString(m.renderCountdown())
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("esc back · q quit"))
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.status))
	}
	return b.String()
}

func (m Model) renderList(heading string, items []string) string {
	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString(dimStyle.Render("  (none)"))
		b.WriteString("\n")
	}
	for i, it := range items {
		line := "  " + it
		if i == m.cursor {
			line = cursorStyle.Render("> " + it)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderCountdown() string {
	r := m.result
	var lines []string
	lines = append(lines, fmt.Sprintf("%s / %s", m.region, m.subRegion))
	if r.Today != nil {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("%s  day %d  %s %s  %s %s",
			r.Today.Date, r.Today.SequenceIndex,
			m.labels.Start, r.Today.FastStart,
			m.labels.End, r.Today.FastEnd)))
	}
	lines = append(lines, "")
	lines = append(lines, labelStyle.Render(m.labels.Start)+countStyle.Render(boundaryText(r.Start)))
	lines = append(lines, labelStyle.Render(m.labels.End)+countStyle.Render(boundaryText(r.End)))
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func boundaryText(b countdown.Boundary) string {
	if b.Tomorrow {
		return b.Display + " (tomorrow)"
	}
	return b.Display
}

func indexOf(items []string, s string) int {
	for i, it := range items {
		if it == s {
			return i
		}
	}
	return -1
}
