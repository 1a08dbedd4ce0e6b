package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"fastcal/internal/clock"
	"fastcal/internal/config"
	"fastcal/internal/countdown"
	"fastcal/internal/model"
	"fastcal/internal/prefs"
	"fastcal/internal/schedule"
)

var zone = time.FixedZone("UTC+06:00", 6*3600)

func testModel(t *testing.T, store prefs.Store) Model {
	t.Helper()
	days := model.DaySequence{
		{Date: "2026-02-19", SequenceIndex: 1, FastStart: "05:09", FastEnd: "18:12"},
		{Date: "2026-02-20", SequenceIndex: 2, FastStart: "05:08", FastEnd: "18:13"},
	}
	repo := schedule.NewRepository(map[string]map[string]model.DaySequence{
		"Dhaka":      {"Dhaka": days, "Gazipur": days},
		"Chattogram": {"Bandarban": days},
	}, language.English)
	source := clock.NewSource(clock.Fixed{T: time.Date(2026, 2, 19, 5, 9, 0, 0, zone)}, zone)
	return New(Options{
		Repo:    repo,
		Session: countdown.NewSession(repo, source),
		Prefs:   store,
		Labels:  config.DefaultConfig().Labels,
	})
}

func key(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestNewRestoresFirstSelection(t *testing.T) {
	m := testModel(t, prefs.NewMemory())
	assert.Equal(t, screenCountdown, m.screen)
	assert.Equal(t, "Chattogram", m.region)
	assert.Equal(t, "Bandarban", m.subRegion)
	assert.Equal(t, countdown.BetweenStartAndEnd, m.result.Phase)
	assert.Equal(t, "13:03:00", m.result.End.Display)
	assert.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "13:03:00")
}

func TestNewRestoresSavedSelection(t *testing.T) {
	store := prefs.NewMemory()
	require.NoError(t, prefs.Remember(context.Background(), store, ClientID, "Dhaka", "Gazipur"))
	m := testModel(t, store)
	assert.Equal(t, "Dhaka", m.region)
	assert.Equal(t, "Gazipur", m.subRegion)
}

func TestStaleTickIsDropped(t *testing.T) {
	m := testModel(t, prefs.NewMemory())
	gen := m.generation

	m, cmd := update(t, m, tickMsg{generation: gen})
	assert.NotNil(t, cmd, "current tick reschedules")

	m, cmd = update(t, m, tickMsg{generation: gen - 1})
	assert.Nil(t, cmd, "stale tick is not rescheduled")
	assert.Equal(t, gen, m.generation)
}

func TestReselectAdvancesGeneration(t *testing.T) {
	store := prefs.NewMemory()
	m := testModel(t, store)
	first := m.generation

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, screenSubRegions, m.screen)
	assert.Greater(t, m.generation, first, "leaving the countdown invalidates its ticks")

	m, cmd := update(t, m, tickMsg{generation: first})
	assert.Nil(t, cmd)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, screenRegions, m.screen)
	m, _ = update(t, m, key('j'))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Dhaka", m.region)
	assert.Equal(t, []string{"Dhaka", "Gazipur"}, m.subRegions)

	m, _ = update(t, m, key('j'))
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)
	assert.Equal(t, screenCountdown, m.screen)
	assert.Equal(t, "Gazipur", m.subRegion)

	saved, err := store.SubRegion(context.Background(), ClientID, "Dhaka")
	require.NoError(t, err)
	assert.Equal(t, "Gazipur", saved)
}

func TestLoadErrorView(t *testing.T) {
	m := New(Options{LoadErr: errors.New("boom"), Labels: config.DefaultConfig().Labels})
	assert.Contains(t, m.View(), "Error loading data")
	assert.Nil(t, m.Init())

	_, cmd := update(t, m, key('q'))
	assert.NotNil(t, cmd)
}
