package tui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bookmarksync/internal/db"
)

func sampleEntries() []db.LedgerEntry {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []db.LedgerEntry{
		{ID: "101", URL: db.StatusURL("101"), Author: "gopher", TransferredAt: at},
		{ID: "102", URL: db.StatusURL("102"), Author: "rustacean", TransferredAt: at.Add(-time.Hour)},
		{ID: "103", URL: db.StatusURL("103"), Author: "Gopher_Fan"},
	}
}

func loadedModel(t *testing.T) model {
	t.Helper()
	m := initialModel(filepath.Join(t.TempDir(), "ledger.db"))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	next, _ = next.(model).Update(loadMsg{entries: sampleEntries()})
	return next.(model)
}

func TestInitialModel_ListFocused(t *testing.T) {
	m := initialModel("/tmp/bookmarksync-test/ledger.db")

	assert.False(t, m.searching)
	assert.False(t, m.searchInput.Focused())
}

func TestUpdate_SlashFocusesSearch(t *testing.T) {
	m := initialModel("/tmp/bookmarksync-test/ledger.db")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	m = next.(model)

	assert.True(t, m.searching)
	assert.True(t, m.searchInput.Focused())
}

func TestUpdate_EscUnfocusesSearch(t *testing.T) {
	m := initialModel("/tmp/bookmarksync-test/ledger.db")
	m.searching = true
	m.searchInput.Focus()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	m = next.(model)

	assert.False(t, m.searching)
	assert.False(t, m.searchInput.Focused())
}

func TestUpdate_QQuitsOnlyFromList(t *testing.T) {
	m := initialModel("/tmp/bookmarksync-test/ledger.db")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m.searching = true
	m.searchInput.Focus()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(model)
	assert.Equal(t, "q", m.searchInput.Value(), "q goes to the filter while searching")
}

func TestUpdate_LoadPopulatesList(t *testing.T) {
	m := loadedModel(t)

	require.Len(t, m.list.Items(), 3)
	first := m.list.Items()[0].(entryItem)
	assert.Equal(t, "101", first.entry.ID)
	assert.Contains(t, m.summaryLine(), "3 in ledger")
}

func TestUpdate_LoadErrorShownInView(t *testing.T) {
	m := initialModel("/tmp/bookmarksync-test/ledger.db")

	next, _ := m.Update(loadMsg{err: assert.AnError})
	m = next.(model)

	assert.Contains(t, m.View(), assert.AnError.Error())
}

func TestUpdate_JKNavigatesInListMode(t *testing.T) {
	m := loadedModel(t)
	require.Equal(t, 0, m.list.Index())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	m = next.(model)
	assert.Equal(t, 1, m.list.Index())

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	m = next.(model)
	assert.Equal(t, 2, m.list.Index())

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	m = next.(model)
	assert.Equal(t, 1, m.list.Index())

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	m = next.(model)
	assert.Equal(t, 0, m.list.Index())
}

func TestUpdate_TypingFiltersLive(t *testing.T) {
	m := loadedModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	m = next.(model)
	for _, r := range "gopher" {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(model)
	}

	assert.Len(t, m.list.Items(), 2)
}

func TestFilterEntries(t *testing.T) {
	entries := sampleEntries()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty query keeps all", "", []string{"101", "102", "103"}},
		{"author is case insensitive", "GOPHER", []string{"101", "103"}},
		{"matches id", "102", []string{"102"}},
		{"all terms must match", "gopher fan", []string{"103"}},
		{"no match", "nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range filterEntries(entries, tt.query) {
				got = append(got, e.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForget_RemovesFromStoreAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := db.OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.ReplaceEntries(sampleEntries()))

	m := initialModel(path)
	next, _ := m.Update(m.loadLedger())
	m = next.(model)
	require.Len(t, m.list.Items(), 3)
	t.Cleanup(func() { m.store.Close() })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, forgetMsg{}, msg)
	assert.NoError(t, msg.(forgetMsg).err)

	next, _ = m.Update(msg)
	m = next.(model)
	assert.Len(t, m.list.Items(), 2)
	assert.Contains(t, m.status, "Forgot")

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestForget_WithoutStoreReportsError(t *testing.T) {
	m := loadedModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(model)

	assert.Contains(t, m.status, "Could not forget")
	assert.Len(t, m.list.Items(), 3)
}
