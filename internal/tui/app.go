package tui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"github.com/user/bookmarksync/internal/db"
)

type model struct {
	ledgerPath  string
	store       *db.Store
	searchInput textinput.Model
	list        list.Model
	entries     []db.LedgerEntry
	lastRun     *db.RunRecord
	status      string
	width       int
	height      int
	searching   bool
	err         error
}

type entryItem struct {
	entry db.LedgerEntry
}

func (e entryItem) Title() string {
	if e.entry.Author != "" {
		return fmt.Sprintf("@%s  %s", e.entry.Author, e.entry.ID)
	}
	return e.entry.ID
}

func (e entryItem) Description() string {
	when := "transferred before history was kept"
	if !e.entry.TransferredAt.IsZero() {
		when = e.entry.TransferredAt.Local().Format("2006-01-02 15:04")
	}
	if e.entry.URL == "" {
		return when
	}
	return when + "  " + e.entry.URL
}

func (e entryItem) FilterValue() string {
	return e.entry.ID + " " + e.entry.Author + " " + e.entry.URL
}

func initialModel(ledgerPath string) model {
	ti := textinput.New()
	ti.Placeholder = "Filter by id, author or url..."
	ti.CharLimit = 256
	ti.Width = 50

	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Transferred bookmarks"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return model{
		ledgerPath:  ledgerPath,
		searchInput: ti,
		list:        l,
	}
}

type loadMsg struct {
	store   *db.Store
	entries []db.LedgerEntry
	lastRun *db.RunRecord
	err     error
}

type forgetMsg struct {
	id  string
	err error
}

func (m model) Init() tea.Cmd {
	return m.loadLedger
}

func (m model) loadLedger() tea.Msg {
	store, err := db.OpenStore(m.ledgerPath)
	if err != nil {
		return loadMsg{err: err}
	}

	entries, err := store.Entries()
	if err != nil {
		return loadMsg{store: store, err: err}
	}

	msg := loadMsg{store: store, entries: entries}
	if run, ok, err := store.LastRun(); err == nil && ok {
		msg.lastRun = &run
	}
	return msg
}

func (m model) forget(id string) tea.Cmd {
	return func() tea.Msg {
		if m.store == nil {
			return forgetMsg{id: id, err: errors.New("ledger not loaded")}
		}
		_, err := m.store.Delete(id)
		return forgetMsg{id: id, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !m.searching {
				return m, tea.Quit
			}
		case "esc":
			if m.searching {
				m.searching = false
				m.searchInput.Blur()
				return m, nil
			}
		case "/":
			if !m.searching {
				m.searching = true
				m.searchInput.Focus()
				return m, textinput.Blink
			}
		case "enter":
			if m.searching {
				m.searching = false
				m.searchInput.Blur()
				m.applyFilter()
				return m, nil
			}
			m.openSelected()
			return m, nil
		case "j", "down":
			if !m.searching {
				m.list.CursorDown()
				return m, nil
			}
		case "k", "up":
			if !m.searching {
				m.list.CursorUp()
				return m, nil
			}
		case "g":
			if !m.searching {
				m.list.Select(0)
				return m, nil
			}
		case "G":
			if !m.searching {
				items := m.list.Items()
				if len(items) > 0 {
					m.list.Select(len(items) - 1)
				}
				return m, nil
			}
		case "o":
			if !m.searching {
				m.openSelected()
				return m, nil
			}
		case "d":
			if !m.searching {
				if item, ok := m.list.SelectedItem().(entryItem); ok {
					return m, m.forget(item.entry.ID)
				}
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-6)
		m.searchInput.Width = msg.Width - 20

	case loadMsg:
		m.store = msg.store
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.entries = msg.entries
		m.lastRun = msg.lastRun
		m.applyFilter()
		return m, nil

	case forgetMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Could not forget %s: %v", msg.id, msg.err)
			return m, nil
		}
		m.entries = removeEntry(m.entries, msg.id)
		m.applyFilter()
		m.status = fmt.Sprintf("Forgot %s; it will be transferred again unless its URL is already in Notion", msg.id)
		return m, nil
	}

	if m.searching {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		cmds = append(cmds, cmd)
		// Live filter on input change
		m.applyFilter()
	} else {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) applyFilter() {
	filtered := filterEntries(m.entries, m.searchInput.Value())
	items := make([]list.Item, 0, len(filtered))
	for _, e := range filtered {
		items = append(items, entryItem{entry: e})
	}
	m.list.SetItems(items)
}

// filterEntries keeps entries whose id, author or url contains every
// whitespace-separated term of query, case-insensitively.
func filterEntries(entries []db.LedgerEntry, query string) []db.LedgerEntry {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return entries
	}

	var out []db.LedgerEntry
	for _, e := range entries {
		haystack := strings.ToLower(e.ID + " " + e.Author + " " + e.URL)
		match := true
		for _, term := range terms {
			if !strings.Contains(haystack, term) {
				match = false
				break
			}
		}
		if match {
			out = append(out, e)
		}
	}
	return out
}

func removeEntry(entries []db.LedgerEntry, id string) []db.LedgerEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}

	var b strings.Builder

	searchStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	searchBox := searchStyle.Render(m.searchInput.View())
	info := infoStyle.Render(m.summaryLine())

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, searchBox, "  ", info))
	b.WriteString("\n\n")

	b.WriteString(m.list.View())

	if m.status != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			MarginTop(1)
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		MarginTop(1)

	help := "[j/k]nav [g/G]top/end [/]filter [enter/o]pen [d]forget [q]uit"
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m model) summaryLine() string {
	line := fmt.Sprintf("%d in ledger", len(m.entries))
	if m.lastRun != nil {
		line += fmt.Sprintf(" · last run %s: %d/%d transferred",
			m.lastRun.At.Local().Format(time.DateTime), m.lastRun.Transferred, m.lastRun.Found)
	}
	return line
}

func (m model) openSelected() {
	if item, ok := m.list.SelectedItem().(entryItem); ok && item.entry.URL != "" {
		openBrowser(item.entry.URL)
	}
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}
	if cmd != nil {
		cmd.Start()
	}
}

// Run starts the history browser for the ledger at ledgerPath
func Run(ledgerPath string) error {
	p := tea.NewProgram(initialModel(ledgerPath), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(model); ok && m.store != nil {
		m.store.Close()
	}
	return err
}
