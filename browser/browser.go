// Package browser is the interactive session browser: a bubbletea list
// over the session index with filtering, resume, and delete.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kaze-sh/kaze/store"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeConfirmDelete
)

// Model is the bubbletea model for the session browser.
type Model struct {
	store store.Store

	sessions []store.Summary
	filtered []store.Summary
	cursor   int
	offset   int
	width    int
	height   int

	mode        mode
	searchInput textinput.Model

	resumeID string
	err      error
	quitting bool
}

// NewModel creates a browser over the given summaries. Summaries arrive
// already sorted by the store (updated_at descending).
func NewModel(st store.Store, sessions []store.Summary) Model {
	si := textinput.New()
	si.Placeholder = "search..."
	si.CharLimit = 100

	m := Model{
		store:       st,
		sessions:    sessions,
		searchInput: si,
		width:       120,
		height:      30,
	}
	m.applyFilter()
	return m
}

// ResumeID returns the session id chosen for resuming, or "".
func (m Model) ResumeID() string {
	return m.resumeID
}

// Err returns the first store error hit while browsing, if any.
func (m Model) Err() error {
	return m.err
}

func (m *Model) applyFilter() {
	m.filtered = nil
	search := strings.ToLower(m.searchInput.Value())

	for _, s := range m.sessions {
		if search != "" {
			haystack := strings.ToLower(s.Title + " " + s.ID + " " + s.Model + " " + s.Provider)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		m.filtered = append(m.filtered, s)
	}

	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m.clampOffset()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeList:
			return m.updateList(msg)
		case modeSearch:
			return m.updateSearch(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampOffset()
		}

	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.clampOffset()
		}

	case "home", "g":
		m.cursor = 0
		m.clampOffset()

	case "end", "G":
		m.cursor = max(0, len(m.filtered)-1)
		m.clampOffset()

	case "enter":
		if len(m.filtered) > 0 {
			m.resumeID = m.filtered[m.cursor].ID
			m.quitting = true
			return m, tea.Quit
		}

	case "d":
		if len(m.filtered) > 0 {
			m.mode = modeConfirmDelete
		}

	case "/":
		m.searchInput.Focus()
		m.mode = modeSearch
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.searchInput.Blur()
		m.mode = modeList
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		s := m.filtered[m.cursor]
		if err := m.store.Delete(context.Background(), s.ID); err != nil {
			m.err = err
			m.quitting = true
			return m, tea.Quit
		}
		m.sessions = removeByID(m.sessions, s.ID)
		m.applyFilter()
		m.mode = modeList
	default:
		m.mode = modeList
	}
	return m, nil
}

func removeByID(sessions []store.Summary, id string) []store.Summary {
	out := sessions[:0]
	for _, s := range sessions {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := titleStyle.Render("kaze sessions")
	b.WriteString(title + dimStyle.Render(fmt.Sprintf("  %d sessions", len(m.filtered))) + "\n")
	b.WriteString(m.renderHeader() + "\n")

	visible := m.visibleRows()
	end := min(m.offset+visible, len(m.filtered))

	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.filtered[i], i == m.cursor) + "\n")
	}
	for i := end - m.offset; i < visible; i++ {
		b.WriteString("\n")
	}

	switch m.mode {
	case modeSearch:
		b.WriteString(statusBarStyle.Render("Search: ") + m.searchInput.View())
	case modeConfirmDelete:
		s := m.filtered[m.cursor]
		b.WriteString(statusBarStyle.Render(fmt.Sprintf("Delete %s (%q)? y/n", store.ShortID(s.ID), displayTitle(s))))
	default:
		b.WriteString(helpStyle.Render("  enter: resume  d: delete  /: search  q: quit"))
	}

	return b.String()
}

type colWidths struct {
	id      int
	msgs    int
	updated int
	model   int
	title   int
}

func (m Model) colWidths() colWidths {
	w := colWidths{id: 8, msgs: 5, updated: 16, model: 20}
	w.title = max(10, m.width-(w.id+w.msgs+w.updated+w.model+8))
	return w
}

func (m Model) renderHeader() string {
	w := m.colWidths()
	cols := []string{
		pad("ID", w.id),
		pad("TITLE", w.title),
		pad("MSGS", w.msgs),
		pad("UPDATED", w.updated),
		pad("MODEL", w.model),
	}
	return headerStyle.Render(strings.Join(cols, " "))
}

func (m Model) renderRow(s store.Summary, selected bool) string {
	w := m.colWidths()

	title := displayTitle(s)
	runes := []rune(title)
	if len(runes) > w.title {
		title = string(runes[:w.title-2]) + ".."
	}

	cols := []string{
		pad(store.ShortID(s.ID), w.id),
		pad(title, w.title),
		pad(fmt.Sprintf("%d", s.MessageCount), w.msgs),
		pad(s.UpdatedAt.Local().Format("2006-01-02 15:04"), w.updated),
		pad(s.Model, w.model),
	}
	row := strings.Join(cols, " ")

	if selected {
		return selectedStyle.Render(row)
	}
	return normalStyle.Render(row)
}

func (m Model) visibleRows() int {
	// Title bar, header, and bottom bar take three lines.
	return max(1, m.height-3)
}

func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func displayTitle(s store.Summary) string {
	if s.Title == "" {
		return "(untitled)"
	}
	return s.Title
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// Run opens the browser and blocks until the user quits or picks a
// session to resume. Returns the chosen session id, or "" for a plain
// quit.
func Run(ctx context.Context, st store.Store) (string, error) {
	sessions, err := st.List(ctx)
	if err != nil {
		return "", err
	}

	final, err := tea.NewProgram(NewModel(st, sessions), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", fmt.Errorf("session browser failed: %w", err)
	}

	m := final.(Model)
	if m.Err() != nil {
		return "", m.Err()
	}
	return m.ResumeID(), nil
}
