// Package watchtui is a terminal live-view of a single subscription,
// demonstrating component C5 (the reactive subscription manager) the way
// the teacher's monitor TUI demonstrates live issue state.
package watchtui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/localfirst/tripledb/internal/query"
	"github.com/localfirst/tripledb/internal/reactive"
)

// ResultMsg carries a freshly published subscription result into the
// Bubble Tea update loop.
type ResultMsg reactive.Result

// Model is the Bubble Tea model for the watch TUI.
type Model struct {
	Query   query.Query
	results <-chan reactive.Result

	Width, Height int
	ScrollOffset  int
	ShowHelp      bool

	Last      reactive.Result
	UpdatedAt time.Time
	Started   time.Time
}

// NewModel returns a Model that renders results arriving on ch.
func NewModel(q query.Query, ch <-chan reactive.Result) Model {
	return Model{
		Query:   q,
		results: ch,
		Started: time.Now(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.waitForResult()
}

func (m Model) waitForResult() tea.Cmd {
	ch := m.results
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return ResultMsg(r)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case ResultMsg:
		m.Last = reactive.Result(msg)
		m.UpdatedAt = time.Now()
		return m, m.waitForResult()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		m.ScrollOffset++
		return m, nil
	case "k", "up":
		if m.ScrollOffset > 0 {
			m.ScrollOffset--
		}
		return m, nil
	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	return m.renderView()
}
