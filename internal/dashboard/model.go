// Package dashboard is the live terminal view: story layers on the left,
// the subagent forest of the followed agent on the right.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const boardPanelOuterWidth = 48

// Actions are side effects the model requests from the poll loop.
type Actions struct {
	Refresh func()
	Clear   func()
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	width  int
	height int

	projectName string
	agentID     string
	keys        KeyMap
	actions     Actions

	stateCh  <-chan State
	state    State
	hasState bool
	closed   bool
	now      func() time.Time

	boardScroll int
	notice      string
}

// NewModel creates a Model that renders states received on stateCh.
func NewModel(projectName, agentID string, stateCh <-chan State, actions Actions) Model {
	return Model{
		projectName: projectName,
		agentID:     agentID,
		keys:        DefaultKeyMap(),
		actions:     actions,
		stateCh:     stateCh,
		now:         time.Now,
	}
}

// SetSize sets the terminal dimensions so the first render is sized.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.stateCh),
		tickEvery(),
		tea.SetWindowTitle("loopdash"),
	)
}

// waitForState returns a Cmd that waits for the next state on the channel.
func waitForState(ch <-chan State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return StateMsg{State: st}
	}
}

// tickEvery returns a Cmd that sends a tickMsg after 1 second, so elapsed
// times keep moving between polls.
func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StateMsg:
		m.state = msg.State
		m.hasState = true
		if m.notice != "" && msg.State.BoardErr == nil && msg.State.TraceErr == nil {
			m.notice = ""
		}
		return m, waitForState(m.stateCh)

	case closedMsg:
		m.closed = true
		return m, tea.Quit

	case tickMsg:
		return m, tickEvery()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		if m.actions.Refresh != nil {
			m.actions.Refresh()
		}
		m.notice = "refreshing"
	case key.Matches(msg, m.keys.Clear):
		if m.agentID == "" {
			m.notice = "no agent to clear"
			break
		}
		if m.actions.Clear != nil {
			m.actions.Clear()
		}
		m.notice = "history cleared"
	case key.Matches(msg, m.keys.Up):
		if m.boardScroll > 0 {
			m.boardScroll--
		}
	case key.Matches(msg, m.keys.Down):
		m.boardScroll++
	}
	return m, nil
}
