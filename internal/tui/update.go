package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/creamcroissant/orderwatch/internal/poller"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case startedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.sub = msg.sub
		m.notify = msg.notify
		m.startedAt = time.Now()
		return m, waitForUpdate(m.gen, m.sub, m.notify)

	case stateMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.state = msg.state
		if msg.done {
			return m, nil
		}
		return m, waitForUpdate(m.gen, m.sub, m.notify)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.watcher.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Restart):
		return m.handleRestart()
	}
	return m, nil
}

// handleRestart 重新开始核验，对应页面上的“重新加载”。
func (m Model) handleRestart() (tea.Model, tea.Cmd) {
	m.gen++
	m.restarts++
	m.sub = nil
	m.notify = nil
	m.state = poller.State{
		OrderID: m.orderID,
		Phase:   poller.PhaseInitializing,
		Loading: true,
	}
	return m, m.start()
}
