// Package tui renders a live payment verification session in the terminal.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/creamcroissant/orderwatch/internal/poller"
)

// Model 是订单状态核验视图的 TUI 模型。
type Model struct {
	watcher *poller.Watcher
	orderID string
	opts    poller.Options

	// gen 在每次重新开始核验时递增，用于丢弃旧会话的消息。
	gen       int
	sub       *poller.Subscription
	notify    chan struct{}
	state     poller.State
	startedAt time.Time
	restarts  int

	spinner spinner.Model
	keys    keyMap

	width  int
	height int
}

// keyMap 定义全部按键绑定
type keyMap struct {
	Restart key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "check again"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// NewModel 创建核验视图。opts 中的 OnUpdate 会被覆盖。
func NewModel(watcher *poller.Watcher, orderID string, opts poller.Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleSpinner
	return Model{
		watcher: watcher,
		orderID: orderID,
		opts:    opts,
		state: poller.State{
			OrderID: orderID,
			Phase:   poller.PhaseInitializing,
			Loading: true,
		},
		spinner: s,
		keys:    defaultKeyMap(),
	}
}

// Init 实现 tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// State 返回最近一次渲染的核验状态，供程序退出后判断结果。
func (m Model) State() poller.State {
	return m.state
}

// 消息类型

type startedMsg struct {
	gen    int
	sub    *poller.Subscription
	notify chan struct{}
}

type stateMsg struct {
	gen   int
	state poller.State
	done  bool
}

// 命令

// start 通过 Watcher 开始新的核验会话，旧会话会先被取消。
func (m Model) start() tea.Cmd {
	gen := m.gen
	watcher, orderID, opts := m.watcher, m.orderID, m.opts
	return func() tea.Msg {
		notify := make(chan struct{}, 1)
		opts.OnUpdate = func(poller.State) {
			select {
			case notify <- struct{}{}:
			default:
			}
		}
		sub := watcher.Watch(context.Background(), orderID, opts)
		return startedMsg{gen: gen, sub: sub, notify: notify}
	}
}

// waitForUpdate 阻塞到会话有新状态或结束，只读取最新状态。
func waitForUpdate(gen int, sub *poller.Subscription, notify <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-notify:
			st := sub.State()
			return stateMsg{gen: gen, state: st, done: st.Phase.Final()}
		case <-sub.Done():
			return stateMsg{gen: gen, state: sub.State(), done: true}
		}
	}
}
