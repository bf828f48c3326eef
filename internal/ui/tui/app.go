package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/views"
)

// Screen is a top-level page of the console.
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenQueue
	ScreenDashboard
)

type menuItem struct {
	title  string
	desc   string
	target Screen
	quit   bool
}

func (m menuItem) Title() string       { return m.title }
func (m menuItem) Description() string { return m.desc }
func (m menuItem) FilterValue() string { return m.title }

type model struct {
	theme Theme
	deps  Deps
	ctx   context.Context

	scr  Screen
	menu list.Model

	queue *views.QueueView
	dash  *views.DashboardView
	in    inbox

	queueState views.QueueState
	dashState  views.DashboardState

	busy     bool
	confirm  bool
	toast    string
	toastErr bool
	ended    string
	width    int
}

// Run shows the console until the user quits or ctx is cancelled. start selects the
// first screen.
func Run(ctx context.Context, deps Deps, start Screen) error {
	m := newModel(ctx, deps, start)
	defer m.unmountAll()

	p := tea.NewProgram(wrapSafe(m, deps.Logger), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newModel(ctx context.Context, deps Deps, start Screen) model {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	t := DefaultTheme()

	items := []list.Item{
		menuItem{title: "Queue", desc: "Recent documents and batch actions", target: ScreenQueue},
		menuItem{title: "Dashboard", desc: "Counts, processing metrics and recent activity", target: ScreenDashboard},
		menuItem{title: "Quit", desc: "Exit doclane", quit: true},
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "doclane"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	opts := []views.Option{views.WithLogger(deps.Logger), views.WithGroup(deps.Group)}
	m := model{
		theme: t,
		deps:  deps,
		ctx:   ctx,
		scr:   ScreenMenu,
		menu:  l,
		queue: views.NewQueueView(deps.Documents, deps.Bus, deps.Polling, opts...),
		dash:  views.NewDashboardView(deps.Dashboard, deps.Documents, deps.Bus, deps.Polling, opts...),
		in:    newInbox(),
	}

	in := m.in
	m.queue.OnChange(func(s views.QueueState) { in.put(queueStateMsg(s)) })
	m.dash.OnChange(func(s views.DashboardState) { in.put(dashboardStateMsg(s)) })

	if start != ScreenMenu {
		m = m.enter(start)
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(listenInbox(m.in), listenSession(m.deps.Session))
}

// enter mounts the view behind s and unmounts the other one.
func (m model) enter(s Screen) model {
	m.unmountAll()
	m.scr = s
	m.toast = ""
	m.confirm = false

	switch s {
	case ScreenQueue:
		m.queue.Mount(m.ctx)
		m.queueState = m.queue.State()
	case ScreenDashboard:
		m.dash.Mount(m.ctx)
		m.dashState = m.dash.State()
	}
	return m
}

func (m model) unmountAll() {
	m.queue.Unmount()
	m.dash.Unmount()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.menu.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case queueStateMsg:
		m.queueState = views.QueueState(msg)
		return m, listenInbox(m.in)

	case dashboardStateMsg:
		m.dashState = views.DashboardState(msg)
		return m, listenInbox(m.in)

	case sessionEndedMsg:
		m.unmountAll()
		m.ended = msg.reason
		m.deps.Logger.Info("tui.session_ended", "reason", msg.reason)
		return m, nil

	case batchDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.toast, m.toastErr = UserMessage(msg.err), true
		} else {
			m.toast = msg.report.Summary()
			m.toastErr = msg.report.Outcome() == domain.OutcomeAllFailed || msg.report.Outcome() == domain.OutcomePartial
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.scr == ScreenMenu {
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.ended != "" {
		switch key {
		case "q", "enter", "esc":
			return m, tea.Quit
		}
		return m, nil
	}

	if m.scr == ScreenMenu {
		if m.menu.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.menu, cmd = m.menu.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case "enter":
			it, ok := m.menu.SelectedItem().(menuItem)
			if !ok {
				return m, nil
			}
			if it.quit {
				return m, tea.Quit
			}
			return m.enter(it.target), nil
		}
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd
	}

	if m.confirm {
		m.confirm = false
		if key == "y" && !m.busy {
			return m.startBatch(domain.ActionDelete)
		}
		m.toast, m.toastErr = "Delete cancelled", false
		return m, nil
	}

	switch key {
	case "esc", "b", "q":
		m.unmountAll()
		m.scr = ScreenMenu
		m.toast = ""
		return m, nil
	case "r":
		if m.scr == ScreenQueue {
			m.queue.Refresh()
		} else {
			m.dash.Refresh()
		}
		return m, nil
	}

	if m.scr != ScreenQueue || m.busy {
		return m, nil
	}
	switch key {
	case "p":
		return m.startBatch(domain.ActionProcess)
	case "f":
		return m.startBatch(domain.ActionReprocess)
	case "d":
		m.confirm = true
		m.toast, m.toastErr = "Delete every document that is not processing? (y/n)", false
		return m, nil
	}
	return m, nil
}

func (m model) startBatch(action domain.Action) (tea.Model, tea.Cmd) {
	m.busy = true
	m.toast, m.toastErr = fmt.Sprintf("Running %s...", action), false
	return m, runBatch(m.ctx, m.deps, action, m.queueState.Documents)
}

func (m model) View() string {
	wrap := lipgloss.NewStyle().Padding(1, 2)
	header := m.theme.Title.Render("doclane") + "\n" +
		m.theme.Subtitle.Render(m.subtitle()) + "\n"

	if m.ended != "" {
		card := m.theme.Card.Render(
			fmt.Sprintf("%s\n\n%s\n\n%s",
				m.theme.Title.Render("Session ended"),
				fmt.Sprintf("Reason: %s. Run `doclane login` to sign in again.", m.ended),
				m.theme.Help.Render("q quit"),
			),
		)
		return wrap.Render(header + "\n" + card)
	}

	switch m.scr {
	case ScreenMenu:
		help := m.theme.Help.Render("↑/↓ navigate • enter open • / search • q quit")
		return wrap.Render(header + "\n" + m.theme.Card.Render(m.menu.View()) + "\n" + help)

	case ScreenQueue:
		body := renderQueue(m.theme, m.queueState, m.width)
		help := m.theme.Help.Render("p process pending • f reprocess failed • d delete all • r refresh • esc back")
		return wrap.Render(header + "\n" + m.theme.Card.Render(body) + "\n" + m.footer() + help)

	case ScreenDashboard:
		body := renderDashboard(m.theme, m.dashState)
		help := m.theme.Help.Render("r refresh • esc back")
		return wrap.Render(header + "\n" + m.theme.Card.Render(body) + "\n" + m.footer() + help)

	default:
		return wrap.Render(header + "\n" + "unknown state")
	}
}

func (m model) subtitle() string {
	s := "Document processing console"
	if m.deps.BaseURL != "" {
		s += " • " + m.deps.BaseURL
	}
	if m.deps.User != "" {
		s += " • " + m.deps.User
	}
	return s
}

func (m model) footer() string {
	if m.toast == "" {
		return ""
	}
	if m.toastErr {
		return m.theme.Error.Render(m.toast) + "\n"
	}
	return m.theme.Toast.Render(m.toast) + "\n"
}
