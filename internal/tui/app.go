package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/panelmatch/internal/database/repository"
)

// Queue is the review backend.
type Queue interface {
	Pending(ctx context.Context) (*repository.MatchRun, []repository.MatchOutcome, error)
	Decide(ctx context.Context, outcomeID string, accept bool) error
}

// App lists the fuzzy matches of the latest run and records decisions.
type App struct {
	ctx      context.Context
	queue    Queue
	run      *repository.MatchRun
	pending  []repository.MatchOutcome
	table    table.Model
	keys     keyMap
	help     help.Model
	status   string
	accepted int
	rejected int
	loaded   bool
}

type keyMap struct {
	Accept  key.Binding
	Reject  key.Binding
	Refresh key.Binding
	UpDown  key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Accept:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "accept")),
		Reject:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "reject")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		UpDown:  key.NewBinding(key.WithKeys("up", "down", "k", "j"), key.WithHelp("↑/↓", "select")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Reject, k.UpDown, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	detailStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func New(ctx context.Context, queue Queue) *App {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Row", Width: 5},
			{Title: "Panel entry", Width: 34},
			{Title: "Registry entry", Width: 34},
			{Title: "ID", Width: 10},
			{Title: "Score", Width: 6},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return &App{
		ctx:   ctx,
		queue: queue,
		table: t,
		keys:  newKeyMap(),
		help:  help.New(),
	}
}

func (a *App) Init() tea.Cmd {
	return a.loadPending("")
}

func (a *App) loadPending(status string) tea.Cmd {
	return func() tea.Msg {
		run, list, err := a.queue.Pending(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return pendingMsg{run: run, pending: list, status: status}
	}
}

func (a *App) decideCmd(o repository.MatchOutcome, accept bool) tea.Cmd {
	return func() tea.Msg {
		if err := a.queue.Decide(a.ctx, o.ID, accept); err != nil {
			return errMsg{err}
		}
		verb := "rejected"
		if accept {
			verb = "accepted"
		}
		run, list, err := a.queue.Pending(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return pendingMsg{run: run, pending: list, status: verb + " " + o.SourceLabel, accepted: accept, decided: true}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(m, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(m, a.keys.Refresh):
			a.status = "reloading..."
			return a, a.loadPending("")
		case key.Matches(m, a.keys.Accept), key.Matches(m, a.keys.Reject):
			o, ok := a.selected()
			if !ok {
				return a, nil
			}
			return a, a.decideCmd(o, key.Matches(m, a.keys.Accept))
		}
		var cmd tea.Cmd
		a.table, cmd = a.table.Update(m)
		return a, cmd
	case tea.WindowSizeMsg:
		a.help.Width = m.Width
		if h := m.Height - 10; h > 3 {
			a.table.SetHeight(h)
		}
	case pendingMsg:
		a.loaded = true
		a.run = m.run
		a.pending = m.pending
		a.status = m.status
		if m.decided {
			if m.accepted {
				a.accepted++
			} else {
				a.rejected++
			}
		}
		a.table.SetRows(rows(a.pending))
		if c := a.table.Cursor(); c >= len(a.pending) {
			a.table.SetCursor(max(len(a.pending)-1, 0))
		}
	case errMsg:
		a.status = "error: " + m.Error()
	}
	return a, nil
}

func (a *App) selected() (repository.MatchOutcome, bool) {
	c := a.table.Cursor()
	if c < 0 || c >= len(a.pending) {
		return repository.MatchOutcome{}, false
	}
	return a.pending[c], true
}

func rows(list []repository.MatchOutcome) []table.Row {
	out := make([]table.Row, len(list))
	for i, o := range list {
		out[i] = table.Row{
			strconv.Itoa(o.SourceIndex + 1),
			o.SourceLabel,
			o.TargetLabel,
			o.TargetID,
			strconv.FormatFloat(o.Score, 'f', 1, 64),
		}
	}
	return out
}

func (a *App) View() string {
	title := titleStyle.Render("Match Review")
	if !a.loaded {
		return title + "\nloading..."
	}
	if a.run == nil {
		return title + "\nNo crosscheck has been run yet.\n" + a.help.View(a.keys)
	}
	out := fmt.Sprintf("%s\nRun %s  %s  %d of %d matched\n", title, a.run.ID[:min(8, len(a.run.ID))],
		a.run.CreatedAt.Local().Format("2006-01-02 15:04"), a.run.Matched, a.run.Total)
	if len(a.pending) == 0 {
		out += "No pending matches.\n"
	} else {
		out += a.table.View() + "\n"
		if o, ok := a.selected(); ok {
			out += detailStyle.Render(fmt.Sprintf("%s\n→ %s\nscore %.1f  %s", o.SourceLabel, o.TargetLabel, o.Score, o.MatchType)) + "\n"
		}
	}
	out += fmt.Sprintf("accepted %d  rejected %d  pending %d\n", a.accepted, a.rejected, len(a.pending))
	out += a.help.View(a.keys)
	if a.status != "" {
		style := statusStyle
		if strings.HasPrefix(a.status, "error:") {
			style = errorStyle
		}
		out += "\n" + style.Render(a.status)
	}
	return out
}

type pendingMsg struct {
	run      *repository.MatchRun
	pending  []repository.MatchOutcome
	status   string
	decided  bool
	accepted bool
}

type errMsg struct{ error }
