// Package tui provides a live terminal view of a running batch test.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/meshwatch/internal/engine"
	"github.com/user/meshwatch/internal/model"
)

const historyLines = 12

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	summaryStyle = lipgloss.NewStyle().Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type progressMsg model.ProgressEvent

type completedMsg model.RunState

type runErrorMsg string

// App couples a running engine kind to a bubbletea program acting as the
// run's progress sink. The sink is available before the engine exists so it
// can be wired into the engine's sink chain at construction.
type App struct {
	kind model.Kind
	ch   chan tea.Msg
}

// NewApp creates a live view for one test kind.
func NewApp(kind model.Kind) *App {
	return &App{kind: kind, ch: make(chan tea.Msg, 256)}
}

// Sink returns the engine sink feeding this view.
func (a *App) Sink() engine.Sink { return chanSink{ch: a.ch} }

// Run blocks until the watched run completes or the user quits. It returns
// the final run state.
func (a *App) Run(eng *engine.Engine) (model.RunState, error) {
	m := newRunModel(eng, a.kind)
	p := tea.NewProgram(m)

	go func() {
		for msg := range a.ch {
			p.Send(msg)
		}
	}()

	out, err := p.Run()
	if err != nil {
		return model.RunState{}, err
	}
	final := out.(runModel)
	return final.state, nil
}

// chanSink forwards engine events into the program. Sends never block the
// batch runner; if the view falls behind, events are dropped.
type chanSink struct {
	ch chan tea.Msg
}

func (s chanSink) Progress(ev model.ProgressEvent) {
	select {
	case s.ch <- progressMsg(ev):
	default:
	}
}

func (s chanSink) Completed(kind model.Kind, state model.RunState) {
	s.ch <- completedMsg(state)
}

func (s chanSink) RunError(kind model.Kind, msg string) {
	select {
	case s.ch <- runErrorMsg(msg):
	default:
	}
}

type runModel struct {
	eng   *engine.Engine
	kind  model.Kind
	spin  spinner.Model
	bar   progress.Model
	lines []string
	state model.RunState
	done  bool
	errs  []string
}

func newRunModel(eng *engine.Engine, kind model.Kind) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return runModel{
		eng:  eng,
		kind: kind,
		spin: s,
		bar:  progress.New(progress.WithDefaultGradient()),
	}
}

func (m runModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Ask the engine to stop; the completion event quits the view.
			m.eng.Registry().RequestStop(m.kind)
			return m, nil
		case "p":
			m.eng.Registry().RequestPause(m.kind)
			return m, nil
		case "r":
			m.eng.Registry().RequestResume(m.kind)
			return m, nil
		}
		return m, nil

	case progressMsg:
		ev := model.ProgressEvent(msg)
		m.state = m.eng.Registry().Status(m.kind)
		m.lines = append(m.lines, eventLine(ev))
		if len(m.lines) > historyLines {
			m.lines = m.lines[len(m.lines)-historyLines:]
		}
		return m, nil

	case completedMsg:
		m.state = model.RunState(msg)
		m.done = true
		return m, tea.Quit

	case runErrorMsg:
		m.errs = append(m.errs, string(msg))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m runModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("meshwatch %s test", m.kind)))
	b.WriteString("\n\n")

	if m.done {
		b.WriteString(summaryStyle.Render(m.state.Summary))
		b.WriteString("\n")
		return b.String()
	}

	status := "running"
	if m.state.Paused {
		status = "paused"
	}
	b.WriteString(fmt.Sprintf("%s %s  %s\n", m.spin.View(), status, m.state.CurrentDevice))
	b.WriteString(m.bar.ViewAs(float64(m.state.Progress)/100) + "\n\n")
	b.WriteString(fmt.Sprintf("ok %s  fail %s  skip %s\n\n",
		okStyle.Render(fmt.Sprintf("%d", m.state.Success)),
		failStyle.Render(fmt.Sprintf("%d", m.state.Failure)),
		skipStyle.Render(fmt.Sprintf("%d", m.state.Skipped))))

	for _, line := range m.lines {
		b.WriteString(line + "\n")
	}
	for _, e := range m.errs {
		b.WriteString(failStyle.Render("error: "+e) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("p pause · r resume · q stop"))
	return b.String()
}

func eventLine(ev model.ProgressEvent) string {
	mark := failStyle.Render("✗")
	status := string(model.StatusUnknown)
	if ev.Outcome != nil {
		status = string(ev.Outcome.Status())
		switch {
		case ev.Outcome.Status() == model.StatusSkipped:
			mark = skipStyle.Render("–")
		case ev.Outcome.OK():
			mark = okStyle.Render("✓")
		}
	}
	return fmt.Sprintf("%s %3d/%d  %-12s hops:%s  %s",
		mark, ev.Index, ev.Total, ev.Device.Label, ev.HopCount, status)
}
