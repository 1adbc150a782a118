// Package tui is a terminal front end: it polls the engine for lattice
// copies on a timer and drives it through a session.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yshklarov/percolator/internal/engine"
	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/session"
)

const (
	pollInterval = 50 * time.Millisecond
	snapshotWait = 200 * time.Millisecond
	statusWidth  = 34
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5fafff"))
	groupStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#d0d0d0"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8a8a"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
	panelStyle = lipgloss.NewStyle().PaddingLeft(2).Width(statusWidth)
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model.
type Model struct {
	eng  *engine.Engine
	sess *session.Session
	view *latticeView

	snap     *engine.Snapshot
	width    int
	height   int
	showHelp bool
	lastErr  string
}

// NewModel wraps a running engine and its session.
func NewModel(eng *engine.Engine, sess *session.Session) Model {
	return Model{eng: eng, sess: sess, view: newLatticeView(), width: 80, height: 24}
}

// Init starts polling.
func (m Model) Init() tea.Cmd { return tick() }

// Update handles key presses, resizes and poll ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		if s, ok := m.eng.Snapshot(snapshotWait); ok {
			m.snap = s
		}
		if errs := m.eng.Errors(); len(errs) > 0 {
			m.lastErr = errs[len(errs)-1].Error()
		}
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	s := m.sess
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "g":
		s.Regenerate()
	case "p":
		s.Percolate()
	case "n":
		s.Step()
	case "f":
		if m.eng.IsFlowing() {
			s.PauseFlow()
		} else {
			s.BeginFlow()
		}
	case "c":
		s.Clear()
	case "m":
		if s.Mode() == session.ModeFlow {
			s.SetMode(session.ModeClusters)
		} else {
			s.SetMode(session.ModeFlow)
		}
	case "a":
		s.SetAutoPercolate(!s.AutoPercolate())
	case "l":
		s.SetAutoFlow(!s.AutoFlow())
	case "k":
		s.SetAutoFind(!s.AutoFind())
	case "d":
		if m.eng.FlowDirection() == lattice.FlowTop {
			s.SetFlowDirection(lattice.FlowAllSides)
		} else {
			s.SetFlowDirection(lattice.FlowTop)
		}
	case "+", "=":
		s.SetSize(s.Side() + 10)
	case "-":
		s.SetSize(s.Side() - 10)
	case "]":
		if p, ok := s.Probability(); ok {
			s.SetProbability(p + 0.01)
		}
	case "[":
		if p, ok := s.Probability(); ok {
			s.SetProbability(p - 0.01)
		}
	case ">":
		s.SetFlowSpeed(s.FlowSpeed() * 2)
	case "<":
		s.SetFlowSpeed(s.FlowSpeed() / 2)
	}
	return m, nil
}

// View renders the lattice next to the status panel.
func (m Model) View() string {
	if m.showHelp {
		return m.helpView()
	}
	cols := max(m.width-statusWidth, 1)
	rows := max(m.height-1, 1)
	lat := "waiting for lattice..."
	if m.snap != nil {
		lat = m.view.Render(m.snap, m.sess.Mode() == session.ModeClusters, cols, rows)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, lat, panelStyle.Render(m.statusView()))
}

func (m Model) statusView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("percolator"))
	b.WriteString("\n")
	for _, g := range m.sess.Status().Groups {
		b.WriteString("\n" + groupStyle.Render(g.Name) + "\n")
		for _, p := range g.Params {
			if p.Value == "" {
				continue
			}
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(p.Label+":"), p.Value)
		}
	}
	if m.snap != nil && m.sess.Mode() == session.ModeFlow && m.snap.Done() {
		fmt.Fprintf(&b, "\n%s %t\n", labelStyle.Render("Percolates:"), m.snap.Percolates())
	}
	if m.lastErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.lastErr) + "\n")
	}
	b.WriteString("\n" + labelStyle.Render("? for help"))
	return b.String()
}

func (m Model) helpView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys") + "\n\n")
	for _, line := range helpLines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + labelStyle.Render("any key to dismiss"))
	return b.String()
}

var helpLines = []string{
	"g      regenerate",
	"p      percolate",
	"n      flow one step",
	"f      start/stop flow",
	"c      clear percolation",
	"m      toggle mode (flow/clusters)",
	"a      toggle auto-percolate",
	"l      toggle auto-flow",
	"k      toggle auto-find",
	"d      toggle flow direction",
	"+ -    lattice size",
	"[ ]    probability",
	"< >    flow speed",
	"q      quit",
}
