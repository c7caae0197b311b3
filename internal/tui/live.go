// Package tui shows a running simulation in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/furnacesim/internal/sim"
	"github.com/san-kum/furnacesim/internal/solver"
)

const (
	refreshInterval = 100 * time.Millisecond
	historyLength   = 120
	barWidth        = 36
)

// StatusSource is polled for progress; *sim.Status implements it.
type StatusSource interface {
	Snapshot() sim.StatusSnapshot
}

type tickMsg time.Time

type doneMsg struct {
	result *sim.Result
	err    error
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	title    string
	duration float64
	status   StatusSource
	cancel   func()

	snap       sim.StatusSnapshot
	history    []float64
	cancelling bool
	done       bool
	result     *sim.Result
	err        error
	started    time.Time

	width int
}

func newModel(title string, duration float64, status StatusSource, cancel func()) model {
	return model{
		title:    title,
		duration: duration,
		status:   status,
		cancel:   cancel,
		history:  make([]float64, 0, historyLength),
		started:  time.Now(),
		width:    80,
	}
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.poll()
		return m, tick()
	case doneMsg:
		m.poll()
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) poll() {
	m.snap = m.status.Snapshot()
	if m.snap.Step == 0 && m.snap.PeakTemperature == 0 {
		return
	}
	m.history = append(m.history, m.snap.PeakTemperature)
	if len(m.history) > historyLength {
		m.history = m.history[len(m.history)-historyLength:]
	}
}

func (m model) stateText() string {
	switch {
	case m.err != nil || m.snap.State == solver.Failed:
		return red.Render("failed")
	case m.done && m.snap.State == solver.Completed:
		return green.Render("completed")
	case m.cancelling || m.snap.State == solver.Cancelled:
		return yellow.Render("cancelling")
	}
	return green.Render("running")
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", green.Render("●"), Title.Render(m.title), m.stateText()))

	timeStr := fmt.Sprintf("%.1fs/%.0fs", m.snap.Time, m.duration)
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n",
		ProgressBar(m.snap.Fraction, barWidth),
		dim.Render(timeStr),
		dim.Render(fmt.Sprintf("%.0f%%", 100*m.snap.Fraction))))

	b.WriteString(fmt.Sprintf("   %s %s   %s %s   %s %s\n",
		Label.Render("step"), Value.Render(fmt.Sprintf("%d", m.snap.Step)),
		Label.Render("peak"), Value.Render(fmt.Sprintf("%.1f K", m.snap.PeakTemperature)),
		Label.Render("wall"), Value.Render(time.Since(m.started).Round(time.Second).String())))

	if len(m.history) > 1 {
		width := m.width - 16
		if width < 20 {
			width = 20
		}
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(width),
			asciigraph.Caption("peak temperature (K)"))
		b.WriteString("\n" + cyan.Render(graph) + "\n")
	}

	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + dim.Render("   q cancel") + "\n")
	return b.String()
}

// Run starts run in the background and shows its progress until it
// returns. Pressing q calls cancel; run is expected to stop at its next step
// boundary and return the partial result.
func Run(title string, duration float64, status StatusSource, cancel func(), run func() (*sim.Result, error)) (*sim.Result, error) {
	p := tea.NewProgram(newModel(title, duration, status, cancel))
	go func() {
		res, err := run()
		p.Send(doneMsg{result: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(model)
	return m.result, m.err
}
