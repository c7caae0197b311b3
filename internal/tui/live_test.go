package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/sim"
	"github.com/san-kum/furnacesim/internal/solver"
)

type fakeStatus struct{ snap sim.StatusSnapshot }

func (f *fakeStatus) Snapshot() sim.StatusSnapshot { return f.snap }

func TestModelTickRecordsPeak(t *testing.T) {
	status := &fakeStatus{}
	var m tea.Model = newModel("steel", 60, status, nil)

	for k := 1; k <= 3; k++ {
		status.snap = sim.StatusSnapshot{State: solver.Stepping, Step: k, Time: float64(k), Fraction: float64(k) / 60, PeakTemperature: 300 + float64(k)}
		var cmd tea.Cmd
		m, cmd = m.Update(tickMsg(time.Now()))
		if cmd == nil {
			t.Fatal("expected another tick while running")
		}
	}

	lm := m.(model)
	if len(lm.history) != 3 || lm.history[2] != 303 {
		t.Errorf("unexpected history %v", lm.history)
	}
	view := lm.View()
	if !strings.Contains(view, "steel") || !strings.Contains(view, "303.0 K") {
		t.Errorf("view misses title or peak:\n%s", view)
	}
}

func TestModelQuitCancels(t *testing.T) {
	calls := 0
	var m tea.Model = newModel("steel", 60, &fakeStatus{}, func() { calls++ })

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if calls != 1 {
		t.Errorf("expected one cancel call, got %d", calls)
	}
	if !m.(model).cancelling {
		t.Error("expected the model to be cancelling")
	}
	if !strings.Contains(m.View(), "cancelling") {
		t.Error("view does not show cancellation")
	}
}

func TestModelDone(t *testing.T) {
	status := &fakeStatus{snap: sim.StatusSnapshot{State: solver.Failed, Step: 7}}
	var m tea.Model = newModel("steel", 60, status, nil)

	runErr := errors.New("diverged")
	m, cmd := m.Update(doneMsg{result: &sim.Result{StepsExecuted: 7}, err: runErr})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	lm := m.(model)
	if !lm.done || lm.result.StepsExecuted != 7 || lm.err != runErr {
		t.Errorf("unexpected final model %+v", lm)
	}
	if !strings.Contains(lm.View(), "diverged") {
		t.Error("view does not show the error")
	}
	if _, cmd := lm.Update(tickMsg(time.Now())); cmd != nil {
		t.Error("no tick expected after completion")
	}
}

func TestProgressBar(t *testing.T) {
	for _, f := range []float64{-1, 0, 0.5, 1, 2} {
		bar := ProgressBar(f, 10)
		if n := strings.Count(bar, "━") + strings.Count(bar, "─"); n != 10 {
			t.Errorf("ProgressBar(%v) has %d cells, want 10", f, n)
		}
	}
}

func TestHeatMap(t *testing.T) {
	f := dynamo.NewField(4, 6)
	for i := 0; i < 4; i++ {
		for j := 0; j < 6; j++ {
			f.Set(i, j, float64(300+100*j))
		}
	}
	out := HeatMap(f, 300, 800, 4, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "@") && !strings.Contains(lines[0], "%") {
		t.Errorf("top row should be hot:\n%s", out)
	}
	if strings.ContainsAny(lines[2], "@%#") {
		t.Errorf("bottom row should be cold:\n%s", out)
	}
	if HeatMap(nil, 0, 1, 4, 4) != "" {
		t.Error("expected empty map for nil field")
	}
}
