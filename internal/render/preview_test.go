package render

import (
	"strings"
	"testing"

	"github.com/guidoenr/vizbind/internal/engine"
)

func TestRenderTerminalListsLayersSorted(t *testing.T) {
	p := New(80, 24, false)
	frame := p.Render(engine.Snapshot{
		Time: 2.0,
		Params: map[string]map[string]float64{
			"zeta":  {"visual.opacity": 0.5},
			"alpha": {"visual.opacity": 1.0},
		},
		Assets: map[string]string{"alpha": "clip7"},
	})

	if len(frame.Lines) != 4 {
		t.Fatalf("line count: %d\n%v", len(frame.Lines), frame.Lines)
	}
	if !strings.HasPrefix(frame.Lines[0], "alpha") || !strings.Contains(frame.Lines[0], "asset=clip7") {
		t.Fatalf("first header: %q", frame.Lines[0])
	}
	if !strings.HasPrefix(frame.Lines[2], "zeta") {
		t.Fatalf("second header: %q", frame.Lines[2])
	}
	if !strings.Contains(frame.Status, "t=2.000") {
		t.Fatalf("status: %q", frame.Status)
	}
}

func TestRenderTerminalMarksStaleLayers(t *testing.T) {
	p := New(80, 24, false)
	frame := p.Render(engine.Snapshot{
		Params: map[string]map[string]float64{"layer1": {"visual.opacity": 0.2}},
		Stale:  []engine.StaleEntry{{LayerID: "layer1", BindingID: "b1"}},
	})
	if !strings.Contains(frame.Lines[0], "(stale)") {
		t.Fatalf("stale marker missing: %q", frame.Lines[0])
	}
	if !strings.Contains(frame.Status, "stale=1") {
		t.Fatalf("status: %q", frame.Status)
	}
}

func TestBarLinePinsOutOfRangeValues(t *testing.T) {
	p := New(60, 24, false)

	over := p.barLine("visual.opacity", 3.5)
	if strings.Contains(over, "░") {
		t.Fatalf("overdriven bar not full: %q", over)
	}
	if !strings.Contains(over, "3.500") {
		t.Fatalf("numeric value missing: %q", over)
	}

	under := p.barLine("visual.opacity", -1)
	if strings.Contains(under, "█") {
		t.Fatalf("negative bar not empty: %q", under)
	}
}

func TestRenderTerminalRespectsHeight(t *testing.T) {
	p := New(80, 2, false)
	frame := p.Render(engine.Snapshot{
		Params: map[string]map[string]float64{
			"layer1": {"a": 0.1, "b": 0.2, "c": 0.3},
		},
	})
	if len(frame.Lines) != 2 {
		t.Fatalf("height not respected: %d lines", len(frame.Lines))
	}
}
