package envelope

import (
	"math"
	"testing"
)

func TestExponentialDecay(t *testing.T) {
	state := State{LastValue: 1.0, LastUpdateTime: 0}
	cfg := Config{Attack: 10, Decay: 1.0, Threshold: 0.5}

	// target below threshold, dt=1 → e^-1
	value, next := Shape(state, 0.0, 1.0, cfg)
	want := math.Exp(-1)
	if math.Abs(value-want) > 1e-9 {
		t.Fatalf("decayed value=%f want %f", value, want)
	}
	if !next.Gated {
		t.Fatalf("expected gated state below threshold")
	}
}

func TestNonPositiveDtReturnsUnchanged(t *testing.T) {
	state := State{LastValue: 0.42, LastUpdateTime: 5}
	cfgs := map[string]Config{
		"default": DefaultConfig(),
		"fast":    {Attack: 100, Decay: 50, Threshold: 0.9},
		"zero":    {},
	}
	for name, cfg := range cfgs {
		for _, now := range []float64{5.0, 4.0, 0} {
			value, next := Shape(state, 1.0, now, cfg)
			if value != 0.42 {
				t.Fatalf("%s: dt<=0 changed value to %f", name, value)
			}
			if next != state {
				t.Fatalf("%s: dt<=0 mutated state", name)
			}
		}
	}
}

func TestAttackRisesTowardTarget(t *testing.T) {
	cfg := Config{Attack: 5, Decay: 1, Threshold: 0.1}
	state := State{LastValue: 0, LastUpdateTime: 0}

	value, next := Shape(state, 1.0, 0.1, cfg)
	if value <= 0 || value >= 1 {
		t.Fatalf("attack step out of range: %f", value)
	}
	value2, _ := Shape(next, 1.0, 0.2, cfg)
	if value2 <= value {
		t.Fatalf("attack not monotonic: %f then %f", value, value2)
	}
}

func TestShapeIsPure(t *testing.T) {
	state := State{LastValue: 0.7, LastUpdateTime: 2}
	cfg := Config{Attack: 8, Decay: 2, Threshold: 0.3}

	a1, s1 := Shape(state, 0.9, 2.5, cfg)
	a2, s2 := Shape(state, 0.9, 2.5, cfg)
	if a1 != a2 || s1 != s2 {
		t.Fatalf("shape not deterministic: (%f,%+v) vs (%f,%+v)", a1, s1, a2, s2)
	}
}

func TestSameTimestampSequenceSameOutput(t *testing.T) {
	cfg := Config{Attack: 12, Decay: 3, Threshold: 0.2}
	targets := []float64{0.8, 0.9, 0.05, 0.0, 0.6}
	times := []float64{0.1, 0.2, 0.3, 0.4, 0.5}

	run := func() []float64 {
		state := State{}
		out := make([]float64, 0, len(targets))
		for i := range targets {
			var v float64
			v, state = Shape(state, targets[i], times[i], cfg)
			out = append(out, v)
		}
		return out
	}

	first := run()
	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sequence diverged at step %d: %f vs %f", i, first[i], second[i])
		}
	}
}
