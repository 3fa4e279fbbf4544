package mapping

import (
	"math"
	"testing"

	"github.com/guidoenr/vizbind/internal/curve"
)

func TestResolveLinearInvert(t *testing.T) {
	m := Mapping{InputMin: 0, InputMax: 127, OutputMin: 0, OutputMax: 1, Invert: true}
	c := curve.Curve{Type: curve.Linear}

	if got := Resolve(127, m, c); got != 0 {
		t.Fatalf("resolve(127)=%f want 0", got)
	}
	if got := Resolve(0, m, c); got != 1 {
		t.Fatalf("resolve(0)=%f want 1", got)
	}
}

func TestResolveClamp(t *testing.T) {
	m := Mapping{InputMin: 0, InputMax: 100, OutputMin: 0, OutputMax: 10, Clamp: true}
	c := curve.Curve{Type: curve.Linear}

	if got := Resolve(250, m, c); got != 10 {
		t.Fatalf("clamped high: got %f want 10", got)
	}
	if got := Resolve(-50, m, c); got != 0 {
		t.Fatalf("clamped low: got %f want 0", got)
	}
}

func TestResolveIsPure(t *testing.T) {
	m := Mapping{InputMin: 0, InputMax: 1, OutputMin: 2, OutputMax: 4}
	c := curve.Curve{Type: curve.Smooth}

	first := Resolve(0.3, m, c)
	second := Resolve(0.3, m, c)
	if first != second {
		t.Fatalf("resolve not idempotent: %f != %f", first, second)
	}
}

func TestResolveDegenerateRange(t *testing.T) {
	m := Mapping{InputMin: 5, InputMax: 5, OutputMin: 0.25, OutputMax: 1}
	if got := Resolve(42, m, curve.Curve{}); got != 0.25 {
		t.Fatalf("degenerate range: got %f want outputMin", got)
	}
	if err := m.Validate(); err == nil {
		t.Fatalf("expected validation error for degenerate range")
	}
}

func TestResolveOutputRangeScaling(t *testing.T) {
	m := Mapping{InputMin: 0, InputMax: 1, OutputMin: 10, OutputMax: 20}
	if got := Resolve(0.5, m, curve.Curve{}); math.Abs(got-15) > 1e-9 {
		t.Fatalf("midpoint: got %f want 15", got)
	}
}

func TestFeatureMappingClampsModulation(t *testing.T) {
	if got := NewFeatureMapping("rms", 1.7).ModulationAmount; got != 1 {
		t.Fatalf("modulation not clamped high: %f", got)
	}
	if got := NewFeatureMapping("rms", -0.2).ModulationAmount; got != 0 {
		t.Fatalf("modulation not clamped low: %f", got)
	}
	if got := DefaultFeatureMapping().ModulationAmount; got != 0.5 {
		t.Fatalf("default modulation: got %f want 0.5", got)
	}
}

func TestFeatureMappingModulate(t *testing.T) {
	fm := NewFeatureMapping("bass", 0.5)
	if got := fm.Modulate(0.2, 0.8); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("modulate: got %f want 0.6", got)
	}
}
