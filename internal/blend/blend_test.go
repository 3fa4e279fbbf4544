package blend

import (
	"math"
	"testing"
)

func TestReplaceCrossfades(t *testing.T) {
	got := Compose(1.0, []Contribution{{Value: 3.0, Weight: 0.5, Mode: Replace}})
	if math.Abs(got-2.0) > 1e-9 {
		t.Fatalf("replace at weight 0.5: got %f want 2", got)
	}
	full := Compose(1.0, []Contribution{{Value: 3.0, Weight: 1, Mode: Replace}})
	if full != 3.0 {
		t.Fatalf("replace at weight 1: got %f want 3", full)
	}
}

func TestAddZeroWeightIsNeutral(t *testing.T) {
	got := Compose(0.7, []Contribution{{Value: 99, Weight: 0, Mode: Add}})
	if got != 0.7 {
		t.Fatalf("add weight 0: got %f want 0.7", got)
	}
}

func TestMultiplyZeroWeightIsNeutral(t *testing.T) {
	got := Compose(0.7, []Contribution{{Value: 99, Weight: 0, Mode: Multiply}})
	if got != 0.7 {
		t.Fatalf("multiply weight 0: got %f want 0.7", got)
	}
}

func TestMultiplyAttenuatesDeviation(t *testing.T) {
	// value 2 at half weight multiplies by 1.5
	got := Compose(2.0, []Contribution{{Value: 2.0, Weight: 0.5, Mode: Multiply}})
	if math.Abs(got-3.0) > 1e-9 {
		t.Fatalf("multiply half weight: got %f want 3", got)
	}
}

func TestMinMax(t *testing.T) {
	low := Compose(1.0, []Contribution{{Value: 0.2, Weight: 1, Mode: Min}})
	if low != 0.2 {
		t.Fatalf("min: got %f want 0.2", low)
	}
	high := Compose(1.0, []Contribution{{Value: 5.0, Weight: 1, Mode: Max}})
	if high != 5.0 {
		t.Fatalf("max: got %f want 5", high)
	}
	// at weight 0 the candidate equals acc, so min/max leave it unchanged
	same := Compose(1.0, []Contribution{{Value: -100, Weight: 0, Mode: Min}})
	if same != 1.0 {
		t.Fatalf("min weight 0: got %f want 1", same)
	}
}

func TestDisabledDiffersFromZeroWeight(t *testing.T) {
	// a disabled min binding never reaches Compose at all
	absent := Compose(1.0, nil)
	if absent != 1.0 {
		t.Fatalf("absent contributor: got %f want 1", absent)
	}
	// an enabled zero-weight min still participates in the comparison,
	// its candidate collapsing to acc
	present := Compose(1.0, []Contribution{{Value: -100, Weight: 0, Mode: Min}})
	if present != absent {
		t.Fatalf("zero-weight min diverged: %f vs %f", present, absent)
	}
}

func TestAverageWeightedMean(t *testing.T) {
	got := Compose(1.0, []Contribution{
		{Value: 2.0, Weight: 1, Mode: Average},
		{Value: 4.0, Weight: 1, Mode: Average},
	})
	// (1 + 2 + 4) / (1 + 2)
	want := 7.0 / 3.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("average: got %f want %f", got, want)
	}
}

func TestOrderDependentFold(t *testing.T) {
	a := []Contribution{
		{Value: 2.0, Weight: 1, Mode: Add},
		{Value: 2.0, Weight: 1, Mode: Multiply},
	}
	b := []Contribution{
		{Value: 2.0, Weight: 1, Mode: Multiply},
		{Value: 2.0, Weight: 1, Mode: Add},
	}
	if Compose(1.0, a) == Compose(1.0, b) {
		t.Fatalf("expected order to matter for add-then-multiply")
	}
	if got := Compose(1.0, a); got != 6.0 {
		t.Fatalf("(1+2)*2: got %f want 6", got)
	}
}
