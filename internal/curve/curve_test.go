package curve

import (
	"math"
	"testing"
)

func TestLinearIsIdentity(t *testing.T) {
	c := Curve{Type: Linear}
	for _, v := range []float64{0, 0.25, 0.5, 1} {
		if got := c.Apply(v); got != v {
			t.Fatalf("linear(%f)=%f", v, got)
		}
	}
}

func TestSmoothEndpoints(t *testing.T) {
	c := Curve{Type: Smooth}
	if got := c.Apply(0); got != 0 {
		t.Fatalf("smooth(0)=%f want 0", got)
	}
	if got := c.Apply(1); got != 1 {
		t.Fatalf("smooth(1)=%f want 1", got)
	}
	if got := c.Apply(0.5); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("smooth(0.5)=%f want 0.5", got)
	}
}

func TestStepsBandFloor(t *testing.T) {
	c := Curve{Type: Steps, Bands: 5}
	if got := c.Apply(0.42); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("steps(0.42)=%f want 0.5", got)
	}
	if got := c.Apply(0); got != 0 {
		t.Fatalf("steps(0)=%f want 0", got)
	}
	if got := c.Apply(1); got != 1 {
		t.Fatalf("steps(1)=%f want 1", got)
	}
}

func TestMonotonicity(t *testing.T) {
	curves := map[string]Curve{
		"linear":      {Type: Linear},
		"exponential": {Type: Exponential},
		"logarithmic": {Type: Logarithmic},
		"smooth":      {Type: Smooth},
		"custom":      {Type: Custom, Points: []Point{{0, 0}, {0.3, 0.1}, {1, 1}}},
	}
	for name, c := range curves {
		prev := c.Apply(0)
		for i := 1; i <= 100; i++ {
			v := c.Apply(float64(i) / 100)
			if v < prev-1e-12 {
				t.Fatalf("%s not monotonic at t=%f: %f < %f", name, float64(i)/100, v, prev)
			}
			prev = v
		}
	}
}

func TestCustomClampsOutsidePointRange(t *testing.T) {
	c := Curve{Type: Custom, Points: []Point{{0.2, 0.1}, {0.8, 0.9}}}
	if got := c.Apply(0); got != 0.1 {
		t.Fatalf("custom below range: got %f want 0.1", got)
	}
	if got := c.Apply(1); got != 0.9 {
		t.Fatalf("custom above range: got %f want 0.9", got)
	}
	if got := c.Apply(0.5); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("custom midpoint: got %f want 0.5", got)
	}
}

func TestUnknownTypeFallsBackToLinear(t *testing.T) {
	c := Curve{Type: "wobbly"}
	if got := c.Apply(0.42); got != 0.42 {
		t.Fatalf("unknown curve: got %f want 0.42", got)
	}
}

func TestValidate(t *testing.T) {
	good := map[string]Curve{
		"linear":              {Type: Linear},
		"zero":                {},
		"steps":               {Type: Steps, Bands: 8},
		"steps default bands": {Type: Steps},
		"custom":              {Type: Custom, Points: []Point{{0, 0}, {1, 1}}},
		"smooth":              {Type: Smooth},
		"expo":                {Type: Exponential},
		"logarit":             {Type: Logarithmic},
	}
	for name, c := range good {
		if err := c.Validate(); err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}

	bad := map[string]Curve{
		"unknown":       {Type: "wobbly"},
		"one point":     {Type: Custom, Points: []Point{{0, 0}}},
		"out of range":  {Type: Custom, Points: []Point{{-0.1, 0}, {1, 1}}},
		"not monotonic": {Type: Custom, Points: []Point{{0.5, 0}, {0.2, 1}}},
		"single band":   {Type: Steps, Bands: 1},
		"negative band": {Type: Steps, Bands: -3},
	}
	for name, c := range bad {
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
