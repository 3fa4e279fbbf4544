package mapping

import (
	"fmt"

	"github.com/guidoenr/vizbind/internal/curve"
)

// Mapping converts a raw source value into a target parameter range.
type Mapping struct {
	InputMin  float64 `json:"inputMin"`
	InputMax  float64 `json:"inputMax"`
	OutputMin float64 `json:"outputMin"`
	OutputMax float64 `json:"outputMax"`
	Clamp     bool    `json:"clamp"`
	Invert    bool    `json:"invert"`
}

// Validate rejects degenerate ranges up front so the hot path never divides by zero.
func (m Mapping) Validate() error {
	if m.InputMin == m.InputMax {
		return fmt.Errorf("degenerate input range [%.3f, %.3f]", m.InputMin, m.InputMax)
	}
	return nil
}

// Resolve normalizes raw into the input range, shapes it through the curve and
// scales into the output range. A degenerate input range yields OutputMin; the
// caller is expected to have flagged it via Validate already.
func Resolve(raw float64, m Mapping, c curve.Curve) float64 {
	span := m.InputMax - m.InputMin
	if span == 0 {
		return m.OutputMin
	}

	t := (raw - m.InputMin) / span
	if m.Clamp {
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	if m.Invert {
		t = 1 - t
	}

	shaped := c.Apply(t)
	return m.OutputMin + shaped*(m.OutputMax-m.OutputMin)
}

// FeatureMapping is the simplified single-binding surface used by the mapping
// demo panel: one feature modulates one parameter by a fixed amount.
type FeatureMapping struct {
	FeatureID        string  `json:"featureId"`
	ModulationAmount float64 `json:"modulationAmount"`
}

const defaultModulation = 0.5

// NewFeatureMapping builds a demo mapping with the modulation amount clamped to [0,1].
func NewFeatureMapping(featureID string, amount float64) FeatureMapping {
	return FeatureMapping{
		FeatureID:        featureID,
		ModulationAmount: clampModulation(amount),
	}
}

// DefaultFeatureMapping returns an unassigned mapping at 50% modulation.
func DefaultFeatureMapping() FeatureMapping {
	return FeatureMapping{ModulationAmount: defaultModulation}
}

// Modulate blends a feature value into a base slider value by the modulation amount.
func (fm FeatureMapping) Modulate(base, featureValue float64) float64 {
	amount := clampModulation(fm.ModulationAmount)
	return base + featureValue*amount
}

func clampModulation(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
