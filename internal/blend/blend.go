// Package blend folds binding outputs into a layer's base parameter value.
package blend

import "sort"

// Mode is the algebraic rule for combining one binding output with the
// accumulated value.
type Mode string

const (
	Replace  Mode = "replace"
	Add      Mode = "add"
	Multiply Mode = "multiply"
	Average  Mode = "average"
	Min      Mode = "min"
	Max      Mode = "max"
)

var modeNames = []string{
	string(Replace),
	string(Add),
	string(Multiply),
	string(Average),
	string(Min),
	string(Max),
}

// ModeNames returns the supported blend modes.
func ModeNames() []string {
	out := make([]string, len(modeNames))
	copy(out, modeNames)
	sort.Strings(out)
	return out
}

// Valid reports whether the mode is one of the supported rules.
func (m Mode) Valid() bool {
	switch m {
	case Replace, Add, Multiply, Average, Min, Max:
		return true
	}
	return false
}

// Contribution is one enabled binding's output entering composition. Disabled
// bindings must be filtered out before calling Compose: an absent contributor
// and a zero-weight one are different things for multiply/min/max.
type Contribution struct {
	Value  float64
	Weight float64
	Mode   Mode
}

// Compose folds the contributions over the base value in the order given,
// which callers keep equal to binding registration order so the result is
// deterministic. Average contributions accumulate a weighted mean that is
// applied once at the end.
func Compose(base float64, contribs []Contribution) float64 {
	acc := base

	var avgSum, avgWeight float64
	for _, c := range contribs {
		switch c.Mode {
		case Replace:
			// weight crossfades instead of hard-overriding, so several
			// replace bindings mix smoothly rather than last-wins
			acc = c.Value*c.Weight + acc*(1-c.Weight)
		case Add:
			acc += c.Value * c.Weight
		case Multiply:
			// attenuate the deviation from neutral 1.0 so weight=0 is a no-op
			acc *= 1 + (c.Value-1)*c.Weight
		case Min:
			candidate := c.Value*c.Weight + acc*(1-c.Weight)
			if candidate < acc {
				acc = candidate
			}
		case Max:
			candidate := c.Value*c.Weight + acc*(1-c.Weight)
			if candidate > acc {
				acc = candidate
			}
		case Average:
			avgSum += c.Value * c.Weight
			avgWeight += c.Weight
		}
	}

	if avgWeight > 0 {
		acc = (acc + avgSum) / (1 + avgWeight)
	}
	return acc
}
