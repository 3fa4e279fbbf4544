// Package envelope shapes binding outputs over time so parameter changes read
// as attack/decay gestures instead of raw per-frame jumps.
package envelope

import "math"

// Config controls how a binding's output approaches its target.
type Config struct {
	Attack    float64 `json:"attack"`
	Decay     float64 `json:"decay"`
	Threshold float64 `json:"threshold"`
}

// DefaultConfig mirrors the stock per-feature response: quick attack, one-second decay.
func DefaultConfig() Config {
	return Config{Attack: 20, Decay: 1, Threshold: 0.01}
}

// State is the per-binding memory carried between evaluation passes. It is
// addressed by binding ID, never by slice index, so registry churn around a
// binding leaves its envelope untouched.
type State struct {
	LastValue      float64 `json:"lastValue"`
	LastUpdateTime float64 `json:"lastUpdateTime"`
	Gated          bool    `json:"gated"`
}

// Shape advances the envelope from state toward target at the given time and
// returns the shaped value plus the successor state. It is pure: the same
// inputs always produce the same outputs, which is what keeps live preview and
// frame-exact export in agreement when they traverse the same timestamps.
//
// At or above the threshold the value rises toward target at the attack rate;
// below it the value decays exponentially toward zero. A non-positive dt
// (repeated frame, clock rewind) returns the previous value unchanged.
func Shape(state State, target, now float64, cfg Config) (float64, State) {
	dt := now - state.LastUpdateTime
	if dt <= 0 {
		return state.LastValue, state
	}

	value := state.LastValue
	gated := target < cfg.Threshold
	if gated {
		if cfg.Decay > 0 {
			value *= math.Exp(-cfg.Decay * dt)
		}
	} else {
		if cfg.Attack > 0 {
			// one-pole rise toward the target
			value += (target - value) * (1 - math.Exp(-cfg.Attack*dt))
		} else {
			value = target
		}
	}

	return value, State{LastValue: value, LastUpdateTime: now, Gated: gated}
}
