package app

import (
	"math"
	"math/rand"
)

// fakeSource synthesizes audio for -no-audio runs: a slow-pulsing bass tone,
// a mid tone and a little noise, with occasional kick bursts. Deterministic
// for a given seed and call sequence.
type fakeSource struct {
	rng       *rand.Rand
	phaseBass float64
	phaseMid  float64
	lfo       float64
	burst     float64
}

func newFakeSource(seed int64) *fakeSource {
	return &fakeSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (f *fakeSource) Next(delta, sampleRate float64, n int) []float32 {
	f.lfo += delta * 0.6
	if f.rng.Float64() < delta*1.5 {
		f.burst = 1.0
	}

	bassAmp := 0.35 + 0.3*math.Sin(f.lfo) + 0.5*f.burst
	midAmp := 0.2 + 0.15*math.Sin(f.lfo*1.7+0.5)

	out := make([]float32, n)
	bassStep := 2 * math.Pi * 60 / sampleRate
	midStep := 2 * math.Pi * 440 / sampleRate
	for i := range out {
		f.phaseBass += bassStep
		f.phaseMid += midStep
		s := bassAmp*math.Sin(f.phaseBass) +
			midAmp*math.Sin(f.phaseMid) +
			(f.rng.Float64()-0.5)*0.05
		out[i] = float32(s)
	}

	f.burst *= math.Exp(-6 * delta)
	return out
}
