// Package analyzer extracts per-frame audio features from raw samples and
// publishes them as time-indexed buffers for the binding engine. It is the
// upstream producer; the engine only ever reads finalized buffers.
package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// Frame is one analysis frame: spectral band energies plus rhythmic cues,
// all normalized to [0,1].
type Frame struct {
	RMS    float64
	Bass   float64
	Mid    float64
	Treble float64
	Beat   float64
}

// Config controls the analyzer.
type Config struct {
	SampleRate float64
	WindowSize int
}

// Analyzer performs FFT band analysis over successive windows. It keeps peak
// followers between windows so band energies are normalized against recent
// program level.
type Analyzer struct {
	sampleRate float64
	windowSize int

	bassPeak   float64
	midPeak    float64
	treblePeak float64
	lastBass   float64
	beatPulse  float64

	buffer []complex128
	window []float64
}

// New creates an analyzer with sensible defaults.
func New(cfg Config) *Analyzer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 2048
	}
	return &Analyzer{
		sampleRate: cfg.SampleRate,
		windowSize: cfg.WindowSize,
	}
}

// Analyze computes the feature frame for one window of mono samples.
func (a *Analyzer) Analyze(samples []float32) Frame {
	if len(samples) == 0 {
		return Frame{}
	}

	size := nextPow2(minInt(len(samples), a.windowSize))
	if size < 256 {
		size = 256
	}
	a.ensureWorkspace(size)

	buffer := a.buffer[:size]
	window := a.window[:size]
	var sumSquares float64
	for i := 0; i < size; i++ {
		if i < len(samples) {
			s := float64(samples[i])
			sumSquares += s * s
			buffer[i] = complex(s*window[i], 0)
		} else {
			buffer[i] = 0
		}
	}

	spectrum := fft.FFT(buffer)
	resolution := a.sampleRate / float64(size)

	bass := bandEnergy(spectrum, resolution, 20, 250)
	mid := bandEnergy(spectrum, resolution, 250, 2000)
	treble := bandEnergy(spectrum, resolution, 2000, 8000)

	a.bassPeak = follow(a.bassPeak, bass)
	a.midPeak = follow(a.midPeak, mid)
	a.treblePeak = follow(a.treblePeak, treble)

	bassOut := normalize(bass, a.bassPeak)
	midOut := normalize(mid, a.midPeak)
	trebleOut := normalize(treble, a.treblePeak)

	beat := clamp((bass-a.lastBass)*14.0, 0, 1)
	if beat > 0.12 {
		a.beatPulse = 1.0
	}
	a.beatPulse *= 0.88
	beat = math.Min(1.0, beat+a.beatPulse*0.7)
	a.lastBass = bass

	rms := math.Min(1.0, math.Sqrt(sumSquares/float64(minInt(len(samples), size)))*2)

	return Frame{
		RMS:    rms,
		Bass:   bassOut,
		Mid:    midOut,
		Treble: trebleOut,
		Beat:   beat,
	}
}

func (a *Analyzer) ensureWorkspace(size int) {
	if len(a.buffer) >= size && len(a.window) >= size {
		return
	}
	a.buffer = make([]complex128, size)
	a.window = make([]float64, size)
	for i := range a.window {
		// Hann window
		a.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
}

func bandEnergy(spectrum []complex128, resolution, minHz, maxHz float64) float64 {
	if minHz >= maxHz || resolution <= 0 {
		return 0
	}
	lo := int(math.Floor(minHz / resolution))
	hi := int(math.Ceil(maxHz/resolution)) + 1
	if hi > len(spectrum)/2 {
		hi = len(spectrum) / 2
	}
	if lo >= hi {
		return 0
	}
	sum := 0.0
	for _, c := range spectrum[lo:hi] {
		sum += math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
	}
	normalized := sum / float64(hi-lo)
	if normalized > 1.0 {
		return 1.0
	}
	return normalized
}

// follow is a peak follower: fast rise, slow release.
func follow(current, input float64) float64 {
	if input > current {
		return current*0.94 + input*0.06
	}
	return current * 0.97
}

// normalize expands a band value against its running peak.
func normalize(value, peak float64) float64 {
	if peak < 0.01 {
		return value
	}
	ratio := value / peak
	if ratio < 0 {
		ratio = 0
	}
	out := math.Pow(ratio, 0.7) * peak
	if out > 1.0 {
		return 1.0
	}
	return out
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
