package analyzer

import (
	"fmt"

	"github.com/guidoenr/vizbind/internal/source"
)

// Feature IDs published by the producer.
const (
	FeatureRMS    = "rms"
	FeatureBass   = "bass"
	FeatureMid    = "mid"
	FeatureTreble = "treble"
	FeatureBeat   = "beat"
)

// FeatureIDs lists everything the producer publishes per stem.
func FeatureIDs() []string {
	return []string{FeatureRMS, FeatureBass, FeatureMid, FeatureTreble, FeatureBeat}
}

// Producer turns a stem's sample stream into finalized feature buffers at a
// fixed analysis frame rate.
type Producer struct {
	stemType  string
	frameRate float64
	analyzer  *Analyzer

	frames []Frame
}

// NewProducer creates a producer for one stem.
func NewProducer(stemType string, sampleRate, frameRate float64) (*Producer, error) {
	if frameRate <= 0 {
		return nil, fmt.Errorf("producer %s: non-positive frame rate %.2f", stemType, frameRate)
	}
	return &Producer{
		stemType:  stemType,
		frameRate: frameRate,
		analyzer:  New(Config{SampleRate: sampleRate}),
	}, nil
}

// Push analyzes one window of samples and appends the resulting frame. Live
// capture calls this once per analysis tick; offline processing calls it once
// per hop over the whole track.
func (p *Producer) Push(samples []float32) {
	p.frames = append(p.frames, p.analyzer.Analyze(samples))
}

// FrameCount returns the number of accumulated frames.
func (p *Producer) FrameCount() int {
	return len(p.frames)
}

// Publish writes the accumulated frames into the store as one buffer per
// feature. It can be called repeatedly while frames keep arriving; each call
// replaces the stem's buffers with the longer series.
func (p *Producer) Publish(store *source.FeatureStore) error {
	series := map[string][]float64{
		FeatureRMS:    make([]float64, len(p.frames)),
		FeatureBass:   make([]float64, len(p.frames)),
		FeatureMid:    make([]float64, len(p.frames)),
		FeatureTreble: make([]float64, len(p.frames)),
		FeatureBeat:   make([]float64, len(p.frames)),
	}
	for i, f := range p.frames {
		series[FeatureRMS][i] = f.RMS
		series[FeatureBass][i] = f.Bass
		series[FeatureMid][i] = f.Mid
		series[FeatureTreble][i] = f.Treble
		series[FeatureBeat][i] = f.Beat
	}

	for featureID, values := range series {
		err := store.Publish(&source.FeatureBuffer{
			StemType:  p.stemType,
			FeatureID: featureID,
			FrameRate: p.frameRate,
			Values:    values,
		})
		if err != nil {
			return fmt.Errorf("publish %s/%s: %w", p.stemType, featureID, err)
		}
	}
	return nil
}

// AnalyzeTrack is the offline path: it slices a whole track into hops at the
// producer's frame rate, analyzes every window and publishes the result.
func AnalyzeTrack(store *source.FeatureStore, stemType string, samples []float32, sampleRate, frameRate float64) error {
	p, err := NewProducer(stemType, sampleRate, frameRate)
	if err != nil {
		return err
	}
	hop := int(sampleRate / frameRate)
	if hop <= 0 {
		return fmt.Errorf("analyze %s: hop collapsed to zero", stemType)
	}
	for start := 0; start < len(samples); start += hop {
		end := start + hop
		if end > len(samples) {
			end = len(samples)
		}
		p.Push(samples[start:end])
	}
	return p.Publish(store)
}
