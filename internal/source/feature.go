// Package source resolves the current value of a named audio feature or MIDI
// signal at a point in time, reading from buffers written by the upstream
// analysis and MIDI producers.
package source

import (
	"fmt"
	"sync"
)

// FeatureBuffer is one per-stem, per-feature time series. Frames are spaced at
// the analysis frame rate; once Finalize is called the buffer is read-only.
type FeatureBuffer struct {
	StemType  string    `json:"stemType"`
	FeatureID string    `json:"featureId"`
	FrameRate float64   `json:"frameRate"`
	Values    []float64 `json:"values"`
	finalized bool
}

// Duration returns the covered time span in seconds.
func (b *FeatureBuffer) Duration() float64 {
	if b.FrameRate <= 0 {
		return 0
	}
	return float64(len(b.Values)) / b.FrameRate
}

// At returns the value of the nearest frame at or before t. The second result
// is false when the buffer holds no data for that time yet.
func (b *FeatureBuffer) At(t float64) (float64, bool) {
	if b == nil || len(b.Values) == 0 || b.FrameRate <= 0 || t < 0 {
		return 0, false
	}
	idx := int(t * b.FrameRate)
	if idx >= len(b.Values) {
		return 0, false
	}
	return b.Values[idx], true
}

// FeatureStore holds the analysis buffers for every stem/feature pair. Writers
// append whole buffers; the binding engine only reads finalized data, so a
// buffer that is still being produced is reported as missing rather than
// partially read.
type FeatureStore struct {
	mu      sync.RWMutex
	buffers map[string]*FeatureBuffer
}

// NewFeatureStore returns an empty store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{buffers: make(map[string]*FeatureBuffer)}
}

func bufferKey(stemType, featureID string) string {
	return stemType + "::" + featureID
}

// Publish finalizes a buffer and makes it visible to readers. Re-publishing a
// pair replaces the previous buffer wholesale.
func (s *FeatureStore) Publish(buf *FeatureBuffer) error {
	if buf == nil {
		return fmt.Errorf("nil feature buffer")
	}
	if buf.FrameRate <= 0 {
		return fmt.Errorf("feature buffer %s/%s: non-positive frame rate %.2f", buf.StemType, buf.FeatureID, buf.FrameRate)
	}
	buf.finalized = true

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[bufferKey(buf.StemType, buf.FeatureID)] = buf
	return nil
}

// Value reads the feature value at time t. Missing stems, features, or
// not-yet-analyzed regions yield (0, false); the engine surfaces the false as
// a stale flag instead of blocking the frame.
func (s *FeatureStore) Value(stemType, featureID string, t float64) (float64, bool) {
	s.mu.RLock()
	buf := s.buffers[bufferKey(stemType, featureID)]
	s.mu.RUnlock()

	if buf == nil || !buf.finalized {
		return 0, false
	}
	return buf.At(t)
}

// Stems lists the stem types with at least one published buffer.
func (s *FeatureStore) Stems() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, buf := range s.buffers {
		if !seen[buf.StemType] {
			seen[buf.StemType] = true
			out = append(out, buf.StemType)
		}
	}
	return out
}
