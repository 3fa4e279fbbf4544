package source

import "github.com/guidoenr/vizbind/internal/binding"

// Resolver answers "what is this source worth at time t" against the two
// upstream stores. It holds no playback state, only the configured pulse
// window; all temporal shaping happens downstream in the envelope.
type Resolver struct {
	features    *FeatureStore
	midi        *MIDIState
	pulseWindow float64
}

// NewResolver wires a resolver to its stores. Either store may be shared with
// producers that keep writing while playback runs.
func NewResolver(features *FeatureStore, midi *MIDIState) *Resolver {
	return &Resolver{features: features, midi: midi, pulseWindow: DefaultPulseWindow}
}

// SetPulseWindow sizes the note-on lookback to the evaluation interval so a
// pulse between two frames is seen on the next one. Non-positive values are
// ignored. The caller evaluates single-threaded per the concurrency model, so
// no locking is needed here.
func (r *Resolver) SetPulseWindow(seconds float64) {
	if seconds > 0 {
		r.pulseWindow = seconds
	}
}

// Value resolves the source at time t. The boolean reports data availability:
// a false means the neutral 0 was substituted (feature not analyzed yet, or a
// malformed source) and the caller may surface a stale flag to the UI.
func (r *Resolver) Value(src binding.Source, t float64) (float64, bool) {
	switch src.Kind {
	case binding.SourceAudioFeature:
		if r.features == nil {
			return 0, false
		}
		return r.features.Value(src.StemType, src.FeatureID, t)
	case binding.SourceMIDI:
		if r.midi == nil {
			return 0, false
		}
		return r.midiValue(src, t), true
	default:
		return 0, false
	}
}

func (r *Resolver) midiValue(src binding.Source, t float64) float64 {
	switch src.MIDIType {
	case binding.MIDINoteVelocity:
		return r.midi.NoteVelocity(src.Channel, src.Note, t, r.pulseWindow)
	case binding.MIDINoteOnOff:
		return r.midi.NoteOn(src.Channel, src.Note, t)
	case binding.MIDICC:
		return r.midi.CC(src.Channel, src.Controller, t)
	case binding.MIDIPitchBend:
		return r.midi.PitchBend(src.Channel, t)
	case binding.MIDIChannelPressure, binding.MIDIAftertouch:
		return r.midi.ChannelPressure(src.Channel, t)
	default:
		return 0
	}
}
