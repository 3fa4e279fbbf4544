// Package binding defines the rules that connect one audio or MIDI signal to
// one visual target property, and the registry that owns them.
package binding

import (
	"encoding/json"
	"fmt"

	"github.com/guidoenr/vizbind/internal/blend"
	"github.com/guidoenr/vizbind/internal/curve"
	"github.com/guidoenr/vizbind/internal/envelope"
	"github.com/guidoenr/vizbind/internal/mapping"
)

// PropertyCategory groups target properties by what they drive on a layer.
type PropertyCategory string

const (
	CategoryTransform PropertyCategory = "transform"
	CategoryVisual    PropertyCategory = "visual"
	CategoryTiming    PropertyCategory = "timing"
)

// TargetProperty identifies the visual parameter a binding drives,
// e.g. transform.scaleX or visual.opacity.
type TargetProperty struct {
	Category  PropertyCategory `json:"category"`
	Name      string           `json:"name"`
	Component string           `json:"component,omitempty"`
}

// Key returns the stable property key used in resolved snapshots.
func (p TargetProperty) Key() string {
	if p.Component != "" {
		return fmt.Sprintf("%s.%s.%s", p.Category, p.Name, p.Component)
	}
	return fmt.Sprintf("%s.%s", p.Category, p.Name)
}

// SourceKind discriminates the signal source union.
type SourceKind string

const (
	SourceAudioFeature SourceKind = "audio_feature"
	SourceMIDI         SourceKind = "midi"
)

// MIDIKind is the flavor of MIDI signal a binding listens to.
type MIDIKind string

const (
	MIDINoteVelocity    MIDIKind = "note_velocity"
	MIDINoteOnOff       MIDIKind = "note_on_off"
	MIDICC              MIDIKind = "cc"
	MIDIPitchBend       MIDIKind = "pitch_bend"
	MIDIChannelPressure MIDIKind = "channel_pressure"
	MIDIAftertouch      MIDIKind = "aftertouch"
)

// Source is a tagged union: an audio feature on a stem, or a MIDI signal.
// Kind selects which field group is meaningful.
type Source struct {
	Kind SourceKind `json:"kind"`

	// audio_feature fields
	FeatureID string `json:"featureId,omitempty"`
	StemType  string `json:"stemType,omitempty"`

	// midi fields; Channel/Note/Controller use -1 for "match any"
	MIDIType   MIDIKind `json:"midiType,omitempty"`
	Channel    int      `json:"channel"`
	Note       int      `json:"note"`
	Controller int      `json:"controller"`
}

// UnmarshalJSON defaults omitted channel/note/controller to the -1 wildcard.
// Channels are 1-based on the wire, so a literal zero from Go's default
// decoding would match nothing and leave the binding permanently dead.
func (s *Source) UnmarshalJSON(data []byte) error {
	type alias Source
	aux := struct {
		Channel    *int `json:"channel"`
		Note       *int `json:"note"`
		Controller *int `json:"controller"`
		*alias
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Channel = intOrWildcard(aux.Channel)
	s.Note = intOrWildcard(aux.Note)
	s.Controller = intOrWildcard(aux.Controller)
	return nil
}

func intOrWildcard(v *int) int {
	if v == nil {
		return -1
	}
	return *v
}

// AudioSource builds a feature source for the given stem.
func AudioSource(stemType, featureID string) Source {
	return Source{Kind: SourceAudioFeature, StemType: stemType, FeatureID: featureID, Channel: -1, Note: -1, Controller: -1}
}

// MIDISource builds a MIDI source. Pass -1 for channel/note/controller wildcards.
func MIDISource(kind MIDIKind, channel, note, controller int) Source {
	return Source{Kind: SourceMIDI, MIDIType: kind, Channel: channel, Note: note, Controller: controller}
}

// Validate checks the union is internally consistent.
func (s Source) Validate() error {
	switch s.Kind {
	case SourceAudioFeature:
		if s.FeatureID == "" {
			return fmt.Errorf("audio source: empty feature id")
		}
		return nil
	case SourceMIDI:
		switch s.MIDIType {
		case MIDINoteVelocity, MIDINoteOnOff, MIDICC, MIDIPitchBend, MIDIChannelPressure, MIDIAftertouch:
			return nil
		default:
			return fmt.Errorf("midi source: unknown kind %q", s.MIDIType)
		}
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}
}

// Binding is one mapping rule: source signal → target property.
type Binding struct {
	ID       string          `json:"id"`
	LayerID  string          `json:"layerId"`
	Target   TargetProperty  `json:"target"`
	Source   Source          `json:"source"`
	Mapping  mapping.Mapping `json:"mapping"`
	Curve    curve.Curve     `json:"curve"`
	Envelope envelope.Config `json:"envelope"`
	Enabled  bool            `json:"enabled"`
	Weight   float64         `json:"weight"`
	Blend    blend.Mode      `json:"blendMode"`
}

// UnmarshalJSON applies the documented weight default of 1 when the field is
// omitted, while keeping an explicit zero weight intact.
func (b *Binding) UnmarshalJSON(data []byte) error {
	type alias Binding
	aux := struct {
		Weight *float64 `json:"weight"`
		*alias
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Weight == nil {
		b.Weight = 1
	} else {
		b.Weight = *aux.Weight
	}
	return nil
}

// Validate surfaces configuration errors at edit time so the evaluation pass
// never has to report them per frame.
func (b Binding) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("binding: empty id")
	}
	if b.LayerID == "" {
		return fmt.Errorf("binding %s: empty layer id", b.ID)
	}
	if err := b.Source.Validate(); err != nil {
		return fmt.Errorf("binding %s: %w", b.ID, err)
	}
	if err := b.Mapping.Validate(); err != nil {
		return fmt.Errorf("binding %s: %w", b.ID, err)
	}
	if err := b.Curve.Validate(); err != nil {
		return fmt.Errorf("binding %s: %w", b.ID, err)
	}
	if !b.Blend.Valid() {
		return fmt.Errorf("binding %s: unknown blend mode %q", b.ID, b.Blend)
	}
	return nil
}
