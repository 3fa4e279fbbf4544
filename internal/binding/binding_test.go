package binding

import (
	"encoding/json"
	"testing"

	"github.com/guidoenr/vizbind/internal/blend"
)

func TestDecodeDefaultsOmittedWeightToOne(t *testing.T) {
	var b Binding
	raw := `{"id":"b1","layerId":"layer1","enabled":true,"blendMode":"add"}`
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.Weight != 1 {
		t.Fatalf("omitted weight decoded to %f want 1", b.Weight)
	}
	// the default weight must carry through composition
	if got := blend.Compose(0, []blend.Contribution{{Value: 0.8, Weight: b.Weight, Mode: blend.Add}}); got != 0.8 {
		t.Fatalf("composed with decoded weight: %f want 0.8", got)
	}

	var explicit Binding
	if err := json.Unmarshal([]byte(`{"id":"b2","weight":0}`), &explicit); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if explicit.Weight != 0 {
		t.Fatalf("explicit zero weight decoded to %f want 0", explicit.Weight)
	}

	var half Binding
	if err := json.Unmarshal([]byte(`{"id":"b3","weight":0.5}`), &half); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if half.Weight != 0.5 {
		t.Fatalf("explicit weight decoded to %f want 0.5", half.Weight)
	}
}

func TestDecodeDefaultsOmittedMIDIFiltersToWildcard(t *testing.T) {
	var s Source
	raw := `{"kind":"midi","midiType":"note_on_off","note":60}`
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Channel != -1 || s.Controller != -1 {
		t.Fatalf("omitted filters decoded to channel=%d controller=%d want -1/-1", s.Channel, s.Controller)
	}
	if s.Note != 60 {
		t.Fatalf("note decoded to %d want 60", s.Note)
	}

	// explicit zeros are real values (note 0 is C-1, controller 0 is bank select)
	var explicit Source
	raw = `{"kind":"midi","midiType":"cc","channel":2,"note":0,"controller":0}`
	if err := json.Unmarshal([]byte(raw), &explicit); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if explicit.Channel != 2 || explicit.Note != 0 || explicit.Controller != 0 {
		t.Fatalf("explicit filters mangled: %+v", explicit)
	}
}

func TestSourceWildcardsSurviveRoundTrip(t *testing.T) {
	src := MIDISource(MIDINoteVelocity, -1, 60, -1)
	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Source
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != src {
		t.Fatalf("round trip changed source: %+v want %+v", back, src)
	}
}
