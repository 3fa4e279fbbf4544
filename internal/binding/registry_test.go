package binding

import (
	"testing"

	"github.com/guidoenr/vizbind/internal/blend"
	"github.com/guidoenr/vizbind/internal/curve"
	"github.com/guidoenr/vizbind/internal/envelope"
	"github.com/guidoenr/vizbind/internal/mapping"
)

func validBinding(id, layerID string) Binding {
	return Binding{
		ID:      id,
		LayerID: layerID,
		Target:  TargetProperty{Category: CategoryVisual, Name: "opacity"},
		Source:  AudioSource("drums", "rms"),
		Mapping: mapping.Mapping{InputMin: 0, InputMax: 1, OutputMin: 0, OutputMax: 1, Clamp: true},
		Curve:   curve.Curve{Type: curve.Linear},
		Enabled: true,
		Weight:  1,
		Blend:   blend.Add,
	}
}

func TestRegisterRejectsDuplicatesAndInvalid(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(validBinding("b1", "layer1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(validBinding("b1", "layer1")); err == nil {
		t.Fatalf("expected duplicate id rejection")
	}

	degenerate := validBinding("b2", "layer1")
	degenerate.Mapping.InputMax = degenerate.Mapping.InputMin
	if err := r.Register(degenerate); err == nil {
		t.Fatalf("expected degenerate mapping rejection")
	}

	bogusBlend := validBinding("b3", "layer1")
	bogusBlend.Blend = "screen"
	if err := r.Register(bogusBlend); err == nil {
		t.Fatalf("expected unknown blend mode rejection")
	}
}

func TestUnregisterKeepsOtherEnvelopes(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		if err := r.Register(validBinding(id, "layer1")); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	r.SetEnvelope("b", envelope.State{LastValue: 0.5, LastUpdateTime: 1})
	r.SetEnvelope("c", envelope.State{LastValue: 0.9, LastUpdateTime: 2})

	if !r.Unregister("a") {
		t.Fatalf("unregister a failed")
	}
	if got := r.Envelope("b").LastValue; got != 0.5 {
		t.Fatalf("envelope b disturbed: %f", got)
	}
	if got := r.Envelope("c").LastValue; got != 0.9 {
		t.Fatalf("envelope c disturbed: %f", got)
	}

	order := r.ForLayer("layer1")
	if len(order) != 2 || order[0].ID != "b" || order[1].ID != "c" {
		t.Fatalf("registration order broken: %+v", order)
	}
}

func TestRemoveLayerBatch(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b"} {
		if err := r.Register(validBinding(id, "layer1")); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := r.Register(validBinding("x", "layer2")); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.SetEnvelope("a", envelope.State{LastValue: 1})

	if removed := r.RemoveLayer("layer1"); removed != 2 {
		t.Fatalf("removed %d bindings, want 2", removed)
	}
	if r.Count() != 1 {
		t.Fatalf("count=%d want 1", r.Count())
	}
	if got := r.Envelope("a"); got != (envelope.State{}) {
		t.Fatalf("layer1 envelope survived removal: %+v", got)
	}
}

func TestForTarget(t *testing.T) {
	r := NewRegistry()
	opacity := validBinding("o1", "layer1")
	scale := validBinding("s1", "layer1")
	scale.Target = TargetProperty{Category: CategoryTransform, Name: "scale", Component: "x"}
	opacity2 := validBinding("o2", "layer1")

	for _, b := range []Binding{opacity, scale, opacity2} {
		if err := r.Register(b); err != nil {
			t.Fatalf("register %s: %v", b.ID, err)
		}
	}

	got := r.ForTarget("layer1", TargetProperty{Category: CategoryVisual, Name: "opacity"})
	if len(got) != 2 || got[0].ID != "o1" || got[1].ID != "o2" {
		t.Fatalf("target lookup: %+v", got)
	}
	if key := scale.Target.Key(); key != "transform.scale.x" {
		t.Fatalf("property key: %s", key)
	}
}

func TestUpdateKeepsEnvelopeAndLayer(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(validBinding("b1", "layer1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.SetEnvelope("b1", envelope.State{LastValue: 0.4, LastUpdateTime: 3})

	updated := validBinding("b1", "layer1")
	updated.Weight = 0.5
	if err := r.Update(updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := r.Get("b1"); got.Weight != 0.5 {
		t.Fatalf("update not applied: %+v", got)
	}
	if got := r.Envelope("b1").LastValue; got != 0.4 {
		t.Fatalf("update reset envelope: %f", got)
	}

	moved := validBinding("b1", "layer2")
	if err := r.Update(moved); err == nil {
		t.Fatalf("expected layer move rejection")
	}
}

func TestSetEnvelopeDropsUnknownBinding(t *testing.T) {
	r := NewRegistry()
	r.SetEnvelope("ghost", envelope.State{LastValue: 1})
	if got := r.Envelope("ghost"); got != (envelope.State{}) {
		t.Fatalf("ghost envelope stored: %+v", got)
	}
}
