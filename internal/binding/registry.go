package binding

import (
	"fmt"
	"sync"

	"github.com/guidoenr/vizbind/internal/envelope"
)

// Registry owns the active bindings and their envelope states. Bindings are
// keyed by their globally unique ID; per-layer evaluation order is the order
// of registration and survives unrelated mutations, which keeps composition
// deterministic between live preview and export.
type Registry struct {
	mu        sync.RWMutex
	bindings  map[string]*Binding
	byLayer   map[string][]string // layerID -> binding IDs in registration order
	envelopes map[string]envelope.State
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings:  make(map[string]*Binding),
		byLayer:   make(map[string][]string),
		envelopes: make(map[string]envelope.State),
	}
}

// Register validates and adds a binding. Duplicate IDs are rejected: IDs are
// the stable address for envelope state and must never be reused in place.
func (r *Registry) Register(b Binding) error {
	if err := b.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bindings[b.ID]; exists {
		return fmt.Errorf("binding %s already registered", b.ID)
	}
	stored := b
	r.bindings[b.ID] = &stored
	r.byLayer[b.LayerID] = append(r.byLayer[b.LayerID], b.ID)
	return nil
}

// Update replaces the stored rule for an existing binding in place. The layer
// and evaluation slot stay fixed; envelope state is kept so tweaking a mapping
// mid-playback does not restart its attack.
func (r *Registry) Update(b Binding) error {
	if err := b.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.bindings[b.ID]
	if !exists {
		return fmt.Errorf("binding %s not registered", b.ID)
	}
	if current.LayerID != b.LayerID {
		return fmt.Errorf("binding %s: cannot move between layers (have %s, got %s)", b.ID, current.LayerID, b.LayerID)
	}
	stored := b
	r.bindings[b.ID] = &stored
	return nil
}

// Unregister removes one binding and discards its envelope state. Other
// bindings keep their slots and envelopes.
func (r *Registry) Unregister(bindingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, exists := r.bindings[bindingID]
	if !exists {
		return false
	}
	delete(r.bindings, bindingID)
	delete(r.envelopes, bindingID)
	r.byLayer[b.LayerID] = removeID(r.byLayer[b.LayerID], bindingID)
	if len(r.byLayer[b.LayerID]) == 0 {
		delete(r.byLayer, b.LayerID)
	}
	return true
}

// RemoveLayer drops all bindings of a deleted layer as a batch, envelope
// states included.
func (r *Registry) RemoveLayer(layerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byLayer[layerID]
	for _, id := range ids {
		delete(r.bindings, id)
		delete(r.envelopes, id)
	}
	delete(r.byLayer, layerID)
	return len(ids)
}

// Get returns a copy of the binding with the given ID.
func (r *Registry) Get(bindingID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, exists := r.bindings[bindingID]
	if !exists {
		return Binding{}, false
	}
	return *b, true
}

// ForLayer returns the layer's bindings in registration order.
func (r *Registry) ForLayer(layerID string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byLayer[layerID]
	out := make([]Binding, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.bindings[id])
	}
	return out
}

// ForTarget returns the layer's bindings driving one target property,
// in registration order.
func (r *Registry) ForTarget(layerID string, target TargetProperty) []Binding {
	key := target.Key()
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Binding
	for _, id := range r.byLayer[layerID] {
		b := r.bindings[id]
		if b.Target.Key() == key {
			out = append(out, *b)
		}
	}
	return out
}

// LayerIDs returns the layers that currently have bindings.
func (r *Registry) LayerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byLayer))
	for id := range r.byLayer {
		out = append(out, id)
	}
	return out
}

// All returns every registered binding grouped by layer in registration order.
func (r *Registry) All() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Binding
	for _, ids := range r.byLayer {
		for _, id := range ids {
			out = append(out, *r.bindings[id])
		}
	}
	return out
}

// Count returns the number of registered bindings.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// Envelope returns the binding's envelope state, creating it lazily on first use.
func (r *Registry) Envelope(bindingID string) envelope.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.envelopes[bindingID]
}

// SetEnvelope stores the successor envelope state after an evaluation pass.
// Writes for unknown bindings are dropped: the binding was removed mid-frame
// and its state must not be resurrected.
func (r *Registry) SetEnvelope(bindingID string, state envelope.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bindings[bindingID]; exists {
		r.envelopes[bindingID] = state
	}
}

func removeID(ids []string, target string) []string {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
