// Package engine runs the per-frame evaluation pass: pull source values at the
// clock's current time, map and shape them per binding, blend the results over
// the base parameter values and emit one resolved snapshot for rendering.
package engine

import (
	"log"
	"os"
	"sort"
	"sync"

	"github.com/guidoenr/vizbind/internal/binding"
	"github.com/guidoenr/vizbind/internal/blend"
	"github.com/guidoenr/vizbind/internal/clock"
	"github.com/guidoenr/vizbind/internal/cycling"
	"github.com/guidoenr/vizbind/internal/envelope"
	"github.com/guidoenr/vizbind/internal/mapping"
	"github.com/guidoenr/vizbind/internal/source"
)

// Trigger advances a layer's playlist whenever its source crosses the
// threshold on a rising edge. The source value at the crossing is carried as
// the velocity for velocity_mapped playlists.
type Trigger struct {
	LayerID   string         `json:"layerId"`
	Source    binding.Source `json:"source"`
	Threshold float64        `json:"threshold"`
}

// Config wires the engine to its collaborators. Registry, Cycler and the
// stores are owned by the session, not by the engine, so several engines can
// be tested in isolation.
type Config struct {
	Registry *binding.Registry
	Resolver *source.Resolver
	Cycler   *cycling.Engine
	Log      *log.Logger

	// DefaultEnvelope is used where a binding carries a zero envelope config.
	DefaultEnvelope envelope.Config
}

// Engine evaluates all bindings against a clock. One Evaluate call per frame,
// in a single goroutine: envelope state and playlist indices advance exactly
// once per pass.
type Engine struct {
	registry *binding.Registry
	resolver *source.Resolver
	cycler   *cycling.Engine
	log      *log.Logger

	defaultEnv envelope.Config

	mu            sync.RWMutex
	lastEval      float64
	hasEval       bool
	baseValues    map[string]float64 // effectInstanceID::paramName
	featureDecay  map[string]float64
	featureSens   map[string]float64
	triggers      []Trigger
	triggerLast   map[int]float64
	warnedBinding map[string]bool
}

// New builds an engine. A nil logger falls back to stderr.
func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	if cfg.DefaultEnvelope == (envelope.Config{}) {
		cfg.DefaultEnvelope = envelope.DefaultConfig()
	}
	return &Engine{
		registry:      cfg.Registry,
		resolver:      cfg.Resolver,
		cycler:        cfg.Cycler,
		log:           cfg.Log,
		defaultEnv:    cfg.DefaultEnvelope,
		baseValues:    make(map[string]float64),
		featureDecay:  make(map[string]float64),
		featureSens:   make(map[string]float64),
		triggerLast:   make(map[int]float64),
		warnedBinding: make(map[string]bool),
	}
}

// baseKey builds the composite key so effect instances sharing a parameter
// name never collide.
func baseKey(instanceID, param string) string {
	return instanceID + "::" + param
}

// SetBaseValue stores the manual (pre-binding) value of one parameter.
func (e *Engine) SetBaseValue(instanceID, param string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseValues[baseKey(instanceID, param)] = value
}

// BaseValue reads a manual parameter value; absent entries are 0.
func (e *Engine) BaseValue(instanceID, param string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseValues[baseKey(instanceID, param)]
}

// BaseValues returns a copy of all manual values keyed instanceID::param.
func (e *Engine) BaseValues() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]float64, len(e.baseValues))
	for k, v := range e.baseValues {
		out[k] = v
	}
	return out
}

// ImportBaseValues replaces the manual values wholesale (preset load).
func (e *Engine) ImportBaseValues(values map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseValues = make(map[string]float64, len(values))
	for k, v := range values {
		e.baseValues[k] = v
	}
}

// SetFeatureDecay overrides the decay rate used for bindings on one feature.
func (e *Engine) SetFeatureDecay(featureID string, decay float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.featureDecay[featureID] = decay
}

// SetFeatureSensitivity scales the raw value of one feature before mapping.
func (e *Engine) SetFeatureSensitivity(featureID string, sensitivity float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.featureSens[featureID] = sensitivity
}

// AddTrigger registers a playlist trigger. Triggers fire in the order added.
func (e *Engine) AddTrigger(t Trigger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.triggers = append(e.triggers, t)
}

// ClearTriggers drops all playlist triggers.
func (e *Engine) ClearTriggers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.triggers = nil
	e.triggerLast = make(map[int]float64)
}

// Evaluate runs one pass at the clock's current time and returns the resolved
// snapshot. Per-frame failures degrade: missing data contributes the neutral
// value and is listed as stale, structural problems skip the binding.
func (e *Engine) Evaluate(clk clock.Clock) Snapshot {
	now := clk.Now()

	// size the note-on pulse lookback to the evaluation interval so onsets
	// between two frames are still seen exactly once
	e.mu.Lock()
	if e.hasEval && now > e.lastEval {
		e.resolver.SetPulseWindow(now - e.lastEval)
	}
	e.lastEval = now
	e.hasEval = true
	e.mu.Unlock()

	snap := Snapshot{
		Time:   now,
		Params: make(map[string]map[string]float64),
		Assets: make(map[string]string),
	}

	layerIDs := e.registry.LayerIDs()
	sort.Strings(layerIDs)

	for _, layerID := range layerIDs {
		values := e.evaluateLayer(layerID, now, &snap)
		if len(values) > 0 {
			snap.Params[layerID] = values
		}
	}

	e.fireTriggers(now, &snap)

	// layers with playlists but no trigger activity still report their asset
	for _, layerID := range e.cycler.LayerIDs() {
		if _, done := snap.Assets[layerID]; done {
			continue
		}
		if asset, ok := e.cycler.Current(layerID); ok {
			snap.Assets[layerID] = asset
		}
	}

	return snap
}

// contribution pairs a property key with a blend input, keeping binding
// registration order inside the slice.
type propContribs struct {
	order []string
	byKey map[string][]blend.Contribution
}

func (e *Engine) evaluateLayer(layerID string, now float64, snap *Snapshot) map[string]float64 {
	bindings := e.registry.ForLayer(layerID)
	if len(bindings) == 0 {
		return nil
	}

	contribs := propContribs{byKey: make(map[string][]blend.Contribution)}

	for _, b := range bindings {
		if !b.Enabled {
			continue
		}

		raw, fresh := e.resolver.Value(b.Source, now)
		if !fresh {
			snap.Stale = append(snap.Stale, StaleEntry{LayerID: layerID, BindingID: b.ID})
		}
		raw = e.applySensitivity(b.Source, raw)

		if err := b.Mapping.Validate(); err != nil {
			e.warnOnce(b.ID, err)
			continue
		}

		mapped := mapping.Resolve(raw, b.Mapping, b.Curve)

		state := e.registry.Envelope(b.ID)
		shaped, next := envelope.Shape(state, mapped, now, e.envelopeFor(b))
		e.registry.SetEnvelope(b.ID, next)

		key := b.Target.Key()
		if _, seen := contribs.byKey[key]; !seen {
			contribs.order = append(contribs.order, key)
		}
		contribs.byKey[key] = append(contribs.byKey[key], blend.Contribution{
			Value:  shaped,
			Weight: b.Weight,
			Mode:   b.Blend,
		})
	}

	if len(contribs.order) == 0 {
		return nil
	}

	values := make(map[string]float64, len(contribs.order))
	for _, key := range contribs.order {
		base := e.BaseValue(layerID, key)
		values[key] = blend.Compose(base, contribs.byKey[key])
	}
	return values
}

// envelopeFor picks the binding's envelope config, falling back to the engine
// default plus any per-feature decay override.
func (e *Engine) envelopeFor(b binding.Binding) envelope.Config {
	cfg := b.Envelope
	if cfg == (envelope.Config{}) {
		cfg = e.defaultEnv
	}
	if b.Source.Kind == binding.SourceAudioFeature {
		e.mu.RLock()
		if decay, ok := e.featureDecay[b.Source.FeatureID]; ok {
			cfg.Decay = decay
		}
		e.mu.RUnlock()
	}
	return cfg
}

func (e *Engine) applySensitivity(src binding.Source, raw float64) float64 {
	if src.Kind != binding.SourceAudioFeature {
		return raw
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if sens, ok := e.featureSens[src.FeatureID]; ok {
		return raw * sens
	}
	return raw
}

// fireTriggers checks every trigger for a rising edge through its threshold
// and advances the matching playlist once per crossing.
func (e *Engine) fireTriggers(now float64, snap *Snapshot) {
	e.mu.Lock()
	triggers := make([]Trigger, len(e.triggers))
	copy(triggers, e.triggers)
	e.mu.Unlock()

	for i, trig := range triggers {
		value, _ := e.resolver.Value(trig.Source, now)

		e.mu.Lock()
		last := e.triggerLast[i]
		e.triggerLast[i] = value
		e.mu.Unlock()

		if value >= trig.Threshold && last < trig.Threshold {
			if asset, ok := e.cycler.Next(trig.LayerID, value); ok {
				snap.Assets[trig.LayerID] = asset
			}
		}
	}
}

// TestBinding resolves a binding against a probe value without touching
// envelope or registry state, for the editing UI's "test" button.
func (e *Engine) TestBinding(b binding.Binding, probe float64) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return mapping.Resolve(probe, b.Mapping, b.Curve), nil
}

// warnOnce logs a binding's configuration problem a single time instead of
// once per frame.
func (e *Engine) warnOnce(bindingID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.warnedBinding[bindingID] {
		e.warnedBinding[bindingID] = true
		e.log.Printf("binding %s skipped: %v", bindingID, err)
	}
}
