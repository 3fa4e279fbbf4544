// Package cycling selects discrete assets from per-layer playlists. Unlike the
// scalar binding pipeline its output is an asset ID, but it is driven by the
// same clock and trigger signals and has to be just as deterministic: an export
// that re-renders frames must pick the same assets every pass.
package cycling

import (
	"fmt"
	"hash/fnv"
	"sync"
)

// CycleMode selects the next-asset policy.
type CycleMode string

const (
	Sequential     CycleMode = "sequential"
	Random         CycleMode = "random"
	VelocityMapped CycleMode = "velocity_mapped"
)

// TransitionType is how the renderer switches between assets.
type TransitionType string

const (
	Cut       TransitionType = "cut"
	Crossfade TransitionType = "crossfade"
)

// Playlist is an ordered set of assets cycled on one layer.
type Playlist struct {
	ID                 string         `json:"id"`
	LayerID            string         `json:"layerId"`
	AssetIDs           []string       `json:"assetIds"`
	CycleMode          CycleMode      `json:"cycleMode"`
	Transition         TransitionType `json:"transitionType"`
	TransitionDuration float64        `json:"transitionDuration"`
}

// layerState is the mutable cycling state kept per layer.
type layerState struct {
	currentIndex int
	history      []string
	seed         uint32
}

const (
	historyCap = 10

	// linear-congruential step; statistical quality is irrelevant here,
	// repeatability across export retries is the requirement
	lcgMul = 9301
	lcgAdd = 49297
	lcgMod = 233280
)

// Engine owns the playlists and their cycling state.
type Engine struct {
	mu        sync.RWMutex
	playlists map[string]*Playlist
	states    map[string]*layerState
}

// NewEngine returns an empty cycling engine.
func NewEngine() *Engine {
	return &Engine{
		playlists: make(map[string]*Playlist),
		states:    make(map[string]*layerState),
	}
}

// defaultSeed derives a stable per-layer seed so repeated loads of the same
// project cycle identically without persisting anything extra.
func defaultSeed(layerID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(layerID))
	return h.Sum32() % lcgMod
}

// SetPlaylist installs or replaces the playlist for its layer and resets the
// cycling state.
func (e *Engine) SetPlaylist(p Playlist) error {
	if p.LayerID == "" {
		return fmt.Errorf("playlist %s: empty layer id", p.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	stored := p
	stored.AssetIDs = append([]string(nil), p.AssetIDs...)
	e.playlists[p.LayerID] = &stored
	e.states[p.LayerID] = &layerState{seed: defaultSeed(p.LayerID)}
	return nil
}

// RemoveLayer destroys the layer's playlist together with its state.
func (e *Engine) RemoveLayer(layerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.playlists, layerID)
	delete(e.states, layerID)
}

// Playlist returns a copy of the layer's playlist.
func (e *Engine) Playlist(layerID string) (Playlist, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, exists := e.playlists[layerID]
	if !exists {
		return Playlist{}, false
	}
	out := *p
	out.AssetIDs = append([]string(nil), p.AssetIDs...)
	return out, true
}

// LayerIDs returns the layers that currently have playlists.
func (e *Engine) LayerIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.playlists))
	for id := range e.playlists {
		out = append(out, id)
	}
	return out
}

// Next advances the layer's playlist by one trigger and returns the selected
// asset. velocity only matters in velocity_mapped mode. An empty or missing
// playlist yields ("", false) and contributes nothing to the frame.
func (e *Engine) Next(layerID string, velocity float64) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.playlists[layerID]
	state := e.states[layerID]
	if p == nil || state == nil || len(p.AssetIDs) == 0 {
		return "", false
	}

	length := len(p.AssetIDs)
	var next int
	switch p.CycleMode {
	case Sequential:
		next = (state.currentIndex + 1) % length
	case Random:
		state.seed = (state.seed*lcgMul + lcgAdd) % lcgMod
		next = int(float64(state.seed) / lcgMod * float64(length))
	case VelocityMapped:
		next = velocityIndex(velocity, length)
	default:
		next = 0
	}
	if next >= length {
		next = length - 1
	}

	state.currentIndex = next
	asset := p.AssetIDs[next]
	state.history = append(state.history, asset)
	if len(state.history) > historyCap {
		state.history = state.history[len(state.history)-historyCap:]
	}
	return asset, true
}

func velocityIndex(velocity float64, length int) int {
	if velocity < 0 {
		velocity = 0
	} else if velocity > 127 {
		velocity = 127
	}
	idx := int(velocity / 127 * float64(length))
	if idx >= length {
		idx = length - 1
	}
	return idx
}

// Current returns the asset the layer is showing right now.
func (e *Engine) Current(layerID string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p := e.playlists[layerID]
	state := e.states[layerID]
	if p == nil || state == nil || len(p.AssetIDs) == 0 {
		return "", false
	}
	return p.AssetIDs[state.currentIndex], true
}

// CurrentIndex returns the layer's playlist position.
func (e *Engine) CurrentIndex(layerID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if state := e.states[layerID]; state != nil {
		return state.currentIndex
	}
	return 0
}

// History returns the recent selections, newest last, capped at ten entries.
func (e *Engine) History(layerID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state := e.states[layerID]
	if state == nil {
		return nil
	}
	return append([]string(nil), state.history...)
}

// Seed returns the layer's current LCG state, mainly for persistence.
func (e *Engine) Seed(layerID string) uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if state := e.states[layerID]; state != nil {
		return state.seed
	}
	return 0
}

// Restore reinstates persisted cycling state for a layer.
func (e *Engine) Restore(layerID string, currentIndex int, history []string, seed uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.playlists[layerID]
	state := e.states[layerID]
	if p == nil || state == nil {
		return false
	}
	state.currentIndex = clampIndex(currentIndex, len(p.AssetIDs))
	state.history = append([]string(nil), history...)
	if len(state.history) > historyCap {
		state.history = state.history[len(state.history)-historyCap:]
	}
	state.seed = seed % lcgMod
	return true
}

// AddAsset inserts an asset at position (or appends when position is out of
// range). The current index keeps pointing at the same logical asset.
func (e *Engine) AddAsset(layerID, assetID string, position int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.playlists[layerID]
	state := e.states[layerID]
	if p == nil || state == nil {
		return false
	}

	if position < 0 || position > len(p.AssetIDs) {
		position = len(p.AssetIDs)
	}
	p.AssetIDs = append(p.AssetIDs, "")
	copy(p.AssetIDs[position+1:], p.AssetIDs[position:])
	p.AssetIDs[position] = assetID

	if position <= state.currentIndex && len(p.AssetIDs) > 1 {
		state.currentIndex++
	}
	return true
}

// RemoveAsset deletes the first occurrence of the asset. Removing before the
// current index shifts it down; removing the current entry leaves the index
// pointing at the successor, clamped at the end.
func (e *Engine) RemoveAsset(layerID, assetID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.playlists[layerID]
	state := e.states[layerID]
	if p == nil || state == nil {
		return false
	}

	idx := -1
	for i, id := range p.AssetIDs {
		if id == assetID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	p.AssetIDs = append(p.AssetIDs[:idx], p.AssetIDs[idx+1:]...)
	if idx < state.currentIndex {
		state.currentIndex--
	}
	state.currentIndex = clampIndex(state.currentIndex, len(p.AssetIDs))
	return true
}

// MoveAsset reorders the playlist, remapping the current index so it tracks
// the same logical asset.
func (e *Engine) MoveAsset(layerID string, fromIndex, toIndex int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.playlists[layerID]
	state := e.states[layerID]
	if p == nil || state == nil {
		return false
	}
	length := len(p.AssetIDs)
	if fromIndex < 0 || fromIndex >= length || toIndex < 0 || toIndex >= length {
		return false
	}

	moved := p.AssetIDs[fromIndex]
	p.AssetIDs = append(p.AssetIDs[:fromIndex], p.AssetIDs[fromIndex+1:]...)
	rest := append([]string(nil), p.AssetIDs[toIndex:]...)
	p.AssetIDs = append(p.AssetIDs[:toIndex], moved)
	p.AssetIDs = append(p.AssetIDs, rest...)

	switch {
	case state.currentIndex == fromIndex:
		state.currentIndex = toIndex
	case state.currentIndex > fromIndex && state.currentIndex <= toIndex:
		state.currentIndex--
	case state.currentIndex < fromIndex && state.currentIndex >= toIndex:
		state.currentIndex++
	}
	return true
}

// Shuffle reorders the playlist with a Fisher-Yates pass driven by the
// layer's LCG, so shuffles replay identically on export retries. The current
// index follows the asset it pointed at.
func (e *Engine) Shuffle(layerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.playlists[layerID]
	state := e.states[layerID]
	if p == nil || state == nil || len(p.AssetIDs) == 0 {
		return false
	}

	current := p.AssetIDs[state.currentIndex]
	for i := len(p.AssetIDs) - 1; i > 0; i-- {
		state.seed = (state.seed*lcgMul + lcgAdd) % lcgMod
		j := int(float64(state.seed) / lcgMod * float64(i+1))
		if j > i {
			j = i
		}
		p.AssetIDs[i], p.AssetIDs[j] = p.AssetIDs[j], p.AssetIDs[i]
	}
	for i, id := range p.AssetIDs {
		if id == current {
			state.currentIndex = i
			break
		}
	}
	return true
}

// Stats summarizes a layer's cycling state for the UI.
type Stats struct {
	TotalAssets   int       `json:"totalAssets"`
	CurrentIndex  int       `json:"currentIndex"`
	CycleMode     CycleMode `json:"cycleMode"`
	HistoryLength int       `json:"historyLength"`
}

// LayerStats returns the layer's cycling summary.
func (e *Engine) LayerStats(layerID string) (Stats, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p := e.playlists[layerID]
	state := e.states[layerID]
	if p == nil || state == nil {
		return Stats{}, false
	}
	return Stats{
		TotalAssets:   len(p.AssetIDs),
		CurrentIndex:  state.currentIndex,
		CycleMode:     p.CycleMode,
		HistoryLength: len(state.history),
	}, true
}

func clampIndex(idx, length int) int {
	if length == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= length {
		return length - 1
	}
	return idx
}
