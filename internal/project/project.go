// Package project persists the binding/playlist/parameter state of a session
// as plain JSON and restores it tolerantly: a malformed entry is skipped and
// reported, the rest of the project still loads.
package project

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/guidoenr/vizbind/internal/binding"
	"github.com/guidoenr/vizbind/internal/cycling"
	"github.com/guidoenr/vizbind/internal/engine"
	"github.com/guidoenr/vizbind/internal/mapping"
)

// PlaylistState couples a playlist with its persisted cycling state so an
// export retry resumes the exact same selection sequence.
type PlaylistState struct {
	Playlist     cycling.Playlist `json:"playlist"`
	CurrentIndex int              `json:"currentIndex"`
	History      []string         `json:"history,omitempty"`
	Seed         uint32           `json:"seed"`
}

// Project is the serialized session state.
type Project struct {
	Bindings        []binding.Binding                 `json:"bindings"`
	Playlists       []PlaylistState                   `json:"playlists"`
	BaseValues      map[string]float64                `json:"baseValues,omitempty"`
	FeatureMappings map[string]mapping.FeatureMapping `json:"featureMappings,omitempty"`
	Triggers        []engine.Trigger                  `json:"triggers,omitempty"`
}

// Snapshot captures the current session into a serializable project.
func Snapshot(registry *binding.Registry, cycler *cycling.Engine, eng *engine.Engine) Project {
	p := Project{
		Bindings:   registry.All(),
		BaseValues: eng.BaseValues(),
	}
	for _, layerID := range cycler.LayerIDs() {
		playlist, ok := cycler.Playlist(layerID)
		if !ok {
			continue
		}
		p.Playlists = append(p.Playlists, PlaylistState{
			Playlist:     playlist,
			CurrentIndex: cycler.CurrentIndex(layerID),
			History:      cycler.History(layerID),
			Seed:         cycler.Seed(layerID),
		})
	}
	return p
}

// Apply restores a project into the given session objects. Entries that fail
// validation are skipped and collected; the returned slice is empty on a
// clean load.
func Apply(p Project, registry *binding.Registry, cycler *cycling.Engine, eng *engine.Engine) []error {
	var failed []error

	for _, b := range p.Bindings {
		if err := registry.Register(b); err != nil {
			failed = append(failed, fmt.Errorf("binding %s: %w", b.ID, err))
		}
	}

	for _, ps := range p.Playlists {
		if err := cycler.SetPlaylist(ps.Playlist); err != nil {
			failed = append(failed, fmt.Errorf("playlist %s: %w", ps.Playlist.ID, err))
			continue
		}
		cycler.Restore(ps.Playlist.LayerID, ps.CurrentIndex, ps.History, ps.Seed)
	}

	if p.BaseValues != nil {
		eng.ImportBaseValues(p.BaseValues)
	}
	for _, t := range p.Triggers {
		eng.AddTrigger(t)
	}

	return failed
}

// Encode marshals the project with stable indentation.
func Encode(p Project) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Decode unmarshals a project document.
func Decode(data []byte) (Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("decode project: %w", err)
	}
	return p, nil
}

// Save writes the project to disk.
func Save(path string, p Project) error {
	data, err := Encode(p)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a project from disk.
func Load(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("read project: %w", err)
	}
	return Decode(data)
}
