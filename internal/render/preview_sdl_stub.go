//go:build !sdl

package render

import (
	"errors"

	"github.com/guidoenr/vizbind/internal/engine"
)

type sdlState struct{}

func (p *Preview) initSDL(width, height int) error {
	return errors.New("SDL backend not enabled; rebuild with -tags sdl")
}

func (p *Preview) renderSDL(snap engine.Snapshot) Frame {
	return Frame{
		Status: "SDL backend unavailable (build without -tags sdl)",
		Present: func() error {
			return ErrPreviewQuit
		},
	}
}

func (p *Preview) resizeSDL() {}

func (p *Preview) closeSDL() error { return nil }

func (p *Preview) windowedSDL() bool { return false }

func SupportsSDL() bool { return false }
