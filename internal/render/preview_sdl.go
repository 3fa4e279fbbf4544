//go:build sdl

package render

import (
	"sort"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/guidoenr/vizbind/internal/engine"
)

type sdlState struct {
	initialized bool
	window      *sdl.Window
	renderer    *sdl.Renderer
	width       int
	height      int
	title       string
}

func (p *Preview) initSDL(width, height int) error {
	if p.sdl != nil {
		return nil
	}
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return err
	}
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 360
	}

	window, err := sdl.CreateWindow(
		"vizbind",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(width), int32(height),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return err
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return err
	}

	p.sdl = &sdlState{
		initialized: true,
		window:      window,
		renderer:    renderer,
		width:       width,
		height:      height,
	}
	return nil
}

// renderSDL draws each layer as a horizontal band and each property inside it
// as a filled bar, opacity-style properties modulating the band brightness.
func (p *Preview) renderSDL(snap engine.Snapshot) Frame {
	state := p.sdl
	status := p.renderTerminal(snap).Status

	return Frame{
		Status: status,
		Present: func() error {
			if status != state.title {
				_ = state.window.SetTitle("vizbind " + status)
				state.title = status
			}

			if err := state.renderer.SetDrawColor(12, 12, 16, 255); err != nil {
				return err
			}
			if err := state.renderer.Clear(); err != nil {
				return err
			}

			layerIDs := make([]string, 0, len(snap.Params))
			for layerID := range snap.Params {
				layerIDs = append(layerIDs, layerID)
			}
			sort.Strings(layerIDs)

			if len(layerIDs) > 0 {
				bandHeight := int32(state.height / len(layerIDs))
				for i, layerID := range layerIDs {
					props := make([]string, 0, len(snap.Params[layerID]))
					for prop := range snap.Params[layerID] {
						props = append(props, prop)
					}
					sort.Strings(props)
					drawBand(state, int32(i)*bandHeight, bandHeight, snap.Params[layerID], props)
				}
			}

			state.renderer.Present()
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch event.(type) {
				case *sdl.QuitEvent:
					return ErrPreviewQuit
				}
			}
			return nil
		},
	}
}

func drawBand(state *sdlState, top, height int32, values map[string]float64, props []string) {
	if len(props) == 0 || height <= 0 {
		return
	}
	barHeight := height / int32(len(props))
	if barHeight < 1 {
		barHeight = 1
	}
	for i, prop := range props {
		v := clampUnit(values[prop])
		hue := float64(i) / float64(len(props))
		r, g, b := bandColor(hue, 0.4+0.6*v)
		_ = state.renderer.SetDrawColor(r, g, b, 255)
		_ = state.renderer.FillRect(&sdl.Rect{
			X: 0,
			Y: top + int32(i)*barHeight,
			W: int32(v * float64(state.width)),
			H: barHeight - 1,
		})
	}
}

// bandColor is a tiny fixed-saturation HSV ramp.
func bandColor(hue, value float64) (uint8, uint8, uint8) {
	h := hue * 6
	f := h - float64(int(h))
	q := value * (1 - f)
	t := value * f
	v := uint8(value * 255)
	switch int(h) % 6 {
	case 0:
		return v, uint8(t * 255), 0
	case 1:
		return uint8(q * 255), v, 0
	case 2:
		return 0, v, uint8(t * 255)
	case 3:
		return 0, uint8(q * 255), v
	case 4:
		return uint8(t * 255), 0, v
	default:
		return v, 0, uint8(q * 255)
	}
}

func (p *Preview) resizeSDL() {}

func (p *Preview) closeSDL() error {
	if p.sdl == nil {
		return nil
	}
	if p.sdl.renderer != nil {
		p.sdl.renderer.Destroy()
	}
	if p.sdl.window != nil {
		p.sdl.window.Destroy()
	}
	if p.sdl.initialized {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
	}
	p.sdl = nil
	return nil
}

func (p *Preview) windowedSDL() bool { return p.sdl != nil }

func SupportsSDL() bool { return true }
