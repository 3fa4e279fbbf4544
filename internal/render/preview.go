// Package render draws resolved frame snapshots for monitoring: an ANSI
// terminal view by default, an SDL window when built with -tags sdl.
package render

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/guidoenr/vizbind/internal/engine"
)

// ErrPreviewQuit is returned by Present when the user closes the window.
var ErrPreviewQuit = errors.New("preview closed")

// Frame is one drawn preview frame. Lines is populated by the terminal
// backend; Present is set by the SDL backend and pushes the frame to screen.
type Frame struct {
	Lines   []string
	Status  string
	Present func() error
}

// Preview turns snapshots into frames.
type Preview struct {
	width   int
	height  int
	useANSI bool

	sdl *sdlState
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

// New creates a terminal preview.
func New(width, height int, useANSI bool) *Preview {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	return &Preview{width: width, height: height, useANSI: useANSI}
}

// Resize adjusts the drawing area, for terminal size changes.
func (p *Preview) Resize(width, height int) {
	if width > 0 {
		p.width = width
	}
	if height > 0 {
		p.height = height
	}
	p.resizeSDL()
}

// Render draws the snapshot. With the SDL backend active it fills the pixel
// buffer and returns a Present closure; otherwise it emits terminal lines.
func (p *Preview) Render(snap engine.Snapshot) Frame {
	if p.windowedSDL() {
		return p.renderSDL(snap)
	}
	return p.renderTerminal(snap)
}

// OpenWindow switches to the SDL backend. Fails when built without -tags sdl.
func (p *Preview) OpenWindow(width, height int) error {
	return p.initSDL(width, height)
}

// Close releases backend resources.
func (p *Preview) Close() error {
	return p.closeSDL()
}

func (p *Preview) renderTerminal(snap engine.Snapshot) Frame {
	layerIDs := make([]string, 0, len(snap.Params))
	for layerID := range snap.Params {
		layerIDs = append(layerIDs, layerID)
	}
	for layerID := range snap.Assets {
		if _, ok := snap.Params[layerID]; !ok {
			layerIDs = append(layerIDs, layerID)
		}
	}
	sort.Strings(layerIDs)

	stale := make(map[string]bool, len(snap.Stale))
	for _, s := range snap.Stale {
		stale[s.LayerID] = true
	}

	lines := make([]string, 0, p.height)
	for _, layerID := range layerIDs {
		if len(lines) >= p.height {
			break
		}
		header := layerID
		if asset, ok := snap.Assets[layerID]; ok {
			header += "  asset=" + asset
		}
		if stale[layerID] {
			header += "  (stale)"
		}
		lines = append(lines, truncate(header, p.width))

		props := make([]string, 0, len(snap.Params[layerID]))
		for prop := range snap.Params[layerID] {
			props = append(props, prop)
		}
		sort.Strings(props)
		for _, prop := range props {
			if len(lines) >= p.height {
				break
			}
			lines = append(lines, p.barLine(prop, snap.Params[layerID][prop]))
		}
	}

	status := fmt.Sprintf("t=%.3f layers=%d", snap.Time, len(layerIDs))
	if len(snap.Stale) > 0 {
		status += fmt.Sprintf(" stale=%d", len(snap.Stale))
	}
	return Frame{Lines: lines, Status: status}
}

// barLine draws one property as a fixed-width label plus a bar. Values outside
// [0,1] still render, pinned to the bar ends.
func (p *Preview) barLine(prop string, value float64) string {
	const labelWidth = 24
	label := prop
	if len(label) > labelWidth {
		label = label[:labelWidth]
	}

	barWidth := p.width - labelWidth - 12
	if barWidth < 4 {
		barWidth = 4
	}
	filled := int(clampUnit(value) * float64(barWidth))

	var b strings.Builder
	fmt.Fprintf(&b, "  %-*s ", labelWidth, label)
	if p.useANSI {
		b.WriteString(precomputedANSI[barColor(value)])
	}
	b.WriteString(strings.Repeat("█", filled))
	b.WriteString(strings.Repeat("░", barWidth-filled))
	if p.useANSI {
		b.WriteString(resetANSI)
	}
	fmt.Fprintf(&b, " %7.3f", value)
	return b.String()
}

// barColor maps the value to a 256-color ramp, green through yellow to red.
func barColor(value float64) int {
	switch {
	case value < 0.5:
		return 46 // green
	case value < 0.85:
		return 226 // yellow
	default:
		return 196 // red
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, width int) string {
	if width > 0 && len(s) > width {
		return s[:width]
	}
	return s
}
