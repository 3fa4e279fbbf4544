// Package app wires the session together: capture feeds the analyzer, the
// engine evaluates bindings against the live clock, the preview and the web
// server consume the resolved snapshots.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"golang.org/x/term"

	"github.com/guidoenr/vizbind/internal/analyzer"
	"github.com/guidoenr/vizbind/internal/audio"
	"github.com/guidoenr/vizbind/internal/binding"
	"github.com/guidoenr/vizbind/internal/clock"
	"github.com/guidoenr/vizbind/internal/cycling"
	"github.com/guidoenr/vizbind/internal/engine"
	"github.com/guidoenr/vizbind/internal/project"
	"github.com/guidoenr/vizbind/internal/render"
	"github.com/guidoenr/vizbind/internal/source"
)

// StemMaster is the stem live capture publishes under. Offline stems carry
// their own names.
const StemMaster = "master"

// Config configures the application runtime.
type Config struct {
	DeviceName    string
	BufferSize    int
	TargetFPS     float64
	FrameRate     float64 // analysis frames per second
	DisableAudio  bool
	UseANSI       bool
	ShowStatusBar bool
	SDLWindow     bool
	ProjectPath   string
	ProfilePath   string
	Log           *log.Logger
}

type inputEvent int

const (
	inputEventAdvance inputEvent = iota
	inputEventQuit
)

// App ties together capture, analysis, evaluation and preview.
type App struct {
	cfg Config
	log *log.Logger

	registry *binding.Registry
	cycler   *cycling.Engine
	eng      *engine.Engine
	features *source.FeatureStore
	midi     *source.MIDIState

	capture  *audio.Capture
	producer *analyzer.Producer
	fake     *fakeSource

	preview *render.Preview
	clk     *clock.Live
	prof    *profiler

	start       time.Time
	last        time.Time
	width       int
	height      int
	inputEvents chan inputEvent

	mu     sync.RWMutex
	latest engine.Snapshot
}

// New constructs the application. The project at cfg.ProjectPath, when
// present, is loaded tolerantly before the first frame.
func New(cfg Config) (*App, error) {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = cfg.TargetFPS
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "", log.LstdFlags)
	}

	a := &App{
		cfg:      cfg,
		log:      cfg.Log,
		registry: binding.NewRegistry(),
		cycler:   cycling.NewEngine(),
		features: source.NewFeatureStore(),
		midi:     source.NewMIDIState(),
		width:    80,
		height:   24,
	}
	a.eng = engine.New(engine.Config{
		Registry: a.registry,
		Resolver: source.NewResolver(a.features, a.midi),
		Cycler:   a.cycler,
		Log:      cfg.Log,
	})
	a.preview = render.New(a.width, a.height, cfg.UseANSI)
	a.prof = newProfiler(cfg.ProfilePath, cfg.Log)

	if cfg.ProjectPath != "" {
		if p, err := project.Load(cfg.ProjectPath); err == nil {
			if failed := project.Apply(p, a.registry, a.cycler, a.eng); len(failed) > 0 {
				for _, ferr := range failed {
					a.log.Printf("project entry skipped: %v", ferr)
				}
			}
			a.log.Printf("loaded project %s (%d bindings)", cfg.ProjectPath, a.registry.Count())
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load project: %w", err)
		}
	}

	sampleRate := 44_100.0
	if cfg.DisableAudio {
		a.fake = newFakeSource(time.Now().UnixNano())
		a.log.Println("audio disabled, using synthetic generator")
	} else {
		capture, err := audio.NewCapture(audio.Config{
			DeviceName: cfg.DeviceName,
			BufferSize: cfg.BufferSize,
		})
		if err != nil {
			return nil, fmt.Errorf("audio capture: %w", err)
		}
		a.capture = capture
		sampleRate = capture.SampleRate()
		a.log.Printf("audio capture started on %q @ %.0f Hz", capture.DeviceName(), sampleRate)
	}

	producer, err := analyzer.NewProducer(StemMaster, sampleRate, cfg.FrameRate)
	if err != nil {
		return nil, err
	}
	a.producer = producer

	if cfg.SDLWindow {
		if err := a.preview.OpenWindow(0, 0); err != nil {
			return nil, fmt.Errorf("preview window: %w", err)
		}
	}
	return a, nil
}

// Session surface consumed by the web server.

func (a *App) Registry() *binding.Registry { return a.registry }
func (a *App) Cycler() *cycling.Engine     { return a.cycler }
func (a *App) Engine() *engine.Engine      { return a.eng }

// Latest returns the most recently resolved snapshot.
func (a *App) Latest() engine.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// MIDI exposes the event store so external inputs can feed it.
func (a *App) MIDI() *source.MIDIState { return a.midi }

// Run drives the live loop until context cancellation or a quit key.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / a.cfg.TargetFPS))
	defer ticker.Stop()

	if !a.cfg.SDLWindow {
		enterAltScreen()
		clearScreen()
		hideCursor()
		defer func() {
			showCursor()
			exitAltScreen()
		}()
	}

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	a.startInputListener(inputCtx)

	a.clk = clock.NewLive()
	a.start = time.Now()
	a.last = a.start
	a.ensureDimensions()

	for {
		select {
		case <-ctx.Done():
			moveCursorHome()
			return ctx.Err()
		case evt, ok := <-a.inputEvents:
			if !ok {
				a.inputEvents = nil
				continue
			}
			switch evt {
			case inputEventAdvance:
				a.advancePlaylists()
			case inputEventQuit:
				moveCursorHome()
				return nil
			}
		case <-ticker.C:
			if err := a.step(); err != nil {
				if err == render.ErrPreviewQuit {
					return nil
				}
				return err
			}
		}
	}
}

// Close releases held resources.
func (a *App) Close() error {
	_ = a.preview.Close()
	_ = a.prof.Close()
	if a.capture != nil {
		return a.capture.Close()
	}
	return nil
}

func (a *App) step() error {
	a.ensureDimensions()
	a.prof.beginFrame()

	now := time.Now()
	delta := now.Sub(a.last).Seconds()
	if delta <= 0 {
		delta = 1.0 / a.cfg.TargetFPS
	}
	a.last = now

	var samples []float32
	if a.capture != nil {
		samples = a.capture.Samples()
	} else if a.fake != nil {
		samples = a.fake.Next(delta, 44_100, 2048)
	}
	a.producer.Push(samples)
	if err := a.producer.Publish(a.features); err != nil {
		a.log.Printf("publish features: %v", err)
	}
	a.prof.markSection("analyze")

	a.clk.Tick(now.Sub(a.start).Seconds())
	snap := a.eng.Evaluate(a.clk)
	a.mu.Lock()
	a.latest = snap
	a.mu.Unlock()
	a.prof.markSection("evaluate")

	frame := a.preview.Render(snap)
	if frame.Present != nil {
		if err := frame.Present(); err != nil {
			return err
		}
	} else {
		moveCursorHome()
		for _, line := range frame.Lines {
			fmt.Print(line, "\x1b[K\n")
		}
		if a.cfg.ShowStatusBar {
			fmt.Print(frame.Status, "\x1b[K")
		}
	}
	a.prof.markSection("render")
	a.prof.endFrame(len(snap.Params), len(snap.Stale))
	return nil
}

func (a *App) advancePlaylists() {
	for _, layerID := range a.cycler.LayerIDs() {
		if asset, ok := a.cycler.Next(layerID, 0); ok {
			a.log.Printf("advance %s -> %s", layerID, asset)
		}
	}
}

func (a *App) ensureDimensions() {
	fd := int(os.Stdout.Fd())
	if fd < 0 {
		return
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return
	}
	renderHeight := h
	if a.cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}
	if w == a.width && renderHeight == a.height {
		return
	}
	a.width = w
	a.height = renderHeight
	a.preview.Resize(w, renderHeight)
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Printf("keyboard input disabled: %v", err)
		a.inputEvents = nil
		return
	}

	events := make(chan inputEvent, 16)
	a.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			switch {
			case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
				events <- inputEventQuit
				return
			case char == 'q' || char == 'Q':
				events <- inputEventQuit
				return
			case char == 'n' || char == 'N' || key == keyboard.KeySpace:
				select {
				case events <- inputEventAdvance:
				default:
				}
			}
		}
	}()
}

func clearScreen() {
	fmt.Print("\x1b[2J")
	moveCursorHome()
}

func moveCursorHome() {
	fmt.Print("\x1b[H")
}

func hideCursor() {
	fmt.Print("\x1b[?25l")
}

func showCursor() {
	fmt.Print("\x1b[?25h")
}

func enterAltScreen() {
	fmt.Print("\x1b[?1049h")
}

func exitAltScreen() {
	fmt.Print("\x1b[?1049l\x1b[0m")
}
