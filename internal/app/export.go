package app

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/guidoenr/vizbind/internal/analyzer"
	"github.com/guidoenr/vizbind/internal/binding"
	"github.com/guidoenr/vizbind/internal/clock"
	"github.com/guidoenr/vizbind/internal/cycling"
	"github.com/guidoenr/vizbind/internal/engine"
	"github.com/guidoenr/vizbind/internal/project"
	"github.com/guidoenr/vizbind/internal/source"
)

// ExportConfig drives an offline render pass.
type ExportConfig struct {
	ProjectPath string
	AudioPath   string // raw mono s16le; synthetic when empty
	SampleRate  float64
	FPS         float64
	Duration    float64 // seconds, only used with synthetic audio
	FrameRate   float64 // analysis frames per second
	Seed        int64   // synthetic generator seed
	Out         io.Writer
	Log         *log.Logger
}

// Export runs the whole timeline on the export clock and writes one JSON
// snapshot per line. The same project and audio always produce byte-identical
// output.
func Export(cfg ExportConfig) error {
	if cfg.FPS <= 0 {
		return fmt.Errorf("export: fps must be positive (got %.2f)", cfg.FPS)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = cfg.FPS
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "", log.LstdFlags)
	}

	registry := binding.NewRegistry()
	cycler := cycling.NewEngine()
	features := source.NewFeatureStore()
	midi := source.NewMIDIState()
	eng := engine.New(engine.Config{
		Registry: registry,
		Resolver: source.NewResolver(features, midi),
		Cycler:   cycler,
		Log:      cfg.Log,
	})

	p, err := project.Load(cfg.ProjectPath)
	if err != nil {
		return err
	}
	if failed := project.Apply(p, registry, cycler, eng); len(failed) > 0 {
		for _, ferr := range failed {
			cfg.Log.Printf("project entry skipped: %v", ferr)
		}
	}

	samples, err := exportSamples(cfg)
	if err != nil {
		return err
	}
	if err := analyzer.AnalyzeTrack(features, StemMaster, samples, cfg.SampleRate, cfg.FrameRate); err != nil {
		return err
	}

	duration := float64(len(samples)) / cfg.SampleRate
	frames := int(duration * cfg.FPS)
	clk, err := clock.NewExport(cfg.FPS)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cfg.Out)
	for frame := 0; frame < frames; frame++ {
		snap := eng.Evaluate(clk)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("write frame %d: %w", frame, err)
		}
		clk.Advance()
	}
	cfg.Log.Printf("exported %d frames (%.2fs @ %.0f fps)", frames, duration, cfg.FPS)
	return nil
}

func exportSamples(cfg ExportConfig) ([]float32, error) {
	if cfg.AudioPath != "" {
		return readRawPCM(cfg.AudioPath)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("export: duration required without an audio file")
	}
	fake := newFakeSource(cfg.Seed)
	total := int(cfg.Duration * cfg.SampleRate)
	hop := int(cfg.SampleRate / cfg.FrameRate)
	if hop <= 0 {
		hop = 1
	}
	samples := make([]float32, 0, total)
	for len(samples) < total {
		n := hop
		if remaining := total - len(samples); n > remaining {
			n = remaining
		}
		samples = append(samples, fake.Next(float64(n)/cfg.SampleRate, cfg.SampleRate, n)...)
	}
	return samples, nil
}

// readRawPCM loads mono signed 16-bit little-endian samples.
func readRawPCM(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("read audio: odd byte count %d, not s16le", len(data))
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out, nil
}
