package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guidoenr/vizbind/internal/app"
	"github.com/guidoenr/vizbind/internal/audio"
	"github.com/guidoenr/vizbind/internal/web"
)

func main() {
	var (
		projectPath = flag.String("project", "", "Project file with bindings and playlists (JSON)")
		targetFPS   = flag.Float64("fps", 60, "Evaluation frames per second")
		frameRate   = flag.Float64("frame-rate", 0, "Analysis frames per second (defaults to fps)")
		deviceName  = flag.String("audio-device", "", "Optional PortAudio device name (substring match)")
		bufferSize  = flag.Int("buffer-size", 4096, "Capture ring buffer size in samples")
		noAudio     = flag.Bool("no-audio", false, "Run with synthetic audio (for testing)")
		listDevs    = flag.Bool("list-audio-devices", false, "List available audio input devices and exit")
		listenAddr  = flag.String("listen", "", "Address for the control server, e.g. :8421 (disabled when empty)")
		noColor     = flag.Bool("no-color", false, "Disable ANSI color output")
		noStatus    = flag.Bool("no-status", false, "Hide the status bar")
		window      = flag.Bool("window", false, "Open an SDL preview window (requires -tags sdl build)")
		profilePath = flag.String("profile", "", "Write per-frame timing CSV to this file")
		debug       = flag.Bool("debug", false, "Enable verbose logging")

		exportOut  = flag.String("export", "", "Render offline to this JSON-lines file instead of running live")
		audioFile  = flag.String("audio-file", "", "Raw mono s16le audio for export")
		sampleRate = flag.Float64("sample-rate", 44100, "Sample rate of -audio-file")
		exportSecs = flag.Float64("duration", 0, "Export duration in seconds (synthetic audio only)")
		exportSeed = flag.Int64("seed", 1, "Synthetic audio seed for export")
	)

	flag.Parse()

	logger := log.New(os.Stderr, "[vizbind] ", log.LstdFlags)
	if !*debug {
		logger.SetFlags(0)
	}

	if *targetFPS <= 0 {
		logger.Fatalf("fps must be positive (got %.2f)", *targetFPS)
	}

	if *listDevs {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
		devices, err := audio.ListInputs()
		if err != nil {
			logger.Fatalf("list devices: %v", err)
		}
		fmt.Printf("\n=== Audio Input Devices ===\n\n")
		for _, dev := range devices {
			marker := ""
			if dev.IsDefaultInput {
				marker = " (default)"
			}
			fmt.Printf("- %s%s\n    inputs:%d sample:%.0f Hz\n", dev.Name, marker, dev.MaxInput, dev.DefaultSampleHz)
		}
		return
	}

	if *exportOut != "" {
		if *projectPath == "" {
			logger.Fatalf("-export requires -project")
		}
		out, err := os.Create(*exportOut)
		if err != nil {
			logger.Fatalf("create output: %v", err)
		}
		defer out.Close()

		err = app.Export(app.ExportConfig{
			ProjectPath: *projectPath,
			AudioPath:   *audioFile,
			SampleRate:  *sampleRate,
			FPS:         *targetFPS,
			Duration:    *exportSecs,
			FrameRate:   *frameRate,
			Seed:        *exportSeed,
			Out:         out,
			Log:         logger,
		})
		if err != nil {
			logger.Fatalf("export: %v", err)
		}
		return
	}

	if !*noAudio {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(app.Config{
		DeviceName:    *deviceName,
		BufferSize:    *bufferSize,
		TargetFPS:     *targetFPS,
		FrameRate:     *frameRate,
		DisableAudio:  *noAudio,
		UseANSI:       !*noColor,
		ShowStatusBar: !*noStatus,
		SDLWindow:     *window,
		ProjectPath:   *projectPath,
		ProfilePath:   *profilePath,
		Log:           logger,
	})
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	if *listenAddr != "" {
		server := web.NewServer(web.Config{
			Session:     a,
			Log:         log.New(os.Stderr, "[web] ", log.LstdFlags),
			ProjectPath: *projectPath,
		})
		go func() {
			if err := server.Start(*listenAddr); err != nil {
				logger.Printf("control server stopped: %v", err)
			}
		}()
	}

	if err := a.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return
		}
		logger.Fatalf("runtime error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
}
