package app

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"
)

// profiler appends per-section frame timings as CSV, with the evaluated
// layer and stale-binding counts on the frame summary row so slow frames can
// be correlated with binding load. A nil profiler is a no-op, so callers
// never check.
type profiler struct {
	mu      sync.Mutex
	file    *os.File
	logger  *log.Logger
	start   time.Time
	last    time.Time
	enabled bool
}

func newProfiler(path string, logger *log.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if logger != nil {
			logger.Printf("profiler disabled: %v", err)
		}
		return nil
	}
	p := &profiler{
		file:    f,
		logger:  logger,
		enabled: true,
	}
	fmt.Fprintln(p.file, "timestamp,section,delta_ms,layers,stale")
	return p
}

func (p *profiler) beginFrame() {
	if p == nil || !p.enabled {
		return
	}
	now := time.Now()
	p.start = now
	p.last = now
}

func (p *profiler) markSection(name string) {
	if p == nil || !p.enabled {
		return
	}
	now := time.Now()
	delta := now.Sub(p.last).Seconds() * 1000
	p.last = now
	p.write(name, delta, "", "")
}

func (p *profiler) endFrame(layers, stale int) {
	if p == nil || !p.enabled {
		return
	}
	delta := time.Since(p.start).Seconds() * 1000
	p.write("frame_total", delta, strconv.Itoa(layers), strconv.Itoa(stale))
}

func (p *profiler) Close() error {
	if p == nil || !p.enabled {
		return nil
	}
	return p.file.Close()
}

func (p *profiler) write(section string, deltaMs float64, layers, stale string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return
	}
	fmt.Fprintf(p.file, "%s,%s,%.3f,%s,%s\n", time.Now().Format(time.RFC3339Nano), section, deltaMs, layers, stale)
}
