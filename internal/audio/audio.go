// Package audio captures live input through PortAudio for the live analysis
// producer. Export mode never touches this package.
package audio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	initOnce sync.Once
	termOnce sync.Once
	initErr  error
)

// Initialize wraps portaudio.Initialize with sync.Once so multiple callers are safe.
func Initialize() error {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
	})
	return initErr
}

// Terminate balances Initialize, also once.
func Terminate() {
	if initErr != nil {
		return
	}
	termOnce.Do(func() {
		_ = portaudio.Terminate()
	})
}

// Config controls how a capture stream is opened.
type Config struct {
	DeviceName string
	BufferSize int
}

const defaultBufferSize = 4096

// Capture wraps a mono PortAudio input stream with a ring buffer holding the
// most recent samples for the analyzer to pull per tick.
type Capture struct {
	stream     *portaudio.Stream
	sampleRate float64
	deviceName string

	mu     sync.RWMutex
	buffer []float32
	index  int
}

// NewCapture opens and starts an input stream on the named device, or the
// default input when the name is empty.
func NewCapture(cfg Config) (*Capture, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}

	device, err := findInput(cfg.DeviceName)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		sampleRate: device.DefaultSampleRate,
		deviceName: device.Name,
		buffer:     make([]float32, cfg.BufferSize),
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      device.DefaultSampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, c.process)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	return c, nil
}

// Close stops and closes the stream.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	_ = c.stream.Stop()
	return c.stream.Close()
}

// SampleRate returns the stream sample rate.
func (c *Capture) SampleRate() float64 {
	return c.sampleRate
}

// DeviceName returns the name of the opened input device.
func (c *Capture) DeviceName() string {
	return c.deviceName
}

// Samples copies the most recent samples out of the ring buffer, oldest first.
func (c *Capture) Samples() []float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]float32, len(c.buffer))
	copy(out, c.buffer[c.index:])
	copy(out[len(c.buffer)-c.index:], c.buffer[:c.index])
	return out
}

func (c *Capture) process(in []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range in {
		c.buffer[c.index] = s
		c.index++
		if c.index == len(c.buffer) {
			c.index = 0
		}
	}
}

func findInput(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		if dev == nil || dev.MaxInputChannels == 0 {
			return nil, fmt.Errorf("no usable default input device")
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	needle := strings.ToLower(name)
	for _, d := range devices {
		if d.MaxInputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("audio device %q not found", name)
}

// Device describes an input device for the -list-audio-devices flag.
type Device struct {
	Name            string
	MaxInput        int
	DefaultSampleHz float64
	IsDefaultInput  bool
}

// ListInputs returns the available input devices.
func ListInputs() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	defaultIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIndex = def.Index
	}

	var out []Device
	for _, d := range devices {
		if d.MaxInputChannels == 0 {
			continue
		}
		out = append(out, Device{
			Name:            d.Name,
			MaxInput:        d.MaxInputChannels,
			DefaultSampleHz: d.DefaultSampleRate,
			IsDefaultInput:  d.Index == defaultIndex,
		})
	}
	return out, nil
}
