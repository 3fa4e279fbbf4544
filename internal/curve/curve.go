package curve

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
)

// Type identifies a response shape applied to a normalized input.
type Type string

const (
	Linear      Type = "linear"
	Exponential Type = "exponential"
	Logarithmic Type = "logarithmic"
	Smooth      Type = "smooth"
	Steps       Type = "steps"
	Custom      Type = "custom"
)

var typeNames = []string{
	string(Linear),
	string(Exponential),
	string(Logarithmic),
	string(Smooth),
	string(Steps),
	string(Custom),
}

// TypeNames returns the supported curve types.
func TypeNames() []string {
	out := make([]string, len(typeNames))
	copy(out, typeNames)
	sort.Strings(out)
	return out
}

const (
	expPower     = 2.0
	defaultBands = 5
)

// Point is one control point of a custom piecewise-linear curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a response shape plus its optional parameters. The zero value is linear.
type Curve struct {
	Type   Type    `json:"type"`
	Bands  int     `json:"bands,omitempty"`
	Points []Point `json:"points,omitempty"`
}

var (
	warnMu   sync.Mutex
	warnSeen map[Type]bool
)

// warnOnce logs an unknown curve type a single time; Apply runs per frame
// and must never spam the log or panic.
func warnOnce(t Type) {
	warnMu.Lock()
	defer warnMu.Unlock()
	if warnSeen == nil {
		warnSeen = make(map[Type]bool)
	}
	if !warnSeen[t] {
		warnSeen[t] = true
		log.Printf("[curve] unknown curve type %q, falling back to linear", t)
	}
}

// Apply maps a normalized input through the curve shape. Inputs are expected in
// [0,1]; the curve step clamps internally so unclamped mappings stay sane.
func (c Curve) Apply(t float64) float64 {
	switch c.Type {
	case Linear, "":
		return t
	case Exponential:
		return math.Pow(clamp01(t), expPower)
	case Logarithmic:
		return math.Sqrt(clamp01(t))
	case Smooth:
		u := clamp01(t)
		return u * u * (3 - 2*u)
	case Steps:
		bands := c.Bands
		if bands <= 1 {
			bands = defaultBands
		}
		u := clamp01(t)
		band := int(u * float64(bands))
		if band >= bands {
			band = bands - 1
		}
		return float64(band) / float64(bands-1)
	case Custom:
		return evalPoints(c.Points, t)
	default:
		warnOnce(c.Type)
		return t
	}
}

// Validate reports configuration problems so the binding editor can surface
// them before the hot path quietly degrades.
func (c Curve) Validate() error {
	switch c.Type {
	case Linear, Exponential, Logarithmic, Smooth, "":
		return nil
	case Steps:
		if c.Bands < 0 {
			return fmt.Errorf("steps curve: negative band count %d", c.Bands)
		}
		// zero means "use the default"; a single band cannot quantize and
		// Apply would fall back, so reject it here where it can be surfaced
		if c.Bands == 1 {
			return fmt.Errorf("steps curve: need at least 2 bands, got 1")
		}
		return nil
	case Custom:
		if len(c.Points) < 2 {
			return fmt.Errorf("custom curve: need at least 2 points, got %d", len(c.Points))
		}
		prev := -math.MaxFloat64
		for i, p := range c.Points {
			if p.X < 0 || p.X > 1 {
				return fmt.Errorf("custom curve: point %d x=%.3f outside [0,1]", i, p.X)
			}
			if p.X <= prev {
				return fmt.Errorf("custom curve: point %d x=%.3f not strictly increasing", i, p.X)
			}
			prev = p.X
		}
		return nil
	default:
		return fmt.Errorf("unknown curve type %q", c.Type)
	}
}

// evalPoints interpolates piecewise-linearly through the control points,
// clamping to the nearest endpoint outside their range.
func evalPoints(points []Point, t float64) float64 {
	if len(points) == 0 {
		return t
	}
	if len(points) == 1 {
		return points[0].Y
	}
	if t <= points[0].X {
		return points[0].Y
	}
	last := points[len(points)-1]
	if t >= last.X {
		return last.Y
	}
	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		if t >= a.X && t <= b.X {
			span := b.X - a.X
			if span <= 0 {
				return a.Y
			}
			f := (t - a.X) / span
			return a.Y + f*(b.Y-a.Y)
		}
	}
	return last.Y
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
