package source

import (
	"math"
	"sync"
)

// NoteEvent is one parsed note with its active window in seconds.
type NoteEvent struct {
	Channel  int     `json:"channel"`
	Note     int     `json:"note"`
	Velocity int     `json:"velocity"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// CCEvent is one control-change message.
type CCEvent struct {
	Channel    int     `json:"channel"`
	Controller int     `json:"controller"`
	Value      int     `json:"value"`
	Time       float64 `json:"time"`
}

// ChannelEvent carries pitch bend, channel pressure or aftertouch over time.
type ChannelEvent struct {
	Channel int     `json:"channel"`
	Value   float64 `json:"value"`
	Time    float64 `json:"time"`
}

// MIDIState holds the parsed MIDI timeline produced upstream. Events are
// appended during load and sorted queries read them as of a timestamp; the
// store itself carries no playback state, the envelope layer owns decay.
type MIDIState struct {
	mu        sync.RWMutex
	notes     []NoteEvent
	ccs       []CCEvent
	bends     []ChannelEvent
	pressures []ChannelEvent
}

// NewMIDIState returns an empty MIDI store.
func NewMIDIState() *MIDIState {
	return &MIDIState{}
}

// AddNotes appends note events.
func (m *MIDIState) AddNotes(notes ...NoteEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, notes...)
}

// AddCC appends control-change events.
func (m *MIDIState) AddCC(events ...CCEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ccs = append(m.ccs, events...)
}

// AddPitchBend appends pitch-bend events.
func (m *MIDIState) AddPitchBend(events ...ChannelEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bends = append(m.bends, events...)
}

// AddChannelPressure appends channel-pressure/aftertouch events.
func (m *MIDIState) AddChannelPressure(events ...ChannelEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pressures = append(m.pressures, events...)
}

// channelMatches treats a negative filter as "any channel".
func channelMatches(filter, channel int) bool {
	return filter < 0 || filter == channel
}

// DefaultPulseWindow is the fallback span a note-on query looks back over.
// Velocity is an instantaneous pulse; sustained motion comes from the
// envelope, not from holding the value here. Callers evaluating at a known
// frame rate should pass their frame interval instead so an onset landing
// between two frames is still seen exactly once.
const DefaultPulseWindow = 1.0 / 120.0

// NoteVelocity returns the strongest velocity of notes whose onset lies in
// (t-window, t]. A non-positive window falls back to DefaultPulseWindow.
func (m *MIDIState) NoteVelocity(channel, note int, t, window float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if window <= 0 {
		window = DefaultPulseWindow
	}
	best := 0.0
	for _, n := range m.notes {
		if !channelMatches(channel, n.Channel) {
			continue
		}
		if note >= 0 && note != n.Note {
			continue
		}
		if t >= n.Start && t-n.Start < window {
			best = math.Max(best, float64(n.Velocity))
		}
	}
	return best
}

// NoteOn returns 1 while a matching note is held at t, else 0.
func (m *MIDIState) NoteOn(channel, note int, t float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, n := range m.notes {
		if !channelMatches(channel, n.Channel) {
			continue
		}
		if note >= 0 && note != n.Note {
			continue
		}
		if t >= n.Start && t < n.Start+n.Duration {
			return 1
		}
	}
	return 0
}

// ActiveNotes returns the notes held at t on the given channel filter.
func (m *MIDIState) ActiveNotes(channel int, t float64) []NoteEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []NoteEvent
	for _, n := range m.notes {
		if !channelMatches(channel, n.Channel) {
			continue
		}
		if t >= n.Start && t < n.Start+n.Duration {
			out = append(out, n)
		}
	}
	return out
}

// CC returns the most recent controller value at or before t, or 0.
func (m *MIDIState) CC(channel, controller int, t float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value := 0.0
	latest := math.Inf(-1)
	for _, e := range m.ccs {
		if !channelMatches(channel, e.Channel) || e.Controller != controller {
			continue
		}
		if e.Time <= t && e.Time > latest {
			latest = e.Time
			value = float64(e.Value)
		}
	}
	return value
}

// PitchBend returns the most recent pitch-bend value at or before t, or 0.
func (m *MIDIState) PitchBend(channel int, t float64) float64 {
	return latestChannelValue(m, m.bends, channel, t)
}

// ChannelPressure returns the most recent pressure value at or before t, or 0.
func (m *MIDIState) ChannelPressure(channel int, t float64) float64 {
	return latestChannelValue(m, m.pressures, channel, t)
}

func latestChannelValue(m *MIDIState, events []ChannelEvent, channel int, t float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value := 0.0
	latest := math.Inf(-1)
	for _, e := range events {
		if !channelMatches(channel, e.Channel) {
			continue
		}
		if e.Time <= t && e.Time > latest {
			latest = e.Time
			value = e.Value
		}
	}
	return value
}
