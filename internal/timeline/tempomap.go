package timeline

import (
	"math"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// DefaultTicksPerBeat is used when the file's time format is not metric.
	DefaultTicksPerBeat = 480

	// defaultMicrosPerBeat is 120 BPM, the SMF default tempo.
	defaultMicrosPerBeat = 500000
)

// TempoChange is one entry of the merged tempo timeline.
type TempoChange struct {
	// Tick is the absolute tick at which this tempo takes effect.
	Tick int64

	// MicrosPerBeat is the tempo in microseconds per quarter note.
	MicrosPerBeat float64

	// Seconds is the cumulative playback time from tick 0 to Tick.
	Seconds float64
}

// TempoMap converts absolute ticks to elapsed seconds across any number of
// tempo changes. It is built once per file and immutable afterwards.
//
// Tempo events are collected from ALL tracks, each track's delta times
// accumulated independently, and merged into a single tick-ordered timeline.
// Scanning only one track (or letting each track overwrite the previous
// one's events) silently mistimes multi-track files whose tempo events live
// on a dedicated conductor track.
type TempoMap struct {
	ticksPerBeat int64
	changes      []TempoChange
}

// NewTempoMap scans mid for tempo meta events and builds the merged
// timeline. A nil or empty file yields a constant 120 BPM map.
func NewTempoMap(mid *smf.SMF) *TempoMap {
	m := &TempoMap{ticksPerBeat: DefaultTicksPerBeat}
	var changes []TempoChange
	if mid != nil {
		if metric, ok := mid.TimeFormat.(smf.MetricTicks); ok && metric.Resolution() > 0 {
			m.ticksPerBeat = int64(metric.Resolution())
		}
		for _, track := range mid.Tracks {
			var abs int64
			for _, ev := range track {
				abs += int64(ev.Delta)
				var bpm float64
				if !ev.Message.GetMetaTempo(&bpm) {
					continue
				}
				micros := 60e6 / bpm
				if !(micros > 0) || math.IsInf(micros, 0) {
					// Non-positive or degenerate tempo: the previous
					// tempo stays in effect.
					continue
				}
				changes = append(changes, TempoChange{Tick: abs, MicrosPerBeat: micros})
			}
		}
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Tick < changes[j].Tick
	})
	// Several tempos on the same tick: the last one scanned wins.
	for _, c := range changes {
		if n := len(m.changes); n > 0 && m.changes[n-1].Tick == c.Tick {
			m.changes[n-1].MicrosPerBeat = c.MicrosPerBeat
			continue
		}
		m.changes = append(m.changes, c)
	}
	if len(m.changes) == 0 || m.changes[0].Tick > 0 {
		m.changes = append([]TempoChange{{Tick: 0, MicrosPerBeat: defaultMicrosPerBeat}}, m.changes...)
	}
	for i := 1; i < len(m.changes); i++ {
		prev := m.changes[i-1]
		m.changes[i].Seconds = prev.Seconds + m.segmentSeconds(prev, m.changes[i].Tick)
	}
	return m
}

// segmentSeconds is the duration from c.Tick to tick at c's tempo.
func (m *TempoMap) segmentSeconds(c TempoChange, tick int64) float64 {
	return float64(tick-c.Tick) * c.MicrosPerBeat / 1e6 / float64(m.ticksPerBeat)
}

// TicksPerBeat returns the file's tick resolution per quarter note.
func (m *TempoMap) TicksPerBeat() int64 {
	return m.ticksPerBeat
}

// Changes returns the merged tempo timeline. There is always an entry at
// tick 0, and ticks are strictly ascending. The caller must not modify the
// returned slice.
func (m *TempoMap) Changes() []TempoChange {
	return m.changes
}

// at returns the last change at or before tick.
func (m *TempoMap) at(tick int64) TempoChange {
	i := sort.Search(len(m.changes), func(i int) bool {
		return m.changes[i].Tick > tick
	})
	return m.changes[i-1]
}

// TicksToSeconds converts an absolute tick to elapsed seconds from tick 0.
// O(log n) in the number of tempo changes. Non-decreasing in tick.
func (m *TempoMap) TicksToSeconds(tick int64) float64 {
	if tick <= 0 {
		return 0
	}
	c := m.at(tick)
	return c.Seconds + m.segmentSeconds(c, tick)
}

// TicksAtSeconds is the inverse of TicksToSeconds, rounding down to whole
// ticks.
func (m *TempoMap) TicksAtSeconds(sec float64) int64 {
	if sec <= 0 {
		return 0
	}
	i := sort.Search(len(m.changes), func(i int) bool {
		return m.changes[i].Seconds > sec
	})
	c := m.changes[i-1]
	return c.Tick + int64((sec-c.Seconds)*1e6*float64(m.ticksPerBeat)/c.MicrosPerBeat)
}

// TempoAt returns the tempo in microseconds per quarter note in effect at
// tick.
func (m *TempoMap) TempoAt(tick int64) float64 {
	if tick < 0 {
		tick = 0
	}
	return m.at(tick).MicrosPerBeat
}

// DurationAt is TicksToSeconds as a time.Duration, for display.
func (m *TempoMap) DurationAt(tick int64) time.Duration {
	return time.Duration(m.TicksToSeconds(tick) * float64(time.Second))
}
