package timeline

import (
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const eps = 1e-9

// newTestSMF assembles a 480 ticks-per-beat file from open tracks.
func newTestSMF(tracks ...smf.Track) *smf.SMF {
	mid := smf.New()
	mid.TimeFormat = smf.MetricTicks(480)
	for _, track := range tracks {
		track.Close(0)
		mid.Add(track)
	}
	return mid
}

func TestTempoMapDefault(t *testing.T) {
	var track smf.Track
	track.Add(0, midi.NoteOn(0, 60, 100))
	track.Add(480, midi.NoteOff(0, 60))
	m := NewTempoMap(newTestSMF(track))

	if got := m.TicksPerBeat(); got != 480 {
		t.Errorf("TicksPerBeat: got %v, want 480", got)
	}
	// 500000 µs/beat at 480 ticks/beat: one beat is half a second.
	if got := m.TicksToSeconds(480); math.Abs(got-0.5) > eps {
		t.Errorf("TicksToSeconds(480): got %v, want 0.5", got)
	}
	if got := m.TicksToSeconds(0); got != 0 {
		t.Errorf("TicksToSeconds(0): got %v, want 0", got)
	}
	if got := m.TicksToSeconds(-5); got != 0 {
		t.Errorf("TicksToSeconds(-5): got %v, want 0", got)
	}
}

func TestTempoMapNilFile(t *testing.T) {
	m := NewTempoMap(nil)
	if got := m.TicksToSeconds(960); math.Abs(got-1.0) > eps {
		t.Errorf("TicksToSeconds(960): got %v, want 1.0", got)
	}
	if got := len(m.Changes()); got != 1 {
		t.Errorf("Changes: got %d entries, want 1", got)
	}
}

func TestTempoMapChangeIntegration(t *testing.T) {
	// 500000 µs/beat up to tick 480, then 250000 µs/beat.
	var track smf.Track
	track.Add(0, smf.MetaTempo(120))
	track.Add(480, smf.MetaTempo(240))
	m := NewTempoMap(newTestSMF(track))

	for _, tc := range []struct {
		tick int64
		want float64
	}{
		{0, 0},
		{240, 0.25},
		{480, 0.5},
		{720, 0.625},
		{960, 0.75},
	} {
		if got := m.TicksToSeconds(tc.tick); math.Abs(got-tc.want) > eps {
			t.Errorf("TicksToSeconds(%d): got %v, want %v", tc.tick, got, tc.want)
		}
	}
	if got := m.TempoAt(0); math.Abs(got-500000) > eps {
		t.Errorf("TempoAt(0): got %v, want 500000", got)
	}
	if got := m.TempoAt(700); math.Abs(got-250000) > eps {
		t.Errorf("TempoAt(700): got %v, want 250000", got)
	}
}

func TestTempoMapMergesAllTracks(t *testing.T) {
	// The tempo change lives on a different track than the first tempo.
	// Each track's delta times accumulate independently, and both tracks'
	// events must survive the merge.
	var conductor, second smf.Track
	conductor.Add(0, smf.MetaTempo(120))
	second.Add(120, midi.NoteOn(0, 60, 100))
	second.Add(360, smf.MetaTempo(240)) // Absolute tick 480 on this track.
	m := NewTempoMap(newTestSMF(conductor, second))

	if got := len(m.Changes()); got != 2 {
		t.Fatalf("Changes: got %d entries, want 2", got)
	}
	if got := m.TicksToSeconds(960); math.Abs(got-0.75) > eps {
		t.Errorf("TicksToSeconds(960): got %v, want 0.75", got)
	}
}

func TestTempoMapSameTickLastWins(t *testing.T) {
	var track smf.Track
	track.Add(0, smf.MetaTempo(120))
	track.Add(0, smf.MetaTempo(240))
	m := NewTempoMap(newTestSMF(track))

	if got := len(m.Changes()); got != 1 {
		t.Fatalf("Changes: got %d entries, want 1", got)
	}
	if got := m.TicksToSeconds(480); math.Abs(got-0.25) > eps {
		t.Errorf("TicksToSeconds(480): got %v, want 0.25", got)
	}
}

func TestTempoMapIgnoresNonPositiveTempo(t *testing.T) {
	var track smf.Track
	track.Add(0, smf.MetaTempo(120))
	// Raw set-tempo meta event with 0 µs/beat; the 120 BPM tempo must
	// stay in effect.
	track.Add(480, []byte{0xFF, 0x51, 0x03, 0x00, 0x00, 0x00})
	m := NewTempoMap(newTestSMF(track))

	if got := len(m.Changes()); got != 1 {
		t.Fatalf("Changes: got %d entries, want 1", got)
	}
	if got := m.TicksToSeconds(960); math.Abs(got-1.0) > eps {
		t.Errorf("TicksToSeconds(960): got %v, want 1.0", got)
	}
}

func TestTempoMapFirstTempoNotAtTickZero(t *testing.T) {
	// Default 120 BPM is synthesized for the leading segment.
	var track smf.Track
	track.Add(480, smf.MetaTempo(240))
	m := NewTempoMap(newTestSMF(track))

	if got := m.TicksToSeconds(480); math.Abs(got-0.5) > eps {
		t.Errorf("TicksToSeconds(480): got %v, want 0.5", got)
	}
	if got := m.TicksToSeconds(960); math.Abs(got-0.75) > eps {
		t.Errorf("TicksToSeconds(960): got %v, want 0.75", got)
	}
}

func TestTicksAtSecondsInverse(t *testing.T) {
	var track smf.Track
	track.Add(0, smf.MetaTempo(120))
	track.Add(480, smf.MetaTempo(240))
	m := NewTempoMap(newTestSMF(track))

	for _, tick := range []int64{0, 1, 479, 480, 481, 960, 5000} {
		sec := m.TicksToSeconds(tick)
		got := m.TicksAtSeconds(sec)
		if got < tick-1 || got > tick+1 {
			t.Errorf("TicksAtSeconds(TicksToSeconds(%d)): got %d", tick, got)
		}
	}
	if got := m.TicksAtSeconds(-1); got != 0 {
		t.Errorf("TicksAtSeconds(-1): got %d, want 0", got)
	}
}
