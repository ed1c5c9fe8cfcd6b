package timeline

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestBuildEventListEmpty(t *testing.T) {
	if got := BuildEventList(nil); len(got) != 0 {
		t.Errorf("BuildEventList(nil): got %d events", len(got))
	}
	if got := BuildEventList(smf.New()); len(got) != 0 {
		t.Errorf("BuildEventList(empty): got %d events", len(got))
	}
	var track smf.Track
	if got := BuildEventList(newTestSMF(track)); len(got) != 0 {
		t.Errorf("BuildEventList(one empty track): got %d events", len(got))
	}
	if got := LastTick(nil); got != 0 {
		t.Errorf("LastTick(nil): got %d, want 0", got)
	}
}

func TestBuildEventListOrderAndTies(t *testing.T) {
	var a, b smf.Track
	a.Add(0, midi.NoteOn(0, 60, 100))
	a.Add(480, midi.NoteOff(0, 60))
	a.Add(0, midi.NoteOn(0, 62, 100)) // Same tick as the note off above.
	b.Add(480, midi.NoteOn(1, 64, 100))
	mid := newTestSMF(a, b)

	events := BuildEventList(mid)
	want := []struct {
		tick  int64
		track int
		msg   midi.Message
	}{
		{0, 0, midi.NoteOn(0, 60, 100)},
		{480, 0, midi.NoteOff(0, 60)},
		{480, 0, midi.NoteOn(0, 62, 100)}, // Intra-track order kept.
		{480, 1, midi.NoteOn(1, 64, 100)}, // Track 0 before track 1.
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, w := range want {
		ev := events[i]
		if ev.Tick != w.tick || ev.Track != w.track || !bytes.Equal(ev.Message, w.msg) {
			t.Errorf("event %d: got tick %d track %d %v, want tick %d track %d %v",
				i, ev.Tick, ev.Track, ev.Message, w.tick, w.track, w.msg)
		}
	}
	if got := LastTick(events); got != 480 {
		t.Errorf("LastTick: got %d, want 480", got)
	}
}

func TestBuildEventListKeepsOnlyChannelVoice(t *testing.T) {
	var track smf.Track
	track.Add(0, smf.MetaTempo(90))
	track.Add(0, smf.MetaText("title"))
	track.Add(0, midi.NoteOn(2, 60, 100))
	track.Add(10, midi.ControlChange(2, 7, 127))
	track.Add(10, midi.ProgramChange(2, 5))
	track.Add(10, midi.Pitchbend(2, 1024))
	track.Add(10, midi.AfterTouch(2, 64))
	track.Add(10, midi.PolyAfterTouch(2, 60, 64))
	track.Add(10, midi.SysEx([]byte{0x43, 0x10}))
	track.Add(10, midi.NoteOff(2, 60))
	mid := newTestSMF(track)

	events := BuildEventList(mid)
	if len(events) != 7 {
		t.Fatalf("got %d events, want 7", len(events))
	}
	for _, ev := range events {
		if ev.Message.IsMeta() {
			t.Errorf("meta message survived: %v", ev.Message)
		}
		var ch uint8
		if !ev.Message.GetChannel(&ch) {
			t.Errorf("non-channel message survived: %v", ev.Message)
		}
	}
	if got := LastTick(events); got != 70 {
		t.Errorf("LastTick: got %d, want 70", got)
	}
}
