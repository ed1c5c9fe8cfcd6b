package timeline

import (
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Event is one channel-voice message at an absolute tick position.
type Event struct {
	// Tick is the absolute tick position, accumulated per track.
	Tick int64

	// Track is the index of the originating track in the source file.
	Track int

	// Message is the channel-voice message to deliver.
	Message smf.Message
}

// BuildEventList flattens all tracks of mid into one chronological list.
//
// Only channel-voice messages survive: note on/off, control change, program
// change, pitch bend, and channel/polyphonic aftertouch. Meta events
// (tempo, end of track, ...) and system exclusive data are discarded; tempo
// events are consumed separately by NewTempoMap.
//
// The result is sorted ascending by tick. Events on the same tick keep
// track order, and events of one track keep their original order. An empty
// or track-less file yields an empty list.
func BuildEventList(mid *smf.SMF) []Event {
	var events []Event
	if mid == nil {
		return events
	}
	for i, track := range mid.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			if !ev.Message.IsOneOf(
				midi.NoteOnMsg, midi.NoteOffMsg,
				midi.ControlChangeMsg, midi.ProgramChangeMsg,
				midi.PitchBendMsg,
				midi.AfterTouchMsg, midi.PolyAfterTouchMsg,
			) {
				continue
			}
			events = append(events, Event{Tick: abs, Track: i, Message: ev.Message})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Tick < events[j].Tick
	})
	return events
}

// LastTick returns the tick of the final event, or 0 for an empty list.
func LastTick(events []Event) int64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Tick
}
