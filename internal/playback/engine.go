package playback

import (
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/klangwerk/midiplay/internal/timeline"
)

// EventFunc receives each delivered message together with its source track
// index. It runs synchronously inside ProcessUntilNow and must not block
// unboundedly, since it delays subsequent due events of the same call.
type EventFunc func(track int, msg midi.Message)

// Engine is the playback core: it owns a tempo map and a flattened event
// list, and delivers due events to its callback whenever ProcessUntilNow
// is called.
//
// The engine performs no I/O, spawns no goroutines and holds no locks. All
// methods must be called from a single logical thread of control; callers
// whose timers and UI run on different goroutines serialize externally
// (see internal/player for the message-passing driver).
//
// Delivery decisions are always derived from the absolute tempo map and a
// fixed wall-clock origin, never from incremental per-call deltas, so poll
// jitter cannot accumulate into drift.
type Engine struct {
	tempo  *timeline.TempoMap
	events []timeline.Event

	mute    *MuteConfig
	onEvent EventFunc

	// cursor indexes the next undelivered event.
	cursor  int
	playing bool
	loaded  bool

	// origin is the wall-clock instant corresponding to tick 0 of the
	// current run: now - origin == TicksToSeconds(current tick).
	origin time.Time

	// posTick is the retained position while not playing.
	posTick int64

	// now is swapped out by tests to simulate time.
	now func() time.Time
}

// NewEngine creates an idle engine. mute may be shared with the UI layer
// and is never replaced or reset by the engine; onEvent may be nil to
// discard deliveries.
func NewEngine(mute *MuteConfig, onEvent EventFunc) *Engine {
	return &Engine{
		mute:    mute,
		onEvent: onEvent,
		now:     time.Now,
	}
}

// Load replaces the tempo map and event list and rewinds to tick 0. The
// mute configuration is left untouched. A nil tempo map or empty event
// list is valid and yields a playable but silent engine.
func (e *Engine) Load(tempo *timeline.TempoMap, events []timeline.Event) {
	if tempo == nil {
		tempo = timeline.NewTempoMap(nil)
	}
	e.tempo = tempo
	e.events = events
	e.cursor = 0
	e.playing = false
	e.posTick = 0
	e.loaded = true
}

// Loaded reports whether Load has been called at least once.
func (e *Engine) Loaded() bool {
	return e.loaded
}

// Playing reports whether the engine is between Start and Stop (or natural
// end of file).
func (e *Engine) Playing() bool {
	return e.playing
}

// seek positions the cursor at the first event at or after tick. Seeking
// past the end clamps the cursor to the list length.
func (e *Engine) seek(tick int64) {
	e.cursor = sort.Search(len(e.events), func(i int) bool {
		return e.events[i].Tick >= tick
	})
}

// Start begins (or resumes) playback at startTick. Events before startTick
// are skipped, and the wall-clock origin is fixed so that startTick is due
// immediately.
func (e *Engine) Start(startTick int64) {
	if e.tempo == nil {
		e.tempo = timeline.NewTempoMap(nil)
	}
	if startTick < 0 {
		startTick = 0
	}
	e.seek(startTick)
	e.origin = e.now().Add(-time.Duration(e.tempo.TicksToSeconds(startTick) * float64(time.Second)))
	e.posTick = startTick
	e.playing = true
}

// Stop halts playback. The current position is retained, so a following
// Start(CurrentTick()) resumes without replaying or skipping events.
func (e *Engine) Stop() {
	if e.playing {
		e.posTick = e.tempo.TicksAtSeconds(e.elapsed())
		// TicksAtSeconds rounds down: a pause landing within one tick of
		// a delivery would place the position on the delivered tick, and
		// resuming there would replay it. The resume point must stay
		// beyond everything the cursor already passed.
		if e.cursor > 0 {
			if passed := e.events[e.cursor-1].Tick; e.posTick <= passed {
				e.posTick = passed + 1
			}
		}
	}
	e.playing = false
}

// ScrubToTick repositions the playback cursor without starting playback.
// The wall-clock origin is reset so that a subsequent ProcessUntilNow (if
// already playing) or Start continues from tick.
func (e *Engine) ScrubToTick(tick int64) {
	if e.tempo == nil {
		e.tempo = timeline.NewTempoMap(nil)
	}
	if tick < 0 {
		tick = 0
	}
	e.seek(tick)
	e.origin = e.now().Add(-time.Duration(e.tempo.TicksToSeconds(tick) * float64(time.Second)))
	e.posTick = tick
}

func (e *Engine) elapsed() float64 {
	return e.now().Sub(e.origin).Seconds()
}

// ProcessUntilNow delivers every not-yet-delivered event whose scheduled
// time is due, in tick order, each exactly once. It returns true exactly
// when the end of the event list is reached, which also stops playback.
// When not playing it is a no-op.
//
// The cursor is advanced past an event before its callback runs: a
// panicking callback propagates to the caller, but catching it and polling
// again neither redelivers the event nor loops.
func (e *Engine) ProcessUntilNow() bool {
	if !e.playing {
		return false
	}
	elapsed := e.elapsed()
	for e.cursor < len(e.events) {
		ev := e.events[e.cursor]
		if e.tempo.TicksToSeconds(ev.Tick) > elapsed {
			return false
		}
		e.cursor++
		if e.mute.ShouldSend(ev) && e.onEvent != nil {
			e.onEvent(ev.Track, midi.Message(ev.Message))
		}
	}
	e.playing = false
	// Rest one past the final event, so starting from the retained
	// position never replays the closing chord.
	if e.cursor > 0 {
		e.posTick = e.events[e.cursor-1].Tick + 1
	} else {
		e.posTick = 0
	}
	return true
}

// CurrentTick returns the live position while playing, or the retained
// position otherwise.
func (e *Engine) CurrentTick() int64 {
	if e.playing {
		return e.tempo.TicksAtSeconds(e.elapsed())
	}
	return e.posTick
}

// CurrentSeconds returns the playback position in seconds, for progress
// display.
func (e *Engine) CurrentSeconds() float64 {
	if e.tempo == nil {
		return 0
	}
	if e.playing {
		return e.elapsed()
	}
	return e.tempo.TicksToSeconds(e.posTick)
}

// TickAtSeconds converts a position in seconds to a tick, for seeking from
// time-based UI controls.
func (e *Engine) TickAtSeconds(sec float64) int64 {
	if e.tempo == nil {
		return 0
	}
	return e.tempo.TicksAtSeconds(sec)
}
