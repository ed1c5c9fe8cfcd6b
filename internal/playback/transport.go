package playback

// Transport translates play/pause/stop/seek UI intents into engine calls.
// It is as stateless as possible: the engine's retained position is the
// single source of truth, so a paused transport resumes exactly where the
// cursor stopped.
type Transport struct {
	engine *Engine
}

// NewTransport wraps an engine. Multiple transports over one engine are
// pointless but harmless; the usual shape is one of each per player.
func NewTransport(e *Engine) *Transport {
	return &Transport{engine: e}
}

// Engine exposes the wrapped engine to the driving loop.
func (t *Transport) Engine() *Engine {
	return t.engine
}

// Play starts playback: from tick 0 when fresh or fully stopped, from the
// retained position when paused mid-file. Playing again while already
// playing is a no-op.
func (t *Transport) Play() {
	if t.engine.Playing() {
		return
	}
	t.engine.Start(t.engine.CurrentTick())
}

// Pause halts playback and keeps the position for a later Play.
func (t *Transport) Pause() {
	t.engine.Stop()
}

// Toggle switches between playing and paused.
func (t *Transport) Toggle() {
	if t.engine.Playing() {
		t.Pause()
	} else {
		t.Play()
	}
}

// Stop halts playback and rewinds to tick 0.
func (t *Transport) Stop() {
	t.engine.Stop()
	t.engine.ScrubToTick(0)
}

// Seek scrubs to tick. If playback was active it continues from the new
// position without a gap; otherwise the position is just retained.
func (t *Transport) Seek(tick int64) {
	wasPlaying := t.engine.Playing()
	t.engine.ScrubToTick(tick)
	if wasPlaying {
		t.engine.Start(tick)
	}
}

// Playing reports whether playback is active.
func (t *Transport) Playing() bool {
	return t.engine.Playing()
}

// CurrentTick reports the playback position in ticks.
func (t *Transport) CurrentTick() int64 {
	return t.engine.CurrentTick()
}

// CurrentSeconds reports the playback position in seconds.
func (t *Transport) CurrentSeconds() float64 {
	return t.engine.CurrentSeconds()
}
