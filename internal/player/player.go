// Package player drives a playback.Engine from a single goroutine.
//
// The engine itself is lock-free and single-threaded; this package supplies
// the external serialization the engine demands. UI goroutines send
// Commands into a channel, the Loop goroutine owns the engine, polls it on
// a ticker, and publishes State snapshots non-blockingly.
package player

import (
	"errors"
	"log"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/klangwerk/midiplay/internal/playback"
	"github.com/klangwerk/midiplay/internal/timeline"
)

// QuitError is returned by Loop after a Quit command.
var QuitError = errors.New("intentionally quitting")

// Command is one UI intent sent to the driving loop. Exactly one field
// should be set per message.
type Command struct {
	// Play starts or resumes playback.
	Play bool

	// Pause halts playback, retaining the position.
	Pause bool

	// Toggle switches between playing and paused.
	Toggle bool

	// Stop halts playback and rewinds to tick 0.
	Stop bool

	// SeekTick repositions playback to an absolute tick.
	SeekTick *int64

	// SeekBySeconds moves playback relative to the current position.
	SeekBySeconds *float64

	// ToggleMuteTrack flips the mute state of a track.
	ToggleMuteTrack *int

	// ToggleMuteChannel flips the mute state of a MIDI channel.
	ToggleMuteChannel *uint8

	// Quit exits the loop.
	Quit bool
}

// State is a snapshot of the playback position, published after every
// poll and command.
type State struct {
	// Playing is whether the engine is currently delivering events.
	Playing bool

	// Tick is the current playback position in ticks.
	Tick int64

	// Seconds is the current playback position in seconds.
	Seconds float64

	// LengthTicks and LengthSeconds describe the loaded file.
	LengthTicks   int64
	LengthSeconds float64

	// Done is set once when the end of the file is reached.
	Done bool
}

// Options configures a Backend.
type Options struct {
	// Out is the opened MIDI output port. May be nil to discard output.
	Out drivers.Out

	// Mute is the shared mute configuration. Nil forwards everything.
	Mute *playback.MuteConfig

	// PollInterval is the driving timer period.
	PollInterval time.Duration
}

type noteKey struct {
	ch, note uint8
}

// Backend owns the engine, transport and output port.
type Backend struct {
	// Commands accepts UI intents from any goroutine.
	Commands chan Command

	// States receives snapshots non-blockingly; slow consumers miss
	// updates rather than stalling playback.
	States chan State

	out       drivers.Out
	mute      *playback.MuteConfig
	engine    *playback.Engine
	transport *playback.Transport
	interval  time.Duration

	tempo       *timeline.TempoMap
	lengthTicks int64
	lengthSecs  float64

	// sounding tracks notes the port has been told to start, so that
	// stop/seek/quit can flush them instead of letting them ring.
	sounding map[noteKey]struct{}
}

// NewBackend creates an idle backend; call Load before Loop.
func NewBackend(options *Options) *Backend {
	b := &Backend{
		Commands: make(chan Command, 10),
		States:   make(chan State, 100),
		out:      options.Out,
		mute:     options.Mute,
		interval: options.PollInterval,
		sounding: map[noteKey]struct{}{},
	}
	if b.interval <= 0 {
		b.interval = 15 * time.Millisecond
	}
	b.engine = playback.NewEngine(b.mute, b.send)
	b.transport = playback.NewTransport(b.engine)
	return b
}

// Transport exposes the transport for same-goroutine setup (e.g. seeking
// to a start position before Loop runs).
func (b *Backend) Transport() *playback.Transport {
	return b.transport
}

// Load builds the tempo map and event list from a parsed file and loads
// the engine. The mute configuration is untouched.
func (b *Backend) Load(mid *smf.SMF) {
	b.tempo = timeline.NewTempoMap(mid)
	events := timeline.BuildEventList(mid)
	b.lengthTicks = timeline.LastTick(events)
	b.lengthSecs = b.tempo.TicksToSeconds(b.lengthTicks)
	b.engine.Load(b.tempo, events)
}

// send is the engine's event callback: it forwards to the output port and
// tracks which notes are sounding.
func (b *Backend) send(track int, msg midi.Message) {
	var ch, note uint8
	if msg.GetNoteStart(&ch, &note, nil) {
		b.sounding[noteKey{ch, note}] = struct{}{}
	} else if msg.GetNoteEnd(&ch, &note) {
		delete(b.sounding, noteKey{ch, note})
	}
	if b.out == nil {
		return
	}
	err := b.out.Send(msg)
	if err != nil {
		log.Printf("Failed to send to %v: %v.", b.out, err)
	}
}

// flush turns off every sounding note, in deterministic order.
func (b *Backend) flush() {
	keys := make([]noteKey, 0, len(b.sounding))
	for k := range b.sounding {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ch != keys[j].ch {
			return keys[i].ch < keys[j].ch
		}
		return keys[i].note < keys[j].note
	})
	for _, k := range keys {
		delete(b.sounding, k)
		if b.out == nil {
			continue
		}
		err := b.out.Send(midi.NoteOff(k.ch, k.note))
		if err != nil {
			log.Printf("Failed to send note off to %v: %v.", b.out, err)
		}
	}
}

func (b *Backend) state(done bool) State {
	return State{
		Playing:       b.engine.Playing(),
		Tick:          b.engine.CurrentTick(),
		Seconds:       b.engine.CurrentSeconds(),
		LengthTicks:   b.lengthTicks,
		LengthSeconds: b.lengthSecs,
		Done:          done,
	}
}

func (b *Backend) sendState(done bool) {
	select {
	case b.States <- b.state(done):
	default:
		// Nobody is listening; drop the update rather than stall.
	}
}

// clampTick keeps seeks inside the file.
func (b *Backend) clampTick(tick int64) int64 {
	if tick < 0 {
		return 0
	}
	if tick > b.lengthTicks {
		return b.lengthTicks
	}
	return tick
}

// handleCommand applies one command. It returns QuitError for Quit.
func (b *Backend) handleCommand(cmd Command) error {
	switch {
	case cmd.Play:
		b.transport.Play()
	case cmd.Pause:
		b.transport.Pause()
		b.flush()
	case cmd.Toggle:
		b.transport.Toggle()
		if !b.transport.Playing() {
			b.flush()
		}
	case cmd.Stop:
		b.flush()
		b.transport.Stop()
	case cmd.SeekTick != nil:
		b.flush()
		b.transport.Seek(b.clampTick(*cmd.SeekTick))
	case cmd.SeekBySeconds != nil:
		b.flush()
		target := b.engine.TickAtSeconds(b.engine.CurrentSeconds() + *cmd.SeekBySeconds)
		b.transport.Seek(b.clampTick(target))
	case cmd.ToggleMuteTrack != nil:
		if b.mute != nil {
			t := *cmd.ToggleMuteTrack
			b.mute.SetTrackMuted(t, !b.mute.MutedTracks[t])
		}
	case cmd.ToggleMuteChannel != nil:
		if b.mute != nil {
			ch := *cmd.ToggleMuteChannel
			b.mute.SetChannelMuted(ch, !b.mute.MutedChannels[ch])
		}
	case cmd.Quit:
		return QuitError
	default:
		log.Printf("Unrecognized command: %+v.", cmd)
	}
	b.sendState(false)
	return nil
}

// Close releases the backend once Loop has returned: the States channel
// is closed so display goroutines ranging over it terminate. The output
// port stays with its opener.
func (b *Backend) Close() {
	close(b.States)
}

// Loop drives the engine until the file ends (nil) or a Quit command
// arrives (QuitError). Sounding notes are flushed on the way out.
func (b *Backend) Loop() error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	defer b.flush()

	b.sendState(false)
	for {
		select {
		case cmd := <-b.Commands:
			err := b.handleCommand(cmd)
			if err != nil {
				return err
			}
		case <-ticker.C:
			eof := b.engine.ProcessUntilNow()
			b.sendState(eof)
			if eof {
				return nil
			}
		}
	}
}
