package playback

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/klangwerk/midiplay/internal/timeline"
)

// MuteConfig decides which scheduled events are forwarded to the output.
// It belongs to the editor/UI layer and deliberately survives Engine.Load:
// muting a track is a statement about the listener's setup, not about any
// particular file.
type MuteConfig struct {
	MutedTracks            map[int]bool
	MutedChannels          map[uint8]bool
	SuppressProgramChanges bool
	SuppressControlChanges bool
}

// NewMuteConfig returns an empty configuration that forwards everything.
func NewMuteConfig() *MuteConfig {
	return &MuteConfig{
		MutedTracks:   map[int]bool{},
		MutedChannels: map[uint8]bool{},
	}
}

// SetTrackMuted mutes or unmutes a track by index.
func (c *MuteConfig) SetTrackMuted(track int, muted bool) {
	if muted {
		c.MutedTracks[track] = true
	} else {
		delete(c.MutedTracks, track)
	}
}

// SetChannelMuted mutes or unmutes a MIDI channel (0-15).
func (c *MuteConfig) SetChannelMuted(ch uint8, muted bool) {
	if muted {
		c.MutedChannels[ch] = true
	} else {
		delete(c.MutedChannels, ch)
	}
}

// ShouldSend reports whether ev passes the filter. Pure: no state is
// changed, and an event suppressed now will be forwarded later if the
// configuration changed in between (already-delivered events are never
// retracted).
func (c *MuteConfig) ShouldSend(ev timeline.Event) bool {
	if c == nil {
		return true
	}
	if c.MutedTracks[ev.Track] {
		return false
	}
	var ch uint8
	if ev.Message.GetChannel(&ch) && c.MutedChannels[ch] {
		return false
	}
	if c.SuppressProgramChanges && ev.Message.Is(midi.ProgramChangeMsg) {
		return false
	}
	if c.SuppressControlChanges && ev.Message.Is(midi.ControlChangeMsg) {
		return false
	}
	return true
}
