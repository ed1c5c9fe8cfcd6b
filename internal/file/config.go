// Package file reads and writes the player's YAML configuration.
package file

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/klangwerk/midiplay/internal/playback"
)

// Config is the persisted playback configuration. It is owned by the
// editor/UI layer and survives loading a new file.
type Config struct {
	// MutedTracks lists 0-based track indices to silence.
	MutedTracks []int `yaml:"muted_tracks,omitempty"`

	// MutedChannels lists MIDI channels (0-15) to silence.
	MutedChannels []uint8 `yaml:"muted_channels,omitempty"`

	// SuppressProgramChanges drops all program change messages, keeping
	// the synthesizer's manually dialed patch.
	SuppressProgramChanges bool `yaml:"suppress_program_changes,omitempty"`

	// SuppressControlChanges drops all control change messages.
	SuppressControlChanges bool `yaml:"suppress_control_changes,omitempty"`

	// PollIntervalMS is the driving timer period in milliseconds.
	PollIntervalMS int `yaml:"poll_interval_ms,omitempty"`

	// Port is a regular expression matching the preferred output port.
	Port string `yaml:"port,omitempty"`
}

// ReadConfig loads a Config from fsys.
func ReadConfig(fsys fs.FS, configFile string) (*Config, error) {
	f, err := fsys.Open(configFile)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %v", configFile, err)
	}
	defer f.Close()
	var config Config
	err = yaml.NewDecoder(f).Decode(&config)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %v", configFile, err)
	}
	return &config, nil
}

// WriteConfig saves a Config.
func WriteConfig(configFile string, config *Config) (err error) {
	f, err := os.Create(configFile)
	if err != nil {
		return fmt.Errorf("could not create %v: %v", configFile, err)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2) // Match yq.
	return enc.Encode(config)
}

// MuteConfig converts the persisted lists into the engine's set form.
func (c *Config) MuteConfig() *playback.MuteConfig {
	m := playback.NewMuteConfig()
	for _, t := range c.MutedTracks {
		m.SetTrackMuted(t, true)
	}
	for _, ch := range c.MutedChannels {
		m.SetChannelMuted(ch, true)
	}
	m.SuppressProgramChanges = c.SuppressProgramChanges
	m.SuppressControlChanges = c.SuppressControlChanges
	return m
}

// PollInterval returns the driving timer period, defaulting to 15ms.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 15 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
