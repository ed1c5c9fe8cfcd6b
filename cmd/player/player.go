// Command player plays a Standard MIDI File to an output port with
// interactive transport control.
//
// Keys: space toggles play/pause, left/right (or ,/.) seek by two seconds,
// s stops and rewinds, 0-9 toggle muting of that track, q quits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/term"

	"github.com/klangwerk/midiplay/internal/file"
	"github.com/klangwerk/midiplay/internal/player"
)

var (
	c         = flag.String("c", "", "config file name (YAML); optional")
	i         = flag.String("i", "", "input MIDI file name")
	port      = flag.String("port", "", "regular expression to match the preferred output port")
	startTick = flag.Int64("start_tick", 0, "tick position to start playing at")
	silent    = flag.Bool("n", false, "do not open an output port; just run the schedule")
)

// readKeys translates raw terminal input into backend commands.
func readKeys(in io.Reader, commands chan<- player.Command) {
	seekBack, seekFwd := -2.0, 2.0
	buf := make([]byte, 1)
	esc := 0
	for {
		_, err := in.Read(buf)
		if err != nil {
			return
		}
		b := buf[0]
		// Minimal ESC [ A..D arrow decoding.
		switch esc {
		case 1:
			if b == '[' {
				esc = 2
			} else {
				esc = 0
			}
			continue
		case 2:
			esc = 0
			switch b {
			case 'C':
				commands <- player.Command{SeekBySeconds: &seekFwd}
			case 'D':
				commands <- player.Command{SeekBySeconds: &seekBack}
			}
			continue
		}
		switch {
		case b == 0x1b:
			esc = 1
		case b == ' ':
			commands <- player.Command{Toggle: true}
		case b == '.':
			commands <- player.Command{SeekBySeconds: &seekFwd}
		case b == ',':
			commands <- player.Command{SeekBySeconds: &seekBack}
		case b == 's':
			commands <- player.Command{Stop: true}
		case b >= '0' && b <= '9':
			track := int(b - '0')
			commands <- player.Command{ToggleMuteTrack: &track}
		case b == 'q' || b == 0x03:
			commands <- player.Command{Quit: true}
			return
		}
	}
}

// showStates renders a single status line from backend snapshots.
func showStates(states <-chan player.State) {
	for state := range states {
		mark := "paused "
		if state.Playing {
			mark = "playing"
		}
		fmt.Printf("\r%s %7.1fs / %.1fs (tick %d)   ", mark, state.Seconds, state.LengthSeconds, state.Tick)
		if state.Done {
			fmt.Printf("\r\ndone\r\n")
		}
	}
}

func Main() error {
	if *i == "" {
		return errors.New("need an input file (-i)")
	}

	config := &file.Config{}
	if *c != "" {
		var err error
		config, err = file.ReadConfig(os.DirFS("."), *c)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	portPattern := config.Port
	if *port != "" {
		portPattern = *port
	}

	mid, err := smf.ReadFile(*i)
	if err != nil {
		return fmt.Errorf("failed to parse %v: %w", *i, err)
	}

	options := &player.Options{
		Mute:         config.MuteConfig(),
		PollInterval: config.PollInterval(),
	}
	if !*silent {
		outPort, err := player.FindBestPort(portPattern)
		if err != nil {
			return fmt.Errorf("could not find MIDI port: %w", err)
		}
		log.Printf("Picked output port: %v.", outPort)
		err = outPort.Open()
		if err != nil {
			return fmt.Errorf("could not open MIDI port %v: %w", outPort, err)
		}
		defer outPort.Close()
		options.Out = outPort
	}
	backend := player.NewBackend(options)
	defer backend.Close()

	backend.Load(mid)
	backend.Transport().Seek(*startTick)
	backend.Transport().Play()

	sigInt := make(chan os.Signal, 1)
	signal.Notify(sigInt, os.Interrupt)
	go func() {
		<-sigInt
		backend.Commands <- player.Command{Quit: true}
	}()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		save, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("could not enter raw mode: %w", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), save)
		go readKeys(os.Stdin, backend.Commands)
	}
	go showStates(backend.States)

	// Give slow synthesizers a beat before the first event.
	time.Sleep(100 * time.Millisecond)
	return backend.Loop()
}

func main() {
	flag.Parse()
	err := Main()
	if errors.Is(err, player.QuitError) {
		fmt.Printf("\r\n")
		return
	}
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
