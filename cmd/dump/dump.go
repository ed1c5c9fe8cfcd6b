// Command dump prints the merged tempo timeline and the event schedule of
// a Standard MIDI File, with the wall-clock time each event would play at.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/klangwerk/midiplay/internal/timeline"
)

var (
	i      = flag.String("i", "", "input MIDI file name")
	events = flag.Bool("events", true, "also dump the event schedule")
)

func Main() error {
	if *i == "" {
		return fmt.Errorf("need an input file (-i)")
	}
	mid, err := smf.ReadFile(*i)
	if err != nil {
		return fmt.Errorf("failed to parse %v: %w", *i, err)
	}

	tempo := timeline.NewTempoMap(mid)
	fmt.Printf("%v: %d ticks per beat\n", *i, tempo.TicksPerBeat())
	for _, change := range tempo.Changes() {
		fmt.Printf("tempo %10.3fs tick %7d: %6.2f BPM\n",
			change.Seconds, change.Tick, 60e6/change.MicrosPerBeat)
	}

	list := timeline.BuildEventList(mid)
	last := timeline.LastTick(list)
	fmt.Printf("%d events, length %v (tick %d)\n", len(list), tempo.DurationAt(last), last)
	if !*events {
		return nil
	}
	for _, ev := range list {
		fmt.Printf("event %10.3fs tick %7d track %d: %v\n",
			tempo.TicksToSeconds(ev.Tick), ev.Tick, ev.Track, ev.Message)
	}
	return nil
}

func main() {
	flag.Parse()
	err := Main()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
