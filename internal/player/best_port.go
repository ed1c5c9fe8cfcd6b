package player

import (
	"fmt"
	"regexp"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	// Loopback ports that only echo data back into the system.
	throughPortsRE = regexp.MustCompile(`\bMidi Through\b|\bPipeWire-System\b|\bPipeWire-RT-Event\b`)

	// Hardware interfaces, the usual home of an external synthesizer.
	hardwarePortsRE = regexp.MustCompile(`\bUSB|\bUM-`)

	// Software synthesizers, a last resort.
	softSynthPortsRE = regexp.MustCompile(`\bFLUID\b|\bSynth\b|\bTiMidity\b`)
)

// portScore ranks an output port: hardware first, then anything neutral,
// software synthesizers last.
func portScore(port drivers.Out) int {
	s := port.Number()
	if hardwarePortsRE.MatchString(port.String()) {
		s -= 2000
	}
	if softSynthPortsRE.MatchString(port.String()) {
		s += 1000
	}
	return s
}

// FindBestPort picks the output port to play to. A non-empty pattern
// restricts the choice to matching ports and is an error if nothing
// matches; otherwise all ports except loopbacks are candidates.
func FindBestPort(pattern string) (drivers.Out, error) {
	ports := midi.GetOutPorts()
	if pattern != "" {
		portRE, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile -port RE %v: %w", pattern, err)
		}
		var matching []drivers.Out
		for _, port := range ports {
			if portRE.MatchString(port.String()) {
				matching = append(matching, port)
			}
		}
		if len(matching) == 0 {
			return nil, fmt.Errorf("no output port matches %v", pattern)
		}
		ports = matching
	} else {
		var usable []drivers.Out
		for _, port := range ports {
			if throughPortsRE.MatchString(port.String()) {
				continue
			}
			usable = append(usable, port)
		}
		ports = usable
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no output port found")
	}
	best := ports[0]
	for _, port := range ports[1:] {
		if portScore(port) < portScore(best) {
			best = port
		}
	}
	return best, nil
}
