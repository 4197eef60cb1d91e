package accel

import (
	"fmt"
	"strings"
)

// A Fault is a hardware defect that the platform can pretend to have.
type Fault int

// The faults that can be injected.
const (
	// FaultNone is a healthy board.
	FaultNone Fault = iota

	// FaultStall makes the DMA controller accept transfers but never move
	// any data, so it never becomes idle again.
	FaultStall

	// FaultAlias makes the control block ignore bank swap requests, so both
	// filter bank sets alias the same physical memories.
	FaultAlias
)

var faultNames = []string{"none", "stall", "alias"}

func (f Fault) String() string {
	if f < 0 || int(f) >= len(faultNames) {
		return fmt.Sprintf("Fault(%d)", int(f))
	}

	return faultNames[f]
}

// ParseFault converts a name such as "stall" to a Fault.
func ParseFault(name string) (Fault, error) {
	for i, n := range faultNames {
		if strings.EqualFold(n, name) {
			return Fault(i), nil
		}
	}

	return FaultNone, fmt.Errorf("unknown fault %q, expecting one of %s",
		name, strings.Join(faultNames, ", "))
}
