package dma

import "time"

// PollPolicy bounds the busy-wait of a transfer. A zero field does not
// bound anything, so the zero PollPolicy waits forever.
type PollPolicy struct {
	// MaxPolls is the number of status reads after which the transfer is
	// abandoned.
	MaxPolls uint64

	// Timeout is the wall-clock time after which the transfer is
	// abandoned.
	Timeout time.Duration
}

// WaitForever is the policy of the original blocking transfer.
var WaitForever = PollPolicy{}

// Bounded tells if the policy can give up.
func (p PollPolicy) Bounded() bool {
	return p.MaxPolls > 0 || p.Timeout > 0
}

func (p PollPolicy) expired(polls uint64, elapsed time.Duration) bool {
	if p.MaxPolls > 0 && polls >= p.MaxPolls {
		return true
	}

	return p.Timeout > 0 && elapsed >= p.Timeout
}
