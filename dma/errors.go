package dma

import (
	"errors"
	"fmt"
	"time"
)

// Errors reported by the Engine.
var (
	// ErrBusy is returned when a transfer is requested while another one is
	// still in flight.
	ErrBusy = errors.New("dma engine is busy")

	// ErrTransferTimeout is returned when the engine does not become idle
	// within the poll policy.
	ErrTransferTimeout = errors.New("dma transfer timed out")

	// ErrTransferFault is returned when the engine reports an error in its
	// status register.
	ErrTransferFault = errors.New("dma transfer fault")

	// ErrInvalidTransfer is returned for requests that the engine cannot
	// express.
	ErrInvalidTransfer = errors.New("invalid dma transfer")
)

// A Request describes one block transfer.
type Request struct {
	Dst    uint64
	Src    uint64
	Length uint64
}

func (r Request) String() string {
	return fmt.Sprintf("0x%08x <- 0x%08x (%d bytes)", r.Dst, r.Src, r.Length)
}

// TimeoutError tells how long a transfer was waited for.
type TimeoutError struct {
	Request
	Polls   uint64
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s, %d polls in %s",
		ErrTransferTimeout, e.Request, e.Polls, e.Elapsed)
}

// Is makes errors.Is(err, ErrTransferTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTransferTimeout
}

// FaultError carries the status register of a failed transfer.
type FaultError struct {
	Request
	Status uint32
	Reason string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s: %s, %s (status 0x%08x)",
		ErrTransferFault, e.Request, e.Reason, e.Status)
}

// Is makes errors.Is(err, ErrTransferFault) hold.
func (e *FaultError) Is(target error) bool {
	return target == ErrTransferFault
}
