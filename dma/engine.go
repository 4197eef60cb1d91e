// Package dma drives a central DMA controller through its registers.
package dma

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/sim"
	"github.com/sarchlab/bankcheck/tracing"
)

// Engine moves blocks of memory with a single-channel DMA controller. Only
// one transfer may be in flight at a time.
type Engine struct {
	sim.HookableBase

	name   string
	regs   device.RegisterFile
	layout device.CDMARegisters
	policy PollPolicy
	now    func() time.Time

	lock     sync.Mutex
	inFlight atomic.Bool

	parentTask atomic.Value
}

// EngineState is a copy of what an Engine is doing.
type EngineState struct {
	Name     string
	Policy   PollPolicy
	InFlight bool
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return e.name
}

// Policy returns the poll policy of the engine.
func (e *Engine) Policy() PollPolicy {
	return e.policy
}

// Snapshot copies the state of the engine. It does not wait for the
// transfer in flight.
func (e *Engine) Snapshot() any {
	return &EngineState{
		Name:     e.name,
		Policy:   e.policy,
		InFlight: e.inFlight.Load(),
	}
}

// SetParentTask makes the transfers that follow subtasks of the given task.
// An empty ID detaches them.
func (e *Engine) SetParentTask(id string) {
	e.parentTask.Store(id)
}

func (e *Engine) parentTaskID() string {
	id, _ := e.parentTask.Load().(string)
	return id
}

// Start programs the destination, the source, and the length of a transfer,
// in this order. Writing the length starts the transfer.
func (e *Engine) Start(dst, src, length uint64) error {
	if !e.lock.TryLock() {
		return ErrBusy
	}
	defer e.lock.Unlock()

	return e.start(Request{Dst: dst, Src: src, Length: length})
}

// IsIdle tells if the engine has finished its last transfer.
func (e *Engine) IsIdle() bool {
	return e.status()&e.layout.IdleMask != 0
}

// Transfer moves length bytes from src to dst and waits until the engine
// reports that the data has landed.
func (e *Engine) Transfer(dst, src, length uint64) error {
	if !e.lock.TryLock() {
		return ErrBusy
	}
	defer e.lock.Unlock()

	req := Request{Dst: dst, Src: src, Length: length}
	taskID := sim.GetIDGenerator().Generate()

	tracing.StartTask(taskID, e.parentTaskID(), e, "dma", "transfer", req)
	defer tracing.EndTask(taskID, e)

	if err := e.start(req); err != nil {
		return err
	}

	return e.wait(req, taskID)
}

// Reset aborts whatever the controller is doing and clears its error bits.
func (e *Engine) Reset() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.reset()
}

func (e *Engine) reset() {
	e.regs.WriteRegister(e.layout.Control(), e.layout.ResetMask)
	e.inFlight.Store(false)
}

func (e *Engine) status() uint32 {
	return e.regs.ReadRegister(e.layout.Status())
}

func (e *Engine) start(req Request) error {
	if err := e.requestMustBeValid(req); err != nil {
		return err
	}

	if e.inFlight.Load() && !e.IsIdle() {
		return fmt.Errorf("%w: cannot start %s", ErrBusy, req)
	}

	e.regs.WriteRegister(e.layout.DstAddr(), uint32(req.Dst))
	e.regs.WriteRegister(e.layout.SrcAddr(), uint32(req.Src))
	e.regs.WriteRegister(e.layout.BytesToXfer(), uint32(req.Length))
	e.inFlight.Store(true)

	return nil
}

func (e *Engine) requestMustBeValid(req Request) error {
	if req.Length == 0 {
		return fmt.Errorf("%w: %s has no data", ErrInvalidTransfer, req)
	}

	if e.layout.MaxTransfer > 0 && req.Length > e.layout.MaxTransfer {
		return fmt.Errorf("%w: %s is longer than %d bytes",
			ErrInvalidTransfer, req, e.layout.MaxTransfer)
	}

	const addrLimit = uint64(1) << 32
	if req.Dst >= addrLimit || req.Length > addrLimit-req.Dst ||
		req.Src >= addrLimit || req.Length > addrLimit-req.Src {
		return fmt.Errorf("%w: %s does not fit in 32-bit addresses",
			ErrInvalidTransfer, req)
	}

	return nil
}

func (e *Engine) wait(req Request, taskID string) error {
	begin := e.now()
	polls := uint64(0)

	for {
		status := e.status()
		polls++

		if status&e.layout.IdleMask != 0 {
			e.inFlight.Store(false)
			return e.checkFault(req, status, taskID)
		}

		elapsed := e.now().Sub(begin)
		if e.policy.expired(polls, elapsed) {
			tracing.AddTaskStep(taskID, e, "timeout")

			return &TimeoutError{Request: req, Polls: polls, Elapsed: elapsed}
		}
	}
}

func (e *Engine) checkFault(req Request, status uint32, taskID string) error {
	if status&e.layout.ErrMask() == 0 {
		return nil
	}

	tracing.AddTaskStep(taskID, e, "fault")
	e.reset()

	return &FaultError{
		Request: req,
		Status:  status,
		Reason:  e.faultReason(status),
	}
}

func (e *Engine) faultReason(status uint32) string {
	switch {
	case status&e.layout.DecErrMask != 0:
		return "decode error"
	case status&e.layout.SlvErrMask != 0:
		return "slave error"
	default:
		return "internal error"
	}
}
