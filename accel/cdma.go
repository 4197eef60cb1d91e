package accel

import (
	"errors"
	"log"
	"sync"

	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/sim"
)

// A cdmaTransaction is the transfer that the controller is working on.
type cdmaTransaction struct {
	src, dst, length uint64

	nextRead  uint64
	nextWrite uint64
	staged    []byte
}

// A cdmaStatusEvent raises status bits at the end of the cycle in which a
// transfer finished or aborted.
type cdmaStatusEvent struct {
	*sim.EventBase
	bits uint32
}

// CDMA models an AXI central DMA controller in simple mode. Software writes
// the destination, the source, and finally the byte count, which starts
// the transfer. The controller reads ahead from the source into a staging
// buffer and drains the buffer into the destination, a few bytes per cycle.
type CDMA struct {
	*sim.TickingComponent

	layout        device.CDMARegisters
	bus           *Interconnect
	bytesPerCycle uint64
	bufferSize    uint64
	stalled       bool
	logger        *log.Logger
	boardLock     *sync.Mutex

	control uint32
	status  uint32
	srcAddr uint32
	dstAddr uint32
	btt     uint32

	transaction *cdmaTransaction
	transfers   uint64
	bytesMoved  uint64
}

// Busy tells if a transfer is in progress.
func (c *CDMA) Busy() bool {
	return c.transaction != nil
}

// Stats returns the number of completed transfers and moved bytes.
func (c *CDMA) Stats() (transfers, bytes uint64) {
	return c.transfers, c.bytesMoved
}

// Handle processes the status updates of the controller. Ticks go to the
// embedded ticking component.
func (c *CDMA) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *cdmaStatusEvent:
		c.status |= e.bits
	case sim.TickEvent:
		return c.TickingComponent.Handle(e)
	default:
		log.Panicf("cannot handle event of %T", e)
	}

	return nil
}

// postStatus raises bits once every block has finished the current cycle.
func (c *CDMA) postStatus(bits uint32) {
	evt := &cdmaStatusEvent{
		EventBase: sim.NewSecondaryEventBase(c.Engine.CurrentTime(), c),
		bits:      bits,
	}
	c.Engine.Schedule(evt)
}

// Tick moves data for one cycle.
func (c *CDMA) Tick() bool {
	madeProgress := false

	madeProgress = c.finishTransaction() || madeProgress
	madeProgress = c.writeToDst() || madeProgress
	madeProgress = c.readFromSrc() || madeProgress

	return madeProgress
}

func (c *CDMA) readFromSrc() bool {
	trans := c.transaction
	if trans == nil || c.stalled {
		return false
	}

	if trans.nextRead >= trans.length {
		return false
	}

	if uint64(len(trans.staged)) >= c.bufferSize {
		return false
	}

	n := min(c.bytesPerCycle, trans.length-trans.nextRead)

	data, err := c.bus.Read(trans.src+trans.nextRead, n)
	if err != nil {
		c.abort(err)
		return true
	}

	trans.staged = append(trans.staged, data...)
	trans.nextRead += n

	return true
}

func (c *CDMA) writeToDst() bool {
	trans := c.transaction
	if trans == nil || len(trans.staged) == 0 {
		return false
	}

	n := min(c.bytesPerCycle, uint64(len(trans.staged)))

	err := c.bus.Write(trans.dst+trans.nextWrite, trans.staged[:n])
	if err != nil {
		c.abort(err)
		return true
	}

	trans.staged = trans.staged[n:]
	trans.nextWrite += n

	return true
}

func (c *CDMA) finishTransaction() bool {
	trans := c.transaction
	if trans == nil || trans.nextWrite < trans.length {
		return false
	}

	c.transaction = nil
	c.transfers++
	c.bytesMoved += trans.length
	c.postStatus(c.layout.IdleMask)

	return true
}

func (c *CDMA) abort(err error) {
	bits := c.layout.SlvErrMask
	if errors.Is(err, errDecode) {
		bits = c.layout.DecErrMask
	}

	c.transaction = nil
	c.postStatus(bits | c.layout.IdleMask)

	if c.logger != nil {
		c.logger.Printf("%s: transfer aborted, %v", c.Name(), err)
	}
}

func (c *CDMA) readRegister(addr uint64) uint32 {
	switch addr {
	case c.layout.Control():
		return c.control
	case c.layout.Status():
		return c.status
	case c.layout.SrcAddr():
		return c.srcAddr
	case c.layout.DstAddr():
		return c.dstAddr
	case c.layout.BytesToXfer():
		return c.btt
	}

	return 0
}

func (c *CDMA) writeRegister(addr uint64, value uint32) {
	switch addr {
	case c.layout.Control():
		c.writeControl(value)
		return
	case c.layout.Status():
		return
	}

	if c.Busy() {
		return
	}

	switch addr {
	case c.layout.SrcAddr():
		c.srcAddr = value
	case c.layout.DstAddr():
		c.dstAddr = value
	case c.layout.BytesToXfer():
		c.startTransaction(value)
	}
}

func (c *CDMA) writeControl(value uint32) {
	if value&c.layout.ResetMask == 0 {
		c.control = value
		return
	}

	c.reset()
}

func (c *CDMA) reset() {
	c.transaction = nil
	c.control = 0
	c.status = c.layout.IdleMask
	c.srcAddr = 0
	c.dstAddr = 0
	c.btt = 0
}

func (c *CDMA) startTransaction(value uint32) {
	length := uint64(value)
	if c.layout.MaxTransfer > 0 {
		length &= c.layout.MaxTransfer
	}

	c.btt = uint32(length)

	if length == 0 || c.status&c.layout.ErrMask() != 0 {
		return
	}

	c.transaction = &cdmaTransaction{
		src:    uint64(c.srcAddr),
		dst:    uint64(c.dstAddr),
		length: length,
	}
	c.status &^= c.layout.IdleMask

	c.TickNow()
}
