package dma

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/tracing"
	"go.uber.org/mock/gomock"
)

const (
	regCR  = uint64(0x7E20_0000)
	regSR  = uint64(0x7E20_0004)
	regSA  = uint64(0x7E20_0018)
	regDA  = uint64(0x7E20_0020)
	regBTT = uint64(0x7E20_0028)

	idle   = uint32(1 << 1)
	decErr = uint32(1 << 6)
	slvErr = uint32(1 << 5)
)

type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

type parentRecorder struct {
	parents []string
}

func (r *parentRecorder) StartTask(task tracing.Task) {
	r.parents = append(r.parents, task.ParentID)
}

func (r *parentRecorder) StepTask(tracing.Task) {}

func (r *parentRecorder) EndTask(tracing.Task) {}

var _ = Describe("Engine", func() {
	var (
		mockCtrl *gomock.Controller
		regs     *MockRegisterFile
		engine   *Engine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		regs = NewMockRegisterFile(mockCtrl)
		engine = MakeBuilder().
			WithRegisterFile(regs).
			Build("CDMA")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectStart := func(dst, src, length uint32) *gomock.Call {
		da := regs.EXPECT().WriteRegister(regDA, dst)
		sa := regs.EXPECT().WriteRegister(regSA, src).After(da)

		return regs.EXPECT().WriteRegister(regBTT, length).After(sa)
	}

	It("should program destination, source, then length", func() {
		expectStart(0x4000_0000, 0x1000_0000, 0x800)

		Expect(engine.Start(0x4000_0000, 0x1000_0000, 0x800)).To(Succeed())
	})

	It("should report idle from the status register", func() {
		gomock.InOrder(
			regs.EXPECT().ReadRegister(regSR).Return(uint32(0)),
			regs.EXPECT().ReadRegister(regSR).Return(idle),
		)

		Expect(engine.IsIdle()).To(BeFalse())
		Expect(engine.IsIdle()).To(BeTrue())
	})

	It("should poll until the engine becomes idle", func() {
		start := expectStart(0x4000_0000, 0x1000_0000, 0x800)
		gomock.InOrder(
			regs.EXPECT().ReadRegister(regSR).Return(uint32(0)).Times(5).After(start),
			regs.EXPECT().ReadRegister(regSR).Return(idle),
		)

		Expect(engine.Transfer(0x4000_0000, 0x1000_0000, 0x800)).To(Succeed())
	})

	It("should reject transfers without data", func() {
		err := engine.Transfer(0x4000_0000, 0x1000_0000, 0)

		Expect(err).To(MatchError(ErrInvalidTransfer))
	})

	It("should reject transfers longer than the byte count field", func() {
		err := engine.Transfer(0x4000_0000, 0x1000_0000, 0x80_0000)

		Expect(err).To(MatchError(ErrInvalidTransfer))
	})

	It("should reject addresses beyond 32 bits", func() {
		Expect(engine.Start(0x1_0000_0000, 0x1000_0000, 4)).
			To(MatchError(ErrInvalidTransfer))
		Expect(engine.Start(0x4000_0000, 0xFFFF_FFFE, 4)).
			To(MatchError(ErrInvalidTransfer))
	})

	It("should give up after the maximum number of polls", func() {
		engine = MakeBuilder().
			WithRegisterFile(regs).
			WithPollPolicy(PollPolicy{MaxPolls: 10}).
			Build("CDMA")

		expectStart(0x4000_0000, 0x1000_0000, 4)
		regs.EXPECT().ReadRegister(regSR).Return(uint32(0)).Times(10)

		err := engine.Transfer(0x4000_0000, 0x1000_0000, 4)

		Expect(err).To(MatchError(ErrTransferTimeout))

		var timeout *TimeoutError
		Expect(errors.As(err, &timeout)).To(BeTrue())
		Expect(timeout.Polls).To(Equal(uint64(10)))
		Expect(timeout.Dst).To(Equal(uint64(0x4000_0000)))
	})

	It("should give up after the timeout", func() {
		clock := &fakeClock{now: time.Unix(0, 0), step: time.Millisecond}
		engine = MakeBuilder().
			WithRegisterFile(regs).
			WithPollPolicy(PollPolicy{Timeout: 10 * time.Millisecond}).
			WithClock(clock.Now).
			Build("CDMA")

		expectStart(0x4000_0000, 0x1000_0000, 4)
		regs.EXPECT().ReadRegister(regSR).Return(uint32(0)).Times(10)

		err := engine.Transfer(0x4000_0000, 0x1000_0000, 4)

		var timeout *TimeoutError
		Expect(errors.As(err, &timeout)).To(BeTrue())
		Expect(timeout.Elapsed).To(Equal(10 * time.Millisecond))
	})

	It("should refuse to start while the last transfer is still running", func() {
		engine = MakeBuilder().
			WithRegisterFile(regs).
			WithPollPolicy(PollPolicy{MaxPolls: 1}).
			Build("CDMA")

		expectStart(0x4000_0000, 0x1000_0000, 4)
		regs.EXPECT().ReadRegister(regSR).Return(uint32(0)).Times(2)

		Expect(engine.Transfer(0x4000_0000, 0x1000_0000, 4)).
			To(MatchError(ErrTransferTimeout))
		Expect(engine.Start(0x4000_0000, 0x1000_0000, 4)).
			To(MatchError(ErrBusy))
	})

	It("should start again once the late transfer completes", func() {
		engine = MakeBuilder().
			WithRegisterFile(regs).
			WithPollPolicy(PollPolicy{MaxPolls: 1}).
			Build("CDMA")

		gomock.InOrder(
			expectStart(0x4000_0000, 0x1000_0000, 4),
			regs.EXPECT().ReadRegister(regSR).Return(uint32(0)),
			regs.EXPECT().ReadRegister(regSR).Return(idle),
			expectStart(0x4000_0004, 0x1000_0000, 4),
		)

		Expect(engine.Transfer(0x4000_0000, 0x1000_0000, 4)).
			To(MatchError(ErrTransferTimeout))
		Expect(engine.Start(0x4000_0004, 0x1000_0000, 4)).To(Succeed())
	})

	It("should show a late transfer in its snapshot without waiting", func() {
		engine = MakeBuilder().
			WithRegisterFile(regs).
			WithPollPolicy(PollPolicy{MaxPolls: 1}).
			Build("CDMA")

		Expect(engine.Snapshot()).To(Equal(&EngineState{
			Name:   "CDMA",
			Policy: PollPolicy{MaxPolls: 1},
		}))

		expectStart(0x4000_0000, 0x1000_0000, 4)
		regs.EXPECT().ReadRegister(regSR).Return(uint32(0))

		Expect(engine.Transfer(0x4000_0000, 0x1000_0000, 4)).
			To(MatchError(ErrTransferTimeout))

		engine.lock.Lock()
		defer engine.lock.Unlock()

		state := engine.Snapshot().(*EngineState)
		Expect(state.InFlight).To(BeTrue())
	})

	It("should refuse concurrent callers", func() {
		engine.lock.Lock()
		defer engine.lock.Unlock()

		Expect(engine.Transfer(0x4000_0000, 0x1000_0000, 4)).To(MatchError(ErrBusy))
		Expect(engine.Start(0x4000_0000, 0x1000_0000, 4)).To(MatchError(ErrBusy))
	})

	It("should report faults and reset the controller", func() {
		start := expectStart(0x4100_0000, 0x1000_0000, 4)
		poll := regs.EXPECT().ReadRegister(regSR).Return(idle | decErr).After(start)
		regs.EXPECT().WriteRegister(regCR, uint32(1<<2)).After(poll)

		err := engine.Transfer(0x4100_0000, 0x1000_0000, 4)

		Expect(err).To(MatchError(ErrTransferFault))

		var fault *FaultError
		Expect(errors.As(err, &fault)).To(BeTrue())
		Expect(fault.Reason).To(Equal("decode error"))
		Expect(fault.Status).To(Equal(idle | decErr))
	})

	It("should name slave errors", func() {
		expectStart(0x4000_0000, 0x1000_0000, 4)
		regs.EXPECT().ReadRegister(regSR).Return(idle | slvErr)
		regs.EXPECT().WriteRegister(regCR, uint32(1<<2))

		err := engine.Transfer(0x4000_0000, 0x1000_0000, 4)

		Expect(err).To(MatchError(ContainSubstring("slave error")))
	})

	It("should trace transfers", func() {
		engine = MakeBuilder().
			WithRegisterFile(regs).
			WithPollPolicy(PollPolicy{MaxPolls: 2}).
			Build("CDMA")
		tracer := tracing.NewStepCountTracer(tracing.KindIs("dma"))
		tracing.CollectTrace(engine, tracer)

		expectStart(0x4000_0000, 0x1000_0000, 4)
		regs.EXPECT().ReadRegister(regSR).Return(uint32(0)).Times(2)

		Expect(engine.Transfer(0x4000_0000, 0x1000_0000, 4)).NotTo(Succeed())
		Expect(tracer.GetTaskCount("timeout")).To(Equal(uint64(1)))
	})

	It("should nest transfers under the given parent task", func() {
		tracer := &parentRecorder{}
		tracing.CollectTrace(engine, tracer)

		expectStart(0x4000_0000, 0x1000_0000, 4)
		expectStart(0x4000_0004, 0x1000_0000, 4)
		regs.EXPECT().ReadRegister(regSR).Return(idle).AnyTimes()

		engine.SetParentTask("step-1")
		Expect(engine.Transfer(0x4000_0000, 0x1000_0000, 4)).To(Succeed())
		engine.SetParentTask("")
		Expect(engine.Transfer(0x4000_0004, 0x1000_0000, 4)).To(Succeed())

		Expect(tracer.parents).To(Equal([]string{"step-1", ""}))
	})

	It("should use the given layout", func() {
		layout := device.DefaultAddressMap().CDMA
		layout.Base = 0x8000_0000
		engine = MakeBuilder().
			WithRegisterFile(regs).
			WithLayout(layout).
			Build("CDMA")

		gomock.InOrder(
			regs.EXPECT().WriteRegister(uint64(0x8000_0020), uint32(1)),
			regs.EXPECT().WriteRegister(uint64(0x8000_0018), uint32(2)),
			regs.EXPECT().WriteRegister(uint64(0x8000_0028), uint32(4)),
		)

		Expect(engine.Start(1, 2, 4)).To(Succeed())
	})

	It("should refuse to build without a register file", func() {
		Expect(func() { MakeBuilder().Build("CDMA") }).To(Panic())
	})
})

var _ = Describe("PollPolicy", func() {
	It("should wait forever by default", func() {
		Expect(WaitForever.Bounded()).To(BeFalse())
		Expect(WaitForever.expired(1<<40, time.Hour)).To(BeFalse())
	})

	It("should expire on either bound", func() {
		p := PollPolicy{MaxPolls: 3, Timeout: time.Second}

		Expect(p.Bounded()).To(BeTrue())
		Expect(p.expired(2, 0)).To(BeFalse())
		Expect(p.expired(3, 0)).To(BeTrue())
		Expect(p.expired(1, time.Second)).To(BeTrue())
	})
})
