package sim

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gmeasure"
	"go.uber.org/mock/gomock"
)

type recordingHook struct {
	positions []*HookPos
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
}

func mockEvent(
	ctrl *gomock.Controller,
	t VTimeInSec,
	handler Handler,
	secondary bool,
) *MockEvent {
	evt := NewMockEvent(ctrl)
	evt.EXPECT().Time().Return(t).AnyTimes()
	evt.EXPECT().Handler().Return(handler).AnyTimes()
	evt.EXPECT().IsSecondary().Return(secondary).AnyTimes()

	return evt
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := mockEvent(mockCtrl, 4.0, handler1, false)
		evt2 := mockEvent(mockCtrl, 2.0, handler2, false)
		evt3 := mockEvent(mockCtrl, 3.0, handler1, false)
		evt4 := mockEvent(mockCtrl, 5.0, handler1, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2).Do(func(e Event) {
			engine.Schedule(evt3)
			engine.Schedule(evt4)
		})
		handleEvt3 := handler1.EXPECT().Handle(evt3).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle(evt1).After(handleEvt3)
		handler1.EXPECT().Handle(evt4).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(5.0)))
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should consider secondary events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		handler3 := NewMockHandler(mockCtrl)
		evt1 := mockEvent(mockCtrl, 2.0, handler1, true)
		evt2 := mockEvent(mockCtrl, 2.0, handler2, false)
		evt3 := mockEvent(mockCtrl, 2.0, handler3, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2)
		handleEvt3 := handler3.EXPECT().Handle(evt3)
		handler1.EXPECT().
			Handle(evt1).
			After(handleEvt2).
			After(handleEvt3)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should fire secondary events after the ticks of the same cycle", func() {
		handler := NewMockHandler(mockCtrl)
		late := NewSecondaryEventBase(2.0, handler)
		tick := MakeTickEvent(handler, 2.0)

		Expect(late.IsSecondary()).To(BeTrue())
		Expect(tick.IsSecondary()).To(BeFalse())

		var fired []bool
		handler.EXPECT().Handle(gomock.Any()).
			Do(func(e Event) {
				fired = append(fired, e.IsSecondary())
			}).
			Times(2)

		engine.Schedule(late)
		engine.Schedule(tick)

		Expect(engine.RunUntil(2.0)).To(Succeed())
		Expect(fired).To(Equal([]bool{false, true}))
		Expect(engine.Pending()).To(Equal(0))
	})

	It("should panic when scheduling in the past", func() {
		handler := NewMockHandler(mockCtrl)
		Expect(engine.RunUntil(3)).To(Succeed())

		evt := mockEvent(mockCtrl, 2.0, handler, false)

		Expect(func() { engine.Schedule(evt) }).To(Panic())
	})

	It("should run until a given time", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(mockCtrl, 1.0, handler, false)
		evt2 := mockEvent(mockCtrl, 2.0, handler, false)
		evt3 := mockEvent(mockCtrl, 3.0, handler, false)

		handler.EXPECT().Handle(evt1)
		handler.EXPECT().Handle(evt2)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.RunUntil(2.5)).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(2.5)))
		Expect(engine.Pending()).To(Equal(1))
	})

	It("should not move time backward", func() {
		Expect(engine.RunUntil(2)).To(Succeed())
		Expect(engine.RunUntil(1)).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(2)))
	})

	It("should stop on handler errors", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(mockCtrl, 1.0, handler, false)
		evt2 := mockEvent(mockCtrl, 2.0, handler, false)
		handlerErr := errors.New("broken")

		handler.EXPECT().Handle(evt1).Return(handlerErr)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(MatchError(handlerErr))
		Expect(engine.Pending()).To(Equal(1))
	})

	It("should invoke hooks around events", func() {
		hook := &recordingHook{}
		engine.AcceptHook(hook)

		handler := NewMockHandler(mockCtrl)
		evt := mockEvent(mockCtrl, 1.0, handler, false)
		handler.EXPECT().Handle(evt)

		engine.Schedule(evt)
		Expect(engine.Run()).To(Succeed())

		Expect(hook.positions).To(Equal(
			[]*HookPos{HookPosBeforeEvent, HookPosAfterEvent}))
	})

	It("measure triggering speed", func() {
		experiment := gmeasure.NewExperiment("Serial Engine Triggering Speed")
		AddReportEntry(experiment.Name, experiment)

		handler := NewMockHandler(mockCtrl)
		handler.EXPECT().Handle(gomock.Any()).AnyTimes()

		for i := 0; i < 10000; i++ {
			t := VTimeInSec(float64(rand.Uint64()%10) * 0.01)
			engine.Schedule(mockEvent(mockCtrl, t, handler, rand.Uint32()%2 == 0))
		}

		experiment.MeasureDuration("runtime", func() {
			Expect(engine.Run()).To(Succeed())
		})
	})
})
