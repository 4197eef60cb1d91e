package regression

import (
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bankcheck/accel"
	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/dma"
	"github.com/sarchlab/bankcheck/memcheck"
	"github.com/sarchlab/bankcheck/tracing"
)

type taskLog struct {
	tasks []tracing.Task
}

func (l *taskLog) StartTask(task tracing.Task) {
	l.tasks = append(l.tasks, task)
}

func (l *taskLog) StepTask(tracing.Task) {}

func (l *taskLog) EndTask(tracing.Task) {}

func deviatingPhases(report *RunReport) map[int]int {
	phases := map[int]int{}
	for _, d := range report.Deviations() {
		phases[d.Step.Phase]++
	}

	return phases
}

var _ = Describe("Bank swap regression on a simulated board", func() {
	var (
		platform *accel.Platform
		engine   *dma.Engine
		runner   *Runner
	)

	build := func(fault accel.Fault, policy dma.PollPolicy) {
		logger := log.New(GinkgoWriter, "", 0)

		platform = accel.MakeBuilder().
			WithBytesPerCycle(512).
			WithBufferSize(2048).
			WithFault(fault).
			WithLogger(logger).
			Build("Board")
		am := platform.AddressMap()

		engine = dma.MakeBuilder().
			WithRegisterFile(platform).
			WithLayout(am.CDMA).
			WithPollPolicy(policy).
			Build("Board.Driver")
		checker := memcheck.MakeBuilder().
			WithTransferer(engine).
			WithAllocator(platform).
			WithLogger(logger).
			Build("Checker")
		runner = MakeBuilder().
			WithChecker(checker).
			WithBankSwitch(device.NewController(platform, am.Control)).
			WithAddressMap(am).
			WithLogger(logger).
			WithTaskLinker(engine).
			Build("Regression")
	}

	It("should pass on a healthy board", func() {
		build(accel.FaultNone, dma.WaitForever)

		report := runner.Run(Script(DefaultSeeds(), RestoreFilters))

		Expect(report.Passed()).To(BeTrue())

		ok, negatives, _ := report.Counts()
		Expect(ok).To(Equal(26))
		Expect(negatives).To(Equal(2))
		Expect(report.Results[24].Outcome).To(Equal(OutcomeMismatch))
		Expect(report.Results[25].Outcome).To(Equal(OutcomeMismatch))

		Expect(platform.Control().FilterSet()).To(Equal(0))
		Expect(platform.HostBytesInUse()).To(BeZero())
	})

	It("should nest every transfer under the step that issued it", func() {
		build(accel.FaultNone, dma.WaitForever)

		steps := &taskLog{}
		transfers := &taskLog{}
		tracing.CollectTrace(runner, steps)
		tracing.CollectTrace(engine, transfers)

		runner.Run(Script(DefaultSeeds(), RestoreFilters))

		stepIDs := map[string]bool{}
		for _, t := range steps.tasks {
			if t.Kind == "step" {
				stepIDs[t.ID] = true
			}
		}

		Expect(stepIDs).To(HaveLen(26))
		Expect(transfers.tasks).To(HaveLen(24))
		for _, t := range transfers.tasks {
			Expect(stepIDs).To(HaveKey(t.ParentID))
		}

		Expect(engine.Snapshot().(*dma.EngineState).InFlight).To(BeFalse())
	})

	It("should catch aliased filter banks", func() {
		build(accel.FaultAlias, dma.WaitForever)

		report := runner.Run(Script(DefaultSeeds(), RestoreFilters))

		Expect(deviatingPhases(report)).To(Equal(map[int]int{8: 4}))

		m, ok := report.Deviations()[0].Mismatch()
		Expect(ok).To(BeTrue())
		Expect(m.Expected).To(Equal(uint32(10)))
		Expect(m.Actual).To(Equal(uint32(20)))
	})

	It("should expose the activation swap restore", func() {
		build(accel.FaultNone, dma.WaitForever)

		report := runner.Run(Script(DefaultSeeds(), RestoreActivations))

		Expect(deviatingPhases(report)).To(Equal(map[int]int{8: 4, 9: 2}))
		Expect(report.Results[24].Outcome).To(Equal(OutcomePass))
		Expect(platform.Control().FilterSet()).To(Equal(1))
		Expect(platform.Control().ActivationSet()).To(Equal(1))
	})

	It("should report a hung controller on every transfer", func() {
		build(accel.FaultStall, dma.PollPolicy{MaxPolls: 50})

		report := runner.Run(Script(DefaultSeeds(), RestoreFilters))

		Expect(report.Deviations()).To(HaveLen(24))
		for _, d := range report.Deviations() {
			Expect(d.Outcome).To(Equal(OutcomeError))
		}

		Expect(report.Deviations()[0].Err).To(MatchError(dma.ErrTransferTimeout))
	})
})
