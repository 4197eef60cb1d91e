package regression

import (
	"log"
	"sync"

	"github.com/rs/xid"
	"github.com/sarchlab/bankcheck/datarecording"
	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/mem"
	"github.com/sarchlab/bankcheck/sim"
	"github.com/sarchlab/bankcheck/tracing"
)

// A PatternChecker writes and verifies patterns. memcheck.Checker is a
// PatternChecker.
type PatternChecker interface {
	WritePattern(region mem.Region, seed uint32) error
	VerifyPattern(region mem.Region, seed uint32) error
}

// A BankSwitch issues bank swap requests. device.Controller is a
// BankSwitch.
type BankSwitch interface {
	SwapFilterBanks()
	SwapActivationBanks()
}

// A TaskLinker files the work it does on behalf of a step under the step's
// tracing task. dma.Engine is a TaskLinker.
type TaskLinker interface {
	SetParentTask(id string)
}

// ResultTable is the table that a recording runner writes into.
const ResultTable = "check_results"

// CheckResultEntry is a row of ResultTable.
type CheckResultEntry struct {
	RunID      string
	Sequence   int
	Phase      int
	Kind       string
	Region     string
	Seed       uint32
	Expect     string
	Outcome    string
	Deviates   bool
	ByteOffset uint64
	Expected   uint32
	Actual     uint32
	Error      string
}

// Runner executes regression scripts. A failed step never stops the run.
type Runner struct {
	sim.HookableBase

	name       string
	checker    PatternChecker
	banks      BankSwitch
	addressMap device.AddressMap
	logger     *log.Logger
	recorder   datarecording.DataRecorder
	linker     TaskLinker

	lock    sync.Mutex
	runID   string
	total   int
	results []Result
}

// Name returns the name of the runner.
func (r *Runner) Name() string {
	return r.name
}

// Progress returns how many steps of the current run have completed.
func (r *Runner) Progress() (done, total int) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.results), r.total
}

// Results returns the results of the current run so far.
func (r *Runner) Results() []Result {
	r.lock.Lock()
	defer r.lock.Unlock()

	res := make([]Result, len(r.results))
	copy(res, r.results)

	return res
}

// RunID returns the ID of the current run.
func (r *Runner) RunID() string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.runID
}

// Run executes every step and reports how each one went.
func (r *Runner) Run(steps []Step) *RunReport {
	runID := xid.New().String()

	r.lock.Lock()
	r.runID = runID
	r.total = len(steps)
	r.results = nil
	r.lock.Unlock()

	taskID := sim.GetIDGenerator().Generate()
	tracing.StartTask(taskID, "", r, "regression", "run", runID)

	r.logf("Starting DMA Transfer Test!")

	phase := 0
	for i, step := range steps {
		if step.Phase != phase {
			phase = step.Phase
			r.logf("Phase %d: %s", phase, PhaseTitle(phase))
		}

		result := r.runStep(step, taskID)
		r.record(i, result)
	}

	tracing.EndTask(taskID, r)

	report := &RunReport{RunID: runID, Results: r.Results()}
	ok, negatives, deviations := report.Counts()
	r.logf("Done: %d steps as expected (%d expected mismatches), %d deviations",
		ok, negatives, deviations)

	if r.recorder != nil {
		r.recorder.Flush()
	}

	return report
}

func (r *Runner) runStep(step Step, parentID string) Result {
	taskID := sim.GetIDGenerator().Generate()
	tracing.StartTask(taskID, parentID, r, "step", step.Kind.String(), step)
	defer tracing.EndTask(taskID, r)

	if r.linker != nil {
		r.linker.SetParentTask(taskID)
		defer r.linker.SetParentTask("")
	}

	var err error

	switch step.Kind {
	case StepWrite:
		err = r.checker.WritePattern(r.addressMap.Region(step.Region), step.Seed)
	case StepVerify:
		err = r.checker.VerifyPattern(r.addressMap.Region(step.Region), step.Seed)
	case StepSwap:
		r.swap(step.Swap)
	}

	result := Result{Step: step, Outcome: outcomeOf(err), Err: err}
	tracing.AddTaskStep(taskID, r, result.Outcome.String())

	switch {
	case result.Deviates():
		r.logf("Step %s deviates: %s, %v", step, result.Outcome, err)
	case result.Outcome == OutcomeMismatch:
		r.logf("Step %s mismatched as expected", step)
	}

	return result
}

func (r *Runner) swap(target SwapTarget) {
	if target == SwapActivations {
		r.banks.SwapActivationBanks()
		return
	}

	r.banks.SwapFilterBanks()
}

func (r *Runner) record(index int, result Result) {
	r.lock.Lock()
	r.results = append(r.results, result)
	runID := r.runID
	r.lock.Unlock()

	if r.recorder == nil {
		return
	}

	step := result.Step
	entry := CheckResultEntry{
		RunID:    runID,
		Sequence: index,
		Phase:    step.Phase,
		Kind:     step.Kind.String(),
		Region:   regionColumn(step),
		Seed:     step.Seed,
		Expect:   step.Expect.String(),
		Outcome:  result.Outcome.String(),
		Deviates: result.Deviates(),
	}

	if m, ok := result.Mismatch(); ok {
		entry.ByteOffset = m.Offset
		entry.Expected = m.Expected
		entry.Actual = m.Actual
	}

	if result.Err != nil {
		entry.Error = result.Err.Error()
	}

	r.recorder.InsertData(ResultTable, entry)
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
