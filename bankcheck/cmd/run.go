package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/bankcheck/datarecording"
	"github.com/sarchlab/bankcheck/monitoring"
	"github.com/sarchlab/bankcheck/regression"
	"github.com/sarchlab/bankcheck/tracing"
	"github.com/spf13/cobra"
)

var errDeviations = errors.New("regression deviated from its expectations")

var runOpts struct {
	record      string
	trace       bool
	monitor     bool
	monitorPort int
	openBrowser bool
	restore     string
	seedInput   uint32
	seedOutput  uint32
	seedsA      []uint
	seedsB      []uint
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bank swap regression",
	Long: `Run writes every accelerator memory, swaps the filter banks, and ` +
		`verifies that each write landed where it should. The last phase ` +
		`cross-checks the input and output buffers and is expected to ` +
		`mismatch. The exit status is 1 if any step deviates from its ` +
		`expectation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		err := runRegression()
		if errors.Is(err, errDeviations) {
			cmd.SilenceErrors = true
		}

		return err
	},
}

func init() {
	seeds := regression.DefaultSeeds()

	f := runCmd.Flags()
	f.StringVar(&runOpts.record, "record", "",
		"store check results into this SQLite database (without .sqlite3)")
	f.BoolVar(&runOpts.trace, "trace", false,
		"store every transfer and step as a trace task, implies recording")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"serve the progress of the run over HTTP")
	f.IntVar(&runOpts.monitorPort, "monitor-port", 0,
		"port of the monitoring server, 0 picks a free one")
	f.BoolVar(&runOpts.openBrowser, "open-browser", false,
		"open the monitoring page in a browser")
	f.StringVar(&runOpts.restore, "restore", "filters",
		"control write that restores the first filter bank set, "+
			"filters or activations")
	f.Uint32Var(&runOpts.seedInput, "seed-input", seeds.Input,
		"pattern seed of the input buffer")
	f.Uint32Var(&runOpts.seedOutput, "seed-output", seeds.Output,
		"pattern seed of the output buffer")
	f.UintSliceVar(&runOpts.seedsA, "seeds-a", toUints(seeds.FiltersA),
		"pattern seeds of filter banks 0-3 in the first bank set")
	f.UintSliceVar(&runOpts.seedsB, "seeds-b", toUints(seeds.FiltersB),
		"pattern seeds of filter banks 0-3 in the second bank set")

	rootCmd.AddCommand(runCmd)
}

func toUints(seeds [4]uint32) []uint {
	res := make([]uint, len(seeds))
	for i, s := range seeds {
		res[i] = uint(s)
	}

	return res
}

func toFilterSeeds(name string, values []uint) ([4]uint32, error) {
	var res [4]uint32

	if len(values) != len(res) {
		return res, fmt.Errorf("--%s needs %d seeds, got %d",
			name, len(res), len(values))
	}

	for i, v := range values {
		if v > 0xFFFF_FFFF {
			return res, fmt.Errorf("--%s: seed %d does not fit in 32 bits", name, v)
		}

		res[i] = uint32(v)
	}

	return res, nil
}

func runSeeds() (regression.Seeds, error) {
	seeds := regression.Seeds{
		Input:  runOpts.seedInput,
		Output: runOpts.seedOutput,
	}

	var err error

	seeds.FiltersA, err = toFilterSeeds("seeds-a", runOpts.seedsA)
	if err != nil {
		return seeds, err
	}

	seeds.FiltersB, err = toFilterSeeds("seeds-b", runOpts.seedsB)

	return seeds, err
}

func runRegression() error {
	restore, err := regression.ParseRestoreMode(runOpts.restore)
	if err != nil {
		return err
	}

	seeds, err := runSeeds()
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	var recorder datarecording.DataRecorder
	if runOpts.record != "" || runOpts.trace {
		recorder = datarecording.New(runOpts.record)
		defer recorder.Close()
	}

	b := regression.MakeBuilder().
		WithChecker(s.checker).
		WithBankSwitch(s.controller).
		WithAddressMap(s.addressMap).
		WithLogger(s.logger).
		WithTaskLinker(s.engine)
	if recorder != nil {
		b = b.WithRecorder(recorder)
	}

	runner := b.Build(boardName + ".Regression")
	steps := regression.Script(seeds, restore)

	dmaTime := tracing.NewTotalTimeTracer(s.timeTeller, tracing.KindIs("dma"))
	tracing.CollectTrace(s.engine, dmaTime)

	if runOpts.trace {
		tracer := tracing.NewDBTracer(s.timeTeller, recorder)
		tracing.CollectTrace(s.engine, tracer)
		tracing.CollectTrace(runner, tracer)

		defer tracer.Terminate()
	}

	if runOpts.monitor {
		startMonitor(s, runner, len(steps))
	}

	report := runner.Run(steps)
	if err := report.Print(os.Stdout); err != nil {
		return err
	}

	fmt.Printf("%d transfers took %.9f s\n", dmaTime.TaskCount(), dmaTime.TotalTime())

	if !report.Passed() {
		return errDeviations
	}

	return nil
}

func startMonitor(s *session, runner *regression.Runner, numSteps int) {
	m := monitoring.NewMonitor().WithPortNumber(runOpts.monitorPort)
	m.RegisterTimeTeller(s.timeTeller)
	m.RegisterResultSource(runner)

	for _, c := range s.components() {
		m.RegisterComponent(c)
	}

	m.RegisterComponent(runner)

	bar := m.CreateProgressBar("Regression", uint64(numSteps))
	tracing.CollectTrace(runner,
		monitoring.NewProgressTracer(bar, tracing.KindIs("step")))

	url := m.StartServer()
	if runOpts.openBrowser {
		monitoring.OpenInBrowser(url)
	}
}
