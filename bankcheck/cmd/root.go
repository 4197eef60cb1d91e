// Package cmd provides the command-line interface of bankcheck.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// envPrefix starts the environment variables that provide flag defaults.
// --max-polls, for example, is read from BANKCHECK_MAX_POLLS.
const envPrefix = "BANKCHECK_"

var opts struct {
	backend       string
	addressMap    string
	fault         string
	maxPolls      uint64
	timeout       time.Duration
	pollCycles    int
	bytesPerCycle uint64
	logEvents     bool
	quiet         bool
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bankcheck",
	Short: "bankcheck verifies accelerator memories through a DMA controller.",
	Long: `bankcheck writes deterministic patterns into the memories of an ` +
		`accelerator board with its central DMA controller, reads them back, ` +
		`and runs the bank swap regression. It drives either a simulated ` +
		`board or a real one through /dev/mem. Every flag can also be set ` +
		`with a BANKCHECK_* environment variable or in a .env file.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return applyEnv(cmd.Flags())
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&opts.backend, "backend", "sim",
		"how to reach the board, sim or devmem")
	f.StringVar(&opts.addressMap, "address-map", "",
		"YAML file that overrides the default Zedboard address map")
	f.StringVar(&opts.fault, "fault", "none",
		"defect of the simulated board, none, stall, or alias")
	f.Uint64Var(&opts.maxPolls, "max-polls", 0,
		"give up a transfer after this many status reads, 0 waits forever")
	f.DurationVar(&opts.timeout, "timeout", 0,
		"give up a transfer after this long, 0 waits forever")
	f.IntVar(&opts.pollCycles, "poll-cycles", 1,
		"cycles the simulated board runs per status read")
	f.Uint64Var(&opts.bytesPerCycle, "bytes-per-cycle", 4,
		"bandwidth of the simulated DMA controller")
	f.BoolVar(&opts.logEvents, "log-events", false,
		"print every event of the simulated board")
	f.BoolVarP(&opts.quiet, "quiet", "q", false,
		"do not print progress and check diagnostics")
}

// applyEnv fills the flags that were not given on the command line from the
// environment.
func applyEnv(flags *pflag.FlagSet) error {
	var errs []error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}

		name := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		value, ok := os.LookupEnv(name)
		if !ok {
			return
		}

		if err := f.Value.Set(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	})

	return errors.Join(errs...)
}

func loadDotEnv() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Cannot load .env: %v\n", err)
	}
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	loadDotEnv()

	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
