package regression

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/bankcheck/memcheck"
)

// Outcome is what actually happened when a step ran.
type Outcome int

// The outcomes.
const (
	OutcomePass Outcome = iota
	OutcomeMismatch
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "pass"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomePass
	case errors.Is(err, memcheck.ErrMismatch):
		return OutcomeMismatch
	default:
		return OutcomeError
	}
}

// A Result is a step together with how it went.
type Result struct {
	Step    Step
	Outcome Outcome
	Err     error
}

// Deviates tells if the step did not behave as expected. Errors always
// deviate.
func (r Result) Deviates() bool {
	switch r.Outcome {
	case OutcomePass:
		return r.Step.Expect != ExpectPass
	case OutcomeMismatch:
		return r.Step.Expect != ExpectMismatch
	default:
		return true
	}
}

// Mismatch returns the mismatch that the step found, if any.
func (r Result) Mismatch() (*memcheck.MismatchError, bool) {
	var m *memcheck.MismatchError
	if errors.As(r.Err, &m) {
		return m, true
	}

	return nil, false
}

// RunReport collects the results of a run.
type RunReport struct {
	RunID   string
	Results []Result
}

// Deviations returns the results that did not go as expected.
func (r *RunReport) Deviations() []Result {
	var res []Result

	for _, result := range r.Results {
		if result.Deviates() {
			res = append(res, result)
		}
	}

	return res
}

// Passed tells if every step went as expected.
func (r *RunReport) Passed() bool {
	return len(r.Deviations()) == 0
}

// Counts returns how many steps went as expected and how many of those
// were expected mismatches.
func (r *RunReport) Counts() (asExpected, expectedMismatches, deviations int) {
	for _, result := range r.Results {
		switch {
		case result.Deviates():
			deviations++
		case result.Outcome == OutcomeMismatch:
			asExpected++
			expectedMismatches++
		default:
			asExpected++
		}
	}

	return asExpected, expectedMismatches, deviations
}

// Print writes the report as a table.
func (r *RunReport) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PHASE\tSTEP\tREGION\tSEED\tEXPECT\tOUTCOME\tDETAIL")

	for _, result := range r.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			result.Step.Phase,
			result.Step.Kind,
			regionColumn(result.Step),
			seedColumn(result.Step),
			expectColumn(result.Step),
			outcomeColumn(result),
			result.Detail(),
		)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	ok, negatives, deviations := r.Counts()
	_, err := fmt.Fprintf(w,
		"\n%d steps as expected (%d expected mismatches), %d deviations\n",
		ok, negatives, deviations)

	return err
}

func regionColumn(s Step) string {
	if s.Kind == StepSwap {
		return s.Swap.String()
	}

	return s.Region.String()
}

func seedColumn(s Step) string {
	if s.Kind == StepSwap {
		return "-"
	}

	return fmt.Sprint(s.Seed)
}

func expectColumn(s Step) string {
	if s.Kind != StepVerify {
		return "-"
	}

	return s.Expect.String()
}

func outcomeColumn(r Result) string {
	if r.Deviates() {
		return r.Outcome.String() + " (!)"
	}

	return r.Outcome.String()
}

// Detail describes the mismatch or the error of a step.
func (r Result) Detail() string {
	if m, ok := r.Mismatch(); ok {
		return fmt.Sprintf("offset 0x%x expected 0x%08x actual 0x%08x",
			m.Offset, m.Expected, m.Actual)
	}

	if r.Err != nil {
		return r.Err.Error()
	}

	return ""
}
