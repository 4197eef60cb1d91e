// Package regression runs the bank swap regression: it fills every
// accelerator memory with known patterns, swaps the filter banks, and
// proves that each write landed where it should and nowhere else.
package regression

import (
	"fmt"
	"strings"

	"github.com/sarchlab/bankcheck/device"
)

// Seeds are the pattern seeds of a regression run.
type Seeds struct {
	Input    uint32
	Output   uint32
	FiltersA [4]uint32
	FiltersB [4]uint32
}

// DefaultSeeds returns the seeds of the reference board test.
func DefaultSeeds() Seeds {
	return Seeds{
		Input:    14,
		Output:   15,
		FiltersA: [4]uint32{10, 11, 12, 13},
		FiltersB: [4]uint32{20, 21, 22, 23},
	}
}

// StepKind tells what a step does.
type StepKind int

// The kinds of steps.
const (
	StepWrite StepKind = iota
	StepVerify
	StepSwap
)

func (k StepKind) String() string {
	switch k {
	case StepWrite:
		return "write"
	case StepVerify:
		return "verify"
	case StepSwap:
		return "swap"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// Expectation is the result a step is supposed to have.
type Expectation int

// The expectations.
const (
	ExpectPass Expectation = iota
	ExpectMismatch
)

func (e Expectation) String() string {
	if e == ExpectMismatch {
		return "mismatch"
	}

	return "pass"
}

// SwapTarget tells which memories a swap step exchanges.
type SwapTarget int

// The swap targets.
const (
	SwapFilters SwapTarget = iota
	SwapActivations
)

func (t SwapTarget) String() string {
	if t == SwapActivations {
		return "activations"
	}

	return "filters"
}

// RestoreMode selects the control write that is expected to bring back the
// original filter bank set.
type RestoreMode int

// The restore modes.
const (
	// RestoreFilters toggles the filter banks a second time.
	RestoreFilters RestoreMode = iota

	// RestoreActivations issues the activation swap instead, which is what
	// the first board test did. It leaves the filters swapped.
	RestoreActivations
)

func (m RestoreMode) String() string {
	if m == RestoreActivations {
		return "activations"
	}

	return "filters"
}

// ParseRestoreMode converts "filters" or "activations" to a RestoreMode.
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch strings.ToLower(s) {
	case "filters", "":
		return RestoreFilters, nil
	case "activations":
		return RestoreActivations, nil
	}

	return RestoreFilters, fmt.Errorf(
		"unknown restore mode %q, expecting filters or activations", s)
}

// A Step is one action of the regression.
type Step struct {
	Phase  int
	Kind   StepKind
	Region device.RegionID
	Seed   uint32
	Swap   SwapTarget
	Expect Expectation
}

func (s Step) String() string {
	switch s.Kind {
	case StepSwap:
		return fmt.Sprintf("%d: swap %s", s.Phase, s.Swap)
	default:
		str := fmt.Sprintf("%d: %s %s seed %d", s.Phase, s.Kind, s.Region, s.Seed)
		if s.Expect == ExpectMismatch {
			str += " (expect mismatch)"
		}

		return str
	}
}

var phaseTitles = map[int]string{
	1: "write and verify activations",
	2: "write filter bank set A",
	3: "swap filter banks",
	4: "write filter bank set B",
	5: "verify activations are untouched",
	6: "verify filter bank set B",
	7: "restore filter bank set A",
	8: "verify filter bank set A",
	9: "cross check activations",
}

// PhaseTitle describes a phase of the script.
func PhaseTitle(phase int) string {
	return phaseTitles[phase]
}

// Script returns the nine phases of the bank swap regression.
func Script(seeds Seeds, restore RestoreMode) []Step {
	var steps []Step

	write := func(phase int, id device.RegionID, seed uint32) {
		steps = append(steps,
			Step{Phase: phase, Kind: StepWrite, Region: id, Seed: seed})
	}
	verify := func(phase int, id device.RegionID, seed uint32, e Expectation) {
		steps = append(steps,
			Step{Phase: phase, Kind: StepVerify, Region: id, Seed: seed, Expect: e})
	}
	swap := func(phase int, target SwapTarget) {
		steps = append(steps, Step{Phase: phase, Kind: StepSwap, Swap: target})
	}

	write(1, device.Input, seeds.Input)
	write(1, device.Output, seeds.Output)
	verify(1, device.Input, seeds.Input, ExpectPass)
	verify(1, device.Output, seeds.Output, ExpectPass)

	for i, id := range device.FilterBanks {
		write(2, id, seeds.FiltersA[i])
	}

	swap(3, SwapFilters)

	for i, id := range device.FilterBanks {
		write(4, id, seeds.FiltersB[i])
	}

	verify(5, device.Input, seeds.Input, ExpectPass)
	verify(5, device.Output, seeds.Output, ExpectPass)

	for i, id := range device.FilterBanks {
		verify(6, id, seeds.FiltersB[i], ExpectPass)
	}

	if restore == RestoreActivations {
		swap(7, SwapActivations)
	} else {
		swap(7, SwapFilters)
	}

	for i, id := range device.FilterBanks {
		verify(8, id, seeds.FiltersA[i], ExpectPass)
	}

	verify(9, device.Input, seeds.Output, ExpectMismatch)
	verify(9, device.Output, seeds.Input, ExpectMismatch)

	return steps
}
