package regression

import (
	"log"
	"os"

	"github.com/sarchlab/bankcheck/datarecording"
	"github.com/sarchlab/bankcheck/device"
)

// Builder can build runners.
type Builder struct {
	checker    PatternChecker
	banks      BankSwitch
	addressMap device.AddressMap
	logger     *log.Logger
	recorder   datarecording.DataRecorder
	linker     TaskLinker
}

// MakeBuilder creates a builder for the default board layout.
func MakeBuilder() Builder {
	return Builder{
		addressMap: device.DefaultAddressMap(),
		logger:     log.New(os.Stderr, "", 0),
	}
}

// WithChecker sets what writes and verifies the patterns.
func (b Builder) WithChecker(c PatternChecker) Builder {
	b.checker = c
	return b
}

// WithBankSwitch sets what issues the swap requests.
func (b Builder) WithBankSwitch(s BankSwitch) Builder {
	b.banks = s
	return b
}

// WithAddressMap sets where the regions are.
func (b Builder) WithAddressMap(am device.AddressMap) Builder {
	b.addressMap = am
	return b
}

// WithLogger sets where progress is reported. A nil logger silences the
// runner.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithRecorder makes the runner store every result.
func (b Builder) WithRecorder(recorder datarecording.DataRecorder) Builder {
	b.recorder = recorder
	return b
}

// WithTaskLinker nests the tasks of the transfers under the step that
// issued them.
func (b Builder) WithTaskLinker(l TaskLinker) Builder {
	b.linker = l
	return b
}

// Build creates a runner.
func (b Builder) Build(name string) *Runner {
	b.parametersMustBeValid()

	r := &Runner{
		name:       name,
		checker:    b.checker,
		banks:      b.banks,
		addressMap: b.addressMap,
		logger:     b.logger,
		recorder:   b.recorder,
		linker:     b.linker,
	}

	if r.recorder != nil {
		r.recorder.CreateTable(ResultTable, CheckResultEntry{})
	}

	return r
}

func (b Builder) parametersMustBeValid() {
	if b.checker == nil {
		panic("checker is not set")
	}

	if b.banks == nil {
		panic("bank switch is not set")
	}

	if err := b.addressMap.Validate(); err != nil {
		panic(err)
	}
}
