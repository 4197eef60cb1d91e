package memcheck

import (
	"log"
	"os"

	"github.com/sarchlab/bankcheck/dma"
)

// Builder can build checkers.
type Builder struct {
	transfer  Transferer
	allocator dma.Allocator
	logger    *log.Logger
}

// MakeBuilder creates a builder that logs to stderr.
func MakeBuilder() Builder {
	return Builder{
		logger: log.New(os.Stderr, "", 0),
	}
}

// WithTransferer sets what moves the data.
func (b Builder) WithTransferer(t Transferer) Builder {
	b.transfer = t
	return b
}

// WithAllocator sets where scratch buffers come from.
func (b Builder) WithAllocator(a dma.Allocator) Builder {
	b.allocator = a
	return b
}

// WithLogger sets where diagnostics go. A nil logger silences them.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a checker.
func (b Builder) Build(name string) *Checker {
	b.parametersMustBeValid()

	return &Checker{
		name:      name,
		transfer:  b.transfer,
		allocator: b.allocator,
		logger:    b.logger,
	}
}

func (b Builder) parametersMustBeValid() {
	if b.transfer == nil {
		panic("transferer is not set")
	}

	if b.allocator == nil {
		panic("allocator is not set")
	}
}
