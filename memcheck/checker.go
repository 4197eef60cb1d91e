package memcheck

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/bankcheck/dma"
	"github.com/sarchlab/bankcheck/mem"
)

// A Transferer moves blocks of memory and returns once the data has landed.
// dma.Engine is a Transferer.
type Transferer interface {
	Transfer(dst, src, length uint64) error
}

// Checker writes and verifies patterns. The CPU only touches the host
// scratch buffers; every device access goes through the Transferer.
type Checker struct {
	name      string
	transfer  Transferer
	allocator dma.Allocator
	logger    *log.Logger
}

// Name returns the name of the checker.
func (c *Checker) Name() string {
	return c.name
}

// WritePattern fills a region with the pattern that starts at seed.
func (c *Checker) WritePattern(region mem.Region, seed uint32) (err error) {
	if err := regionMustBeWordAligned(region); err != nil {
		return err
	}

	scratch, err := c.allocator.Alloc(region.Size)
	if err != nil {
		return fmt.Errorf("allocating scratch for %s: %w", region.Name, err)
	}
	defer releaseScratch(scratch, &err)

	Pattern{Seed: seed}.Fill(scratch.Buf())

	err = c.transfer.Transfer(region.Base, scratch.PhysAddr(), region.Size)
	if err != nil {
		return fmt.Errorf("writing pattern %d to %s: %w", seed, region.Name, err)
	}

	return nil
}

// VerifyPattern reads a region back and compares it with the pattern that
// starts at seed. The first word that differs is returned as a
// *MismatchError. The region itself is not modified.
func (c *Checker) VerifyPattern(region mem.Region, seed uint32) (err error) {
	if err := regionMustBeWordAligned(region); err != nil {
		return err
	}

	scratch, err := c.allocator.Alloc(region.Size)
	if err != nil {
		return fmt.Errorf("allocating scratch for %s: %w", region.Name, err)
	}
	defer releaseScratch(scratch, &err)

	err = c.transfer.Transfer(scratch.PhysAddr(), region.Base, region.Size)
	if err != nil {
		return fmt.Errorf("reading %s: %w", region.Name, err)
	}

	p := Pattern{Seed: seed}

	index, actual, found := p.FirstMismatch(scratch.Buf()[:region.Size])
	if found {
		mismatch := &MismatchError{
			Region:   region,
			Seed:     seed,
			Index:    index,
			Offset:   index * 4,
			Addr:     region.Base + index*4,
			Expected: p.Word(index),
			Actual:   actual,
		}
		c.logf("Address 0x%x incorrect. Expected: 0x%x actual: 0x%x",
			mismatch.Offset, mismatch.Expected, mismatch.Actual)

		return mismatch
	}

	c.logf("MEMCHECK of 0x%08x complete!", region.Base)

	return nil
}

func (c *Checker) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func regionMustBeWordAligned(region mem.Region) error {
	if region.Size == 0 || region.Size%4 != 0 || region.Base%4 != 0 {
		return fmt.Errorf("%w: %s", ErrMisaligned, region)
	}

	return nil
}

func releaseScratch(scratch dma.Mem, err *error) {
	if closeErr := scratch.Close(); closeErr != nil {
		*err = errors.Join(*err, fmt.Errorf("releasing scratch: %w", closeErr))
	}
}
