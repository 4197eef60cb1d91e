package memcheck

import (
	"errors"
	"fmt"

	"github.com/sarchlab/bankcheck/mem"
)

var (
	// ErrMisaligned is returned for regions that cannot be checked word by
	// word.
	ErrMisaligned = errors.New("region is not word aligned")

	// ErrMismatch is matched by every MismatchError.
	ErrMismatch = errors.New("memory content mismatch")
)

// A MismatchError reports the first word of a region that does not hold
// the expected pattern.
type MismatchError struct {
	Region   mem.Region
	Seed     uint32
	Index    uint64
	Offset   uint64
	Addr     uint64
	Expected uint32
	Actual   uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"%s: %s word %d (offset 0x%x, address 0x%08x) "+
			"expected 0x%08x, actual 0x%08x",
		ErrMismatch, e.Region.Name, e.Index, e.Offset, e.Addr,
		e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrMismatch) hold.
func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}
