// Package memcheck writes deterministic patterns into device memories and
// reads them back, using nothing but DMA transfers.
package memcheck

import "encoding/binary"

// A Pattern is the sequence of 32-bit words seed, seed+1, seed+2, ...,
// wrapping around at 2^32. Words are stored little endian.
type Pattern struct {
	Seed uint32
}

// Word returns the i-th word of the pattern.
func (p Pattern) Word(i uint64) uint32 {
	return p.Seed + uint32(i)
}

// Fill writes the pattern into buf. Trailing bytes that do not make a full
// word are left untouched.
func (p Pattern) Fill(buf []byte) {
	for i := uint64(0); i < uint64(len(buf))/4; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], p.Word(i))
	}
}

// Bytes returns n bytes of the pattern.
func (p Pattern) Bytes(n uint64) []byte {
	buf := make([]byte, n)
	p.Fill(buf)

	return buf
}

// FirstMismatch finds the first word of buf that does not follow the
// pattern. It returns false if every word matches.
func (p Pattern) FirstMismatch(buf []byte) (index uint64, actual uint32, found bool) {
	for i := uint64(0); i < uint64(len(buf))/4; i++ {
		actual = binary.LittleEndian.Uint32(buf[i*4:])
		if actual != p.Word(i) {
			return i, actual, true
		}
	}

	return 0, 0, false
}
