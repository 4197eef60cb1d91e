// Package device describes the memory-mapped interface of the accelerator:
// where its registers and memories live, and how the control bits are driven.
package device

// A RegisterFile gives raw 32-bit access to memory-mapped device registers.
// Addresses are absolute bus addresses.
type RegisterFile interface {
	ReadRegister(addr uint64) uint32
	WriteRegister(addr uint64, value uint32)
}
