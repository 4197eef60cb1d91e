package dma

// Mem is a buffer in host memory that the DMA engine can reach. Buf is the
// CPU view of the buffer and PhysAddr is the bus address the engine uses.
type Mem interface {
	Buf() []byte
	PhysAddr() uint64
	Close() error
}

// An Allocator hands out DMA-reachable host buffers.
type Allocator interface {
	Alloc(size uint64) (Mem, error)
}
