package accel

import (
	"fmt"

	"github.com/sarchlab/bankcheck/mem"
)

// hostBuffer is a chunk of host memory shared by the CPU and the DMA
// controller.
type hostBuffer struct {
	platform *Platform
	base     uint64
	data     []byte
	closed   bool
}

func (b *hostBuffer) Buf() []byte {
	return b.data
}

func (b *hostBuffer) PhysAddr() uint64 {
	return b.base
}

func (b *hostBuffer) Close() error {
	b.platform.lock.Lock()
	defer b.platform.lock.Unlock()

	if b.closed {
		return fmt.Errorf("buffer at 0x%08x is already released", b.base)
	}

	b.closed = true
	b.platform.bus.detach(b.base)

	return b.platform.hostAlloc.Free(b.base)
}

// bufferTarget lets the DMA controller reach a host buffer.
type bufferTarget struct {
	buf *hostBuffer
}

func (t bufferTarget) read(offset, length uint64) ([]byte, error) {
	res := make([]byte, length)
	copy(res, t.buf.data[offset:offset+length])

	return res, nil
}

func (t bufferTarget) write(offset uint64, data []byte) error {
	copy(t.buf.data[offset:], data)
	return nil
}

func (p *Platform) allocHostBuffer(size uint64) (*hostBuffer, error) {
	base, err := p.hostAlloc.Alloc(size)
	if err != nil {
		return nil, err
	}

	buf := &hostBuffer{
		platform: p,
		base:     base,
		data:     make([]byte, size),
	}

	p.bus.attach(
		mem.Region{Name: fmt.Sprintf("Host[0x%08x]", base), Base: base, Size: size},
		bufferTarget{buf: buf})

	return buf, nil
}
