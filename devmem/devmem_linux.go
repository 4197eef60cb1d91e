//go:build linux

package devmem

import (
	"fmt"
	"os"

	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/mem"
	"golang.org/x/sys/unix"
)

// DevicePath is the physical memory device.
const DevicePath = "/dev/mem"

type devMemMapper struct {
	file *os.File
}

func (m devMemMapper) mapRegion(r mem.Region) ([]byte, error) {
	pageSize := uint64(unix.Getpagesize())
	if r.Base%pageSize != 0 || r.Size%pageSize != 0 {
		return nil, fmt.Errorf("%s is not page aligned", r)
	}

	return unix.Mmap(int(m.file.Fd()), int64(r.Base), int(r.Size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (m devMemMapper) unmapRegion(data []byte) error {
	return unix.Munmap(data)
}

func (m devMemMapper) Close() error {
	return m.file.Close()
}

// Open maps the registers and the scratch window of a board. It needs
// permission to open /dev/mem.
func Open(am device.AddressMap) (*Board, error) {
	file, err := os.OpenFile(DevicePath, os.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", DevicePath, err)
	}

	return newBoard(am, devMemMapper{file: file})
}
