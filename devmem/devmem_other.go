//go:build !linux

package devmem

import "github.com/sarchlab/bankcheck/device"

// Open always fails where /dev/mem does not exist.
func Open(_ device.AddressMap) (*Board, error) {
	return nil, ErrUnsupported
}
