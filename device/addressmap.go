package device

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/bankcheck/mem"
	"gopkg.in/yaml.v3"
)

// WordSize is the width of a pattern word and of every register.
const WordSize = 4

// ErrAddressWidth is returned when a region cannot be reached through the
// 32-bit address registers of the DMA engine.
var ErrAddressWidth = errors.New("address does not fit in 32 bits")

// RegionID identifies one of the accelerator memories.
type RegionID int

// The accelerator memories.
const (
	Input RegionID = iota
	Output
	Filter0
	Filter1
	Filter2
	Filter3
	NumRegions
)

var regionNames = [NumRegions]string{
	"Input", "Output", "Filter0", "Filter1", "Filter2", "Filter3",
}

func (id RegionID) String() string {
	if id < 0 || id >= NumRegions {
		return fmt.Sprintf("RegionID(%d)", int(id))
	}

	return regionNames[id]
}

// IsFilter tells if the region is one of the double-buffered filter banks.
func (id RegionID) IsFilter() bool {
	return id >= Filter0 && id <= Filter3
}

// FilterBanks lists the filter bank regions in order.
var FilterBanks = []RegionID{Filter0, Filter1, Filter2, Filter3}

// ParseRegionID converts a name such as "input" or "Filter2" to a RegionID.
func ParseRegionID(name string) (RegionID, error) {
	for id, n := range regionNames {
		if strings.EqualFold(n, name) {
			return RegionID(id), nil
		}
	}

	return 0, fmt.Errorf("unknown region %q, expecting one of %s",
		name, strings.Join(regionNames[:], ", "))
}

// CDMARegisters is the register layout of an AXI central DMA controller.
type CDMARegisters struct {
	Base uint64 `yaml:"base"`

	ControlOffset     uint64 `yaml:"control_offset"`
	StatusOffset      uint64 `yaml:"status_offset"`
	SrcAddrOffset     uint64 `yaml:"src_addr_offset"`
	DstAddrOffset     uint64 `yaml:"dst_addr_offset"`
	BytesToXferOffset uint64 `yaml:"btt_offset"`

	ResetMask   uint32 `yaml:"reset_mask"`
	IdleMask    uint32 `yaml:"idle_mask"`
	IntErrMask  uint32 `yaml:"int_err_mask"`
	SlvErrMask  uint32 `yaml:"slv_err_mask"`
	DecErrMask  uint32 `yaml:"dec_err_mask"`
	MaxTransfer uint64 `yaml:"max_transfer"`
}

// Control returns the address of the control register.
func (r CDMARegisters) Control() uint64 { return r.Base + r.ControlOffset }

// Status returns the address of the status register.
func (r CDMARegisters) Status() uint64 { return r.Base + r.StatusOffset }

// SrcAddr returns the address of the source address register.
func (r CDMARegisters) SrcAddr() uint64 { return r.Base + r.SrcAddrOffset }

// DstAddr returns the address of the destination address register.
func (r CDMARegisters) DstAddr() uint64 { return r.Base + r.DstAddrOffset }

// BytesToXfer returns the address of the byte count register.
func (r CDMARegisters) BytesToXfer() uint64 {
	return r.Base + r.BytesToXferOffset
}

// ErrMask returns all the error bits of the status register.
func (r CDMARegisters) ErrMask() uint32 {
	return r.IntErrMask | r.SlvErrMask | r.DecErrMask
}

// Window returns the register page of the controller.
func (r CDMARegisters) Window() mem.Region {
	return mem.Region{Name: "CDMA", Base: r.Base, Size: 4 * mem.KB}
}

// ConvParam names a convolution parameter register.
type ConvParam int

// The convolution parameter registers, in register order.
const (
	FilterW ConvParam = iota
	FilterH
	FilterC
	OutputW
	OutputH
	InputEndDiffFW
	InputEndDiffFH
	InputEndDiffFC
	InputEndDiffOW
	OutputElementsPerChannel
	OutputInitialOffset
	MAC0Bias
	MAC1Bias
	MAC2Bias
	MAC3Bias
	QScale
	QZero
	NumConvParams
)

var convParamNames = [NumConvParams]string{
	"FilterW", "FilterH", "FilterC", "OutputW", "OutputH",
	"InputEndDiffFW", "InputEndDiffFH", "InputEndDiffFC", "InputEndDiffOW",
	"OutputElementsPerChannel", "OutputInitialOffset",
	"MAC0Bias", "MAC1Bias", "MAC2Bias", "MAC3Bias",
	"QScale", "QZero",
}

func (p ConvParam) String() string {
	if p < 0 || p >= NumConvParams {
		return fmt.Sprintf("ConvParam(%d)", int(p))
	}

	return convParamNames[p]
}

// ControlRegisters is the register layout of the accelerator control block.
type ControlRegisters struct {
	Base uint64 `yaml:"base"`

	CtrlAOffset uint64 `yaml:"ctrl_a_offset"`
	CtrlBOffset uint64 `yaml:"ctrl_b_offset"`

	// ConvParamOffset is the offset of FilterW. The other parameters follow
	// one word apart.
	ConvParamOffset uint64 `yaml:"conv_param_offset"`

	ConvIdleBit        uint32 `yaml:"conv_idle_bit"`
	SwapFiltersBit     uint32 `yaml:"swap_filters_bit"`
	SwapActivationsBit uint32 `yaml:"swap_activations_bit"`
	MaxPoolingBit      uint32 `yaml:"max_pooling_bit"`
	ReLUBit            uint32 `yaml:"relu_bit"`
}

// CtrlA returns the address of the status register.
func (r ControlRegisters) CtrlA() uint64 { return r.Base + r.CtrlAOffset }

// CtrlB returns the address of the mode and swap register.
func (r ControlRegisters) CtrlB() uint64 { return r.Base + r.CtrlBOffset }

// ConvParam returns the address of a convolution parameter register.
func (r ControlRegisters) ConvParam(p ConvParam) uint64 {
	return r.Base + r.ConvParamOffset + uint64(p)*WordSize
}

// ModeMask returns the CTRLB bits that are latched by the device.
func (r ControlRegisters) ModeMask() uint32 {
	return r.MaxPoolingBit | r.ReLUBit
}

// Window returns the register page of the control block.
func (r ControlRegisters) Window() mem.Region {
	return mem.Region{Name: "Control", Base: r.Base, Size: 4 * mem.KB}
}

// AddressMap is the full memory map of the board.
type AddressMap struct {
	CDMA    CDMARegisters
	Control ControlRegisters
	Regions [NumRegions]mem.Region

	// HostScratch is a window of host memory, reachable by the DMA engine,
	// that holds staging buffers.
	HostScratch mem.Region
}

// Zedboard constants.
const (
	bramBase        = 0x4000_0000
	activationSize  = 1 << 17
	filterBase      = bramBase + 1<<18
	filterSize      = 1 << 11
	convBase        = 0x4C00_0000
	cdmaBase        = 0x7E20_0000
	hostScratchBase = 0x1000_0000
)

// DefaultAddressMap returns the memory map of the Zedboard design.
func DefaultAddressMap() AddressMap {
	am := AddressMap{
		CDMA: CDMARegisters{
			Base:              cdmaBase,
			ControlOffset:     0x00,
			StatusOffset:      0x04,
			SrcAddrOffset:     0x18,
			DstAddrOffset:     0x20,
			BytesToXferOffset: 0x28,
			ResetMask:         1 << 2,
			IdleMask:          1 << 1,
			IntErrMask:        1 << 4,
			SlvErrMask:        1 << 5,
			DecErrMask:        1 << 6,
			MaxTransfer:       0x7F_FFFF,
		},
		Control: ControlRegisters{
			Base:               convBase,
			CtrlAOffset:        0x00,
			CtrlBOffset:        0x04,
			ConvParamOffset:    0x0C,
			ConvIdleBit:        1 << 0,
			SwapFiltersBit:     1 << 0,
			SwapActivationsBit: 1 << 1,
			MaxPoolingBit:      1 << 2,
			ReLUBit:            1 << 3,
		},
		HostScratch: mem.Region{
			Name: "HostScratch",
			Base: hostScratchBase,
			Size: 16 * mem.MB,
		},
	}

	am.Regions[Input] = mem.Region{Base: bramBase, Size: activationSize}
	am.Regions[Output] = mem.Region{
		Base: bramBase + activationSize,
		Size: activationSize,
	}

	for i, id := range FilterBanks {
		am.Regions[id] = mem.Region{
			Base: filterBase + uint64(i)*filterSize,
			Size: filterSize,
		}
	}

	am.nameRegions()

	return am
}

func (am *AddressMap) nameRegions() {
	for id := range am.Regions {
		am.Regions[id].Name = RegionID(id).String()
	}
}

// Region returns the address range of a memory.
func (am AddressMap) Region(id RegionID) mem.Region {
	return am.Regions[id]
}

// Validate checks that every memory is word aligned, lies within the 32-bit
// DMA address space, and does not overlap anything else.
func (am AddressMap) Validate() error {
	all := []mem.Region{am.CDMA.Window(), am.Control.Window(), am.HostScratch}
	all = append(all, am.Regions[:]...)

	for _, r := range all {
		if err := r.Validate(WordSize); err != nil {
			return err
		}

		if r.End() > 1<<32 {
			return fmt.Errorf("%w: %s", ErrAddressWidth, r)
		}
	}

	if am.CDMA.IdleMask == 0 {
		return errors.New("CDMA idle mask must not be 0")
	}

	return mem.CheckDisjoint(all...)
}

type regionFile struct {
	Base *uint64 `yaml:"base"`
	Size *uint64 `yaml:"size"`
}

func (f regionFile) applyTo(r *mem.Region) {
	if f.Base != nil {
		r.Base = *f.Base
	}

	if f.Size != nil {
		r.Size = *f.Size
	}
}

type addressMapFile struct {
	CDMA        *CDMARegisters        `yaml:"cdma"`
	Control     *ControlRegisters     `yaml:"control"`
	Regions     map[string]regionFile `yaml:"regions"`
	HostScratch *regionFile           `yaml:"host_scratch"`
}

// ParseAddressMap reads a YAML document on top of the default address map.
// Fields that the document does not mention keep their default values.
//
//	cdma:
//	  base: 0x7e200000
//	regions:
//	  filter0: {base: 0x40040000, size: 0x800}
//	host_scratch: {base: 0x18000000}
func ParseAddressMap(data []byte) (AddressMap, error) {
	am := DefaultAddressMap()
	file := addressMapFile{CDMA: &am.CDMA, Control: &am.Control}

	if err := yaml.Unmarshal(data, &file); err != nil {
		return AddressMap{}, fmt.Errorf("parsing address map: %w", err)
	}

	for name, r := range file.Regions {
		id, err := ParseRegionID(name)
		if err != nil {
			return AddressMap{}, err
		}

		r.applyTo(&am.Regions[id])
	}

	if file.HostScratch != nil {
		file.HostScratch.applyTo(&am.HostScratch)
	}

	if err := am.Validate(); err != nil {
		return AddressMap{}, err
	}

	return am, nil
}

// LoadAddressMap reads an address map file. An empty path returns the
// default map.
func LoadAddressMap(path string) (AddressMap, error) {
	if path == "" {
		return DefaultAddressMap(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return AddressMap{}, err
	}

	return ParseAddressMap(data)
}
