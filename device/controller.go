package device

// Mode holds the latched operating options of the accelerator.
type Mode struct {
	MaxPooling bool
	ReLU       bool
}

// Controller drives the control block of the accelerator. It does not
// remember anything about the device: every decision is made from a fresh
// register read.
type Controller struct {
	regs   RegisterFile
	layout ControlRegisters
}

// NewController creates a Controller.
func NewController(regs RegisterFile, layout ControlRegisters) *Controller {
	return &Controller{regs: regs, layout: layout}
}

// ConvIdle tells if the convolution engine is idle.
func (c *Controller) ConvIdle() bool {
	return c.regs.ReadRegister(c.layout.CtrlA())&c.layout.ConvIdleBit != 0
}

// Mode reads back the latched mode bits.
func (c *Controller) Mode() Mode {
	v := c.regs.ReadRegister(c.layout.CtrlB())

	return Mode{
		MaxPooling: v&c.layout.MaxPoolingBit != 0,
		ReLU:       v&c.layout.ReLUBit != 0,
	}
}

func (c *Controller) modeBits(m Mode) uint32 {
	var v uint32

	if m.MaxPooling {
		v |= c.layout.MaxPoolingBit
	}

	if m.ReLU {
		v |= c.layout.ReLUBit
	}

	return v
}

// SetMode writes the mode bits without swapping any bank.
func (c *Controller) SetMode(m Mode) {
	c.regs.WriteRegister(c.layout.CtrlB(), c.modeBits(m))
}

// SwapFilterBanks toggles which physical filter bank set is active. The
// current mode bits are preserved.
func (c *Controller) SwapFilterBanks() {
	c.swap(c.layout.SwapFiltersBit)
}

// SwapActivationBanks toggles which physical memory backs the input and the
// output buffers. The current mode bits are preserved.
func (c *Controller) SwapActivationBanks() {
	c.swap(c.layout.SwapActivationsBit)
}

func (c *Controller) swap(bit uint32) {
	mode := c.regs.ReadRegister(c.layout.CtrlB()) & c.layout.ModeMask()
	c.regs.WriteRegister(c.layout.CtrlB(), mode|bit)
}

// WriteConvParam sets a convolution parameter.
func (c *Controller) WriteConvParam(p ConvParam, value uint32) {
	c.regs.WriteRegister(c.layout.ConvParam(p), value)
}

// ReadConvParam reads a convolution parameter back.
func (c *Controller) ReadConvParam(p ConvParam) uint32 {
	return c.regs.ReadRegister(c.layout.ConvParam(p))
}
