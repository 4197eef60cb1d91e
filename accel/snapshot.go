package accel

// CDMAState is a copy of the registers and counters of a CDMA.
type CDMAState struct {
	Name        string
	Control     uint32
	Status      uint32
	SrcAddr     uint32
	DstAddr     uint32
	BytesToXfer uint32
	Busy        bool
	Staged      int
	Transfers   uint64
	BytesMoved  uint64
}

// Snapshot copies the state of the controller between two register
// accesses.
func (c *CDMA) Snapshot() any {
	c.boardLock.Lock()
	defer c.boardLock.Unlock()

	s := &CDMAState{
		Name:        c.Name(),
		Control:     c.control,
		Status:      c.status,
		SrcAddr:     c.srcAddr,
		DstAddr:     c.dstAddr,
		BytesToXfer: c.btt,
		Busy:        c.Busy(),
		Transfers:   c.transfers,
		BytesMoved:  c.bytesMoved,
	}

	if c.transaction != nil {
		s.Staged = len(c.transaction.staged)
	}

	return s
}

// ControlState is a copy of the control registers and the bank selection.
type ControlState struct {
	Name            string
	Mode            uint32
	FilterSet       int
	ActivationSet   int
	FilterSwaps     uint64
	ActivationSwaps uint64
	ConvParams      []uint32
}

// Snapshot copies the state of the control block between two register
// accesses.
func (c *Control) Snapshot() any {
	c.boardLock.Lock()
	defer c.boardLock.Unlock()

	return &ControlState{
		Name:            c.name,
		Mode:            c.mode,
		FilterSet:       c.filterSet,
		ActivationSet:   c.activationSet,
		FilterSwaps:     c.filterSwaps,
		ActivationSwaps: c.activationSwaps,
		ConvParams:      append([]uint32(nil), c.params[:]...),
	}
}
