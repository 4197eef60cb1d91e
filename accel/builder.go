package accel

import (
	"log"
	"os"

	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/mem"
	"github.com/sarchlab/bankcheck/sim"
)

// Builder can build simulated boards.
type Builder struct {
	engine        *sim.SerialEngine
	freq          sim.Freq
	pollCycles    int
	bytesPerCycle uint64
	bufferSize    uint64
	addressMap    device.AddressMap
	fault         Fault
	logger        *log.Logger
}

// MakeBuilder creates a builder for a 100 MHz Zedboard whose DMA controller
// moves 4 bytes per cycle.
func MakeBuilder() Builder {
	return Builder{
		freq:          100 * sim.MHz,
		pollCycles:    1,
		bytesPerCycle: 4,
		bufferSize:    64,
		addressMap:    device.DefaultAddressMap(),
		logger:        log.New(os.Stderr, "", 0),
	}
}

// WithEngine sets the event engine. By default, each board has its own.
func (b Builder) WithEngine(engine *sim.SerialEngine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock of the board.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithPollCycles sets how many cycles the hardware runs for each status
// register read.
func (b Builder) WithPollCycles(n int) Builder {
	b.pollCycles = n
	return b
}

// WithBytesPerCycle sets the bandwidth of the DMA controller.
func (b Builder) WithBytesPerCycle(n uint64) Builder {
	b.bytesPerCycle = n
	return b
}

// WithBufferSize sets how far the DMA controller can read ahead.
func (b Builder) WithBufferSize(n uint64) Builder {
	b.bufferSize = n
	return b
}

// WithAddressMap sets the memory map of the board.
func (b Builder) WithAddressMap(am device.AddressMap) Builder {
	b.addressMap = am
	return b
}

// WithFault injects a hardware defect.
func (b Builder) WithFault(f Fault) Builder {
	b.fault = f
	return b
}

// WithLogger sets where the board reports hardware errors.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a board.
func (b Builder) Build(name string) *Platform {
	b.parametersMustBeValid()

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	p := &Platform{
		name:       name,
		engine:     engine,
		freq:       b.freq,
		pollCycles: b.pollCycles,
		addressMap: b.addressMap,
		bus:        newInterconnect(),
		hostAlloc:  mem.NewRangeAllocator(b.addressMap.HostScratch, 64),
	}

	p.control = &Control{
		name:        name + ".Control",
		layout:      b.addressMap.Control,
		boardLock:   &p.lock,
		ignoreSwaps: b.fault == FaultAlias,
	}

	b.buildMemories(p)
	b.buildCDMA(p, name)

	return p
}

func (b Builder) buildMemories(p *Platform) {
	am := b.addressMap
	activationSize := max(am.Region(device.Input).Size, am.Region(device.Output).Size)

	for i := range p.activations {
		p.activations[i] = mem.NewStorage(activationSize)
	}

	p.bus.attach(am.Region(device.Input), bankedTarget{
		banks:    p.activations[:],
		selector: activationSelector{control: p.control},
	})
	p.bus.attach(am.Region(device.Output), bankedTarget{
		banks:    p.activations[:],
		selector: activationSelector{control: p.control, output: true},
	})

	for set := range p.filters {
		for _, id := range device.FilterBanks {
			p.filters[set] = append(p.filters[set],
				mem.NewStorage(am.Region(id).Size))
		}
	}

	for i, id := range device.FilterBanks {
		p.bus.attach(am.Region(id), bankedTarget{
			banks:    []*mem.Storage{p.filters[0][i], p.filters[1][i]},
			selector: filterSelector{control: p.control},
		})
	}
}

func (b Builder) buildCDMA(p *Platform, name string) {
	c := &CDMA{
		layout:        b.addressMap.CDMA,
		bus:           p.bus,
		bytesPerCycle: b.bytesPerCycle,
		bufferSize:    b.bufferSize,
		stalled:       b.fault == FaultStall,
		logger:        b.logger,
		boardLock:     &p.lock,
	}
	c.TickingComponent = sim.NewTickingComponent(name+".CDMA", p.engine, b.freq, c)
	c.reset()

	p.cdma = c
}

func (b Builder) parametersMustBeValid() {
	if b.freq <= 0 {
		panic("frequency must be positive")
	}

	if b.pollCycles <= 0 {
		panic("poll cycles must be positive")
	}

	if b.bytesPerCycle == 0 || b.bufferSize < b.bytesPerCycle {
		panic("buffer must hold at least one cycle of data")
	}

	if err := b.addressMap.Validate(); err != nil {
		panic(err)
	}
}
