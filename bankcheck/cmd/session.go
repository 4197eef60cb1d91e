package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sarchlab/bankcheck/accel"
	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/devmem"
	"github.com/sarchlab/bankcheck/dma"
	"github.com/sarchlab/bankcheck/memcheck"
	"github.com/sarchlab/bankcheck/sim"
)

const boardName = "Zedboard"

// A session is an open board with the engines that drive it.
type session struct {
	addressMap device.AddressMap
	logger     *log.Logger

	platform *accel.Platform
	board    *devmem.Board

	regs       device.RegisterFile
	allocator  dma.Allocator
	timeTeller sim.TimeTeller

	engine     *dma.Engine
	checker    *memcheck.Checker
	controller *device.Controller
}

func newLogger() *log.Logger {
	if opts.quiet {
		return log.New(io.Discard, "", 0)
	}

	return log.New(os.Stderr, "", 0)
}

func openSession() (*session, error) {
	am, err := device.LoadAddressMap(opts.addressMap)
	if err != nil {
		return nil, err
	}

	if err := am.Validate(); err != nil {
		return nil, err
	}

	s := &session{addressMap: am, logger: newLogger()}

	switch opts.backend {
	case "sim":
		if err := s.openSimulation(); err != nil {
			return nil, err
		}
	case "devmem":
		if err := s.openDevMem(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown backend %q, expecting sim or devmem",
			opts.backend)
	}

	s.engine = dma.MakeBuilder().
		WithRegisterFile(s.regs).
		WithLayout(am.CDMA).
		WithPollPolicy(dma.PollPolicy{
			MaxPolls: opts.maxPolls,
			Timeout:  opts.timeout,
		}).
		Build(boardName + ".DMA")
	s.checker = memcheck.MakeBuilder().
		WithTransferer(s.engine).
		WithAllocator(s.allocator).
		WithLogger(s.logger).
		Build(boardName + ".Checker")
	s.controller = device.NewController(s.regs, am.Control)

	return s, nil
}

func (s *session) openSimulation() error {
	fault, err := accel.ParseFault(opts.fault)
	if err != nil {
		return err
	}

	s.platform = accel.MakeBuilder().
		WithAddressMap(s.addressMap).
		WithFault(fault).
		WithPollCycles(opts.pollCycles).
		WithBytesPerCycle(opts.bytesPerCycle).
		WithBufferSize(max(64, 16*opts.bytesPerCycle)).
		WithLogger(s.logger).
		Build(boardName)

	if opts.logEvents {
		s.platform.Engine().AcceptHook(
			sim.NewEventLogger(log.New(os.Stderr, "", 0)))
	}

	s.regs = s.platform
	s.allocator = s.platform
	s.timeTeller = s.platform

	return nil
}

func (s *session) openDevMem() error {
	if opts.fault != "none" {
		return errors.New("faults can only be injected into the simulated board")
	}

	board, err := devmem.Open(s.addressMap)
	if err != nil {
		return err
	}

	s.board = board
	s.regs = board
	s.allocator = board
	s.timeTeller = sim.NewWallClock()

	return nil
}

// components lists what the monitor can inspect.
func (s *session) components() []sim.Named {
	res := []sim.Named{s.engine}
	if s.platform != nil {
		res = append(res, s.platform.Components()...)
	}

	return res
}

func (s *session) Close() error {
	if s.board != nil {
		return s.board.Close()
	}

	return nil
}
