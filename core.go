// Package dmgcore implements a Game Boy (DMG) and Game Boy Color (CGB)
// emulation core: CPU, bus/address decode, PPU, timer, joypad, serial,
// cartridge/MBCs, and save-state serialization. It has no window, audio
// output, or file I/O of its own; a host wires those in.
package dmgcore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kallendev/dmgcore/addr"
	"github.com/kallendev/dmgcore/cpu"
	"github.com/kallendev/dmgcore/memory"
	"github.com/kallendev/dmgcore/parcel"
	"github.com/kallendev/dmgcore/serial"
	"github.com/kallendev/dmgcore/video"
)

const cyclesPerFrame = 70224

// AudioSink receives one stereo sample pair. The core never calls it: no
// APU channel synthesis is implemented, only register pass-through
// storage, so a host that wants sound has nothing upstream of this hook
// yet. It exists so a future APU can be wired in without an API break.
type AudioSink func(left, right int16)

// Options configures Core construction.
type Options struct {
	// CGB selects Game Boy Color mode: double VRAM/WRAM banking, CGB
	// palettes, and the double-speed switch become active.
	CGB bool
	// StrictIllegalOpcodes makes illegal opcodes surface as
	// ErrInvalidOpcode from Tick/RunForCycles instead of locking the CPU
	// into an infinite refetch loop.
	StrictIllegalOpcodes bool
}

// Core is the Machine: it owns the CPU, bus, and PPU, and exposes the
// host-facing surface (loading, stepping, input, save state).
type Core struct {
	cpu *cpu.CPU
	mmu *memory.MMU
	gpu *video.GPU

	remainingCycles int
	audioSink       AudioSink

	frameCount uint64
}

// New creates a Core with no cartridge loaded; LoadROM must be called
// before meaningful execution.
func New(opts Options) *Core {
	mmu := memory.New(opts.CGB)
	mmu.LoadCartridge(memory.NewCartridge())

	c := cpu.New(mmu, opts.CGB)
	c.StrictIllegalOpcodes = opts.StrictIllegalOpcodes
	mmu.AttachCPU(c)

	gpu := video.New(mmu)

	return &Core{cpu: c, mmu: mmu, gpu: gpu}
}

// LoadBootROM maps a boot ROM image at address 0; the core runs it until
// the BOOT register is written, exactly like real hardware.
func (c *Core) LoadBootROM(data []byte) error {
	return c.mmu.LoadBootROM(data)
}

// LoadROM parses a cartridge header from rom and installs its MBC. It
// replaces any previously loaded cartridge.
func (c *Core) LoadROM(rom []byte) error {
	cart, err := memory.NewCartridgeFromROM(rom)
	if err != nil {
		switch {
		case errors.Is(err, memory.ErrRomTooSmall):
			return fmt.Errorf("%w: %v", ErrRomTooSmall, err)
		case errors.Is(err, memory.ErrUnsupportedMBC):
			return fmt.Errorf("%w: %v", ErrUnsupportedMBC, err)
		default:
			return err
		}
	}
	c.mmu.LoadCartridge(cart)
	slog.Debug("rom loaded", "title", cart.Title, "cgb", cart.CGBSupport)
	return nil
}

// LoadRAM restores battery-backed cartridge RAM from a prior SaveRAM
// dump. The dump holds cartridge RAM only; an MBC3 real-time clock's
// registers are not part of it.
func (c *Core) LoadRAM(data []byte) error {
	return c.mmu.LoadCartridgeRAM(data)
}

// SaveRAM returns a copy of the cartridge's battery-backed RAM, or nil if
// the cartridge has none. An MBC3 real-time clock's registers are not
// included.
func (c *Core) SaveRAM() []byte {
	return c.mmu.SaveCartridgeRAM()
}

// TickRTC advances an MBC3 cartridge's real-time clock by the given
// number of whole seconds. The core has no wall-clock access itself; a
// host calls this with elapsed real time, typically once per frame or on
// resume from a suspended state.
func (c *Core) TickRTC(seconds int) {
	c.mmu.TickRTC(seconds)
}

// SetAudioSink installs the callback future APU sample output would be
// delivered through. See AudioSink's doc comment: currently never called.
func (c *Core) SetAudioSink(sink AudioSink) { c.audioSink = sink }

// AttachSerial replaces the link-cable endpoint. The endpoint New installs
// reads back 0xFF, as if no cable were plugged in, and completes each
// transfer after 4096 T-cycles without logging anything.
func (c *Core) AttachSerial(e serial.Endpoint) { c.mmu.AttachSerial(e) }

// DetachSerial replaces the attached endpoint with a serial.LogSink:
// transfers complete at once, SB reads back 0xFF, and outgoing bytes are
// logged. This is not the endpoint New installs, whose transfers take
// 4096 T-cycles.
func (c *Core) DetachSerial() {
	c.mmu.AttachSerial(serial.NewLogSink(func() { c.mmu.RequestInterrupt(addr.SerialInterrupt) }))
}

// SetKey presses or releases one button. A host driving input from an
// event loop calls this on both key-down and key-up.
func (c *Core) SetKey(key Key, pressed bool) {
	if pressed {
		c.mmu.HandleKeyPress(key.joypadKey())
	} else {
		c.mmu.HandleKeyRelease(key.joypadKey())
	}
}

// Framebuffer returns the PPU's current rendering target. Its contents
// are only complete and stable for the caller's use right after Frame
// returns (mid-frame, rows are drawn one scanline at a time).
func (c *Core) Framebuffer() *video.FrameBuffer { return c.gpu.FrameBuffer() }

// Tick advances the machine by exactly one externally-observable T-cycle.
// Internally the CPU still executes whole instructions at a time: the
// first Tick after an instruction boundary runs the next opcode and feeds
// its full cost to the bus/timer/PPU in one batch, and the remaining
// calls just drain the count already accounted for. This keeps the
// public per-cycle contract while avoiding a sub-instruction scheduler
// the underlying opcode dispatch was never built to support.
func (c *Core) Tick() error {
	if c.remainingCycles <= 0 {
		cycles := c.cpu.Step()
		c.mmu.Tick(cycles)
		c.gpu.Tick(cycles)
		c.remainingCycles = cycles

		if c.cpu.StrictIllegalOpcodes && c.cpu.InvalidOpcodeHit() {
			c.cpu.ClearInvalidOpcodeHit()
			return ErrInvalidOpcode
		}
	}
	c.remainingCycles--
	return nil
}

// RunForCycles advances the machine by n T-cycles, stopping early (and
// returning the error) if an illegal opcode is hit in strict mode.
func (c *Core) RunForCycles(n int) error {
	for i := 0; i < n; i++ {
		if err := c.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Frame runs the machine for one full 70224 T-cycle frame.
func (c *Core) Frame() error {
	if err := c.RunForCycles(cyclesPerFrame); err != nil {
		return err
	}
	c.frameCount++
	if c.frameCount%60 == 0 {
		slog.Debug("frame completed", "frame", c.frameCount)
	}
	return nil
}

// FrameCount returns the number of full frames Frame has completed.
func (c *Core) FrameCount() uint64 { return c.frameCount }

// SaveState serializes the entire machine (CPU, bus, PPU) to the Parcel
// wire format.
func (c *Core) SaveState() []byte {
	w := parcel.NewWriter()
	c.cpu.SaveState(w)
	c.mmu.SaveState(w)
	c.gpu.SaveState(w)
	return w.Bytes()
}

// LoadState restores a machine previously serialized by SaveState. It
// returns ErrStateFormatError if the stream's header is malformed or the
// stream runs out of data mid-read (e.g. it was produced by an
// incompatible build).
func (c *Core) LoadState(data []byte) error {
	r, err := parcel.NewReader(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStateFormatError, err)
	}
	if err := c.cpu.LoadState(r); err != nil {
		return fmt.Errorf("%w: %v", ErrStateFormatError, err)
	}
	if err := c.mmu.LoadState(r); err != nil {
		return fmt.Errorf("%w: %v", ErrStateFormatError, err)
	}
	if err := c.gpu.LoadState(r); err != nil {
		return fmt.Errorf("%w: %v", ErrStateFormatError, err)
	}
	return nil
}
