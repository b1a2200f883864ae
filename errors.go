package dmgcore

import "errors"

// Sentinel errors returned by the core's loading and save-state APIs.
var (
	// ErrRomTooSmall is returned by LoadROM when the image is too short to
	// contain a cartridge header.
	ErrRomTooSmall = errors.New("dmgcore: rom image too small to contain a header")
	// ErrUnsupportedMBC is returned when the cartridge header names a
	// memory bank controller this core does not implement.
	ErrUnsupportedMBC = errors.New("dmgcore: unsupported cartridge type")
	// ErrStateFormatError is returned by LoadState when the stream's magic
	// or version does not match, i.e. it is not a save state at all or was
	// produced by an incompatible build, or when the stream ends before
	// every component's fields have been read.
	ErrStateFormatError = errors.New("dmgcore: malformed save state")
	// ErrStateContentError classifies a stream that reads completely but
	// whose decoded values break an invariant of the machine. LoadState
	// does not return it: no component checks the values it restores.
	ErrStateContentError = errors.New("dmgcore: save state content mismatch")
	// ErrInvalidOpcode is returned by Tick/RunForCycles when the CPU hits
	// an illegal opcode and StrictIllegalOpcodes was requested at New.
	ErrInvalidOpcode = errors.New("dmgcore: illegal opcode executed")
)
