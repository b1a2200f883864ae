package memory

import (
	"github.com/kallendev/dmgcore/bit"
	"github.com/kallendev/dmgcore/parcel"
)

// JoypadKey names one of the 8 physical buttons.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad implements the P1 register's row/column matrix: writing bits 4-5
// selects which button group is visible on bits 0-3, and a 1-to-0
// transition on any visible bit requests the Joypad interrupt.
type Joypad struct {
	buttons uint8 // bit low = pressed
	dpad    uint8
	select_ uint8 // raw bits 4-5 as last written

	InterruptHandler func()
}

func NewJoypad() *Joypad {
	return &Joypad{buttons: 0x0F, dpad: 0x0F}
}

func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) // bits 6-7 always read 1
	result |= j.select_ & 0x30

	selectDpad := !bit.IsSet(4, j.select_)
	selectButtons := !bit.IsSet(5, j.select_)

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons & 0x0F
	case selectDpad && !selectButtons:
		result |= j.dpad & 0x0F
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad & 0x0F
	default:
		result |= 0x0F
	}
	return result
}

func (j *Joypad) Write(value uint8) {
	j.select_ = value & 0x30
}

func (j *Joypad) Press(key JoypadKey) {
	before := j.Read() & 0x0F
	switch key {
	case JoypadRight:
		j.dpad = bit.Reset(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Reset(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Reset(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Reset(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Reset(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Reset(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Reset(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Reset(3, j.buttons)
	}
	after := j.Read() & 0x0F
	if before&^after != 0 && j.InterruptHandler != nil {
		j.InterruptHandler()
	}
}

func (j *Joypad) Release(key JoypadKey) {
	switch key {
	case JoypadRight:
		j.dpad = bit.Set(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Set(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Set(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Set(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Set(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Set(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Set(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Set(3, j.buttons)
	}
}

func (j *Joypad) SaveState(w *parcel.Writer) {
	w.WriteU8(j.buttons)
	w.WriteU8(j.dpad)
	w.WriteU8(j.select_)
}

func (j *Joypad) LoadState(r *parcel.Reader) error {
	j.buttons = r.ReadU8()
	j.dpad = r.ReadU8()
	j.select_ = r.ReadU8()
	return r.Err()
}
