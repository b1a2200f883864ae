package dmgcore

import "github.com/kallendev/dmgcore/memory"

// Key names one of the 8 physical buttons, re-exported at the public
// boundary so host code never has to import the memory package directly.
type Key int

const (
	KeyRight Key = iota
	KeyLeft
	KeyUp
	KeyDown
	KeyA
	KeyB
	KeySelect
	KeyStart
)

func (k Key) joypadKey() memory.JoypadKey { return memory.JoypadKey(k) }
