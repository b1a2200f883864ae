// Package video implements the PPU: the mode FSM driving STAT/LY, the
// background/window/sprite scanline renderer, and its CGB extensions
// (tile attributes, 8 background/8 object color palettes, and the HBlank
// hook HDMA transfers ride on).
package video

import (
	"github.com/kallendev/dmgcore/addr"
	"github.com/kallendev/dmgcore/bit"
	"github.com/kallendev/dmgcore/memory"
	"github.com/kallendev/dmgcore/parcel"
)

// GpuMode matches STAT bits 1-0.
type GpuMode int

const (
	hblankMode  GpuMode = 0
	vblankMode  GpuMode = 1
	oamReadMode GpuMode = 2
	vramMode    GpuMode = 3
)

const (
	hblankCycles       = 204
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles
)

type statFlag uint8

const (
	statLycIrq       statFlag = 6
	statOamIrq       statFlag = 5
	statVblankIrq    statFlag = 4
	statHblankIrq    statFlag = 3
	statLycCondition statFlag = 2
)

type lcdcFlag uint8

const (
	lcdDisplayEnable       lcdcFlag = 7
	windowTileMapSelect    lcdcFlag = 6
	windowDisplayEnable    lcdcFlag = 5
	bgWindowTileDataSelect lcdcFlag = 4
	bgTileMapDisplaySelect lcdcFlag = 3
	spriteSize             lcdcFlag = 2
	spriteDisplayEnable    lcdcFlag = 1
	bgDisplay              lcdcFlag = 0
)

// GPU drives the pixel pipeline one scanline at a time: Tick is called
// with the T-cycles just elapsed and advances the mode FSM, rendering a
// full scanline's worth of pixels the instant it enters VRAM-read mode.
type GPU struct {
	bus *memory.MMU

	framebuffer    *FrameBuffer
	bgPriority     []bool // true where a BG/window pixel wins over every sprite (CGB)
	bgColorIndex   []byte // raw 2-bit color index per pixel, for DMG sprite-behind-BG checks
	spritePriority spritePriorityBuffer

	mode           GpuMode
	line           int
	cycles         int
	modeCounterAux int
	vBlankLine     int
	windowLine     int
	scanlineDrawn  bool

	cgb bool
}

func New(bus *memory.MMU) *GPU {
	g := &GPU{
		bus:          bus,
		framebuffer:  NewFrameBuffer(),
		bgPriority:   make([]bool, FramebufferSize),
		bgColorIndex: make([]byte, FramebufferSize),
		mode:         vblankMode,
		line:         144,
		cgb:          bus.CGBMode(),
	}
	return g
}

func (g *GPU) FrameBuffer() *FrameBuffer { return g.framebuffer }

// Tick advances the PPU by the given number of T-cycles.
func (g *GPU) Tick(cycles int) {
	g.cycles += cycles

	switch g.mode {
	case hblankMode:
		if g.cycles < hblankCycles {
			return
		}
		g.cycles -= hblankCycles
		g.bus.NotifyHBlank()
		g.setMode(oamReadMode)
		g.setLY(g.line + 1)

		if g.line == 144 {
			g.setMode(vblankMode)
			g.vBlankLine = 0
			g.modeCounterAux = g.cycles
			g.windowLine = 0
			g.bus.RequestInterrupt(addr.VBlankInterrupt)
			if g.bus.ReadBit(uint8(statVblankIrq), addr.STAT) {
				g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
			}
		} else if g.bus.ReadBit(uint8(statOamIrq), addr.STAT) {
			g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	case vblankMode:
		g.modeCounterAux += cycles
		if g.modeCounterAux >= scanlineCycles {
			g.modeCounterAux -= scanlineCycles
			g.vBlankLine++
			if g.vBlankLine <= 9 {
				g.setLY(g.line + 1)
			}
		}
		if g.cycles >= 4560 && g.line == 153 {
			g.setLY(0)
		}
		if g.cycles >= 4560 {
			g.cycles -= 4560
			g.setMode(oamReadMode)
			if g.bus.ReadBit(uint8(statOamIrq), addr.STAT) {
				g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
			}
		}
	case oamReadMode:
		if g.cycles >= oamScanlineCycles {
			g.cycles -= oamScanlineCycles
			g.setMode(vramMode)
			g.scanlineDrawn = false
		}
	case vramMode:
		if !g.scanlineDrawn {
			if g.readLCDC(lcdDisplayEnable) == 1 {
				g.drawScanline()
			}
			g.scanlineDrawn = true
		}
		if g.cycles >= vramScanlineCycles {
			g.cycles -= vramScanlineCycles
			g.setMode(hblankMode)
			if g.bus.ReadBit(uint8(statHblankIrq), addr.STAT) {
				g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
			}
		}
	}
}

func (g *GPU) readLCDC(flag lcdcFlag) byte {
	if bit.IsSet(uint8(flag), g.bus.Read(addr.LCDC)) {
		return 1
	}
	return 0
}

func (g *GPU) compareLYToLYC() {
	ly := g.bus.Read(addr.LY)
	lyc := g.bus.Read(addr.LYC)
	stat := g.bus.Read(addr.STAT)
	if ly == lyc {
		stat = bit.Set(uint8(statLycCondition), stat)
		if bit.IsSet(uint8(statLycIrq), stat) {
			g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		stat = bit.Reset(uint8(statLycCondition), stat)
	}
	g.bus.Write(addr.STAT, stat)
}

func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode
	stat := g.bus.Read(addr.STAT)
	g.bus.Write(addr.STAT, stat&0xFC|byte(mode))
}

func (g *GPU) setLY(line int) {
	g.line = line
	g.bus.Write(addr.LY, byte(g.line))
	g.compareLYToLYC()
}

func (g *GPU) drawScanline() {
	if g.readLCDC(lcdDisplayEnable) == 0 {
		lineWidth := g.line * FramebufferWidth
		for i := 0; i < FramebufferWidth; i++ {
			g.framebuffer.buffer[lineWidth+i] = dmgColorToRGB565(0)
		}
		return
	}
	g.drawBackground()
	g.drawWindow()
	g.drawSprites()
}

func (g *GPU) SaveState(w *parcel.Writer) {
	w.WriteU8(uint8(g.mode))
	w.WriteI32(int32(g.line))
	w.WriteI32(int32(g.cycles))
	w.WriteI32(int32(g.modeCounterAux))
	w.WriteI32(int32(g.vBlankLine))
	w.WriteI32(int32(g.windowLine))
	w.WriteBool(g.scanlineDrawn)
}

func (g *GPU) LoadState(r *parcel.Reader) error {
	g.mode = GpuMode(r.ReadU8())
	g.line = int(r.ReadI32())
	g.cycles = int(r.ReadI32())
	g.modeCounterAux = int(r.ReadI32())
	g.vBlankLine = int(r.ReadI32())
	g.windowLine = int(r.ReadI32())
	g.scanlineDrawn = r.ReadBool()
	return r.Err()
}
