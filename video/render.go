package video

import (
	"github.com/kallendev/dmgcore/addr"
	"github.com/kallendev/dmgcore/bit"
)

// tileAttributes decodes a CGB tile map attribute byte (stored in VRAM
// bank 1 at the same offset as the tile index in bank 0).
type tileAttributes struct {
	palette uint8
	bank    uint8
	flipX   bool
	flipY   bool
	priority bool // BG/window wins over every sprite
}

func decodeTileAttributes(v uint8) tileAttributes {
	return tileAttributes{
		palette:  v & 0x07,
		bank:     (v >> 3) & 0x01,
		flipX:    bit.IsSet(5, v),
		flipY:    bit.IsSet(6, v),
		priority: bit.IsSet(7, v),
	}
}

func (g *GPU) drawBackground() {
	lineWidth := g.line * FramebufferWidth
	backgroundEnabled := g.readLCDC(bgDisplay) == 1

	if !backgroundEnabled && !g.cgb {
		palette := g.bus.Read(addr.BGP)
		color0 := palette & 0x03
		displayColor := dmgColorToRGB565(color0)
		for i := 0; i < FramebufferWidth; i++ {
			g.framebuffer.buffer[lineWidth+i] = displayColor
			g.bgColorIndex[lineWidth+i] = 0
			g.bgPriority[lineWidth+i] = false
		}
		return
	}

	useSignedTileSet := g.readLCDC(bgWindowTileDataSelect) == 0
	useTileMapZero := g.readLCDC(bgTileMapDisplaySelect) == 0

	tilesAddr := addr.TileData0
	if useSignedTileSet {
		tilesAddr = addr.TileData2
	}
	tileMapAddr := addr.TileMap1
	if useTileMapZero {
		tileMapAddr = addr.TileMap0
	}

	scrollX := g.bus.Read(addr.SCX)
	scrollY := g.bus.Read(addr.SCY)
	lineScrolled := (g.line + int(scrollY)) & 0xFF
	lineScrolled32 := (lineScrolled / 8) * 32
	tilePixelY := lineScrolled % 8

	for screenPixelX := 0; screenPixelX < FramebufferWidth; screenPixelX++ {
		mapPixelX := (screenPixelX + int(scrollX)) & 0xFF
		mapTileX := mapPixelX / 8
		mapTileXOffset := mapPixelX % 8
		mapTileOffset := uint16(lineScrolled32 + mapTileX)
		mapTileAddr := tileMapAddr + mapTileOffset

		mapTileValue := g.bus.Read(mapTileAddr)

		var attrs tileAttributes
		if g.cgb {
			attrs = decodeTileAttributes(g.bus.ReadVRAMBank(1, mapTileAddr))
		}

		py := tilePixelY
		if attrs.flipY {
			py = 7 - py
		}
		pixelY2 := py * 2

		var tileAddr uint16
		if useSignedTileSet {
			tileAddr = uint16(int(tilesAddr) + int(int8(mapTileValue))*16 + pixelY2)
		} else {
			tileAddr = tilesAddr + uint16(int(mapTileValue)*16) + uint16(pixelY2)
		}

		var low, high uint8
		if g.cgb && attrs.bank == 1 {
			low = g.bus.ReadVRAMBank(1, tileAddr)
			high = g.bus.ReadVRAMBank(1, tileAddr+1)
		} else {
			low = g.bus.Read(tileAddr)
			high = g.bus.Read(tileAddr + 1)
		}

		px := mapTileXOffset
		if attrs.flipX {
			px = 7 - px
		}
		pixelIndex := uint8(7 - px)

		pixel := uint8(0)
		if bit.IsSet(pixelIndex, low) {
			pixel |= 1
		}
		if bit.IsSet(pixelIndex, high) {
			pixel |= 2
		}

		pos := lineWidth + screenPixelX

		var finalColor uint16
		if g.cgb {
			finalColor = cgbColorToRGB565(g.bus.BGPaletteColor(attrs.palette, pixel))
		} else {
			palette := g.bus.Read(addr.BGP)
			shade := (palette >> (pixel * 2)) & 0x03
			finalColor = dmgColorToRGB565(shade)
		}

		g.framebuffer.buffer[pos] = finalColor
		g.bgColorIndex[pos] = pixel
		g.bgPriority[pos] = g.cgb && attrs.priority && pixel != 0
	}
}

func (g *GPU) drawWindow() {
	if g.windowLine > 143 {
		return
	}
	if g.readLCDC(windowDisplayEnable) == 0 {
		return
	}

	wx := g.bus.Read(addr.WX)
	if wx < 7 {
		wx = 7
	}
	wx -= 7
	wy := g.bus.Read(addr.WY)

	if wx > 159 || wy > 143 || int(wy) > g.line {
		return
	}

	useSignedTileSet := g.readLCDC(bgWindowTileDataSelect) == 0
	useTileMapZero := g.readLCDC(windowTileMapSelect) == 0

	tilesAddr := addr.TileData0
	if useSignedTileSet {
		tilesAddr = addr.TileData2
	}
	tileMapAddr := addr.TileMap1
	if useTileMapZero {
		tileMapAddr = addr.TileMap0
	}

	lineAdj := g.windowLine
	y32 := (lineAdj / 8) * 32
	pixelY := lineAdj & 7
	lineWidth := g.line * FramebufferWidth

	endTileX := (FramebufferWidth - int(wx) + 7) / 8
	if endTileX > 32 {
		endTileX = 32
	}

	for x := 0; x < endTileX; x++ {
		tileIndexAddr := tileMapAddr + uint16(y32+x)
		tileValue := g.bus.Read(tileIndexAddr)

		var attrs tileAttributes
		if g.cgb {
			attrs = decodeTileAttributes(g.bus.ReadVRAMBank(1, tileIndexAddr))
		}

		py := pixelY
		if attrs.flipY {
			py = 7 - py
		}
		pixelY2 := py * 2

		var tileAddr uint16
		if useSignedTileSet {
			tileAddr = uint16(int(tilesAddr) + int(int8(tileValue))*16 + pixelY2)
		} else {
			tileAddr = tilesAddr + uint16(int(tileValue)*16) + uint16(pixelY2)
		}

		var low, high uint8
		if g.cgb && attrs.bank == 1 {
			low = g.bus.ReadVRAMBank(1, tileAddr)
			high = g.bus.ReadVRAMBank(1, tileAddr+1)
		} else {
			low = g.bus.Read(tileAddr)
			high = g.bus.Read(tileAddr + 1)
		}

		xOffset := x * 8
		for pixelX := 0; pixelX < 8; pixelX++ {
			bufferX := xOffset + pixelX + int(wx)
			if bufferX < int(wx) || bufferX >= FramebufferWidth {
				continue
			}

			px := pixelX
			if attrs.flipX {
				px = 7 - px
			}

			pixel := uint8(0)
			if bit.IsSet(uint8(7-px), low) {
				pixel |= 1
			}
			if bit.IsSet(uint8(7-px), high) {
				pixel |= 2
			}

			pos := lineWidth + bufferX
			if pos >= len(g.framebuffer.buffer) {
				continue
			}

			var finalColor uint16
			if g.cgb {
				finalColor = cgbColorToRGB565(g.bus.BGPaletteColor(attrs.palette, pixel))
			} else {
				palette := g.bus.Read(addr.BGP)
				shade := (palette >> (pixel * 2)) & 0x03
				finalColor = dmgColorToRGB565(shade)
			}
			g.framebuffer.buffer[pos] = finalColor
			g.bgColorIndex[pos] = pixel
			g.bgPriority[pos] = g.cgb && attrs.priority && pixel != 0
		}
	}
	g.windowLine++
}

func (g *GPU) drawSprites() {
	if g.readLCDC(spriteDisplayEnable) != 1 {
		return
	}

	spriteHeight := 8
	if g.readLCDC(spriteSize) == 1 {
		spriteHeight = 16
	}

	lineWidth := g.line * FramebufferWidth
	bgMaster := g.readLCDC(bgDisplay) == 1
	g.spritePriority.cgbOrderOnly = g.cgb && g.bus.Read(addr.OPRI)&0x01 == 0
	g.spritePriority.Clear()

	var spritesToDraw []int
	for sprite := 0; sprite < 40; sprite++ {
		base := sprite * 4
		spriteY := int(g.bus.OAMByte(base)) - 16
		if spriteY > g.line || (spriteY+spriteHeight) <= g.line {
			continue
		}
		spritesToDraw = append(spritesToDraw, sprite)
		if len(spritesToDraw) >= 10 {
			break
		}
	}

	for _, sprite := range spritesToDraw {
		base := sprite * 4
		spriteX := int(g.bus.OAMByte(base+1)) - 8
		for pixelOffset := 0; pixelOffset < 8; pixelOffset++ {
			g.spritePriority.TryClaimPixel(spriteX+pixelOffset, sprite, spriteX)
		}
	}

	for _, sprite := range spritesToDraw {
		base := sprite * 4
		spriteY := int(g.bus.OAMByte(base)) - 16
		spriteX := int(g.bus.OAMByte(base+1)) - 8
		spriteTile := g.bus.OAMByte(base + 2)
		spriteFlags := g.bus.OAMByte(base + 3)

		hasPixels := false
		for x := 0; x < 8; x++ {
			if g.spritePriority.GetOwner(spriteX+x) == sprite {
				hasPixels = true
				break
			}
		}
		if !hasPixels {
			continue
		}

		spriteMask := 0xFF
		if spriteHeight == 16 {
			spriteMask = 0xFE
		}
		spriteTile16 := (int(spriteTile) & spriteMask) * 16

		flipX := bit.IsSet(5, spriteFlags)
		flipY := bit.IsSet(6, spriteFlags)
		aboveBG := !bit.IsSet(7, spriteFlags)
		cgbBank := uint8(0)
		cgbPalette := uint8(0)
		if g.cgb {
			cgbBank = (spriteFlags >> 3) & 0x01
			cgbPalette = spriteFlags & 0x07
		}

		pixelY := g.line - spriteY
		if flipY {
			pixelY = spriteHeight - 1 - pixelY
		}
		var pixelY2, offset int
		if spriteHeight == 16 && pixelY >= 8 {
			pixelY2 = (pixelY - 8) * 2
			offset = 16
		} else {
			pixelY2 = pixelY * 2
		}

		tileAddr := addr.TileData0 + uint16(spriteTile16+pixelY2+offset)
		var low, high uint8
		if g.cgb && cgbBank == 1 {
			low = g.bus.ReadVRAMBank(1, tileAddr)
			high = g.bus.ReadVRAMBank(1, tileAddr+1)
		} else {
			low = g.bus.Read(tileAddr)
			high = g.bus.Read(tileAddr + 1)
		}

		for pixelX := 0; pixelX < 8; pixelX++ {
			bufferX := spriteX + pixelX
			if g.spritePriority.GetOwner(bufferX) != sprite {
				continue
			}

			pixelIdx := 7 - pixelX
			if flipX {
				pixelIdx = pixelX
			}

			pixel := uint8(0)
			if bit.IsSet(uint8(pixelIdx), low) {
				pixel |= 1
			}
			if bit.IsSet(uint8(pixelIdx), high) {
				pixel |= 2
			}
			if pixel == 0 {
				continue
			}

			pos := lineWidth + bufferX
			if pos < 0 || pos >= len(g.framebuffer.buffer) {
				continue
			}

			if bgMaster && g.bgPriority[pos] {
				continue // CGB: BG/window tile claimed priority over all sprites
			}
			if bgMaster && !aboveBG && g.bgColorIndex[pos] != 0 {
				continue
			}

			var finalColor uint16
			if g.cgb {
				finalColor = cgbColorToRGB565(g.bus.OBJPaletteColor(cgbPalette, pixel))
			} else {
				objPaletteAddr := addr.OBP0
				if bit.IsSet(4, spriteFlags) {
					objPaletteAddr = addr.OBP1
				}
				palette := g.bus.Read(objPaletteAddr)
				shade := (palette >> (pixel * 2)) & 0x03
				finalColor = dmgColorToRGB565(shade)
			}
			g.framebuffer.buffer[pos] = finalColor
		}
	}
}
