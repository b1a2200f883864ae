package memory

import (
	"errors"
	"testing"
)

func validHeaderROM(size int) []byte {
	rom := make([]byte, size)
	copy(rom[logoAddress:], nintendoLogo[:])
	copy(rom[titleAddress:], []byte("TESTGAME"))
	rom[romSizeAddress] = 0x00
	rom[ramSizeAddress] = 0x00
	return rom
}

func TestNewCartridgeFromROMRejectsUndersizedImage(t *testing.T) {
	_, err := NewCartridgeFromROM(make([]byte, 100))
	if !errors.Is(err, ErrRomTooSmall) {
		t.Fatalf("err = %v; want ErrRomTooSmall", err)
	}
}

func TestNewCartridgeFromROMRejectsUnknownMBCByte(t *testing.T) {
	rom := validHeaderROM(0x8000)
	rom[cartridgeTypeAddress] = 0xFE // unassigned in the real cartridge-type table
	_, err := NewCartridgeFromROM(rom)
	if !errors.Is(err, ErrUnsupportedMBC) {
		t.Fatalf("err = %v; want ErrUnsupportedMBC", err)
	}
}

func TestNewCartridgeFromROMParsesTitleAndLogo(t *testing.T) {
	rom := validHeaderROM(0x8000)
	c, err := NewCartridgeFromROM(rom)
	if err != nil {
		t.Fatalf("NewCartridgeFromROM: %v", err)
	}
	if c.Title != "TESTGAME" {
		t.Errorf("Title = %q; want %q", c.Title, "TESTGAME")
	}
	if !c.LogoValid {
		t.Errorf("LogoValid = false; want true")
	}
}

func TestNewCartridgeFromROMDetectsCorruptLogo(t *testing.T) {
	rom := validHeaderROM(0x8000)
	rom[logoAddress] ^= 0xFF
	c, err := NewCartridgeFromROM(rom)
	if err != nil {
		t.Fatalf("NewCartridgeFromROM: %v", err)
	}
	if c.LogoValid {
		t.Errorf("LogoValid = true; want false for a tampered logo")
	}
}

func TestNewCartridgeFromROMDecodesCGBFlag(t *testing.T) {
	tests := []struct {
		flag byte
		want CGBSupport
	}{
		{0xC0, CGBOnly},
		{0x80, CGBEnhanced},
		{0x00, CGBUnsupported},
	}
	for _, tt := range tests {
		rom := validHeaderROM(0x8000)
		rom[cgbFlagAddress] = tt.flag
		c, err := NewCartridgeFromROM(rom)
		if err != nil {
			t.Fatalf("NewCartridgeFromROM: %v", err)
		}
		if c.CGBSupport != tt.want {
			t.Errorf("flag 0x%02X: CGBSupport = %v; want %v", tt.flag, c.CGBSupport, tt.want)
		}
	}
}

func TestDecodeCartridgeTypeSelectsMBCKind(t *testing.T) {
	tests := []struct {
		name     string
		typeByte byte
		want     mbcKind
		battery  bool
	}{
		{"ROM only", 0x00, mbcNone, false},
		{"MBC1", 0x01, mbcKind1, false},
		{"MBC1+RAM+BATTERY", 0x03, mbcKind1, true},
		{"MBC2+BATTERY", 0x06, mbcKind2, true},
		{"MBC3+TIMER+BATTERY", 0x10, mbcKind3, true},
		{"MBC5+RUMBLE+RAM+BATTERY", 0x1E, mbcKind5, true},
	}
	for _, tt := range tests {
		c := &Cartridge{}
		if err := c.decodeCartridgeType(tt.typeByte); err != nil {
			t.Fatalf("%s: decodeCartridgeType: %v", tt.name, err)
		}
		if c.mbcType != tt.want {
			t.Errorf("%s: mbcType = %v; want %v", tt.name, c.mbcType, tt.want)
		}
		if c.hasBattery != tt.battery {
			t.Errorf("%s: hasBattery = %v; want %v", tt.name, c.hasBattery, tt.battery)
		}
	}
}

func TestDecodeCartridgeTypeMBC3WithRTCSetsHasRTC(t *testing.T) {
	c := &Cartridge{}
	if err := c.decodeCartridgeType(0x0F); err != nil {
		t.Fatalf("decodeCartridgeType: %v", err)
	}
	if !c.hasRTC {
		t.Errorf("hasRTC = false; want true for MBC3+TIMER+BATTERY")
	}
}

func TestDecodeROMBankCount(t *testing.T) {
	tests := []struct {
		b    byte
		want int
	}{
		{0x00, 2},
		{0x01, 4},
		{0x02, 8},
		{0x08, 512},
	}
	for _, tt := range tests {
		if got := decodeROMBankCount(tt.b); got != tt.want {
			t.Errorf("decodeROMBankCount(0x%02X) = %d; want %d", tt.b, got, tt.want)
		}
	}
}

func TestDecodeRAMBankCountMBC2IgnoresHeaderByte(t *testing.T) {
	if got := decodeRAMBankCount(0x03, mbcKind2); got != 1 {
		t.Errorf("decodeRAMBankCount(MBC2) = %d; want 1 (built-in RAM, not header-sized)", got)
	}
}

func TestCleanGameboyTitleStripsPadding(t *testing.T) {
	raw := make([]byte, titleLength)
	copy(raw, []byte("POKEMON"))
	if got := cleanGameboyTitle(raw); got != "POKEMON" {
		t.Errorf("cleanGameboyTitle = %q; want %q", got, "POKEMON")
	}
}

func TestCleanGameboyTitleAllZeroBecomesUntitled(t *testing.T) {
	raw := make([]byte, titleLength)
	if got := cleanGameboyTitle(raw); got != "(Untitled)" {
		t.Errorf("cleanGameboyTitle = %q; want %q", got, "(Untitled)")
	}
}

func TestNewCartridgeNewMBCDispatchesByType(t *testing.T) {
	rom := validHeaderROM(0x8000)
	rom[cartridgeTypeAddress] = 0x01 // MBC1
	c, err := NewCartridgeFromROM(rom)
	if err != nil {
		t.Fatalf("NewCartridgeFromROM: %v", err)
	}
	mbc := c.newMBC()
	if _, ok := mbc.(*mbc1); !ok {
		t.Errorf("newMBC() = %T; want *mbc1", mbc)
	}
}
