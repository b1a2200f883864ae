// Package serial implements the pluggable far end of the SB/SC link cable.
// A host attaches an Endpoint to the core via Core.AttachSerial; until one
// is attached, the core's default endpoint reads back 0xFF, as if no cable
// were connected. LogSink, which Core.DetachSerial installs, also reads
// back 0xFF and logs outgoing bytes.
package serial

import (
	"log/slog"

	"github.com/kallendev/dmgcore/addr"
	"github.com/kallendev/dmgcore/bit"
)

// Endpoint is the interface the memory bus drives the link cable through.
type Endpoint interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// LogSink is a dummy serial device that logs outgoing bytes as text,
// useful for test ROMs that report pass/fail over the link cable.
type LogSink struct {
	irqHandler     func()
	sb, sc         byte
	transferActive bool
	countdown      int
	logger         *slog.Logger

	immediate bool
	defaultRX byte

	line []byte
}

type Option func(*LogSink)

// WithFixedTiming makes the sink complete transfers after the real ~4096
// T-cycle-per-byte DMG shift duration instead of instantly.
func WithFixedTiming() Option { return func(s *LogSink) { s.immediate = false } }

// NewLogSink builds a logging serial device. irq is called on transfer
// completion and should request the Serial interrupt.
func NewLogSink(irq func(), opts ...Option) *LogSink {
	s := &LogSink{
		irqHandler: irq,
		immediate:  true,
		defaultRX:  0xFF,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		s.maybeStartTransfer()
	}
}

func (s *LogSink) Read(address uint16) byte {
	if address == addr.SB {
		return s.sb
	}
	return s.sc
}

func (s *LogSink) Tick(cycles int) {
	if s.immediate || !s.transferActive {
		return
	}
	s.countdown -= cycles
	if s.countdown <= 0 {
		s.completeTransfer()
		s.countdown = 0
	}
}

func (s *LogSink) Reset() {
	s.sb = 0x00
	s.sc = 0x00
	s.transferActive = false
	s.countdown = 0
	s.line = s.line[:0]
}

func (s *LogSink) maybeStartTransfer() {
	if s.transferActive {
		return
	}
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	b := s.sb
	if b == 0 || b == '\n' || b == '\r' {
		if len(s.line) > 0 {
			s.logger.Info("serial", "line", string(s.line))
			s.line = s.line[:0]
		}
	} else {
		s.line = append(s.line, b)
	}

	if s.immediate {
		s.completeTransfer()
		return
	}
	s.transferActive = true
	s.countdown = 4096
}

func (s *LogSink) completeTransfer() {
	s.sb = s.defaultRX
	s.sc = bit.Clear(7, s.sc)
	s.transferActive = false
	if s.irqHandler != nil {
		s.irqHandler()
	}
}
