// Package parcel implements the core's save-state wire format: a
// magic/version header followed by untagged little-endian primitives,
// written and read in a fixed declaration order by each component's
// SaveState and LoadState methods.
package parcel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the 4-byte marker every state stream begins with.
const Magic = "DBST"

// Version is the current state format version. Load rejects any other
// version outright rather than attempting to interpret it.
const Version uint16 = 1

// ErrBadMagic is returned when a state stream does not begin with Magic.
var ErrBadMagic = errors.New("parcel: bad magic")

// ErrVersionMismatch is returned when a state stream's version does not
// match the version this build knows how to read.
var ErrVersionMismatch = errors.New("parcel: version mismatch")

// ErrTruncated is returned when a read runs past the end of the stream.
var ErrTruncated = errors.New("parcel: truncated stream")

// Writer appends untagged primitives to an in-memory buffer in declaration
// order. The zero value is not usable; use NewWriter.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a Writer and immediately writes the magic and version
// header, matching the documented file layout.
func NewWriter() *Writer {
	w := &Writer{buf: &bytes.Buffer{}}
	w.buf.WriteString(Magic)
	var v [2]byte
	binary.LittleEndian.PutUint16(v[:], Version)
	w.buf.Write(v[:])
	return w
}

// Bytes returns the accumulated stream.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *Writer) WriteU8(v uint8)   { w.buf.WriteByte(v) }
func (w *Writer) WriteI8(v int8)    { w.buf.WriteByte(uint8(v)) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

// WriteBytes writes a u32 length prefix followed by the raw bytes.
func (w *Writer) WriteBytes(v []byte) {
	w.WriteU32(uint32(len(v)))
	w.buf.Write(v)
}

// Reader consumes untagged primitives from a byte stream in the same order
// they were written. NewReader validates the header and returns an error
// a caller can classify as a state-format problem if it is malformed.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader validates the magic/version header and returns a Reader
// positioned right after it.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < len(Magic)+2 {
		return nil, fmt.Errorf("%w: stream shorter than header", ErrTruncated)
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, ErrBadMagic
	}
	version := binary.LittleEndian.Uint16(data[len(Magic) : len(Magic)+2])
	if version != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, version, Version)
	}
	return &Reader{data: data, pos: len(Magic) + 2}, nil
}

// Err returns the first error encountered by any Read* call, if any.
// Components should check this once after reading all their fields
// rather than after every call.
func (r *Reader) Err() error { return r.err }

func (r *Reader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.data) {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) ReadBool() bool {
	b := r.need(1)
	if b == nil {
		return false
	}
	return b[0] != 0
}

func (r *Reader) ReadU8() uint8 {
	b := r.need(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadI8() int8 { return int8(r.ReadU8()) }

func (r *Reader) ReadU16() uint16 {
	b := r.need(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadI16() int16 { return int16(r.ReadU16()) }

func (r *Reader) ReadU32() uint32 {
	b := r.need(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadI32() int32 { return int32(r.ReadU32()) }

func (r *Reader) ReadU64() uint64 {
	b := r.need(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) ReadI64() int64 { return int64(r.ReadU64()) }

// ReadBytes reads a u32 length prefix followed by that many raw bytes.
// The returned slice is a copy, safe to retain past the Reader's lifetime.
func (r *Reader) ReadBytes() []byte {
	n := r.ReadU32()
	if r.err != nil {
		return nil
	}
	b := r.need(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// State is implemented by every component that participates in
// save/load. Components write/read their fields in a fixed order; the
// core calls the components in a fixed order (CPU, then MMU, then GPU) so
// save and load always line up byte for byte.
type State interface {
	SaveState(w *Writer)
	LoadState(r *Reader) error
}
