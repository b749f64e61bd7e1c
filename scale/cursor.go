package scale

import (
	"encoding/binary"

	"github.com/substratools/scalewire/errors"
)

// Cursor is a read position over a byte slice. Reads hand back subslices of
// the underlying buffer and never copy.
type Cursor struct {
	b []byte
}

// NewCursor returns a cursor positioned at the start of b.
func NewCursor(b []byte) *Cursor {
	return &Cursor{b: b}
}

// Remaining reports how many bytes are left to read.
func (c *Cursor) Remaining() int {
	return len(c.b)
}

// Bytes returns the unread remainder of the buffer.
func (c *Cursor) Bytes() []byte {
	return c.b
}

// ReadByte consumes and returns the next byte.
func (c *Cursor) ReadByte() (byte, error) {
	if len(c.b) == 0 {
		return 0, errors.NotEnoughInput(1, 0)
	}
	b := c.b[0]
	c.b = c.b[1:]
	return b, nil
}

// ReadBytes consumes the next n bytes and returns them as a window into the
// underlying buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || len(c.b) < n {
		return nil, errors.NotEnoughInput(n, len(c.b))
	}
	out := c.b[:n:n]
	c.b = c.b[n:]
	return out, nil
}

// ReadU16 consumes two bytes as a little-endian u16.
func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 consumes four bytes as a little-endian u32.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 consumes eight bytes as a little-endian u64.
func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadCompact consumes a compact-encoded unsigned integer, the form length
// prefixes and interned ids use.
func (c *Cursor) ReadCompact() (uint64, error) {
	return decodeCompactU64(c)
}

// setRemaining rewinds or advances the cursor to an explicit remainder. The
// dispatcher uses it to resynchronize after a structural decoder has been
// drained.
func (c *Cursor) setRemaining(b []byte) {
	c.b = b
}
