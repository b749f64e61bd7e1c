package scale

import (
	"encoding/binary"
	"math/bits"
	"strconv"
)

// Uint128 is an unsigned 128-bit integer split into little-endian halves.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

// Int128 is a signed two's-complement 128-bit integer.
type Int128 struct {
	Lo uint64
	Hi int64
}

func uint128LE(b []byte) Uint128 {
	return Uint128{
		Lo: binary.LittleEndian.Uint64(b[:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}
}

func int128LE(b []byte) Int128 {
	u := uint128LE(b)
	return Int128{Lo: u.Lo, Hi: int64(u.Hi)}
}

// IsZero reports whether u equals zero.
func (u Uint128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

// Uint64 returns u as a uint64 if it fits.
func (u Uint128) Uint64() (uint64, bool) {
	return u.Lo, u.Hi == 0
}

// String renders u in decimal.
func (u Uint128) String() string {
	if u.Hi == 0 {
		return strconv.FormatUint(u.Lo, 10)
	}
	var buf [40]byte
	n := len(buf)
	for !u.IsZero() {
		var rem uint64
		u, rem = u.divmod10()
		n--
		buf[n] = byte('0' + rem)
	}
	return string(buf[n:])
}

func (u Uint128) divmod10() (Uint128, uint64) {
	hiQ := u.Hi / 10
	loQ, rem := bits.Div64(u.Hi%10, u.Lo, 10)
	return Uint128{Lo: loQ, Hi: hiQ}, rem
}

// Int64 returns i as an int64 if it fits.
func (i Int128) Int64() (int64, bool) {
	if i.Hi == 0 && i.Lo <= 1<<63-1 {
		return int64(i.Lo), true
	}
	if i.Hi == -1 && i.Lo >= 1<<63 {
		return int64(i.Lo), true
	}
	return 0, false
}

// String renders i in decimal.
func (i Int128) String() string {
	if i.Hi < 0 {
		return "-" + i.magnitude().String()
	}
	return Uint128{Lo: i.Lo, Hi: uint64(i.Hi)}.String()
}

// magnitude returns the absolute value of a negative i as unsigned.
func (i Int128) magnitude() Uint128 {
	hi := ^uint64(i.Hi)
	if i.Lo == 0 {
		hi++
	}
	return Uint128{Lo: -i.Lo, Hi: hi}
}
