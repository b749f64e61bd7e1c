package scale

import (
	"math"

	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
)

// Largest value each compact mode can carry. A value small enough for a
// shorter mode must use it; decoders reject the longer encoding.
const (
	compactMax1B = 1<<6 - 1
	compactMax2B = 1<<14 - 1
	compactMax4B = 1<<30 - 1
)

// CompactLocationKind says what one frame of a compact unwrap chain is.
type CompactLocationKind uint8

const (
	// CompactLocPrimitive is the innermost frame, the integer itself.
	CompactLocPrimitive CompactLocationKind = iota
	// CompactLocNamedComposite is a single-field wrapper whose field has a
	// name.
	CompactLocNamedComposite
	// CompactLocUnnamedComposite is a single-field wrapper whose field is
	// positional.
	CompactLocUnnamedComposite
)

// CompactLocation is one frame of the type chain a compact value was found
// under. A compact encoding may target a newtype wrapper around an integer
// rather than the integer itself; the locations record each wrapper passed
// through on the way in, outermost first.
type CompactLocation struct {
	Kind CompactLocationKind
	Type registry.TypeID

	// Name is the wrapper field's name for named composite frames.
	Name string
}

// FieldName returns the frame's field name when the frame is a named
// composite wrapper.
func (l CompactLocation) FieldName() (string, bool) {
	return l.Name, l.Kind == CompactLocNamedComposite
}

// Compact carries a compact-decoded integer together with the wrapper chain
// it was decoded through.
type Compact[T any] struct {
	value     T
	locations []CompactLocation
}

func newCompact[T any](value T, locations []CompactLocation) Compact[T] {
	return Compact[T]{value: value, locations: locations}
}

// Value returns the decoded integer.
func (c Compact[T]) Value() T {
	return c.value
}

// Locations returns the wrapper chain, outermost frame first. The last frame
// is always the primitive itself.
func (c Compact[T]) Locations() []CompactLocation {
	return c.locations
}

func nonMinimalCompact(v any, target string) *errors.Error {
	return errors.New(errors.KindNumberOutOfRange).
		Value(v).
		Detail("%v is not a minimal compact encoding of %s", v, target).
		Build()
}

func unexpectedCompactPrefix(prefix byte, target string) *errors.Error {
	return errors.New(errors.KindNumberOutOfRange).
		Value(prefix).
		Detail("unexpected prefix byte %#x decoding %s", prefix, target).
		Build()
}

func compact2(prefix, b byte) uint16 {
	return uint16(prefix) | uint16(b)<<8
}

func compact4(prefix byte, rest []byte) uint32 {
	return uint32(prefix) | uint32(rest[0])<<8 | uint32(rest[1])<<16 | uint32(rest[2])<<24
}

func decodeCompactU8(cur *Cursor) (uint8, error) {
	prefix, err := cur.ReadByte()
	if err != nil {
		return 0, err
	}
	switch prefix & 0b11 {
	case 0:
		return prefix >> 2, nil
	case 1:
		b, err := cur.ReadByte()
		if err != nil {
			return 0, err
		}
		v := compact2(prefix, b) >> 2
		if v <= compactMax1B {
			return 0, nonMinimalCompact(v, "compact u8")
		}
		if v > math.MaxUint8 {
			return 0, errors.NumberOutOfRange(v, "u8")
		}
		return uint8(v), nil
	default:
		return 0, unexpectedCompactPrefix(prefix, "compact u8")
	}
}

func decodeCompactU16(cur *Cursor) (uint16, error) {
	prefix, err := cur.ReadByte()
	if err != nil {
		return 0, err
	}
	switch prefix & 0b11 {
	case 0:
		return uint16(prefix) >> 2, nil
	case 1:
		b, err := cur.ReadByte()
		if err != nil {
			return 0, err
		}
		v := compact2(prefix, b) >> 2
		if v <= compactMax1B {
			return 0, nonMinimalCompact(v, "compact u16")
		}
		return v, nil
	case 2:
		rest, err := cur.ReadBytes(3)
		if err != nil {
			return 0, err
		}
		v := compact4(prefix, rest) >> 2
		if v <= compactMax2B {
			return 0, nonMinimalCompact(v, "compact u16")
		}
		if v > math.MaxUint16 {
			return 0, errors.NumberOutOfRange(v, "u16")
		}
		return uint16(v), nil
	default:
		return 0, unexpectedCompactPrefix(prefix, "compact u16")
	}
}

func decodeCompactU32(cur *Cursor) (uint32, error) {
	prefix, err := cur.ReadByte()
	if err != nil {
		return 0, err
	}
	switch prefix & 0b11 {
	case 0:
		return uint32(prefix) >> 2, nil
	case 1:
		b, err := cur.ReadByte()
		if err != nil {
			return 0, err
		}
		v := uint32(compact2(prefix, b)) >> 2
		if v <= compactMax1B {
			return 0, nonMinimalCompact(v, "compact u32")
		}
		return v, nil
	case 2:
		rest, err := cur.ReadBytes(3)
		if err != nil {
			return 0, err
		}
		v := compact4(prefix, rest) >> 2
		if v <= compactMax2B {
			return 0, nonMinimalCompact(v, "compact u32")
		}
		return v, nil
	default:
		// The four-byte-payload form is the only big mode a u32 can need.
		if prefix>>2 != 0 {
			return 0, unexpectedCompactPrefix(prefix, "compact u32")
		}
		v, err := cur.ReadU32()
		if err != nil {
			return 0, err
		}
		if v <= compactMax4B {
			return 0, nonMinimalCompact(v, "compact u32")
		}
		return v, nil
	}
}

func decodeCompactU64(cur *Cursor) (uint64, error) {
	prefix, err := cur.ReadByte()
	if err != nil {
		return 0, err
	}
	switch prefix & 0b11 {
	case 0:
		return uint64(prefix) >> 2, nil
	case 1:
		b, err := cur.ReadByte()
		if err != nil {
			return 0, err
		}
		v := uint64(compact2(prefix, b)) >> 2
		if v <= compactMax1B {
			return 0, nonMinimalCompact(v, "compact u64")
		}
		return v, nil
	case 2:
		rest, err := cur.ReadBytes(3)
		if err != nil {
			return 0, err
		}
		v := uint64(compact4(prefix, rest)) >> 2
		if v <= compactMax2B {
			return 0, nonMinimalCompact(v, "compact u64")
		}
		return v, nil
	default:
		n := int(prefix>>2) + 4
		if n > 8 {
			return 0, unexpectedCompactPrefix(prefix, "compact u64")
		}
		payload, err := cur.ReadBytes(n)
		if err != nil {
			return 0, err
		}
		var v uint64
		for i, b := range payload {
			v |= uint64(b) << (8 * i)
		}
		if n == 4 {
			if v <= compactMax4B {
				return 0, nonMinimalCompact(v, "compact u64")
			}
		} else if payload[n-1] == 0 {
			return 0, nonMinimalCompact(v, "compact u64")
		}
		return v, nil
	}
}

func decodeCompactU128(cur *Cursor) (Uint128, error) {
	prefix, err := cur.ReadByte()
	if err != nil {
		return Uint128{}, err
	}
	switch prefix & 0b11 {
	case 0:
		return Uint128{Lo: uint64(prefix) >> 2}, nil
	case 1:
		b, err := cur.ReadByte()
		if err != nil {
			return Uint128{}, err
		}
		v := uint64(compact2(prefix, b)) >> 2
		if v <= compactMax1B {
			return Uint128{}, nonMinimalCompact(v, "compact u128")
		}
		return Uint128{Lo: v}, nil
	case 2:
		rest, err := cur.ReadBytes(3)
		if err != nil {
			return Uint128{}, err
		}
		v := uint64(compact4(prefix, rest)) >> 2
		if v <= compactMax2B {
			return Uint128{}, nonMinimalCompact(v, "compact u128")
		}
		return Uint128{Lo: v}, nil
	default:
		n := int(prefix>>2) + 4
		if n > 16 {
			return Uint128{}, unexpectedCompactPrefix(prefix, "compact u128")
		}
		payload, err := cur.ReadBytes(n)
		if err != nil {
			return Uint128{}, err
		}
		var v Uint128
		for i, b := range payload {
			if i < 8 {
				v.Lo |= uint64(b) << (8 * i)
			} else {
				v.Hi |= uint64(b) << (8 * (i - 8))
			}
		}
		if n == 4 {
			if v.Lo <= compactMax4B {
				return Uint128{}, nonMinimalCompact(v, "compact u128")
			}
		} else if payload[n-1] == 0 {
			return Uint128{}, nonMinimalCompact(v, "compact u128")
		}
		return v, nil
	}
}
