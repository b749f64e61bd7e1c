package scale

import (
	"fmt"
	"unicode/utf8"

	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
)

// DecodeWithVisitor decodes one value of the given type id from the front of
// data, handing its pieces to the visitor. It returns the visitor's result
// and the input remaining after the value.
//
// The value's bytes are consumed exactly: structural shapes are drained even
// when the visitor only looked at part of them. On error nothing useful can
// be said about how much input was consumed, so no remainder is returned.
func DecodeWithVisitor(data []byte, id registry.TypeID, reg *registry.Registry, v Visitor) (any, []byte, error) {
	cur := NewCursor(data)
	val, err := decodeWithVisitor(cur, id, reg, v)
	if err != nil {
		return nil, nil, err
	}
	return val, cur.Bytes(), nil
}

func decodeWithVisitor(cur *Cursor, id registry.TypeID, reg *registry.Registry, v Visitor) (any, error) {
	if ud, ok := v.(UncheckedDecoder); ok {
		if res := ud.UncheckedDecodeAsType(cur, id, reg); res.Decoded {
			return res.Value, res.Err
		}
	}

	ty, ok := reg.Resolve(id)
	if !ok {
		return nil, errors.TypeNotFound(uint32(id))
	}

	switch def := ty.Def.(type) {
	case registry.CompositeDef:
		c := newComposite(cur.Bytes(), ty.Path, def.Fields, reg)
		val, err := v.VisitComposite(c, id)
		if err != nil {
			return nil, err
		}
		if err := c.SkipDecoding(); err != nil {
			return nil, err
		}
		cur.setRemaining(c.BytesFromUndecoded())
		return val, nil

	case registry.VariantDef:
		vr, err := newVariant(cur.Bytes(), ty, def, reg)
		if err != nil {
			return nil, err
		}
		val, err := v.VisitVariant(vr, id)
		if err != nil {
			return nil, err
		}
		if err := vr.SkipDecoding(); err != nil {
			return nil, err
		}
		cur.setRemaining(vr.BytesFromUndecoded())
		return val, nil

	case registry.SequenceDef:
		seq, err := newSequence(cur.Bytes(), def.Item, reg)
		if err != nil {
			return nil, err
		}
		val, err := v.VisitSequence(seq, id)
		if err != nil {
			return nil, err
		}
		if err := seq.SkipDecoding(); err != nil {
			return nil, err
		}
		cur.setRemaining(seq.BytesFromUndecoded())
		return val, nil

	case registry.ArrayDef:
		arr := newArray(cur.Bytes(), def.Item, uint64(def.Len), reg)
		val, err := v.VisitArray(arr, id)
		if err != nil {
			return nil, err
		}
		if err := arr.SkipDecoding(); err != nil {
			return nil, err
		}
		cur.setRemaining(arr.BytesFromUndecoded())
		return val, nil

	case registry.TupleDef:
		tup := newTuple(cur.Bytes(), def.Items, reg)
		val, err := v.VisitTuple(tup, id)
		if err != nil {
			return nil, err
		}
		if err := tup.SkipDecoding(); err != nil {
			return nil, err
		}
		cur.setRemaining(tup.BytesFromUndecoded())
		return val, nil

	case registry.PrimitiveDef:
		return decodePrimitive(cur, def.Kind, id, v)

	case registry.CompactDef:
		return decodeCompactValue(cur, def.Inner, id, reg, v)

	case registry.BitSequenceDef:
		format, err := ResolveBitFormat(def, reg)
		if err != nil {
			return nil, err
		}
		bits := newBitSequence(format, cur.Bytes())
		val, err := v.VisitBitSequence(bits, id)
		if err != nil {
			return nil, err
		}
		after, err := bits.BytesAfter()
		if err != nil {
			return nil, err
		}
		cur.setRemaining(after)
		return val, nil

	default:
		return nil, errors.New(errors.KindCustom).
			Detail("type id %d has unhandled definition %T", id, ty.Def).
			Build()
	}
}

func decodePrimitive(cur *Cursor, kind registry.PrimitiveKind, id registry.TypeID, v Visitor) (any, error) {
	switch kind {
	case registry.Bool:
		b, err := cur.ReadByte()
		if err != nil {
			return nil, err
		}
		switch b {
		case 0:
			return v.VisitBool(false, id)
		case 1:
			return v.VisitBool(true, id)
		default:
			return nil, errors.New(errors.KindCustom).
				Value(b).
				Detail("invalid boolean byte %#x", b).
				Build()
		}

	case registry.Char:
		code, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		if !utf8.ValidRune(rune(code)) {
			return nil, errors.InvalidChar(code)
		}
		return v.VisitChar(rune(code), id)

	case registry.Str:
		s, err := newStr(cur.Bytes())
		if err != nil {
			return nil, err
		}
		cur.setRemaining(s.BytesAfter())
		return v.VisitStr(s, id)

	case registry.U8:
		b, err := cur.ReadByte()
		if err != nil {
			return nil, err
		}
		return v.VisitU8(b, id)

	case registry.U16:
		n, err := cur.ReadU16()
		if err != nil {
			return nil, err
		}
		return v.VisitU16(n, id)

	case registry.U32:
		n, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		return v.VisitU32(n, id)

	case registry.U64:
		n, err := cur.ReadU64()
		if err != nil {
			return nil, err
		}
		return v.VisitU64(n, id)

	case registry.U128:
		b, err := cur.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		return v.VisitU128(uint128LE(b), id)

	case registry.U256:
		b, err := cur.ReadBytes(32)
		if err != nil {
			return nil, err
		}
		return v.VisitU256((*[32]byte)(b), id)

	case registry.I8:
		b, err := cur.ReadByte()
		if err != nil {
			return nil, err
		}
		return v.VisitI8(int8(b), id)

	case registry.I16:
		n, err := cur.ReadU16()
		if err != nil {
			return nil, err
		}
		return v.VisitI16(int16(n), id)

	case registry.I32:
		n, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		return v.VisitI32(int32(n), id)

	case registry.I64:
		n, err := cur.ReadU64()
		if err != nil {
			return nil, err
		}
		return v.VisitI64(int64(n), id)

	case registry.I128:
		b, err := cur.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		return v.VisitI128(int128LE(b), id)

	case registry.I256:
		b, err := cur.ReadBytes(32)
		if err != nil {
			return nil, err
		}
		return v.VisitI256((*[32]byte)(b), id)

	default:
		return nil, errors.New(errors.KindCustom).
			Detail("unhandled primitive kind %d", kind).
			Build()
	}
}

// decodeCompactValue unwraps a compact type down to its integer target.
// Newtype wrappers (single-field composites) are stepped through and
// recorded; the integer is then decoded with the compact scheme and handed
// to the visitor with the outermost compact type's id.
func decodeCompactValue(cur *Cursor, innerID, outerID registry.TypeID, reg *registry.Registry, v Visitor) (any, error) {
	var locations []CompactLocation
	for {
		ty, ok := reg.Resolve(innerID)
		if !ok {
			return nil, errors.TypeNotFound(uint32(innerID))
		}
		switch def := ty.Def.(type) {
		case registry.CompositeDef:
			if len(def.Fields) != 1 {
				return nil, errors.CompactNotSupported(describeType(ty))
			}
			f := def.Fields[0]
			loc := CompactLocation{Kind: CompactLocUnnamedComposite, Type: innerID}
			if f.Named() {
				loc = CompactLocation{Kind: CompactLocNamedComposite, Type: innerID, Name: f.Name}
			}
			locations = append(locations, loc)
			innerID = f.Type

		case registry.PrimitiveDef:
			locations = append(locations, CompactLocation{Kind: CompactLocPrimitive, Type: innerID})
			switch def.Kind {
			case registry.U8:
				n, err := decodeCompactU8(cur)
				if err != nil {
					return nil, err
				}
				return v.VisitCompactU8(newCompact(n, locations), outerID)
			case registry.U16:
				n, err := decodeCompactU16(cur)
				if err != nil {
					return nil, err
				}
				return v.VisitCompactU16(newCompact(n, locations), outerID)
			case registry.U32:
				n, err := decodeCompactU32(cur)
				if err != nil {
					return nil, err
				}
				return v.VisitCompactU32(newCompact(n, locations), outerID)
			case registry.U64:
				n, err := decodeCompactU64(cur)
				if err != nil {
					return nil, err
				}
				return v.VisitCompactU64(newCompact(n, locations), outerID)
			case registry.U128:
				n, err := decodeCompactU128(cur)
				if err != nil {
					return nil, err
				}
				return v.VisitCompactU128(newCompact(n, locations), outerID)
			default:
				return nil, errors.CompactNotSupported(def.Kind.String())
			}

		default:
			return nil, errors.CompactNotSupported(describeType(ty))
		}
	}
}

// describeType renders a type for error messages, preferring its path.
func describeType(t registry.Type) string {
	if s := t.PathString(); s != "" {
		return s
	}
	if p, ok := t.Def.(registry.PrimitiveDef); ok {
		return p.Kind.String()
	}
	return fmt.Sprintf("type %d", t.ID)
}
