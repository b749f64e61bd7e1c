package value

import (
	"math/bits"
	"strconv"
	"unicode/utf8"

	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
	"github.com/substratools/scalewire/scale"
)

const (
	compactMax1B = 1<<6 - 1
	compactMax2B = 1<<14 - 1
	compactMax4B = 1<<30 - 1
)

// Encode renders a value tree as the SCALE encoding of the given type id.
// It shares no code with the decoder, so the two can check each other.
func Encode(v Value, id registry.TypeID, reg *registry.Registry) ([]byte, error) {
	return AppendValue(nil, v, id, reg)
}

// AppendValue appends the SCALE encoding of v as type id to dst and returns
// the extended slice.
func AppendValue(dst []byte, v Value, id registry.TypeID, reg *registry.Registry) ([]byte, error) {
	ty, ok := reg.Resolve(id)
	if !ok {
		return nil, errors.TypeNotFound(uint32(id))
	}

	switch def := ty.Def.(type) {
	case registry.PrimitiveDef:
		return appendPrimitive(dst, v, def.Kind)

	case registry.CompactDef:
		return appendCompactValue(dst, v, def.Inner, reg)

	case registry.CompositeDef:
		c, ok := v.Def.(Composite)
		if !ok {
			// Newtype wrappers are transparent on the way in as well.
			if len(def.Fields) == 1 {
				return AppendValue(dst, v, def.Fields[0].Type, reg)
			}
			return nil, errEncode(v, "composite")
		}
		return appendFields(dst, c, def.Fields, reg)

	case registry.VariantDef:
		va, ok := v.Def.(Variant)
		if !ok {
			return nil, errEncode(v, "variant")
		}
		for _, vc := range def.Variants {
			if vc.Name == va.Name {
				dst = append(dst, vc.Index)
				out, err := appendFields(dst, va.Fields, vc.Fields, reg)
				if err != nil {
					return nil, errors.At(err, errors.Variant(va.Name))
				}
				return out, nil
			}
		}
		return nil, errors.New(errors.KindVariantNotFound).
			Value(va.Name).
			Detail("variant %q not declared by the target type", va.Name).
			Build()

	case registry.SequenceDef:
		c, ok := v.Def.(Composite)
		if !ok {
			return nil, errEncode(v, "sequence")
		}
		dst = appendCompactUint(dst, scale.Uint128{Lo: uint64(len(c.Values))})
		return appendItems(dst, c.Values, def.Item, reg)

	case registry.ArrayDef:
		c, ok := v.Def.(Composite)
		if !ok {
			return nil, errEncode(v, "array")
		}
		if uint32(len(c.Values)) != def.Len {
			return nil, errors.WrongLength(len(c.Values), int(def.Len))
		}
		return appendItems(dst, c.Values, def.Item, reg)

	case registry.TupleDef:
		c, ok := v.Def.(Composite)
		if !ok {
			if len(def.Items) == 1 {
				return AppendValue(dst, v, def.Items[0], reg)
			}
			return nil, errEncode(v, "tuple")
		}
		if len(c.Values) != len(def.Items) {
			return nil, errors.WrongLength(len(c.Values), len(def.Items))
		}
		var err error
		for i, itemID := range def.Items {
			dst, err = AppendValue(dst, c.Values[i], itemID, reg)
			if err != nil {
				return nil, errors.At(err, errors.Index(i))
			}
		}
		return dst, nil

	case registry.BitSequenceDef:
		bs, ok := v.Def.(BitSequence)
		if !ok {
			return nil, errEncode(v, "bit sequence")
		}
		format, err := scale.ResolveBitFormat(def, reg)
		if err != nil {
			return nil, err
		}
		return appendBits(dst, bs.Bits, format), nil

	default:
		return nil, errors.New(errors.KindCustom).
			Detail("type id %d has unhandled definition %T", id, ty.Def).
			Build()
	}
}

func errEncode(v Value, want string) *errors.Error {
	return errors.New(errors.KindUnexpected).
		Detail("cannot encode %T value as %s", v.Def, want).
		Build()
}

// appendFields encodes a composite's children against the declared fields,
// matching by name when both sides are fully named and by position
// otherwise.
func appendFields(dst []byte, c Composite, fields []registry.Field, reg *registry.Registry) ([]byte, error) {
	if len(c.Values) != len(fields) {
		return nil, errors.WrongLength(len(c.Values), len(fields))
	}

	byName := c.Named()
	for _, f := range fields {
		if !f.Named() {
			byName = false
			break
		}
	}

	var err error
	if byName {
		for _, f := range fields {
			child, ok := lookupName(c, f.Name)
			if !ok {
				return nil, errors.FieldNotFound(f.Name)
			}
			dst, err = AppendValue(dst, child, f.Type, reg)
			if err != nil {
				return nil, errors.At(err, errors.Field(f.Name))
			}
		}
		return dst, nil
	}

	for i, f := range fields {
		dst, err = AppendValue(dst, c.Values[i], f.Type, reg)
		if err != nil {
			return nil, errors.At(err, errors.Index(i))
		}
	}
	return dst, nil
}

func lookupName(c Composite, name string) (Value, bool) {
	for i, n := range c.Names {
		if n == name {
			return c.Values[i], true
		}
	}
	return Value{}, false
}

func appendItems(dst []byte, vals []Value, item registry.TypeID, reg *registry.Registry) ([]byte, error) {
	var err error
	for i, v := range vals {
		dst, err = AppendValue(dst, v, item, reg)
		if err != nil {
			return nil, errors.At(err, errors.Index(i))
		}
	}
	return dst, nil
}

func appendPrimitive(dst []byte, v Value, kind registry.PrimitiveKind) ([]byte, error) {
	p, ok := v.Def.(Primitive)
	if !ok {
		return nil, errEncode(v, kind.String())
	}

	switch kind {
	case registry.Bool:
		if p.Kind != Bool {
			return nil, errEncode(v, "bool")
		}
		if p.Bool {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil

	case registry.Char:
		if p.Kind != Char {
			return nil, errEncode(v, "char")
		}
		if !utf8.ValidRune(p.Char) {
			return nil, errors.InvalidChar(uint32(p.Char))
		}
		return appendU32(dst, uint32(p.Char)), nil

	case registry.Str:
		if p.Kind != Str {
			return nil, errEncode(v, "str")
		}
		dst = appendCompactUint(dst, scale.Uint128{Lo: uint64(len(p.Str))})
		return append(dst, p.Str...), nil

	case registry.U8, registry.U16, registry.U32, registry.U64, registry.U128:
		if p.Kind != U128 {
			return nil, errEncode(v, kind.String())
		}
		return appendUint(dst, p.U128, kind)

	case registry.U256, registry.I256:
		if (kind == registry.U256 && p.Kind != U256) || (kind == registry.I256 && p.Kind != I256) {
			return nil, errEncode(v, kind.String())
		}
		return append(dst, p.Raw[:]...), nil

	case registry.I8, registry.I16, registry.I32, registry.I64, registry.I128:
		if p.Kind != I128 {
			return nil, errEncode(v, kind.String())
		}
		return appendInt(dst, p.I128, kind)

	default:
		return nil, errors.New(errors.KindCustom).
			Detail("unhandled primitive kind %d", kind).
			Build()
	}
}

func appendUint(dst []byte, v scale.Uint128, kind registry.PrimitiveKind) ([]byte, error) {
	switch kind {
	case registry.U8:
		if v.Hi != 0 || v.Lo > 0xFF {
			return nil, errors.NumberOutOfRange(v, "u8")
		}
		return append(dst, byte(v.Lo)), nil
	case registry.U16:
		if v.Hi != 0 || v.Lo > 0xFFFF {
			return nil, errors.NumberOutOfRange(v, "u16")
		}
		return append(dst, byte(v.Lo), byte(v.Lo>>8)), nil
	case registry.U32:
		if v.Hi != 0 || v.Lo > 0xFFFFFFFF {
			return nil, errors.NumberOutOfRange(v, "u32")
		}
		return appendU32(dst, uint32(v.Lo)), nil
	case registry.U64:
		if v.Hi != 0 {
			return nil, errors.NumberOutOfRange(v, "u64")
		}
		return appendU64(dst, v.Lo), nil
	default:
		dst = appendU64(dst, v.Lo)
		return appendU64(dst, v.Hi), nil
	}
}

func appendInt(dst []byte, v scale.Int128, kind registry.PrimitiveKind) ([]byte, error) {
	if kind == registry.I128 {
		dst = appendU64(dst, v.Lo)
		return appendU64(dst, uint64(v.Hi)), nil
	}
	n, ok := v.Int64()
	if !ok {
		return nil, errors.NumberOutOfRange(v, kind.String())
	}
	switch kind {
	case registry.I8:
		if n < -0x80 || n > 0x7F {
			return nil, errors.NumberOutOfRange(v, "i8")
		}
		return append(dst, byte(n)), nil
	case registry.I16:
		if n < -0x8000 || n > 0x7FFF {
			return nil, errors.NumberOutOfRange(v, "i16")
		}
		return append(dst, byte(n), byte(uint16(n)>>8)), nil
	case registry.I32:
		if n < -0x80000000 || n > 0x7FFFFFFF {
			return nil, errors.NumberOutOfRange(v, "i32")
		}
		return appendU32(dst, uint32(n)), nil
	default:
		return appendU64(dst, uint64(n)), nil
	}
}

// appendCompactValue unwraps a compact target like the decoder does,
// peeling single-child value wrappers to stay aligned with the registry's
// newtype chain.
func appendCompactValue(dst []byte, v Value, innerID registry.TypeID, reg *registry.Registry) ([]byte, error) {
	for {
		ty, ok := reg.Resolve(innerID)
		if !ok {
			return nil, errors.TypeNotFound(uint32(innerID))
		}
		switch def := ty.Def.(type) {
		case registry.CompositeDef:
			if len(def.Fields) != 1 {
				return nil, errors.CompactNotSupported(ty.Name())
			}
			if c, ok := v.Def.(Composite); ok && len(c.Values) == 1 {
				v = c.Values[0]
			}
			innerID = def.Fields[0].Type

		case registry.PrimitiveDef:
			p, ok := v.Def.(Primitive)
			if !ok || p.Kind != U128 {
				return nil, errEncode(v, "compact integer")
			}
			var limit scale.Uint128
			switch def.Kind {
			case registry.U8:
				limit = scale.Uint128{Lo: 0xFF}
			case registry.U16:
				limit = scale.Uint128{Lo: 0xFFFF}
			case registry.U32:
				limit = scale.Uint128{Lo: 0xFFFFFFFF}
			case registry.U64:
				limit = scale.Uint128{Lo: ^uint64(0)}
			case registry.U128:
				limit = scale.Uint128{Lo: ^uint64(0), Hi: ^uint64(0)}
			default:
				return nil, errors.CompactNotSupported(def.Kind.String())
			}
			if p.U128.Hi > limit.Hi || (p.U128.Hi == limit.Hi && p.U128.Lo > limit.Lo) {
				return nil, errors.NumberOutOfRange(p.U128, "compact "+def.Kind.String())
			}
			return appendCompactUint(dst, p.U128), nil

		default:
			return nil, errors.CompactNotSupported(describe(ty))
		}
	}
}

func describe(t registry.Type) string {
	if s := t.PathString(); s != "" {
		return s
	}
	if p, ok := t.Def.(registry.PrimitiveDef); ok {
		return p.Kind.String()
	}
	return "type " + strconv.Itoa(int(t.ID))
}

// appendCompactUint writes the shortest compact form of v.
func appendCompactUint(dst []byte, v scale.Uint128) []byte {
	switch {
	case v.Hi == 0 && v.Lo <= compactMax1B:
		return append(dst, byte(v.Lo)<<2)
	case v.Hi == 0 && v.Lo <= compactMax2B:
		n := uint16(v.Lo)<<2 | 0b01
		return append(dst, byte(n), byte(n>>8))
	case v.Hi == 0 && v.Lo <= compactMax4B:
		n := uint32(v.Lo)<<2 | 0b10
		return appendU32(dst, n)
	default:
		n := byteLen128(v)
		dst = append(dst, byte(n-4)<<2|0b11)
		for i := 0; i < n; i++ {
			if i < 8 {
				dst = append(dst, byte(v.Lo>>(8*i)))
			} else {
				dst = append(dst, byte(v.Hi>>(8*(i-8))))
			}
		}
		return dst
	}
}

// byteLen128 returns the minimal byte count holding v, at least 4.
func byteLen128(v scale.Uint128) int {
	bitLen := 128 - bits.LeadingZeros64(v.Hi)
	if v.Hi == 0 {
		bitLen = 64 - bits.LeadingZeros64(v.Lo)
	}
	n := (bitLen + 7) / 8
	if n < 4 {
		n = 4
	}
	return n
}

func appendBits(dst []byte, bools []bool, format scale.BitFormat) []byte {
	dst = appendCompactUint(dst, scale.Uint128{Lo: uint64(len(bools))})

	var width int
	switch format.Store {
	case scale.StoreU8:
		width = 8
	case scale.StoreU16:
		width = 16
	case scale.StoreU32:
		width = 32
	default:
		width = 64
	}

	for base := 0; base < len(bools); base += width {
		var word uint64
		for j := 0; j < width && base+j < len(bools); j++ {
			if !bools[base+j] {
				continue
			}
			if format.Order == scale.OrderLsb0 {
				word |= 1 << j
			} else {
				word |= 1 << (width - 1 - j)
			}
		}
		for i := 0; i < width/8; i++ {
			dst = append(dst, byte(word>>(8*i)))
		}
	}
	return dst
}

func appendU32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendU64(dst []byte, v uint64) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}
