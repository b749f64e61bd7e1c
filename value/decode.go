package value

import (
	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
	"github.com/substratools/scalewire/scale"
)

// DecodeValue decodes one value of the given type id from the front of data
// into a generic tree, returning the tree and the input remaining after it.
func DecodeValue(data []byte, id registry.TypeID, reg *registry.Registry) (Value, []byte, error) {
	res, rest, err := scale.DecodeWithVisitor(data, id, reg, decodeVisitor{})
	if err != nil {
		return Value{}, nil, err
	}
	return res.(Value), rest, nil
}

// decodeVisitor builds Value nodes for every shape the dispatcher hands it.
type decodeVisitor struct{}

// items is the iteration surface shared by the structural decoders.
type items interface {
	Done() bool
	Remaining() int
	DecodeItem(scale.Visitor) (any, error)
	BytesFromUndecoded() []byte
}

// decodeItems collects a positional run of children, naming each frame by
// index when a child fails.
func decodeItems(it items) (Composite, error) {
	capHint := it.Remaining()
	if b := len(it.BytesFromUndecoded()); capHint > b {
		capHint = b
	}
	out := Composite{Values: make([]Value, 0, capHint)}
	for i := 0; !it.Done(); i++ {
		item, err := it.DecodeItem(decodeVisitor{})
		if err != nil {
			return Composite{}, errors.At(err, errors.Index(i))
		}
		out.Values = append(out.Values, item.(Value))
	}
	return out, nil
}

// decodeComposite collects a composite's children, keeping field names when
// every field has one.
func decodeComposite(c *scale.Composite) (Composite, error) {
	if c.Remaining() == 0 || c.HasUnnamedFields() {
		return decodeItems(c)
	}
	out := Composite{
		Names:  make([]string, 0, c.Remaining()),
		Values: make([]Value, 0, c.Remaining()),
	}
	for !c.Done() {
		name, _ := c.PeekName()
		item, err := c.DecodeItem(decodeVisitor{})
		if err != nil {
			return Composite{}, errors.At(err, errors.Field(name))
		}
		out.Names = append(out.Names, name)
		out.Values = append(out.Values, item.(Value))
	}
	return out, nil
}

func (decodeVisitor) VisitBool(v bool, id registry.TypeID) (any, error) {
	return BoolValue(v, id), nil
}

func (decodeVisitor) VisitChar(v rune, id registry.TypeID) (any, error) {
	return CharValue(v, id), nil
}

func (decodeVisitor) VisitStr(s *scale.Str, id registry.TypeID) (any, error) {
	v, err := s.AsStr()
	if err != nil {
		return nil, err
	}
	return StrValue(v, id), nil
}

func (decodeVisitor) VisitU8(v uint8, id registry.TypeID) (any, error) {
	return UintValue(uint64(v), id), nil
}

func (decodeVisitor) VisitU16(v uint16, id registry.TypeID) (any, error) {
	return UintValue(uint64(v), id), nil
}

func (decodeVisitor) VisitU32(v uint32, id registry.TypeID) (any, error) {
	return UintValue(uint64(v), id), nil
}

func (decodeVisitor) VisitU64(v uint64, id registry.TypeID) (any, error) {
	return UintValue(v, id), nil
}

func (decodeVisitor) VisitU128(v scale.Uint128, id registry.TypeID) (any, error) {
	return U128Value(v, id), nil
}

func (decodeVisitor) VisitU256(v *[32]byte, id registry.TypeID) (any, error) {
	return Value{Def: Primitive{Kind: U256, Raw: *v}, Type: id}, nil
}

func (decodeVisitor) VisitI8(v int8, id registry.TypeID) (any, error) {
	return IntValue(int64(v), id), nil
}

func (decodeVisitor) VisitI16(v int16, id registry.TypeID) (any, error) {
	return IntValue(int64(v), id), nil
}

func (decodeVisitor) VisitI32(v int32, id registry.TypeID) (any, error) {
	return IntValue(int64(v), id), nil
}

func (decodeVisitor) VisitI64(v int64, id registry.TypeID) (any, error) {
	return IntValue(v, id), nil
}

func (decodeVisitor) VisitI128(v scale.Int128, id registry.TypeID) (any, error) {
	return I128Value(v, id), nil
}

func (decodeVisitor) VisitI256(v *[32]byte, id registry.TypeID) (any, error) {
	return Value{Def: Primitive{Kind: I256, Raw: *v}, Type: id}, nil
}

func (decodeVisitor) VisitSequence(seq *scale.Sequence, id registry.TypeID) (any, error) {
	c, err := decodeItems(seq)
	if err != nil {
		return nil, err
	}
	return Value{Def: c, Type: id}, nil
}

func (decodeVisitor) VisitArray(arr *scale.Array, id registry.TypeID) (any, error) {
	c, err := decodeItems(arr)
	if err != nil {
		return nil, err
	}
	return Value{Def: c, Type: id}, nil
}

func (decodeVisitor) VisitTuple(tup *scale.Tuple, id registry.TypeID) (any, error) {
	c, err := decodeItems(tup)
	if err != nil {
		return nil, err
	}
	return Value{Def: c, Type: id}, nil
}

func (decodeVisitor) VisitComposite(comp *scale.Composite, id registry.TypeID) (any, error) {
	c, err := decodeComposite(comp)
	if err != nil {
		return nil, err
	}
	return Value{Def: c, Type: id}, nil
}

func (decodeVisitor) VisitVariant(vr *scale.Variant, id registry.TypeID) (any, error) {
	fields, err := decodeComposite(vr.Fields())
	if err != nil {
		return nil, errors.At(err, errors.Variant(vr.Name()))
	}
	return Value{
		Def:  Variant{Name: vr.Name(), Index: vr.Index(), Fields: fields},
		Type: id,
	}, nil
}

func (decodeVisitor) VisitBitSequence(bits *scale.BitSequence, id registry.TypeID) (any, error) {
	bools, err := bits.Decode()
	if err != nil {
		return nil, err
	}
	return Value{Def: BitSequence{Bits: bools}, Type: id}, nil
}

func (d decodeVisitor) VisitCompactU8(c scale.Compact[uint8], id registry.TypeID) (any, error) {
	return d.VisitU8(c.Value(), id)
}

func (d decodeVisitor) VisitCompactU16(c scale.Compact[uint16], id registry.TypeID) (any, error) {
	return d.VisitU16(c.Value(), id)
}

func (d decodeVisitor) VisitCompactU32(c scale.Compact[uint32], id registry.TypeID) (any, error) {
	return d.VisitU32(c.Value(), id)
}

func (d decodeVisitor) VisitCompactU64(c scale.Compact[uint64], id registry.TypeID) (any, error) {
	return d.VisitU64(c.Value(), id)
}

func (d decodeVisitor) VisitCompactU128(c scale.Compact[scale.Uint128], id registry.TypeID) (any, error) {
	return d.VisitU128(c.Value(), id)
}
