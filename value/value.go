package value

import (
	"strconv"
	"strings"

	"github.com/substratools/scalewire/registry"
	"github.com/substratools/scalewire/scale"
)

// Value is one node of a decoded value tree, tagged with the type id it was
// decoded from.
type Value struct {
	Def  Def
	Type registry.TypeID
}

// Def is the sealed set of value shapes.
type Def interface {
	isDef()
}

// Composite is an ordered run of child values. Names parallels Values for
// named composites and is nil for positional data (tuples, sequences,
// arrays, unnamed structs).
type Composite struct {
	Names  []string
	Values []Value
}

// Variant is a selected enum case and its fields.
type Variant struct {
	Name   string
	Index  uint8
	Fields Composite
}

// BitSequence is a decoded bit vector.
type BitSequence struct {
	Bits []bool
}

// PrimitiveKind says which Primitive payload is set.
type PrimitiveKind uint8

const (
	Bool PrimitiveKind = iota
	Char
	Str
	U128
	I128
	U256
	I256
)

// Primitive is a leaf value. Exactly one payload field is meaningful,
// selected by Kind; unsigned and signed integers below 128 bits are widened
// into U128 and I128.
type Primitive struct {
	Kind PrimitiveKind
	Bool bool
	Char rune
	Str  string
	U128 scale.Uint128
	I128 scale.Int128

	// Raw holds U256 and I256 payloads as read from the wire.
	Raw [32]byte
}

func (Composite) isDef()   {}
func (Variant) isDef()     {}
func (BitSequence) isDef() {}
func (Primitive) isDef()   {}

// Named reports whether the composite's children carry field names.
func (c Composite) Named() bool {
	return c.Names != nil
}

// Len returns the number of children.
func (c Composite) Len() int {
	return len(c.Values)
}

// Composite returns the node's composite payload.
func (v Value) Composite() (Composite, bool) {
	c, ok := v.Def.(Composite)
	return c, ok
}

// Variant returns the node's variant payload.
func (v Value) Variant() (Variant, bool) {
	va, ok := v.Def.(Variant)
	return va, ok
}

// Primitive returns the node's primitive payload.
func (v Value) Primitive() (Primitive, bool) {
	p, ok := v.Def.(Primitive)
	return p, ok
}

// BitSequence returns the node's bit sequence payload.
func (v Value) BitSequence() (BitSequence, bool) {
	b, ok := v.Def.(BitSequence)
	return b, ok
}

// Len returns the number of child values: composite children, variant
// fields, or bits. Leaves have none.
func (v Value) Len() int {
	switch d := v.Def.(type) {
	case Composite:
		return len(d.Values)
	case Variant:
		return len(d.Fields.Values)
	case BitSequence:
		return len(d.Bits)
	}
	return 0
}

// At returns the i'th child of a composite or variant node.
func (v Value) At(i int) (Value, bool) {
	var vals []Value
	switch d := v.Def.(type) {
	case Composite:
		vals = d.Values
	case Variant:
		vals = d.Fields.Values
	default:
		return Value{}, false
	}
	if i < 0 || i >= len(vals) {
		return Value{}, false
	}
	return vals[i], true
}

// Field returns the named child of a named composite or variant node.
func (v Value) Field(name string) (Value, bool) {
	var c Composite
	switch d := v.Def.(type) {
	case Composite:
		c = d
	case Variant:
		c = d.Fields
	default:
		return Value{}, false
	}
	for i, n := range c.Names {
		if n == name {
			return c.Values[i], true
		}
	}
	return Value{}, false
}

// String renders the tree in a compact readable form: named composites as
// {a: 1, b: 2}, positional ones as (1, 2), variants as Name(..) or
// Name{..}, bit sequences as <0110>.
func (v Value) String() string {
	var b strings.Builder
	v.writeTo(&b)
	return b.String()
}

func (v Value) writeTo(b *strings.Builder) {
	switch d := v.Def.(type) {
	case Primitive:
		d.writeTo(b)
	case Composite:
		d.writeTo(b)
	case Variant:
		b.WriteString(d.Name)
		if len(d.Fields.Values) > 0 {
			d.Fields.writeTo(b)
		}
	case BitSequence:
		b.WriteByte('<')
		for _, bit := range d.Bits {
			if bit {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		b.WriteByte('>')
	}
}

func (c Composite) writeTo(b *strings.Builder) {
	if c.Named() {
		b.WriteByte('{')
		for i, v := range c.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Names[i])
			b.WriteString(": ")
			v.writeTo(b)
		}
		b.WriteByte('}')
		return
	}
	b.WriteByte('(')
	for i, v := range c.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		v.writeTo(b)
	}
	b.WriteByte(')')
}

func (p Primitive) writeTo(b *strings.Builder) {
	switch p.Kind {
	case Bool:
		b.WriteString(strconv.FormatBool(p.Bool))
	case Char:
		b.WriteString(strconv.QuoteRune(p.Char))
	case Str:
		b.WriteString(strconv.Quote(p.Str))
	case U128:
		b.WriteString(p.U128.String())
	case I128:
		b.WriteString(p.I128.String())
	case U256, I256:
		const hex = "0123456789abcdef"
		b.WriteString("0x")
		for _, by := range p.Raw {
			b.WriteByte(hex[by>>4])
			b.WriteByte(hex[by&0x0f])
		}
	}
}

// BoolValue builds a primitive bool node.
func BoolValue(v bool, id registry.TypeID) Value {
	return Value{Def: Primitive{Kind: Bool, Bool: v}, Type: id}
}

// CharValue builds a primitive char node.
func CharValue(v rune, id registry.TypeID) Value {
	return Value{Def: Primitive{Kind: Char, Char: v}, Type: id}
}

// StrValue builds a primitive string node.
func StrValue(v string, id registry.TypeID) Value {
	return Value{Def: Primitive{Kind: Str, Str: v}, Type: id}
}

// U128Value builds an unsigned integer node.
func U128Value(v scale.Uint128, id registry.TypeID) Value {
	return Value{Def: Primitive{Kind: U128, U128: v}, Type: id}
}

// UintValue builds an unsigned integer node from a uint64.
func UintValue(v uint64, id registry.TypeID) Value {
	return U128Value(scale.Uint128{Lo: v}, id)
}

// I128Value builds a signed integer node.
func I128Value(v scale.Int128, id registry.TypeID) Value {
	return Value{Def: Primitive{Kind: I128, I128: v}, Type: id}
}

// IntValue builds a signed integer node from an int64.
func IntValue(v int64, id registry.TypeID) Value {
	i := scale.Int128{Lo: uint64(v)}
	if v < 0 {
		i.Hi = -1
	}
	return I128Value(i, id)
}
