package scale

import (
	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
)

// Visitor receives decoded values, one method per wire shape. The dispatcher
// resolves a type id, decodes the corresponding shape and calls exactly one
// method; whatever that method returns becomes the result of the decode
// call.
//
// Structural shapes (composite, variant, sequence, array, tuple) arrive as
// live decoders positioned at their first item. The visitor may decode as
// many items as it wants, including none; the dispatcher skips whatever is
// left afterwards, so input consumption does not depend on the visitor.
//
// Most visitors embed Base and override the handful of methods they expect,
// letting everything else fail as an unexpected shape.
type Visitor interface {
	VisitBool(value bool, id registry.TypeID) (any, error)
	VisitChar(value rune, id registry.TypeID) (any, error)
	VisitStr(value *Str, id registry.TypeID) (any, error)

	VisitU8(value uint8, id registry.TypeID) (any, error)
	VisitU16(value uint16, id registry.TypeID) (any, error)
	VisitU32(value uint32, id registry.TypeID) (any, error)
	VisitU64(value uint64, id registry.TypeID) (any, error)
	VisitU128(value Uint128, id registry.TypeID) (any, error)
	VisitU256(value *[32]byte, id registry.TypeID) (any, error)

	VisitI8(value int8, id registry.TypeID) (any, error)
	VisitI16(value int16, id registry.TypeID) (any, error)
	VisitI32(value int32, id registry.TypeID) (any, error)
	VisitI64(value int64, id registry.TypeID) (any, error)
	VisitI128(value Int128, id registry.TypeID) (any, error)
	VisitI256(value *[32]byte, id registry.TypeID) (any, error)

	VisitSequence(seq *Sequence, id registry.TypeID) (any, error)
	VisitComposite(comp *Composite, id registry.TypeID) (any, error)
	VisitTuple(tup *Tuple, id registry.TypeID) (any, error)
	VisitVariant(variant *Variant, id registry.TypeID) (any, error)
	VisitArray(arr *Array, id registry.TypeID) (any, error)
	VisitBitSequence(bits *BitSequence, id registry.TypeID) (any, error)

	// The compact methods receive the wrapper chain the integer was found
	// under; the id is the outermost compact type's id.
	VisitCompactU8(value Compact[uint8], id registry.TypeID) (any, error)
	VisitCompactU16(value Compact[uint16], id registry.TypeID) (any, error)
	VisitCompactU32(value Compact[uint32], id registry.TypeID) (any, error)
	VisitCompactU64(value Compact[uint64], id registry.TypeID) (any, error)
	VisitCompactU128(value Compact[Uint128], id registry.TypeID) (any, error)
}

// DecodeAsTypeResult is what an UncheckedDecoder hands back: either it left
// the input alone and the dispatcher decodes normally, or it consumed the
// value itself.
type DecodeAsTypeResult struct {
	Decoded bool
	Value   any
	Err     error
}

// Skipped is the zero DecodeAsTypeResult, declining to decode.
func Skipped() DecodeAsTypeResult {
	return DecodeAsTypeResult{}
}

// Decoded wraps a finished decode into a DecodeAsTypeResult.
func Decoded(value any, err error) DecodeAsTypeResult {
	return DecodeAsTypeResult{Decoded: true, Value: value, Err: err}
}

// UncheckedDecoder is an optional interface a Visitor may implement to take
// over decoding of chosen type ids. The dispatcher probes for it before
// resolving the id against the registry, so it fires even for ids the
// registry does not know.
type UncheckedDecoder interface {
	UncheckedDecodeAsType(cur *Cursor, id registry.TypeID, reg *registry.Registry) DecodeAsTypeResult
}

// Unexpected names the shape a visitor was handed when it rejects it.
type Unexpected uint8

const (
	UnexpectedBool Unexpected = iota
	UnexpectedChar
	UnexpectedU8
	UnexpectedU16
	UnexpectedU32
	UnexpectedU64
	UnexpectedU128
	UnexpectedU256
	UnexpectedI8
	UnexpectedI16
	UnexpectedI32
	UnexpectedI64
	UnexpectedI128
	UnexpectedI256
	UnexpectedSequence
	UnexpectedComposite
	UnexpectedTuple
	UnexpectedStr
	UnexpectedVariant
	UnexpectedArray
	UnexpectedBitSequence
)

var unexpectedNames = [...]string{
	"bool",
	"char",
	"u8",
	"u16",
	"u32",
	"u64",
	"u128",
	"u256",
	"i8",
	"i16",
	"i32",
	"i64",
	"i128",
	"i256",
	"sequence",
	"composite",
	"tuple",
	"str",
	"variant",
	"array",
	"bitsequence",
}

func (u Unexpected) String() string {
	if int(u) < len(unexpectedNames) {
		return unexpectedNames[u]
	}
	return "unknown"
}

func errUnexpected(u Unexpected) *errors.Error {
	return errors.UnexpectedType(u.String())
}

// Base implements Visitor by rejecting every shape. Embed it and override
// the methods for the shapes you expect; the rest fail with an
// unexpected-type error naming the shape that showed up.
type Base struct{}

func (Base) VisitBool(bool, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedBool)
}

func (Base) VisitChar(rune, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedChar)
}

func (Base) VisitStr(*Str, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedStr)
}

func (Base) VisitU8(uint8, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU8)
}

func (Base) VisitU16(uint16, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU16)
}

func (Base) VisitU32(uint32, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU32)
}

func (Base) VisitU64(uint64, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU64)
}

func (Base) VisitU128(Uint128, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU128)
}

func (Base) VisitU256(*[32]byte, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU256)
}

func (Base) VisitI8(int8, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedI8)
}

func (Base) VisitI16(int16, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedI16)
}

func (Base) VisitI32(int32, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedI32)
}

func (Base) VisitI64(int64, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedI64)
}

func (Base) VisitI128(Int128, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedI128)
}

func (Base) VisitI256(*[32]byte, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedI256)
}

func (Base) VisitSequence(*Sequence, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedSequence)
}

func (Base) VisitComposite(*Composite, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedComposite)
}

func (Base) VisitTuple(*Tuple, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedTuple)
}

func (Base) VisitVariant(*Variant, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedVariant)
}

func (Base) VisitArray(*Array, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedArray)
}

func (Base) VisitBitSequence(*BitSequence, registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedBitSequence)
}

func (Base) VisitCompactU8(Compact[uint8], registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU8)
}

func (Base) VisitCompactU16(Compact[uint16], registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU16)
}

func (Base) VisitCompactU32(Compact[uint32], registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU32)
}

func (Base) VisitCompactU64(Compact[uint64], registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU64)
}

func (Base) VisitCompactU128(Compact[Uint128], registry.TypeID) (any, error) {
	return nil, errUnexpected(UnexpectedU128)
}

// IgnoreVisitor accepts and discards every shape. The dispatcher drains
// whatever a visitor leaves undecoded, so ignoring a structural shape still
// consumes exactly the value's bytes; skipping over a value is a decode with
// this visitor.
type IgnoreVisitor struct{}

func (IgnoreVisitor) VisitBool(bool, registry.TypeID) (any, error)        { return nil, nil }
func (IgnoreVisitor) VisitChar(rune, registry.TypeID) (any, error)        { return nil, nil }
func (IgnoreVisitor) VisitStr(*Str, registry.TypeID) (any, error)         { return nil, nil }
func (IgnoreVisitor) VisitU8(uint8, registry.TypeID) (any, error)         { return nil, nil }
func (IgnoreVisitor) VisitU16(uint16, registry.TypeID) (any, error)       { return nil, nil }
func (IgnoreVisitor) VisitU32(uint32, registry.TypeID) (any, error)       { return nil, nil }
func (IgnoreVisitor) VisitU64(uint64, registry.TypeID) (any, error)       { return nil, nil }
func (IgnoreVisitor) VisitU128(Uint128, registry.TypeID) (any, error)     { return nil, nil }
func (IgnoreVisitor) VisitU256(*[32]byte, registry.TypeID) (any, error)   { return nil, nil }
func (IgnoreVisitor) VisitI8(int8, registry.TypeID) (any, error)          { return nil, nil }
func (IgnoreVisitor) VisitI16(int16, registry.TypeID) (any, error)        { return nil, nil }
func (IgnoreVisitor) VisitI32(int32, registry.TypeID) (any, error)        { return nil, nil }
func (IgnoreVisitor) VisitI64(int64, registry.TypeID) (any, error)        { return nil, nil }
func (IgnoreVisitor) VisitI128(Int128, registry.TypeID) (any, error)      { return nil, nil }
func (IgnoreVisitor) VisitI256(*[32]byte, registry.TypeID) (any, error)   { return nil, nil }
func (IgnoreVisitor) VisitSequence(*Sequence, registry.TypeID) (any, error) {
	return nil, nil
}
func (IgnoreVisitor) VisitComposite(*Composite, registry.TypeID) (any, error) {
	return nil, nil
}
func (IgnoreVisitor) VisitTuple(*Tuple, registry.TypeID) (any, error)     { return nil, nil }
func (IgnoreVisitor) VisitVariant(*Variant, registry.TypeID) (any, error) { return nil, nil }
func (IgnoreVisitor) VisitArray(*Array, registry.TypeID) (any, error)     { return nil, nil }
func (IgnoreVisitor) VisitBitSequence(*BitSequence, registry.TypeID) (any, error) {
	return nil, nil
}
func (IgnoreVisitor) VisitCompactU8(Compact[uint8], registry.TypeID) (any, error) {
	return nil, nil
}
func (IgnoreVisitor) VisitCompactU16(Compact[uint16], registry.TypeID) (any, error) {
	return nil, nil
}
func (IgnoreVisitor) VisitCompactU32(Compact[uint32], registry.TypeID) (any, error) {
	return nil, nil
}
func (IgnoreVisitor) VisitCompactU64(Compact[uint64], registry.TypeID) (any, error) {
	return nil, nil
}
func (IgnoreVisitor) VisitCompactU128(Compact[Uint128], registry.TypeID) (any, error) {
	return nil, nil
}
