package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind categorizes the decode failure
type Kind string

const (
	KindNotEnoughInput      Kind = "not_enough_input"
	KindInvalidStr          Kind = "invalid_str"
	KindInvalidChar         Kind = "invalid_char"
	KindTypeNotFound        Kind = "type_not_found"
	KindVariantNotFound     Kind = "variant_not_found"
	KindFieldNotFound       Kind = "field_not_found"
	KindWrongLength         Kind = "wrong_length"
	KindNumberOutOfRange    Kind = "number_out_of_range"
	KindStoreNotSupported   Kind = "store_type_not_supported"
	KindOrderNotSupported   Kind = "order_type_not_supported"
	KindCompactNotSupported Kind = "compact_not_supported"
	KindUnexpected          Kind = "unexpected_type"
	KindCustom              Kind = "custom"
)

type locKind uint8

const (
	locField locKind = iota
	locIndex
	locVariant
)

// Location is one frame of the path between the decode root and the point
// where decoding failed: a named struct field, a sequence/tuple index, or
// an enum variant.
type Location struct {
	kind locKind
	name string
	idx  int
}

// Field returns a location naming a composite field.
func Field(name string) Location {
	return Location{kind: locField, name: name}
}

// Index returns a location naming a sequence, array or tuple position.
func Index(i int) Location {
	return Location{kind: locIndex, idx: i}
}

// Variant returns a location naming an enum variant.
func Variant(name string) Location {
	return Location{kind: locVariant, name: name}
}

func (l Location) String() string {
	switch l.kind {
	case locIndex:
		return "[" + strconv.Itoa(l.idx) + "]"
	case locVariant:
		return "(" + l.name + ")"
	default:
		return l.name
	}
}

// Error is the structured error type used throughout the decode engine
type Error struct {
	Kind   Kind
	Detail string
	Value  any
	Cause  error

	// Path holds location frames in the order they were attached while the
	// error unwound, innermost first. Rendering reverses it so the message
	// reads from the decode root down to the failure point.
	Path []Location
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(e.PathString())
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// PathString renders the location path outermost frame first, frames joined
// with dots: "transfer.args.[2].(Some)".
func (e *Error) PathString() string {
	var b strings.Builder
	for i := len(e.Path) - 1; i >= 0; i-- {
		if i != len(e.Path)-1 {
			b.WriteByte('.')
		}
		b.WriteString(e.Path[i].String())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// At attaches a location frame to the error and returns it. Called while an
// error unwinds through nested decode calls; each enclosing decoder adds the
// frame it was working on.
func (e *Error) At(loc Location) *Error {
	e.Path = append(e.Path, loc)
	return e
}

// AtField attaches a field-name frame.
func (e *Error) AtField(name string) *Error {
	return e.At(Field(name))
}

// AtIndex attaches an index frame.
func (e *Error) AtIndex(i int) *Error {
	return e.At(Index(i))
}

// AtVariant attaches a variant-name frame.
func (e *Error) AtVariant(name string) *Error {
	return e.At(Variant(name))
}

// At coerces err to *Error (wrapping foreign errors as Custom) and attaches
// a location frame. It is the package-level form used at unwind sites that
// may see errors from outside this package.
func At(err error, loc Location) *Error {
	return From(err).At(loc)
}

// From returns err unchanged if it already is an *Error, and wraps anything
// else as a Custom error so a location path can be attached to it.
func From(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return Custom(err)
}

// IsKind reports whether err or anything it wraps is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == k {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(kind Kind) *Builder {
	return &Builder{
		err: Error{
			Kind: kind,
		},
	}
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotEnoughInput creates an error for a read past the end of the input.
func NotEnoughInput(need, have int) *Error {
	return &Error{
		Kind:   KindNotEnoughInput,
		Detail: fmt.Sprintf("need %d more byte(s), have %d", need, have),
	}
}

// InvalidStr creates an error for string bytes that are not valid UTF-8.
func InvalidStr(data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Kind:   KindInvalidStr,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidChar creates an error for a 4-byte value that is not a Unicode
// scalar value.
func InvalidChar(code uint32) *Error {
	return &Error{
		Kind:   KindInvalidChar,
		Detail: fmt.Sprintf("0x%x is not a valid char codepoint", code),
		Value:  code,
	}
}

// TypeNotFound creates an error for a type id absent from the registry.
func TypeNotFound(id uint32) *Error {
	return &Error{
		Kind:   KindTypeNotFound,
		Detail: fmt.Sprintf("type id %d not found in registry", id),
		Value:  id,
	}
}

// VariantNotFound creates an error for a discriminant byte that matches no
// declared variant index.
func VariantNotFound(disc uint8, typeName string) *Error {
	return &Error{
		Kind:   KindVariantNotFound,
		Detail: fmt.Sprintf("discriminant %d matches no variant of %s", disc, typeName),
		Value:  disc,
	}
}

// FieldNotFound creates an error for a field the target shape needs but the
// decoded composite does not provide.
func FieldNotFound(name string) *Error {
	return &Error{
		Kind:   KindFieldNotFound,
		Detail: fmt.Sprintf("field %q not found", name),
	}
}

// WrongLength creates an error for a decoded length that does not match the
// target's expected length.
func WrongLength(actual, expected int) *Error {
	return &Error{
		Kind:   KindWrongLength,
		Detail: fmt.Sprintf("value has %d item(s), target wants %d", actual, expected),
	}
}

// NumberOutOfRange creates an error for a numeric value that does not fit
// the target type.
func NumberOutOfRange(value any, target string) *Error {
	return &Error{
		Kind:   KindNumberOutOfRange,
		Detail: fmt.Sprintf("value %v does not fit %s", value, target),
		Value:  value,
	}
}

// StoreNotSupported creates an error for a bit sequence whose store type is
// not an 8, 16, 32 or 64 bit unsigned integer.
func StoreNotSupported(typeName string) *Error {
	return &Error{
		Kind:   KindStoreNotSupported,
		Detail: fmt.Sprintf("bit store type %s is not one of u8, u16, u32, u64", typeName),
	}
}

// OrderNotSupported creates an error for a bit sequence whose order type is
// neither Lsb0 nor Msb0.
func OrderNotSupported(typeName string) *Error {
	return &Error{
		Kind:   KindOrderNotSupported,
		Detail: fmt.Sprintf("bit order type %s is not Lsb0 or Msb0", typeName),
	}
}

// CompactNotSupported creates an error for a compact wrapper whose inner
// type does not unwrap to an unsigned integer.
func CompactNotSupported(typeName string) *Error {
	return &Error{
		Kind:   KindCompactNotSupported,
		Detail: fmt.Sprintf("compact encoding cannot wrap %s", typeName),
	}
}

// UnexpectedType creates an error for a decoded shape the visitor does not
// handle.
func UnexpectedType(shape string) *Error {
	return &Error{
		Kind:   KindUnexpected,
		Detail: fmt.Sprintf("unexpected %s encountered during decode", shape),
	}
}

// Custom wraps a downstream error so it can travel through the engine with
// a location path attached.
func Custom(cause error) *Error {
	return &Error{
		Kind:  KindCustom,
		Cause: cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(kind Kind, cause error, detail string) *Error {
	return &Error{
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
