// Package scale implements type-driven decoding of SCALE-encoded bytes.
//
// Given a byte slice, a type id and a registry describing what that id looks
// like on the wire, the dispatcher walks the bytes and calls back into a
// caller-supplied Visitor, one method per shape. The visitor decides what
// each decoded piece turns into, so one dispatch path serves both a generic
// value tree (see the value package) and direct projection into Go types
// (see DecodeInto).
//
// # Decode Flow
//
//	┌──────────┐   resolve    ┌──────────────┐   visit    ┌─────────┐
//	│ bytes +  │ ───────────► │  dispatcher  │ ─────────► │ Visitor │
//	│ type id  │   registry   │ (per shape)  │            │ output  │
//	└──────────┘              └──────────────┘            └─────────┘
//
// # Wire Shapes
//
//	Shape        Encoding
//	─────────────────────────────────────────────────────────
//	primitive    fixed-width little-endian (bool, ints, char)
//	str          compact length + UTF-8 bytes
//	compact      1/2/4/N byte variable-length integer
//	composite    fields back to back, declared order
//	variant      discriminant byte + selected variant's fields
//	sequence     compact count + items back to back
//	array        declared count, items back to back, no prefix
//	tuple        items back to back, declared order
//	bitsequence  compact bit count + packed store words
//
// # Structural Decoders
//
// Composite, Variant, Sequence, Array and Tuple hand the visitor an
// iterator-style decoder over the shared byte window. DecodeItem decodes
// exactly the next field or item; after the visitor returns, the dispatcher
// drains whatever it left undecoded, so a value always consumes exactly its
// own bytes no matter how much of it the visitor looked at. Str and
// BitSequence defer their expensive work (UTF-8 validation, bit unpacking)
// until asked.
//
// # Zero Copy
//
// Decoding never copies the input. All windows handed to visitors alias the
// caller's buffer, which must stay immutable for as long as any decoded
// result borrowed from it is alive.
//
// # Thread Safety
//
// A decode call keeps all state in per-call values and the registry is
// immutable, so any number of decodes may run concurrently as long as each
// call has its own buffer.
//
// # Error Handling
//
// Errors use the structured types from the errors package. As an error
// unwinds out of a nested value, visitors attach the field, index and
// variant frames they were working on:
//
//	not_enough_input at transfer.(V2).amount: need 4 more byte(s), have 1
//	variant_not_found at records.[3]: discriminant 9 matches no variant of Phase
//
// Nothing is recorded on the success path.
package scale
