package registry

import (
	"strings"
)

// TypeID is an opaque key into a Registry.
type TypeID uint32

// PrimitiveKind enumerates the fixed primitive wire types.
type PrimitiveKind uint8

const (
	Bool PrimitiveKind = iota
	Char
	Str
	U8
	U16
	U32
	U64
	U128
	U256
	I8
	I16
	I32
	I64
	I128
	I256
)

var primitiveNames = [...]string{
	Bool: "bool",
	Char: "char",
	Str:  "str",
	U8:   "u8",
	U16:  "u16",
	U32:  "u32",
	U64:  "u64",
	U128: "u128",
	U256: "u256",
	I8:   "i8",
	I16:  "i16",
	I32:  "i32",
	I64:  "i64",
	I128: "i128",
	I256: "i256",
}

func (k PrimitiveKind) String() string {
	if int(k) < len(primitiveNames) {
		return primitiveNames[k]
	}
	return "unknown"
}

// Field is one member of a composite: an optional name plus the type of its
// value. TypeName is a display hint carried over from metadata and has no
// effect on decoding.
type Field struct {
	Name     string
	Type     TypeID
	TypeName string
}

// Named reports whether the field carries a name.
func (f Field) Named() bool {
	return f.Name != ""
}

// VariantCase is one alternative of a variant (enum) type. Index is the
// discriminant byte that selects it on the wire; it is not necessarily the
// position in the declaration order.
type VariantCase struct {
	Name   string
	Index  uint8
	Fields []Field
}

// TypeDef is the closed set of shapes a TypeID can resolve to.
type TypeDef interface {
	isTypeDef()
}

// PrimitiveDef describes a primitive type.
type PrimitiveDef struct {
	Kind PrimitiveKind
}

// CompactDef describes a compact-encoded wrapper around an integer type.
type CompactDef struct {
	Inner TypeID
}

// CompositeDef describes a struct-like type with ordered fields.
type CompositeDef struct {
	Fields []Field
}

// VariantDef describes an enum-like type.
type VariantDef struct {
	Variants []VariantCase
}

// SequenceDef describes a length-prefixed list.
type SequenceDef struct {
	Item TypeID
}

// ArrayDef describes a fixed-length list with no wire prefix.
type ArrayDef struct {
	Item TypeID
	Len  uint32
}

// TupleDef describes an ordered positional list of types.
type TupleDef struct {
	Items []TypeID
}

// BitSequenceDef describes a packed bit vector. Store and Order reference
// the backing word type and the bit order marker type.
type BitSequenceDef struct {
	Store TypeID
	Order TypeID
}

func (PrimitiveDef) isTypeDef()   {}
func (CompactDef) isTypeDef()     {}
func (CompositeDef) isTypeDef()   {}
func (VariantDef) isTypeDef()     {}
func (SequenceDef) isTypeDef()    {}
func (ArrayDef) isTypeDef()       {}
func (TupleDef) isTypeDef()       {}
func (BitSequenceDef) isTypeDef() {}

// FindVariant returns the case whose wire index equals disc.
func (d VariantDef) FindVariant(disc uint8) (VariantCase, bool) {
	for _, v := range d.Variants {
		if v.Index == disc {
			return v, true
		}
	}
	return VariantCase{}, false
}

// Type is a resolved registry entry: a shape plus the path idents the
// source metadata gave it.
type Type struct {
	ID   TypeID
	Path []string
	Def  TypeDef
}

// Name returns the last path segment, or "" for anonymous types.
func (t Type) Name() string {
	if len(t.Path) == 0 {
		return ""
	}
	return t.Path[len(t.Path)-1]
}

// PathString renders the full path as "pallet_balances::pallet::Event".
func (t Type) PathString() string {
	return strings.Join(t.Path, "::")
}

// Registry maps TypeIDs to type definitions. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	types map[TypeID]Type
}

// Resolve looks up a type by id.
func (r *Registry) Resolve(id TypeID) (Type, bool) {
	t, ok := r.types[id]
	return t, ok
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}

// Builder assembles a Registry. It is not safe for concurrent use; the
// registries it builds are.
type Builder struct {
	types  map[TypeID]Type
	nextID TypeID
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{types: make(map[TypeID]Type)}
}

// Register adds a definition under an explicit id, replacing any previous
// definition with that id. Used by the metadata parser, where ids come from
// the chain.
func (b *Builder) Register(id TypeID, path []string, def TypeDef) {
	b.types[id] = Type{ID: id, Path: path, Def: def}
	if id >= b.nextID {
		b.nextID = id + 1
	}
}

// Add registers a definition under the next free id and returns that id.
func (b *Builder) Add(def TypeDef) TypeID {
	id := b.nextID
	b.Register(id, nil, def)
	return id
}

// AddNamed is Add with a "::"-separated path.
func (b *Builder) AddNamed(path string, def TypeDef) TypeID {
	id := b.nextID
	b.Register(id, strings.Split(path, "::"), def)
	return id
}

// Build snapshots the current contents into an immutable Registry. The
// Builder may keep accumulating types afterwards without affecting
// registries already built.
func (b *Builder) Build() *Registry {
	types := make(map[TypeID]Type, len(b.types))
	for id, t := range b.types {
		types[id] = t
	}
	return &Registry{types: types}
}
