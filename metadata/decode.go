package metadata

import (
	"errors"
	"fmt"
	"math"

	"github.com/substratools/scalewire/registry"
	"github.com/substratools/scalewire/scale"
)

// Magic is the reserved prefix ahead of the version byte, "meta" read as a
// little-endian u32.
const Magic = 0x6174656d

// Parsing errors returned by Parse.
var (
	ErrInvalidMagic       = errors.New("invalid metadata magic number")
	ErrUnsupportedVersion = errors.New("unsupported metadata version")
)

// Parse decodes a runtime metadata blob as returned by state_getMetadata.
// Versions 14 and 15 are supported.
func Parse(data []byte) (*Metadata, error) {
	r := &reader{c: scale.NewCursor(data)}

	magic, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	version, err := r.byte()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if version != 14 && version != 15 {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedVersion, version)
	}

	m := &Metadata{Version: version}

	if err := parseTypes(r, m); err != nil {
		return nil, fmt.Errorf("type table: %w", err)
	}
	if err := parsePallets(r, m); err != nil {
		return nil, err
	}
	if err := parseExtrinsic(r, m); err != nil {
		return nil, fmt.Errorf("extrinsic: %w", err)
	}
	if m.RuntimeType, err = r.typeID(); err != nil {
		return nil, fmt.Errorf("runtime type: %w", err)
	}

	if version >= 15 {
		if err := parseAPIs(r, m); err != nil {
			return nil, fmt.Errorf("runtime apis: %w", err)
		}
		if err := parseOuterEnums(r, m); err != nil {
			return nil, fmt.Errorf("outer enums: %w", err)
		}
		if err := parseCustom(r, m); err != nil {
			return nil, fmt.Errorf("custom values: %w", err)
		}
	}

	if rem := r.c.Remaining(); rem != 0 {
		return nil, fmt.Errorf("%d trailing bytes after metadata", rem)
	}

	m.buildLookups()
	return m, nil
}

func parseTypes(r *reader, m *Metadata) error {
	count, err := r.count()
	if err != nil {
		return err
	}
	b := registry.NewBuilder()
	for i := 0; i < count; i++ {
		id, err := r.typeID()
		if err != nil {
			return err
		}
		path, err := r.texts()
		if err != nil {
			return fmt.Errorf("type %d: path: %w", id, err)
		}
		// Type parameters carry no decoding information.
		params, err := r.count()
		if err != nil {
			return fmt.Errorf("type %d: %w", id, err)
		}
		for j := 0; j < params; j++ {
			if _, err := r.text(); err != nil {
				return fmt.Errorf("type %d: param: %w", id, err)
			}
			if _, _, err := r.optionTypeID(); err != nil {
				return fmt.Errorf("type %d: param: %w", id, err)
			}
		}
		def, err := parseTypeDef(r)
		if err != nil {
			return fmt.Errorf("type %d: %w", id, err)
		}
		if _, err := r.texts(); err != nil {
			return fmt.Errorf("type %d: docs: %w", id, err)
		}
		b.Register(id, path, def)
	}
	m.Types = b.Build()
	return nil
}

func parseTypeDef(r *reader) (registry.TypeDef, error) {
	disc, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch disc {
	case 0: // composite
		fields, err := parseFields(r)
		if err != nil {
			return nil, err
		}
		return registry.CompositeDef{Fields: fields}, nil
	case 1: // variant
		count, err := r.count()
		if err != nil {
			return nil, err
		}
		variants := make([]registry.VariantCase, 0, count)
		for i := 0; i < count; i++ {
			name, err := r.text()
			if err != nil {
				return nil, err
			}
			fields, err := parseFields(r)
			if err != nil {
				return nil, fmt.Errorf("variant %s: %w", name, err)
			}
			index, err := r.byte()
			if err != nil {
				return nil, fmt.Errorf("variant %s: %w", name, err)
			}
			if _, err := r.texts(); err != nil {
				return nil, fmt.Errorf("variant %s: docs: %w", name, err)
			}
			variants = append(variants, registry.VariantCase{Name: name, Index: index, Fields: fields})
		}
		return registry.VariantDef{Variants: variants}, nil
	case 2: // sequence
		item, err := r.typeID()
		if err != nil {
			return nil, err
		}
		return registry.SequenceDef{Item: item}, nil
	case 3: // array
		length, err := r.u32()
		if err != nil {
			return nil, err
		}
		item, err := r.typeID()
		if err != nil {
			return nil, err
		}
		return registry.ArrayDef{Item: item, Len: length}, nil
	case 4: // tuple
		count, err := r.count()
		if err != nil {
			return nil, err
		}
		items := make([]registry.TypeID, 0, count)
		for i := 0; i < count; i++ {
			item, err := r.typeID()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return registry.TupleDef{Items: items}, nil
	case 5: // primitive
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		if kind > uint8(registry.I256) {
			return nil, fmt.Errorf("unknown primitive %d", kind)
		}
		return registry.PrimitiveDef{Kind: registry.PrimitiveKind(kind)}, nil
	case 6: // compact
		inner, err := r.typeID()
		if err != nil {
			return nil, err
		}
		return registry.CompactDef{Inner: inner}, nil
	case 7: // bit sequence
		store, err := r.typeID()
		if err != nil {
			return nil, err
		}
		order, err := r.typeID()
		if err != nil {
			return nil, err
		}
		return registry.BitSequenceDef{Store: store, Order: order}, nil
	default:
		return nil, fmt.Errorf("unknown type definition %d", disc)
	}
}

func parseFields(r *reader) ([]registry.Field, error) {
	count, err := r.count()
	if err != nil {
		return nil, err
	}
	fields := make([]registry.Field, 0, count)
	for i := 0; i < count; i++ {
		name, _, err := r.optionText()
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		id, err := r.typeID()
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		typeName, _, err := r.optionText()
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		if _, err := r.texts(); err != nil {
			return nil, fmt.Errorf("field %d: docs: %w", i, err)
		}
		fields = append(fields, registry.Field{Name: name, Type: id, TypeName: typeName})
	}
	return fields, nil
}

func parsePallets(r *reader, m *Metadata) error {
	count, err := r.count()
	if err != nil {
		return fmt.Errorf("pallets: %w", err)
	}
	m.Pallets = make([]Pallet, 0, count)
	for i := 0; i < count; i++ {
		p, err := parsePallet(r, m.Version)
		if err != nil {
			if p.Name != "" {
				return fmt.Errorf("pallet %s: %w", p.Name, err)
			}
			return fmt.Errorf("pallet %d: %w", i, err)
		}
		m.Pallets = append(m.Pallets, p)
	}
	return nil
}

func parsePallet(r *reader, version uint8) (Pallet, error) {
	var p Pallet
	var err error
	if p.Name, err = r.text(); err != nil {
		return p, err
	}

	hasStorage, err := r.option()
	if err != nil {
		return p, fmt.Errorf("storage: %w", err)
	}
	if hasStorage {
		if p.StoragePrefix, err = r.text(); err != nil {
			return p, fmt.Errorf("storage prefix: %w", err)
		}
		count, err := r.count()
		if err != nil {
			return p, fmt.Errorf("storage: %w", err)
		}
		p.Entries = make([]StorageEntry, 0, count)
		for i := 0; i < count; i++ {
			e, err := parseStorageEntry(r)
			if err != nil {
				if e.Name != "" {
					return p, fmt.Errorf("storage %s: %w", e.Name, err)
				}
				return p, fmt.Errorf("storage entry %d: %w", i, err)
			}
			p.Entries = append(p.Entries, e)
		}
	}

	if p.callTy, p.hasCall, err = r.optionTypeID(); err != nil {
		return p, fmt.Errorf("calls: %w", err)
	}
	if p.eventTy, p.hasEvent, err = r.optionTypeID(); err != nil {
		return p, fmt.Errorf("event: %w", err)
	}

	count, err := r.count()
	if err != nil {
		return p, fmt.Errorf("constants: %w", err)
	}
	p.Constants = make([]Constant, 0, count)
	for i := 0; i < count; i++ {
		var c Constant
		if c.Name, err = r.text(); err != nil {
			return p, fmt.Errorf("constant %d: %w", i, err)
		}
		if c.Type, err = r.typeID(); err != nil {
			return p, fmt.Errorf("constant %s: %w", c.Name, err)
		}
		if c.Value, err = r.bytes(); err != nil {
			return p, fmt.Errorf("constant %s: %w", c.Name, err)
		}
		if c.Docs, err = r.texts(); err != nil {
			return p, fmt.Errorf("constant %s: docs: %w", c.Name, err)
		}
		p.Constants = append(p.Constants, c)
	}

	if p.errorTy, p.hasError, err = r.optionTypeID(); err != nil {
		return p, fmt.Errorf("error: %w", err)
	}
	if p.Index, err = r.byte(); err != nil {
		return p, fmt.Errorf("index: %w", err)
	}
	if version >= 15 {
		if p.Docs, err = r.texts(); err != nil {
			return p, fmt.Errorf("docs: %w", err)
		}
	}
	return p, nil
}

func parseStorageEntry(r *reader) (StorageEntry, error) {
	var e StorageEntry
	var err error
	if e.Name, err = r.text(); err != nil {
		return e, err
	}

	modifier, err := r.byte()
	if err != nil {
		return e, err
	}
	if modifier > uint8(ModifierDefault) {
		return e, fmt.Errorf("invalid storage modifier %d", modifier)
	}
	e.Modifier = Modifier(modifier)

	kind, err := r.byte()
	if err != nil {
		return e, err
	}
	switch kind {
	case 0: // plain
		if e.Value, err = r.typeID(); err != nil {
			return e, err
		}
	case 1: // map
		count, err := r.count()
		if err != nil {
			return e, err
		}
		e.Hashers = make([]Hasher, 0, count)
		for i := 0; i < count; i++ {
			h, err := r.byte()
			if err != nil {
				return e, err
			}
			if h > uint8(HasherIdentity) {
				return e, fmt.Errorf("invalid storage hasher %d", h)
			}
			e.Hashers = append(e.Hashers, Hasher(h))
		}
		if e.key, err = r.typeID(); err != nil {
			return e, err
		}
		e.keySet = true
		if e.Value, err = r.typeID(); err != nil {
			return e, err
		}
	default:
		return e, fmt.Errorf("invalid storage entry type %d", kind)
	}

	if e.Default, err = r.bytes(); err != nil {
		return e, err
	}
	if e.Docs, err = r.texts(); err != nil {
		return e, fmt.Errorf("docs: %w", err)
	}
	return e, nil
}

func parseExtrinsic(r *reader, m *Metadata) error {
	var err error
	ext := &m.Extrinsic
	if m.Version == 14 {
		if ext.Type, err = r.typeID(); err != nil {
			return err
		}
		if ext.Version, err = r.byte(); err != nil {
			return err
		}
	} else {
		if ext.Version, err = r.byte(); err != nil {
			return err
		}
		if ext.Address, err = r.typeID(); err != nil {
			return err
		}
		if ext.Call, err = r.typeID(); err != nil {
			return err
		}
		if ext.Signature, err = r.typeID(); err != nil {
			return err
		}
		if ext.Extra, err = r.typeID(); err != nil {
			return err
		}
	}

	count, err := r.count()
	if err != nil {
		return err
	}
	ext.SignedExtensions = make([]SignedExtension, 0, count)
	for i := 0; i < count; i++ {
		var se SignedExtension
		if se.Identifier, err = r.text(); err != nil {
			return fmt.Errorf("signed extension %d: %w", i, err)
		}
		if se.Type, err = r.typeID(); err != nil {
			return fmt.Errorf("signed extension %s: %w", se.Identifier, err)
		}
		if se.AdditionalSigned, err = r.typeID(); err != nil {
			return fmt.Errorf("signed extension %s: %w", se.Identifier, err)
		}
		ext.SignedExtensions = append(ext.SignedExtensions, se)
	}
	return nil
}

func parseAPIs(r *reader, m *Metadata) error {
	count, err := r.count()
	if err != nil {
		return err
	}
	m.APIs = make([]RuntimeAPI, 0, count)
	for i := 0; i < count; i++ {
		var a RuntimeAPI
		if a.Name, err = r.text(); err != nil {
			return err
		}
		methods, err := r.count()
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
		a.Methods = make([]RuntimeAPIMethod, 0, methods)
		for j := 0; j < methods; j++ {
			var mm RuntimeAPIMethod
			if mm.Name, err = r.text(); err != nil {
				return fmt.Errorf("%s: %w", a.Name, err)
			}
			inputs, err := r.count()
			if err != nil {
				return fmt.Errorf("%s.%s: %w", a.Name, mm.Name, err)
			}
			mm.Inputs = make([]RuntimeAPIParam, 0, inputs)
			for k := 0; k < inputs; k++ {
				var in RuntimeAPIParam
				if in.Name, err = r.text(); err != nil {
					return fmt.Errorf("%s.%s: %w", a.Name, mm.Name, err)
				}
				if in.Type, err = r.typeID(); err != nil {
					return fmt.Errorf("%s.%s: %w", a.Name, mm.Name, err)
				}
				mm.Inputs = append(mm.Inputs, in)
			}
			if mm.Output, err = r.typeID(); err != nil {
				return fmt.Errorf("%s.%s: %w", a.Name, mm.Name, err)
			}
			if mm.Docs, err = r.texts(); err != nil {
				return fmt.Errorf("%s.%s: docs: %w", a.Name, mm.Name, err)
			}
			a.Methods = append(a.Methods, mm)
		}
		if a.Docs, err = r.texts(); err != nil {
			return fmt.Errorf("%s: docs: %w", a.Name, err)
		}
		m.APIs = append(m.APIs, a)
	}
	return nil
}

func parseOuterEnums(r *reader, m *Metadata) error {
	var err error
	if m.OuterEnums.Call, err = r.typeID(); err != nil {
		return err
	}
	if m.OuterEnums.Event, err = r.typeID(); err != nil {
		return err
	}
	if m.OuterEnums.Error, err = r.typeID(); err != nil {
		return err
	}
	return nil
}

func parseCustom(r *reader, m *Metadata) error {
	count, err := r.count()
	if err != nil {
		return err
	}
	m.Custom = make(map[string]CustomValue, count)
	for i := 0; i < count; i++ {
		key, err := r.text()
		if err != nil {
			return err
		}
		var cv CustomValue
		if cv.Type, err = r.typeID(); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if cv.Value, err = r.bytes(); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		m.Custom[key] = cv
	}
	return nil
}

// reader layers the handful of shapes metadata is built from over a raw
// cursor.
type reader struct {
	c *scale.Cursor
}

func (r *reader) byte() (byte, error) {
	return r.c.ReadByte()
}

func (r *reader) u32() (uint32, error) {
	return r.c.ReadU32()
}

// count reads a collection length. Every element of every collection in the
// format occupies at least one byte, so a count beyond the remaining input
// can only mean corruption.
func (r *reader) count() (int, error) {
	n, err := r.c.ReadCompact()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.c.Remaining()) {
		return 0, fmt.Errorf("length %d exceeds %d remaining bytes", n, r.c.Remaining())
	}
	return int(n), nil
}

func (r *reader) typeID() (registry.TypeID, error) {
	n, err := r.c.ReadCompact()
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("type id %d does not fit in u32", n)
	}
	return registry.TypeID(n), nil
}

func (r *reader) text() (string, error) {
	n, err := r.count()
	if err != nil {
		return "", err
	}
	b, err := r.c.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) texts() ([]string, error) {
	n, err := r.count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := r.text()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// bytes reads a length-prefixed byte vector as a window into the input.
func (r *reader) bytes() ([]byte, error) {
	n, err := r.count()
	if err != nil {
		return nil, err
	}
	return r.c.ReadBytes(n)
}

func (r *reader) option() (bool, error) {
	b, err := r.c.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid option byte %#x", b)
	}
}

func (r *reader) optionText() (string, bool, error) {
	ok, err := r.option()
	if err != nil || !ok {
		return "", false, err
	}
	s, err := r.text()
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func (r *reader) optionTypeID() (registry.TypeID, bool, error) {
	ok, err := r.option()
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := r.typeID()
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
