package scale

import (
	"math"
	"reflect"
	"strings"

	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
)

var (
	byteType      = reflect.TypeOf(byte(0))
	byteSliceType = reflect.TypeOf([]byte(nil))
	byte32Type    = reflect.TypeOf([32]byte{})
	uint128Type   = reflect.TypeOf(Uint128{})
	int128Type    = reflect.TypeOf(Int128{})
)

// DecodeInto decodes one value of the given type id from the front of data
// directly into dst, which must be a non-nil pointer. It returns the input
// remaining after the value.
//
// Composites fill structs by field name (`scale` tag, else case-insensitive
// field name; `scale:"-"` skips a field) or positionally when the wire
// fields are unnamed, and can also fill string-keyed maps. Sequences and
// arrays fill slices and arrays, variants named Some/None map onto pointers,
// and an `any` destination receives a plain Go rendering (map[string]any,
// []any, primitives). Numbers move into any integer destination they fit;
// a value that does not fit fails with NumberOutOfRange rather than being
// truncated. Byte-slice destinations alias the input buffer.
func DecodeInto(data []byte, id registry.TypeID, reg *registry.Registry, dst any) ([]byte, error) {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, errors.New(errors.KindCustom).
			Detail("destination must be a non-nil pointer, got %T", dst).
			Build()
	}
	cur := NewCursor(data)
	if _, err := decodeWithVisitor(cur, id, reg, &intoVisitor{dst: rv.Elem()}); err != nil {
		return nil, err
	}
	return cur.Bytes(), nil
}

// intoVisitor writes each visited value into one reflect destination.
// Children get their own intoVisitor aimed at the child destination.
type intoVisitor struct {
	dst reflect.Value
}

// itemIter is the shared surface of the structural decoders.
type itemIter interface {
	Done() bool
	Remaining() int
	DecodeItem(Visitor) (any, error)
	BytesFromUndecoded() []byte
}

// indirect allocates through nil pointers and returns the value to fill.
func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	return v
}

func errCannot(from string, dst reflect.Value) *errors.Error {
	return errors.New(errors.KindUnexpected).
		Detail("cannot decode %s into %s", from, dst.Type()).
		Build()
}

func (iv *intoVisitor) storeUint(v uint64, natural any, from string) error {
	dst := indirect(iv.dst)
	switch dst.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if dst.OverflowUint(v) {
			return errors.NumberOutOfRange(v, dst.Type().String())
		}
		dst.SetUint(v)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v > math.MaxInt64 || dst.OverflowInt(int64(v)) {
			return errors.NumberOutOfRange(v, dst.Type().String())
		}
		dst.SetInt(int64(v))
		return nil
	case reflect.Interface:
		if dst.NumMethod() == 0 {
			dst.Set(reflect.ValueOf(natural))
			return nil
		}
	case reflect.Struct:
		if dst.Type() == uint128Type {
			dst.Set(reflect.ValueOf(Uint128{Lo: v}))
			return nil
		}
	}
	return errCannot(from, dst)
}

func (iv *intoVisitor) storeInt(v int64, natural any, from string) error {
	dst := indirect(iv.dst)
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if dst.OverflowInt(v) {
			return errors.NumberOutOfRange(v, dst.Type().String())
		}
		dst.SetInt(v)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v < 0 || dst.OverflowUint(uint64(v)) {
			return errors.NumberOutOfRange(v, dst.Type().String())
		}
		dst.SetUint(uint64(v))
		return nil
	case reflect.Interface:
		if dst.NumMethod() == 0 {
			dst.Set(reflect.ValueOf(natural))
			return nil
		}
	case reflect.Struct:
		if dst.Type() == int128Type {
			i := Int128{Lo: uint64(v)}
			if v < 0 {
				i.Hi = -1
			}
			dst.Set(reflect.ValueOf(i))
			return nil
		}
	}
	return errCannot(from, dst)
}

func (iv *intoVisitor) VisitBool(v bool, _ registry.TypeID) (any, error) {
	dst := indirect(iv.dst)
	switch dst.Kind() {
	case reflect.Bool:
		dst.SetBool(v)
		return nil, nil
	case reflect.Interface:
		if dst.NumMethod() == 0 {
			dst.Set(reflect.ValueOf(v))
			return nil, nil
		}
	}
	return nil, errCannot("bool", dst)
}

func (iv *intoVisitor) VisitChar(v rune, _ registry.TypeID) (any, error) {
	return nil, iv.storeInt(int64(v), v, "char")
}

func (iv *intoVisitor) VisitStr(s *Str, _ registry.TypeID) (any, error) {
	dst := indirect(iv.dst)
	switch {
	case dst.Kind() == reflect.String:
		v, err := s.AsStr()
		if err != nil {
			return nil, err
		}
		dst.SetString(v)
		return nil, nil
	case dst.Type() == byteSliceType:
		dst.SetBytes(s.Bytes())
		return nil, nil
	case dst.Kind() == reflect.Interface && dst.NumMethod() == 0:
		v, err := s.AsStr()
		if err != nil {
			return nil, err
		}
		dst.Set(reflect.ValueOf(v))
		return nil, nil
	}
	return nil, errCannot("str", dst)
}

func (iv *intoVisitor) VisitU8(v uint8, _ registry.TypeID) (any, error) {
	return nil, iv.storeUint(uint64(v), v, "u8")
}

func (iv *intoVisitor) VisitU16(v uint16, _ registry.TypeID) (any, error) {
	return nil, iv.storeUint(uint64(v), v, "u16")
}

func (iv *intoVisitor) VisitU32(v uint32, _ registry.TypeID) (any, error) {
	return nil, iv.storeUint(uint64(v), v, "u32")
}

func (iv *intoVisitor) VisitU64(v uint64, _ registry.TypeID) (any, error) {
	return nil, iv.storeUint(v, v, "u64")
}

func (iv *intoVisitor) VisitU128(v Uint128, _ registry.TypeID) (any, error) {
	dst := indirect(iv.dst)
	if dst.Kind() == reflect.Struct && dst.Type() == uint128Type {
		dst.Set(reflect.ValueOf(v))
		return nil, nil
	}
	if dst.Kind() == reflect.Interface && dst.NumMethod() == 0 {
		dst.Set(reflect.ValueOf(v))
		return nil, nil
	}
	n, ok := v.Uint64()
	if !ok {
		return nil, errors.NumberOutOfRange(v, dst.Type().String())
	}
	return nil, iv.storeUint(n, n, "u128")
}

func (iv *intoVisitor) VisitU256(v *[32]byte, _ registry.TypeID) (any, error) {
	return nil, iv.store32Bytes(v, "u256")
}

func (iv *intoVisitor) VisitI8(v int8, _ registry.TypeID) (any, error) {
	return nil, iv.storeInt(int64(v), v, "i8")
}

func (iv *intoVisitor) VisitI16(v int16, _ registry.TypeID) (any, error) {
	return nil, iv.storeInt(int64(v), v, "i16")
}

func (iv *intoVisitor) VisitI32(v int32, _ registry.TypeID) (any, error) {
	return nil, iv.storeInt(int64(v), v, "i32")
}

func (iv *intoVisitor) VisitI64(v int64, _ registry.TypeID) (any, error) {
	return nil, iv.storeInt(v, v, "i64")
}

func (iv *intoVisitor) VisitI128(v Int128, _ registry.TypeID) (any, error) {
	dst := indirect(iv.dst)
	if dst.Kind() == reflect.Struct && dst.Type() == int128Type {
		dst.Set(reflect.ValueOf(v))
		return nil, nil
	}
	if dst.Kind() == reflect.Interface && dst.NumMethod() == 0 {
		dst.Set(reflect.ValueOf(v))
		return nil, nil
	}
	n, ok := v.Int64()
	if !ok {
		return nil, errors.NumberOutOfRange(v, dst.Type().String())
	}
	return nil, iv.storeInt(n, n, "i128")
}

func (iv *intoVisitor) VisitI256(v *[32]byte, _ registry.TypeID) (any, error) {
	return nil, iv.store32Bytes(v, "i256")
}

func (iv *intoVisitor) store32Bytes(v *[32]byte, from string) error {
	dst := indirect(iv.dst)
	switch {
	case dst.Type() == byte32Type:
		dst.Set(reflect.ValueOf(*v))
		return nil
	case dst.Kind() == reflect.Array && dst.Len() == 32 && dst.Type().Elem() == byteType:
		reflect.Copy(dst, reflect.ValueOf(v[:]))
		return nil
	case dst.Type() == byteSliceType:
		dst.SetBytes(v[:])
		return nil
	case dst.Kind() == reflect.Interface && dst.NumMethod() == 0:
		dst.Set(reflect.ValueOf(*v))
		return nil
	}
	return errCannot(from, dst)
}

func (iv *intoVisitor) VisitSequence(seq *Sequence, _ registry.TypeID) (any, error) {
	return nil, iv.fillItems(seq, "sequence")
}

func (iv *intoVisitor) VisitArray(arr *Array, _ registry.TypeID) (any, error) {
	return nil, iv.fillItems(arr, "array")
}

func (iv *intoVisitor) VisitTuple(tup *Tuple, _ registry.TypeID) (any, error) {
	dst := indirect(iv.dst)
	if dst.Kind() == reflect.Struct {
		return nil, fillStructPositional(tup, dst)
	}
	if tup.Remaining() == 1 && dst.Kind() != reflect.Slice && dst.Kind() != reflect.Array && dst.Kind() != reflect.Interface {
		_, err := tup.DecodeItem(iv)
		return nil, err
	}
	return nil, iv.fillItems(tup, "tuple")
}

func (iv *intoVisitor) VisitComposite(c *Composite, _ registry.TypeID) (any, error) {
	dst := indirect(iv.dst)
	switch dst.Kind() {
	case reflect.Struct:
		if dst.Type() == uint128Type || dst.Type() == int128Type {
			break
		}
		if c.Remaining() > 0 && !c.HasUnnamedFields() {
			return nil, fillStructNamed(c, dst)
		}
		return nil, fillStructPositional(c, dst)
	case reflect.Map:
		return nil, fillMap(c, dst)
	case reflect.Interface:
		if dst.NumMethod() == 0 {
			v, err := naturalComposite(c)
			if err != nil {
				return nil, err
			}
			dst.Set(reflect.ValueOf(v))
			return nil, nil
		}
		return nil, errCannot("composite", dst)
	}
	// Newtype wrappers are transparent: a single field decodes straight
	// into the destination.
	if c.Remaining() == 1 {
		_, err := c.DecodeItem(iv)
		return nil, err
	}
	return nil, errCannot("composite", dst)
}

func (iv *intoVisitor) VisitVariant(vr *Variant, id registry.TypeID) (any, error) {
	dst := iv.dst
	for dst.Kind() == reflect.Pointer {
		// Some/None map onto pointers: None is nil, Some decodes into the
		// pointee.
		if vr.Name() == "None" && vr.Fields().Remaining() == 0 {
			dst.Set(reflect.Zero(dst.Type()))
			return nil, nil
		}
		if vr.Name() == "Some" && vr.Fields().Remaining() == 1 {
			if dst.IsNil() {
				dst.Set(reflect.New(dst.Type().Elem()))
			}
			if _, err := vr.Fields().DecodeItem(&intoVisitor{dst: dst.Elem()}); err != nil {
				return nil, errors.At(err, errors.Variant("Some"))
			}
			return nil, nil
		}
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		dst = dst.Elem()
	}

	switch dst.Kind() {
	case reflect.Map:
		t := dst.Type()
		if t.Key().Kind() != reflect.String {
			return nil, errCannot("variant "+vr.Name(), dst)
		}
		elem := reflect.New(t.Elem()).Elem()
		if _, err := (&intoVisitor{dst: elem}).VisitComposite(vr.Fields(), id); err != nil {
			return nil, errors.At(err, errors.Variant(vr.Name()))
		}
		m := reflect.MakeMapWithSize(t, 1)
		m.SetMapIndex(reflect.ValueOf(vr.Name()).Convert(t.Key()), elem)
		dst.Set(m)
		return nil, nil
	case reflect.Interface:
		if dst.NumMethod() == 0 {
			var payload any
			if vr.Fields().Remaining() > 0 {
				v, err := naturalComposite(vr.Fields())
				if err != nil {
					return nil, errors.At(err, errors.Variant(vr.Name()))
				}
				payload = v
			}
			dst.Set(reflect.ValueOf(map[string]any{vr.Name(): payload}))
			return nil, nil
		}
	}
	return nil, errCannot("variant "+vr.Name(), dst)
}

func (iv *intoVisitor) VisitBitSequence(bits *BitSequence, _ registry.TypeID) (any, error) {
	dst := indirect(iv.dst)
	bools, err := bits.Decode()
	if err != nil {
		return nil, err
	}
	switch {
	case dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Bool:
		out := reflect.MakeSlice(dst.Type(), len(bools), len(bools))
		for i, b := range bools {
			out.Index(i).SetBool(b)
		}
		dst.Set(out)
		return nil, nil
	case dst.Kind() == reflect.Interface && dst.NumMethod() == 0:
		dst.Set(reflect.ValueOf(bools))
		return nil, nil
	}
	return nil, errCannot("bitsequence", dst)
}

func (iv *intoVisitor) VisitCompactU8(c Compact[uint8], _ registry.TypeID) (any, error) {
	v := c.Value()
	if err := iv.storeUint(uint64(v), v, "compact u8"); err != nil {
		return nil, attachCompactLocations(err, c.Locations())
	}
	return nil, nil
}

func (iv *intoVisitor) VisitCompactU16(c Compact[uint16], _ registry.TypeID) (any, error) {
	v := c.Value()
	if err := iv.storeUint(uint64(v), v, "compact u16"); err != nil {
		return nil, attachCompactLocations(err, c.Locations())
	}
	return nil, nil
}

func (iv *intoVisitor) VisitCompactU32(c Compact[uint32], _ registry.TypeID) (any, error) {
	v := c.Value()
	if err := iv.storeUint(uint64(v), v, "compact u32"); err != nil {
		return nil, attachCompactLocations(err, c.Locations())
	}
	return nil, nil
}

func (iv *intoVisitor) VisitCompactU64(c Compact[uint64], _ registry.TypeID) (any, error) {
	v := c.Value()
	if err := iv.storeUint(v, v, "compact u64"); err != nil {
		return nil, attachCompactLocations(err, c.Locations())
	}
	return nil, nil
}

func (iv *intoVisitor) VisitCompactU128(c Compact[Uint128], id registry.TypeID) (any, error) {
	if _, err := iv.VisitU128(c.Value(), id); err != nil {
		return nil, attachCompactLocations(err, c.Locations())
	}
	return nil, nil
}

// attachCompactLocations names the newtype wrappers a compact value sat
// inside when reporting that it does not fit the destination.
func attachCompactLocations(err error, locs []CompactLocation) error {
	e := errors.From(err)
	for i := len(locs) - 1; i >= 0; i-- {
		if name, ok := locs[i].FieldName(); ok {
			e = e.AtField(name)
		}
	}
	return e
}

// fillItems decodes a homogeneous run of items into a slice, array, or any
// destination.
func (iv *intoVisitor) fillItems(items itemIter, shape string) error {
	dst := indirect(iv.dst)
	switch dst.Kind() {
	case reflect.Slice:
		// A corrupt count cannot force a large allocation: capacity is
		// bounded by the input actually present.
		capHint := items.Remaining()
		if b := len(items.BytesFromUndecoded()); capHint > b {
			capHint = b
		}
		out := reflect.MakeSlice(dst.Type(), 0, capHint)
		for i := 0; !items.Done(); i++ {
			elem := reflect.New(dst.Type().Elem()).Elem()
			if _, err := items.DecodeItem(&intoVisitor{dst: elem}); err != nil {
				return errors.At(err, errors.Index(i))
			}
			out = reflect.Append(out, elem)
		}
		dst.Set(out)
		return nil
	case reflect.Array:
		if items.Remaining() != dst.Len() {
			return errors.WrongLength(items.Remaining(), dst.Len())
		}
		for i := 0; !items.Done(); i++ {
			if _, err := items.DecodeItem(&intoVisitor{dst: dst.Index(i)}); err != nil {
				return errors.At(err, errors.Index(i))
			}
		}
		return nil
	case reflect.Interface:
		if dst.NumMethod() == 0 {
			v, err := naturalItems(items)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(v))
			return nil
		}
	}
	return errCannot(shape, dst)
}

func fillStructNamed(c *Composite, dst reflect.Value) error {
	fields := targetFields(dst.Type())
	filled := make([]bool, len(fields))
	for !c.Done() {
		name, _ := c.PeekName()
		target := -1
		for j, f := range fields {
			if !filled[j] && strings.EqualFold(f.name, name) {
				target = j
				break
			}
		}
		if target < 0 {
			if _, err := c.DecodeItem(IgnoreVisitor{}); err != nil {
				return errors.At(err, errors.Field(name))
			}
			continue
		}
		if _, err := c.DecodeItem(&intoVisitor{dst: dst.Field(fields[target].idx)}); err != nil {
			return errors.At(err, errors.Field(name))
		}
		filled[target] = true
	}
	for j, f := range fields {
		if !filled[j] {
			return errors.FieldNotFound(f.name)
		}
	}
	return nil
}

func fillStructPositional(items itemIter, dst reflect.Value) error {
	fields := targetFields(dst.Type())
	if items.Remaining() != len(fields) {
		return errors.WrongLength(items.Remaining(), len(fields))
	}
	for i := 0; !items.Done(); i++ {
		if _, err := items.DecodeItem(&intoVisitor{dst: dst.Field(fields[i].idx)}); err != nil {
			return errors.At(err, errors.Index(i))
		}
	}
	return nil
}

func fillMap(c *Composite, dst reflect.Value) error {
	t := dst.Type()
	if t.Key().Kind() != reflect.String {
		return errCannot("composite", dst)
	}
	if c.HasUnnamedFields() {
		return errCannot("unnamed composite", dst)
	}
	m := reflect.MakeMapWithSize(t, c.Remaining())
	for !c.Done() {
		name, _ := c.PeekName()
		elem := reflect.New(t.Elem()).Elem()
		if _, err := c.DecodeItem(&intoVisitor{dst: elem}); err != nil {
			return errors.At(err, errors.Field(name))
		}
		m.SetMapIndex(reflect.ValueOf(name).Convert(t.Key()), elem)
	}
	dst.Set(m)
	return nil
}

// naturalComposite renders a composite as plain Go data: map[string]any when
// every field is named, []any otherwise.
func naturalComposite(c *Composite) (any, error) {
	if c.Remaining() > 0 && !c.HasUnnamedFields() {
		out := make(map[string]any, c.Remaining())
		for !c.Done() {
			name, _ := c.PeekName()
			var v any
			if _, err := c.DecodeItem(&intoVisitor{dst: reflect.ValueOf(&v).Elem()}); err != nil {
				return nil, errors.At(err, errors.Field(name))
			}
			out[name] = v
		}
		return out, nil
	}
	return naturalItems(c)
}

func naturalItems(items itemIter) (any, error) {
	capHint := items.Remaining()
	if b := len(items.BytesFromUndecoded()); capHint > b {
		capHint = b
	}
	out := make([]any, 0, capHint)
	for i := 0; !items.Done(); i++ {
		var v any
		if _, err := items.DecodeItem(&intoVisitor{dst: reflect.ValueOf(&v).Elem()}); err != nil {
			return nil, errors.At(err, errors.Index(i))
		}
		out = append(out, v)
	}
	return out, nil
}

// targetField is one settable struct field and the wire name it answers to.
type targetField struct {
	idx  int
	name string
}

func targetFields(t reflect.Type) []targetField {
	var out []targetField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("scale"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		out = append(out, targetField{idx: i, name: name})
	}
	return out
}
