package scale

import (
	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
)

// Composite decodes the fields of a struct-like value one at a time. Fields
// sit back to back in declared order with no framing, so a field's bytes are
// only known once everything before it has been decoded.
//
// DecodeItem hands the next field to the visitor and advances past it on
// success. A field that fails to decode exhausts the composite; the bytes
// consumed by a partly-decoded value are not recoverable.
type Composite struct {
	bytes     []byte
	itemBytes []byte
	path      []string
	fields    []registry.Field
	next      int
	reg       *registry.Registry
}

func newComposite(data []byte, path []string, fields []registry.Field, reg *registry.Registry) *Composite {
	return &Composite{
		bytes:     data,
		itemBytes: data,
		path:      path,
		fields:    fields,
		reg:       reg,
	}
}

// Path returns the type's namespaced path, empty for anonymous composites.
func (c *Composite) Path() []string {
	return c.path
}

// Name returns the last segment of the type's path, or "".
func (c *Composite) Name() string {
	if len(c.path) == 0 {
		return ""
	}
	return c.path[len(c.path)-1]
}

// Remaining reports how many fields have not been decoded yet.
func (c *Composite) Remaining() int {
	return len(c.fields) - c.next
}

// Done reports whether every field has been decoded.
func (c *Composite) Done() bool {
	return c.next >= len(c.fields)
}

// PeekName returns the name of the next undecoded field. ok is false when no
// fields remain or the next field is positional.
func (c *Composite) PeekName() (name string, ok bool) {
	if c.Done() {
		return "", false
	}
	f := c.fields[c.next]
	return f.Name, f.Named()
}

// HasUnnamedFields reports whether any of the remaining fields is
// positional. Composites mixing named and unnamed fields are treated as
// positional by value builders.
func (c *Composite) HasUnnamedFields() bool {
	for _, f := range c.fields[c.next:] {
		if !f.Named() {
			return true
		}
	}
	return false
}

// Fields returns the remaining undecoded fields.
func (c *Composite) Fields() []registry.Field {
	return c.fields[c.next:]
}

// AsTuple reinterprets the remaining fields as an unnamed tuple over the
// undecoded bytes.
func (c *Composite) AsTuple() *Tuple {
	items := make([]registry.TypeID, 0, c.Remaining())
	for _, f := range c.fields[c.next:] {
		items = append(items, f.Type)
	}
	return newTuple(c.itemBytes, items, c.reg)
}

// DecodeItem decodes the next field through the visitor. The field is
// consumed only on success; an error exhausts the composite.
func (c *Composite) DecodeItem(v Visitor) (any, error) {
	if c.Done() {
		return nil, errExhausted("fields")
	}
	f := c.fields[c.next]
	cur := NewCursor(c.itemBytes)
	val, err := decodeWithVisitor(cur, f.Type, c.reg, v)
	if err != nil {
		c.next = len(c.fields)
		return nil, err
	}
	c.itemBytes = cur.Bytes()
	c.next++
	return val, nil
}

// SkipDecoding decodes and discards every remaining field, leaving the
// composite positioned at its end.
func (c *Composite) SkipDecoding() error {
	for !c.Done() {
		if _, err := c.DecodeItem(IgnoreVisitor{}); err != nil {
			return err
		}
	}
	return nil
}

// BytesFromStart returns the input window starting at the first field.
func (c *Composite) BytesFromStart() []byte {
	return c.bytes
}

// BytesFromUndecoded returns the input window starting at the first
// undecoded field.
func (c *Composite) BytesFromUndecoded() []byte {
	return c.itemBytes
}

func errExhausted(what string) *errors.Error {
	return errors.New(errors.KindCustom).Detail("no %s left to decode", what).Build()
}
