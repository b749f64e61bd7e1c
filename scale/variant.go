package scale

import (
	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
)

// Variant is one decoded case of an enum: the discriminant byte has been
// read and matched against the declared variants, and the selected case's
// fields are exposed as a Composite.
type Variant struct {
	bytes  []byte
	name   string
	index  uint8
	fields *Composite
}

func newVariant(data []byte, ty registry.Type, def registry.VariantDef, reg *registry.Registry) (*Variant, error) {
	if len(data) == 0 {
		return nil, errors.NotEnoughInput(1, 0)
	}
	disc := data[0]
	vc, ok := def.FindVariant(disc)
	if !ok {
		return nil, errors.VariantNotFound(disc, describeType(ty))
	}
	return &Variant{
		bytes:  data,
		name:   vc.Name,
		index:  disc,
		fields: newComposite(data[1:], ty.Path, vc.Fields, reg),
	}, nil
}

// Name returns the selected variant's name.
func (v *Variant) Name() string {
	return v.name
}

// Index returns the discriminant byte that selected the variant.
func (v *Variant) Index() uint8 {
	return v.index
}

// Fields returns the variant's fields for decoding.
func (v *Variant) Fields() *Composite {
	return v.fields
}

// SkipDecoding decodes and discards every remaining field.
func (v *Variant) SkipDecoding() error {
	return v.fields.SkipDecoding()
}

// BytesFromStart returns the input window starting at the discriminant byte.
func (v *Variant) BytesFromStart() []byte {
	return v.bytes
}

// BytesFromUndecoded returns the input window starting at the first
// undecoded field.
func (v *Variant) BytesFromUndecoded() []byte {
	return v.fields.BytesFromUndecoded()
}
