package scale

import (
	"github.com/substratools/scalewire/registry"
)

// Sequence decodes a variable-length run of same-typed items: a compact item
// count followed by the items back to back.
type Sequence struct {
	bytes []byte
	inner *Array
}

func newSequence(data []byte, item registry.TypeID, reg *registry.Registry) (*Sequence, error) {
	cur := NewCursor(data)
	count, err := decodeCompactU64(cur)
	if err != nil {
		return nil, err
	}
	return &Sequence{
		bytes: data,
		inner: newArray(cur.Bytes(), item, count, reg),
	}, nil
}

// Remaining reports how many items have not been decoded yet.
func (s *Sequence) Remaining() int {
	return s.inner.Remaining()
}

// Done reports whether every item has been decoded.
func (s *Sequence) Done() bool {
	return s.inner.Done()
}

// DecodeItem decodes the next item through the visitor.
func (s *Sequence) DecodeItem(v Visitor) (any, error) {
	return s.inner.DecodeItem(v)
}

// SkipDecoding decodes and discards every remaining item.
func (s *Sequence) SkipDecoding() error {
	return s.inner.SkipDecoding()
}

// BytesFromStart returns the input window starting at the count prefix.
func (s *Sequence) BytesFromStart() []byte {
	return s.bytes
}

// BytesFromUndecoded returns the input window starting at the first
// undecoded item.
func (s *Sequence) BytesFromUndecoded() []byte {
	return s.inner.BytesFromUndecoded()
}
