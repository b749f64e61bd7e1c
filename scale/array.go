package scale

import (
	"github.com/substratools/scalewire/registry"
)

// Array decodes a fixed number of same-typed items sitting back to back
// with no length prefix.
//
// Unlike Composite, a failed item still advances the array: the cursor is
// left wherever the failed decode stopped and the item is counted as
// visited. Callers wanting usable bytes after an error must not rely on it.
type Array struct {
	bytes     []byte
	itemBytes []byte
	item      registry.TypeID
	remaining uint64
	reg       *registry.Registry
}

func newArray(data []byte, item registry.TypeID, count uint64, reg *registry.Registry) *Array {
	return &Array{
		bytes:     data,
		itemBytes: data,
		item:      item,
		remaining: count,
		reg:       reg,
	}
}

// Remaining reports how many items have not been decoded yet.
func (a *Array) Remaining() int {
	return int(a.remaining)
}

// Done reports whether every item has been decoded.
func (a *Array) Done() bool {
	return a.remaining == 0
}

// DecodeItem decodes the next item through the visitor.
func (a *Array) DecodeItem(v Visitor) (any, error) {
	if a.Done() {
		return nil, errExhausted("items")
	}
	cur := NewCursor(a.itemBytes)
	val, err := decodeWithVisitor(cur, a.item, a.reg, v)
	a.itemBytes = cur.Bytes()
	a.remaining--
	return val, err
}

// SkipDecoding decodes and discards every remaining item.
func (a *Array) SkipDecoding() error {
	for !a.Done() {
		if _, err := a.DecodeItem(IgnoreVisitor{}); err != nil {
			return err
		}
	}
	return nil
}

// BytesFromStart returns the input window starting at the first item.
func (a *Array) BytesFromStart() []byte {
	return a.bytes
}

// BytesFromUndecoded returns the input window starting at the first
// undecoded item.
func (a *Array) BytesFromUndecoded() []byte {
	return a.itemBytes
}
