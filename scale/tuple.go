package scale

import (
	"github.com/substratools/scalewire/registry"
)

// Tuple decodes the items of a fixed run of heterogeneous types, back to
// back with no framing. It behaves like a Composite whose fields have no
// names.
type Tuple struct {
	bytes     []byte
	itemBytes []byte
	items     []registry.TypeID
	next      int
	reg       *registry.Registry
}

func newTuple(data []byte, items []registry.TypeID, reg *registry.Registry) *Tuple {
	return &Tuple{
		bytes:     data,
		itemBytes: data,
		items:     items,
		reg:       reg,
	}
}

// Remaining reports how many items have not been decoded yet.
func (t *Tuple) Remaining() int {
	return len(t.items) - t.next
}

// Done reports whether every item has been decoded.
func (t *Tuple) Done() bool {
	return t.next >= len(t.items)
}

// DecodeItem decodes the next item through the visitor. The item is consumed
// only on success; an error exhausts the tuple.
func (t *Tuple) DecodeItem(v Visitor) (any, error) {
	if t.Done() {
		return nil, errExhausted("items")
	}
	id := t.items[t.next]
	cur := NewCursor(t.itemBytes)
	val, err := decodeWithVisitor(cur, id, t.reg, v)
	if err != nil {
		t.next = len(t.items)
		return nil, err
	}
	t.itemBytes = cur.Bytes()
	t.next++
	return val, nil
}

// SkipDecoding decodes and discards every remaining item.
func (t *Tuple) SkipDecoding() error {
	for !t.Done() {
		if _, err := t.DecodeItem(IgnoreVisitor{}); err != nil {
			return err
		}
	}
	return nil
}

// BytesFromStart returns the input window starting at the first item.
func (t *Tuple) BytesFromStart() []byte {
	return t.bytes
}

// BytesFromUndecoded returns the input window starting at the first
// undecoded item.
func (t *Tuple) BytesFromUndecoded() []byte {
	return t.itemBytes
}
