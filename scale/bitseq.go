package scale

import (
	"encoding/binary"

	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
)

// BitStore is the unsigned integer width a bit sequence packs its bits into.
type BitStore uint8

const (
	StoreU8 BitStore = iota
	StoreU16
	StoreU32
	StoreU64
)

func (s BitStore) bits() uint64 {
	switch s {
	case StoreU8:
		return 8
	case StoreU16:
		return 16
	case StoreU32:
		return 32
	default:
		return 64
	}
}

// BitOrder is the direction bits fill each store word.
type BitOrder uint8

const (
	// OrderLsb0 fills words least-significant bit first.
	OrderLsb0 BitOrder = iota
	// OrderMsb0 fills words most-significant bit first.
	OrderMsb0
)

// BitFormat is the resolved store width and bit order of a bit sequence.
type BitFormat struct {
	Store BitStore
	Order BitOrder
}

// ResolveBitFormat resolves a bit sequence definition's store and order type
// ids into a concrete format. The store must be an unsigned integer of 8 to
// 64 bits and the order type's name must be Lsb0 or Msb0.
func ResolveBitFormat(def registry.BitSequenceDef, reg *registry.Registry) (BitFormat, error) {
	var f BitFormat

	storeTy, ok := reg.Resolve(def.Store)
	if !ok {
		return f, errors.TypeNotFound(uint32(def.Store))
	}
	prim, ok := storeTy.Def.(registry.PrimitiveDef)
	if !ok {
		return f, errors.StoreNotSupported(describeType(storeTy))
	}
	switch prim.Kind {
	case registry.U8:
		f.Store = StoreU8
	case registry.U16:
		f.Store = StoreU16
	case registry.U32:
		f.Store = StoreU32
	case registry.U64:
		f.Store = StoreU64
	default:
		return f, errors.StoreNotSupported(prim.Kind.String())
	}

	orderTy, ok := reg.Resolve(def.Order)
	if !ok {
		return f, errors.TypeNotFound(uint32(def.Order))
	}
	switch orderTy.Name() {
	case "Lsb0":
		f.Order = OrderLsb0
	case "Msb0":
		f.Order = OrderMsb0
	default:
		return f, errors.OrderNotSupported(describeType(orderTy))
	}

	return f, nil
}

// BitSequence is a packed bit vector found in the input: a compact bit count
// followed by enough little-endian store words to hold that many bits.
// Nothing is parsed until Decode or BytesAfter is called.
type BitSequence struct {
	format BitFormat
	bytes  []byte

	after []byte
	known bool
}

func newBitSequence(format BitFormat, data []byte) *BitSequence {
	return &BitSequence{format: format, bytes: data}
}

// Decode unpacks the bits into bools, most of the work a bit sequence ever
// does. The end-of-sequence position is remembered so a later BytesAfter is
// free.
func (b *BitSequence) Decode() ([]bool, error) {
	cur := NewCursor(b.bytes)
	nbits, err := decodeCompactU64(cur)
	if err != nil {
		return nil, err
	}
	store, err := b.readStore(cur, nbits)
	if err != nil {
		return nil, err
	}

	w := b.format.Store.bits()
	out := make([]bool, 0, nbits)
	for i := uint64(0); i < nbits; i++ {
		word := loadStoreWord(store, i/w, w)
		var bit uint64
		if b.format.Order == OrderLsb0 {
			bit = (word >> (i % w)) & 1
		} else {
			bit = (word >> (w - 1 - i%w)) & 1
		}
		out = append(out, bit == 1)
	}
	return out, nil
}

// BytesAfter returns the input remaining after the bit sequence, locating
// the boundary without unpacking any bits if Decode has not run.
func (b *BitSequence) BytesAfter() ([]byte, error) {
	if b.known {
		return b.after, nil
	}
	cur := NewCursor(b.bytes)
	nbits, err := decodeCompactU64(cur)
	if err != nil {
		return nil, err
	}
	if _, err := b.readStore(cur, nbits); err != nil {
		return nil, err
	}
	return b.after, nil
}

// readStore consumes the store words holding nbits bits and caches the
// boundary. The bit count is checked against the remaining input before any
// allocation so a corrupt count fails fast.
func (b *BitSequence) readStore(cur *Cursor, nbits uint64) ([]byte, error) {
	if nbits > uint64(cur.Remaining())*8 {
		return nil, errors.New(errors.KindNotEnoughInput).
			Detail("bit sequence wants %d bit(s), only %d byte(s) remain", nbits, cur.Remaining()).
			Build()
	}
	w := b.format.Store.bits()
	words := (nbits + w - 1) / w
	store, err := cur.ReadBytes(int(words * (w / 8)))
	if err != nil {
		return nil, err
	}
	b.after = cur.Bytes()
	b.known = true
	return store, nil
}

func loadStoreWord(store []byte, idx, width uint64) uint64 {
	base := idx * (width / 8)
	switch width {
	case 8:
		return uint64(store[base])
	case 16:
		return uint64(binary.LittleEndian.Uint16(store[base:]))
	case 32:
		return uint64(binary.LittleEndian.Uint32(store[base:]))
	default:
		return binary.LittleEndian.Uint64(store[base:])
	}
}
