package events

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/substratools/scalewire/metadata"
	"github.com/substratools/scalewire/registry"
	"github.com/substratools/scalewire/scale"
	"github.com/substratools/scalewire/value"
)

// Topics are block hashes, 32 bytes each.
const hashLen = 32

// ErrNoEventType reports metadata that exposes no runtime event enum,
// leaving nothing to decode event records against.
var ErrNoEventType = errors.New("metadata carries no event type")

// PhaseKind says at which point of block execution an event fired.
type PhaseKind uint8

const (
	PhaseApplyExtrinsic PhaseKind = iota
	PhaseFinalization
	PhaseInitialization
)

// Phase locates an event within block execution. Extrinsic is the
// index of the dispatched extrinsic and is only meaningful when Kind
// is PhaseApplyExtrinsic.
type Phase struct {
	Kind      PhaseKind
	Extrinsic uint32
}

func (p Phase) String() string {
	switch p.Kind {
	case PhaseApplyExtrinsic:
		return "ApplyExtrinsic(" + strconv.FormatUint(uint64(p.Extrinsic), 10) + ")"
	case PhaseFinalization:
		return "Finalization"
	case PhaseInitialization:
		return "Initialization"
	default:
		return "Phase(" + strconv.Itoa(int(p.Kind)) + ")"
	}
}

// Event is one decoded record from the chain's event storage.
type Event struct {
	Phase        Phase
	Pallet       string
	PalletIndex  uint8
	Name         string
	VariantIndex uint8
	Fields       value.Composite
	Topics       [][]byte
}

// FullName renders the event as Pallet.Name, the form chains document
// events under.
func (e Event) FullName() string {
	return e.Pallet + "." + e.Name
}

// Reader decodes event storage values against one chain's metadata.
// It resolves the runtime event enum once at construction and may be
// reused across blocks.
type Reader struct {
	meta    *metadata.Metadata
	eventID registry.TypeID
}

// NewReader builds a Reader for the chain described by meta.
func NewReader(meta *metadata.Metadata) (*Reader, error) {
	id, ok := meta.EventVariantType()
	if !ok {
		return nil, ErrNoEventType
	}
	return &Reader{meta: meta, eventID: id}, nil
}

// Decode decodes a raw event storage value in one call. Callers
// decoding many blocks should hold a Reader instead.
func Decode(data []byte, meta *metadata.Metadata) ([]Event, error) {
	r, err := NewReader(meta)
	if err != nil {
		return nil, err
	}
	return r.Read(data)
}

// Read decodes the raw value of the chain's event storage entry, a
// length-prefixed run of event records, consuming all of data.
func (r *Reader) Read(data []byte) ([]Event, error) {
	c := scale.NewCursor(data)
	count, err := c.ReadCompact()
	if err != nil {
		return nil, fmt.Errorf("event count: %w", err)
	}
	if count > uint64(c.Remaining()) {
		return nil, fmt.Errorf("event count %d exceeds %d remaining bytes", count, c.Remaining())
	}

	evs := make([]Event, 0, count)
	rest := c.Bytes()
	for i := uint64(0); i < count; i++ {
		ev, tail, err := r.readRecord(rest)
		if err != nil {
			return nil, fmt.Errorf("event record %d: %w", i, err)
		}
		evs = append(evs, ev)
		rest = tail
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%d trailing bytes after %d event records", len(rest), count)
	}
	return evs, nil
}

// readRecord decodes one record from the front of data and returns the
// remainder: phase, then the runtime event enum, then topics.
func (r *Reader) readRecord(data []byte) (Event, []byte, error) {
	var ev Event
	c := scale.NewCursor(data)

	var err error
	if ev.Phase, err = readPhase(c); err != nil {
		return ev, nil, fmt.Errorf("phase: %w", err)
	}

	outer, rest, err := value.DecodeValue(c.Bytes(), r.eventID, r.meta.Types)
	if err != nil {
		return ev, nil, fmt.Errorf("event: %w", err)
	}
	if err := fillEvent(&ev, outer); err != nil {
		return ev, nil, err
	}

	c = scale.NewCursor(rest)
	tcount, err := c.ReadCompact()
	if err != nil {
		return ev, nil, fmt.Errorf("topics: %w", err)
	}
	if tcount > uint64(c.Remaining())/hashLen {
		return ev, nil, fmt.Errorf("topic count %d exceeds %d remaining bytes", tcount, c.Remaining())
	}
	if tcount > 0 {
		ev.Topics = make([][]byte, 0, tcount)
		for i := uint64(0); i < tcount; i++ {
			h, err := c.ReadBytes(hashLen)
			if err != nil {
				return ev, nil, fmt.Errorf("topic %d: %w", i, err)
			}
			ev.Topics = append(ev.Topics, h)
		}
	}
	return ev, c.Bytes(), nil
}

// fillEvent unpacks the two-level runtime event enum: the outer
// variant selects the pallet and wraps the pallet's own event variant
// as its single field.
func fillEvent(ev *Event, outer value.Value) error {
	pallet, ok := outer.Variant()
	if !ok {
		return fmt.Errorf("runtime event decoded to %s, not a variant", outer)
	}
	ev.Pallet = pallet.Name
	ev.PalletIndex = pallet.Index

	if n := pallet.Fields.Len(); n != 1 {
		return fmt.Errorf("pallet %s event envelope has %d fields, want 1", pallet.Name, n)
	}
	inner, ok := pallet.Fields.Values[0].Variant()
	if !ok {
		return fmt.Errorf("pallet %s event decoded to %s, not a variant", pallet.Name, pallet.Fields.Values[0])
	}
	ev.Name = inner.Name
	ev.VariantIndex = inner.Index
	ev.Fields = inner.Fields
	return nil
}

func readPhase(c *scale.Cursor) (Phase, error) {
	tag, err := c.ReadByte()
	if err != nil {
		return Phase{}, err
	}
	switch tag {
	case 0:
		n, err := c.ReadU32()
		if err != nil {
			return Phase{}, err
		}
		return Phase{Kind: PhaseApplyExtrinsic, Extrinsic: n}, nil
	case 1:
		return Phase{Kind: PhaseFinalization}, nil
	case 2:
		return Phase{Kind: PhaseInitialization}, nil
	default:
		return Phase{}, fmt.Errorf("unknown phase variant %d", tag)
	}
}
