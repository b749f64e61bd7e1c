package metadata

import (
	"github.com/substratools/scalewire/registry"
)

// Hasher identifies the hash a storage map applies to one key component.
// The constants match the wire encoding.
type Hasher uint8

const (
	HasherBlake2_128 Hasher = iota
	HasherBlake2_256
	HasherBlake2_128Concat
	HasherTwox128
	HasherTwox256
	HasherTwox64Concat
	HasherIdentity
)

var hasherNames = [...]string{
	HasherBlake2_128:       "blake2_128",
	HasherBlake2_256:       "blake2_256",
	HasherBlake2_128Concat: "blake2_128_concat",
	HasherTwox128:          "twox128",
	HasherTwox256:          "twox256",
	HasherTwox64Concat:     "twox64_concat",
	HasherIdentity:         "identity",
}

func (h Hasher) String() string {
	if int(h) < len(hasherNames) {
		return hasherNames[h]
	}
	return "unknown"
}

// Modifier says whether a storage entry always holds a value or may be
// absent.
type Modifier uint8

const (
	ModifierOptional Modifier = 0
	ModifierDefault  Modifier = 1
)

// StorageEntry describes one storage item of a pallet. Plain entries have no
// hashers; map entries carry one hasher per key component.
type StorageEntry struct {
	Name     string
	Modifier Modifier
	Hashers  []Hasher
	Value    registry.TypeID
	Default  []byte
	Docs     []string

	key    registry.TypeID
	keySet bool
}

// KeyType returns the type of the entry's key and whether the entry is a
// map. For maps over several keys the type is a tuple of the components.
func (e *StorageEntry) KeyType() (registry.TypeID, bool) {
	return e.key, e.keySet
}

// Constant is a pallet constant. Value holds the constant still in its
// encoded form; Type says how to decode it.
type Constant struct {
	Name  string
	Type  registry.TypeID
	Value []byte
	Docs  []string
}

// SignedExtension names one piece of extra data signed into extrinsics.
type SignedExtension struct {
	Identifier       string
	Type             registry.TypeID
	AdditionalSigned registry.TypeID
}

// Extrinsic describes the chain's extrinsic format. Type is filled by
// version 14 metadata; Address through Extra by version 15.
type Extrinsic struct {
	Version          uint8
	Type             registry.TypeID
	Address          registry.TypeID
	Call             registry.TypeID
	Signature        registry.TypeID
	Extra            registry.TypeID
	SignedExtensions []SignedExtension
}

// OuterEnums holds the runtime-wide call, event and error enum types.
// Only version 15 metadata names them.
type OuterEnums struct {
	Call  registry.TypeID
	Event registry.TypeID
	Error registry.TypeID
}

// RuntimeAPI describes one runtime API trait. Only version 15 metadata
// carries these.
type RuntimeAPI struct {
	Name    string
	Methods []RuntimeAPIMethod
	Docs    []string
}

// RuntimeAPIMethod is one callable method of a runtime API trait.
type RuntimeAPIMethod struct {
	Name   string
	Inputs []RuntimeAPIParam
	Output registry.TypeID
	Docs   []string
}

// RuntimeAPIParam is a named input of a runtime API method.
type RuntimeAPIParam struct {
	Name string
	Type registry.TypeID
}

// CustomValue is one entry of the version 15 custom metadata map, kept in
// encoded form.
type CustomValue struct {
	Type  registry.TypeID
	Value []byte
}

// Pallet is one runtime module: its storage layout, calls, events, errors
// and constants.
type Pallet struct {
	Name          string
	Index         uint8
	StoragePrefix string
	Entries       []StorageEntry
	Constants     []Constant
	Docs          []string

	callTy   registry.TypeID
	hasCall  bool
	eventTy  registry.TypeID
	hasEvent bool
	errorTy  registry.TypeID
	hasError bool

	entryByName map[string]int
	constByName map[string]int
}

// CallType returns the pallet's call enum type, if the pallet has
// dispatchable calls.
func (p *Pallet) CallType() (registry.TypeID, bool) {
	return p.callTy, p.hasCall
}

// EventType returns the pallet's event enum type, if the pallet emits
// events.
func (p *Pallet) EventType() (registry.TypeID, bool) {
	return p.eventTy, p.hasEvent
}

// ErrorType returns the pallet's error enum type, if the pallet declares
// errors.
func (p *Pallet) ErrorType() (registry.TypeID, bool) {
	return p.errorTy, p.hasError
}

// Entry looks up a storage entry by name.
func (p *Pallet) Entry(name string) (*StorageEntry, bool) {
	i, ok := p.entryByName[name]
	if !ok {
		return nil, false
	}
	return &p.Entries[i], true
}

// Constant looks up a pallet constant by name.
func (p *Pallet) Constant(name string) (*Constant, bool) {
	i, ok := p.constByName[name]
	if !ok {
		return nil, false
	}
	return &p.Constants[i], true
}

// Metadata is a decoded runtime metadata blob: the portable type registry
// plus everything the runtime publishes about its pallets and extrinsics.
// Metadata is immutable after Parse and safe for concurrent use.
type Metadata struct {
	Version     uint8
	Types       *registry.Registry
	Pallets     []Pallet
	Extrinsic   Extrinsic
	RuntimeType registry.TypeID

	// Version 15 only.
	APIs       []RuntimeAPI
	OuterEnums OuterEnums
	Custom     map[string]CustomValue

	byName  map[string]int
	byIndex map[uint8]int
}

// PalletByName looks up a pallet by name.
func (m *Metadata) PalletByName(name string) (*Pallet, bool) {
	i, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return &m.Pallets[i], true
}

// PalletByIndex looks up a pallet by its runtime index, the discriminant
// used for the pallet in outer enums.
func (m *Metadata) PalletByIndex(index uint8) (*Pallet, bool) {
	i, ok := m.byIndex[index]
	if !ok {
		return nil, false
	}
	return &m.Pallets[i], true
}

// StorageEntry looks up one storage entry under a pallet name.
func (m *Metadata) StorageEntry(pallet, entry string) (*StorageEntry, bool) {
	p, ok := m.PalletByName(pallet)
	if !ok {
		return nil, false
	}
	return p.Entry(entry)
}

// EventVariantType returns the runtime-wide event enum, the variant type
// whose cases are the pallets. Version 15 metadata names it directly; for
// version 14 it is recovered from the System.Events storage value.
func (m *Metadata) EventVariantType() (registry.TypeID, bool) {
	if m.Version >= 15 {
		return m.OuterEnums.Event, true
	}
	entry, ok := m.StorageEntry("System", "Events")
	if !ok {
		return 0, false
	}
	records, ok := m.Types.Resolve(entry.Value)
	if !ok {
		return 0, false
	}
	seq, ok := records.Def.(registry.SequenceDef)
	if !ok {
		return 0, false
	}
	record, ok := m.Types.Resolve(seq.Item)
	if !ok {
		return 0, false
	}
	comp, ok := record.Def.(registry.CompositeDef)
	if !ok {
		return 0, false
	}
	for _, f := range comp.Fields {
		if f.Name == "event" {
			return f.Type, true
		}
	}
	return 0, false
}

func (m *Metadata) buildLookups() {
	m.byName = make(map[string]int, len(m.Pallets))
	m.byIndex = make(map[uint8]int, len(m.Pallets))
	for i := range m.Pallets {
		p := &m.Pallets[i]
		p.entryByName = make(map[string]int, len(p.Entries))
		for j := range p.Entries {
			p.entryByName[p.Entries[j].Name] = j
		}
		p.constByName = make(map[string]int, len(p.Constants))
		for j := range p.Constants {
			p.constByName[p.Constants[j].Name] = j
		}
		m.byName[p.Name] = i
		m.byIndex[p.Index] = i
	}
}
