package metadata

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/substratools/scalewire/registry"
)

// metaBuilder assembles metadata fixtures byte by byte.
type metaBuilder struct {
	b []byte
}

func (m *metaBuilder) raw(v ...byte) {
	m.b = append(m.b, v...)
}

func (m *metaBuilder) u32(v uint32) {
	m.raw(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (m *metaBuilder) compact(v uint64) {
	switch {
	case v < 64:
		m.raw(byte(v << 2))
	case v < 16384:
		m.raw(byte(v<<2)|0x01, byte(v>>6))
	default:
		m.raw(byte(v<<2)|0x02, byte(v>>6), byte(v>>14), byte(v>>22))
	}
}

func (m *metaBuilder) text(s string) {
	m.compact(uint64(len(s)))
	m.raw([]byte(s)...)
}

func (m *metaBuilder) texts(ss ...string) {
	m.compact(uint64(len(ss)))
	for _, s := range ss {
		m.text(s)
	}
}

func (m *metaBuilder) byteVec(v []byte) {
	m.compact(uint64(len(v)))
	m.raw(v...)
}

func (m *metaBuilder) option(present bool) {
	if present {
		m.raw(1)
	} else {
		m.raw(0)
	}
}

func (m *metaBuilder) field(name string, ty uint64, typeName string) {
	m.option(name != "")
	if name != "" {
		m.text(name)
	}
	m.compact(ty)
	m.option(typeName != "")
	if typeName != "" {
		m.text(typeName)
	}
	m.texts()
}

func (m *metaBuilder) typeHeader(id uint64, path ...string) {
	m.compact(id)
	m.texts(path...)
	m.compact(0)
}

// Fixture type ids.
const (
	tU32 = iota
	tU8
	tAccountData
	tSystemEvent
	tRuntimeEvent
	tPhase
	tHash
	tHashBytes
	tTopics
	tEventRecord
	tEventRecords
	typeCount
)

func writeFixtureTypes(m *metaBuilder) {
	m.compact(typeCount)

	m.typeHeader(tU32)
	m.raw(5, 5)
	m.texts()

	m.typeHeader(tU8)
	m.raw(5, 3)
	m.texts()

	m.typeHeader(tAccountData, "pallet_balances", "AccountData")
	m.raw(0)
	m.compact(1)
	m.field("free", tU32, "Balance")
	m.texts()

	m.typeHeader(tSystemEvent, "frame_system", "pallet", "Event")
	m.raw(1)
	m.compact(2)
	m.text("ExtrinsicSuccess")
	m.compact(0)
	m.raw(0)
	m.texts()
	m.text("Remarked")
	m.compact(1)
	m.field("", tU32, "")
	m.raw(2)
	m.texts()
	m.texts()

	m.typeHeader(tRuntimeEvent, "kitchensink_runtime", "RuntimeEvent")
	m.raw(1)
	m.compact(1)
	m.text("System")
	m.compact(1)
	m.field("", tSystemEvent, "")
	m.raw(0)
	m.texts()
	m.texts()

	m.typeHeader(tPhase, "frame_system", "Phase")
	m.raw(1)
	m.compact(3)
	m.text("ApplyExtrinsic")
	m.compact(1)
	m.field("", tU32, "")
	m.raw(0)
	m.texts()
	m.text("Finalization")
	m.compact(0)
	m.raw(1)
	m.texts()
	m.text("Initialization")
	m.compact(0)
	m.raw(2)
	m.texts()
	m.texts()

	m.typeHeader(tHash, "primitive_types", "H256")
	m.raw(0)
	m.compact(1)
	m.field("", tHashBytes, "")
	m.texts()

	m.typeHeader(tHashBytes)
	m.raw(3)
	m.u32(32)
	m.compact(tU8)
	m.texts()

	m.typeHeader(tTopics)
	m.raw(2)
	m.compact(tHash)
	m.texts()

	m.typeHeader(tEventRecord, "frame_system", "EventRecord")
	m.raw(0)
	m.compact(3)
	m.field("phase", tPhase, "")
	m.field("event", tRuntimeEvent, "")
	m.field("topics", tTopics, "")
	m.texts()

	m.typeHeader(tEventRecords)
	m.raw(2)
	m.compact(tEventRecord)
	m.texts()
}

func writeFixturePallets(m *metaBuilder, version byte) {
	m.compact(2)

	m.text("System")
	m.option(true)
	m.text("System")
	m.compact(2)
	m.text("Account")
	m.raw(1) // default modifier
	m.raw(1) // map
	m.compact(1)
	m.raw(2) // blake2_128_concat
	m.compact(tU32)
	m.compact(tAccountData)
	m.byteVec([]byte{0, 0, 0, 0})
	m.texts("The full account information for a particular account ID.")
	m.text("Events")
	m.raw(0) // optional modifier
	m.raw(0) // plain
	m.compact(tEventRecords)
	m.byteVec([]byte{0})
	m.texts()
	m.option(false) // no calls
	m.option(true)
	m.compact(tSystemEvent)
	m.compact(1)
	m.text("BlockHashCount")
	m.compact(tU32)
	m.byteVec([]byte{0x60, 0, 0, 0})
	m.texts("Maximum number of block number to block hash mappings to keep.")
	m.option(false) // no error
	m.raw(0)
	if version >= 15 {
		m.texts("The System pallet.")
	}

	m.text("Balances")
	m.option(false)
	m.option(false)
	m.option(false)
	m.compact(0)
	m.option(false)
	m.raw(4)
	if version >= 15 {
		m.texts()
	}
}

func writeFixtureExtrinsic(m *metaBuilder, version byte) {
	if version == 14 {
		m.compact(tU32)
		m.raw(4)
	} else {
		m.raw(4)
		m.compact(tU32)          // address
		m.compact(tRuntimeEvent) // call
		m.compact(tHash)         // signature
		m.compact(tU8)           // extra
	}
	m.compact(1)
	m.text("CheckNonce")
	m.compact(tU32)
	m.compact(tU32)
}

func buildMeta(version byte) []byte {
	m := &metaBuilder{}
	m.u32(Magic)
	m.raw(version)
	writeFixtureTypes(m)
	writeFixturePallets(m, version)
	writeFixtureExtrinsic(m, version)
	m.compact(tRuntimeEvent) // runtime type
	if version >= 15 {
		m.compact(1)
		m.text("Metadata")
		m.compact(1)
		m.text("metadata")
		m.compact(0)
		m.compact(tU32)
		m.texts("Returns the metadata of a runtime.")
		m.texts()
		m.compact(tRuntimeEvent) // outer call enum
		m.compact(tRuntimeEvent) // outer event enum
		m.compact(tRuntimeEvent) // outer error enum
		m.compact(1)
		m.text("genesis_format")
		m.compact(tU32)
		m.byteVec([]byte{1, 2, 3})
	}
	return m.b
}

func TestParseV14(t *testing.T) {
	meta, err := Parse(buildMeta(14))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if meta.Version != 14 {
		t.Fatalf("Version = %d, want 14", meta.Version)
	}
	if meta.Types.Len() != typeCount {
		t.Fatalf("Types.Len() = %d, want %d", meta.Types.Len(), typeCount)
	}

	account, ok := meta.Types.Resolve(tAccountData)
	if !ok {
		t.Fatal("AccountData type missing from registry")
	}
	if account.Name() != "AccountData" {
		t.Errorf("Name() = %q, want AccountData", account.Name())
	}
	if account.PathString() != "pallet_balances::AccountData" {
		t.Errorf("PathString() = %q", account.PathString())
	}
	comp, ok := account.Def.(registry.CompositeDef)
	if !ok {
		t.Fatalf("AccountData def = %T, want CompositeDef", account.Def)
	}
	want := []registry.Field{{Name: "free", Type: tU32, TypeName: "Balance"}}
	if !reflect.DeepEqual(comp.Fields, want) {
		t.Errorf("fields = %+v, want %+v", comp.Fields, want)
	}

	arr, ok := meta.Types.Resolve(tHashBytes)
	if !ok {
		t.Fatal("hash bytes type missing")
	}
	if def, ok := arr.Def.(registry.ArrayDef); !ok || def.Len != 32 || def.Item != tU8 {
		t.Errorf("array def = %+v", arr.Def)
	}

	events, ok := meta.Types.Resolve(tSystemEvent)
	if !ok {
		t.Fatal("event type missing")
	}
	vdef, ok := events.Def.(registry.VariantDef)
	if !ok {
		t.Fatalf("event def = %T", events.Def)
	}
	if len(vdef.Variants) != 2 {
		t.Fatalf("event variants = %d, want 2", len(vdef.Variants))
	}
	if v, ok := vdef.FindVariant(2); !ok || v.Name != "Remarked" {
		t.Errorf("FindVariant(2) = %+v, %v", v, ok)
	}

	system, ok := meta.PalletByName("System")
	if !ok {
		t.Fatal("System pallet missing")
	}
	if system.Index != 0 || system.StoragePrefix != "System" {
		t.Errorf("System = index %d prefix %q", system.Index, system.StoragePrefix)
	}
	if id, ok := system.EventType(); !ok || id != tSystemEvent {
		t.Errorf("EventType() = %d, %v", id, ok)
	}
	if _, ok := system.CallType(); ok {
		t.Error("CallType() should be absent")
	}

	accountEntry, ok := system.Entry("Account")
	if !ok {
		t.Fatal("Account entry missing")
	}
	if accountEntry.Modifier != ModifierDefault {
		t.Errorf("modifier = %d", accountEntry.Modifier)
	}
	if !reflect.DeepEqual(accountEntry.Hashers, []Hasher{HasherBlake2_128Concat}) {
		t.Errorf("hashers = %v", accountEntry.Hashers)
	}
	if key, ok := accountEntry.KeyType(); !ok || key != tU32 {
		t.Errorf("KeyType() = %d, %v", key, ok)
	}
	if accountEntry.Value != tAccountData {
		t.Errorf("value = %d", accountEntry.Value)
	}
	if !reflect.DeepEqual(accountEntry.Default, []byte{0, 0, 0, 0}) {
		t.Errorf("default = %v", accountEntry.Default)
	}

	eventsEntry, ok := meta.StorageEntry("System", "Events")
	if !ok {
		t.Fatal("Events entry missing")
	}
	if _, ok := eventsEntry.KeyType(); ok {
		t.Error("plain entry reports a key type")
	}
	if eventsEntry.Modifier != ModifierOptional {
		t.Errorf("modifier = %d", eventsEntry.Modifier)
	}

	if _, ok := meta.StorageEntry("System", "Nope"); ok {
		t.Error("lookup of missing entry succeeded")
	}
	if _, ok := meta.StorageEntry("Nope", "Events"); ok {
		t.Error("lookup under missing pallet succeeded")
	}

	balances, ok := meta.PalletByIndex(4)
	if !ok || balances.Name != "Balances" {
		t.Fatalf("PalletByIndex(4) = %+v, %v", balances, ok)
	}
	if _, ok := meta.PalletByIndex(9); ok {
		t.Error("PalletByIndex(9) should miss")
	}

	c, ok := system.Constant("BlockHashCount")
	if !ok {
		t.Fatal("BlockHashCount missing")
	}
	if c.Type != tU32 || !reflect.DeepEqual(c.Value, []byte{0x60, 0, 0, 0}) {
		t.Errorf("constant = %+v", c)
	}

	ext := meta.Extrinsic
	if ext.Version != 4 || ext.Type != tU32 {
		t.Errorf("extrinsic = %+v", ext)
	}
	if len(ext.SignedExtensions) != 1 || ext.SignedExtensions[0].Identifier != "CheckNonce" {
		t.Errorf("signed extensions = %+v", ext.SignedExtensions)
	}
	if meta.RuntimeType != tRuntimeEvent {
		t.Errorf("RuntimeType = %d", meta.RuntimeType)
	}

	// Version 14 has no outer enums; the event enum comes from peeling the
	// System.Events storage value.
	if id, ok := meta.EventVariantType(); !ok || id != tRuntimeEvent {
		t.Errorf("EventVariantType() = %d, %v, want %d", id, ok, tRuntimeEvent)
	}
}

func TestParseV15(t *testing.T) {
	meta, err := Parse(buildMeta(15))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if meta.Version != 15 {
		t.Fatalf("Version = %d, want 15", meta.Version)
	}

	system, ok := meta.PalletByName("System")
	if !ok {
		t.Fatal("System pallet missing")
	}
	if len(system.Docs) != 1 || system.Docs[0] != "The System pallet." {
		t.Errorf("docs = %v", system.Docs)
	}

	ext := meta.Extrinsic
	if ext.Version != 4 {
		t.Errorf("extrinsic version = %d", ext.Version)
	}
	if ext.Address != tU32 || ext.Call != tRuntimeEvent || ext.Signature != tHash || ext.Extra != tU8 {
		t.Errorf("extrinsic types = %+v", ext)
	}

	if len(meta.APIs) != 1 || meta.APIs[0].Name != "Metadata" {
		t.Fatalf("APIs = %+v", meta.APIs)
	}
	method := meta.APIs[0].Methods[0]
	if method.Name != "metadata" || method.Output != tU32 || len(method.Inputs) != 0 {
		t.Errorf("method = %+v", method)
	}

	if meta.OuterEnums.Event != tRuntimeEvent {
		t.Errorf("outer event enum = %d", meta.OuterEnums.Event)
	}
	if id, ok := meta.EventVariantType(); !ok || id != tRuntimeEvent {
		t.Errorf("EventVariantType() = %d, %v", id, ok)
	}

	cv, ok := meta.Custom["genesis_format"]
	if !ok {
		t.Fatal("custom value missing")
	}
	if cv.Type != tU32 || !reflect.DeepEqual(cv.Value, []byte{1, 2, 3}) {
		t.Errorf("custom = %+v", cv)
	}
}

func TestParseErrors(t *testing.T) {
	valid := buildMeta(14)

	badMagic := make([]byte, len(valid))
	copy(badMagic, valid)
	badMagic[0] = 'x'

	badVersion := make([]byte, len(valid))
	copy(badVersion, valid)
	badVersion[4] = 13

	truncated := valid[:len(valid)/2]
	trailing := append(append([]byte{}, valid...), 0xEE)

	tests := []struct {
		name     string
		in       []byte
		sentinel error
		detail   string
	}{
		{"empty", nil, nil, "header"},
		{"bad magic", badMagic, ErrInvalidMagic, "magic"},
		{"unsupported version", badVersion, ErrUnsupportedVersion, "13"},
		{"truncated", truncated, nil, ""},
		{"trailing bytes", trailing, nil, "trailing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if err == nil {
				t.Fatal("Parse succeeded")
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("error %v does not match %v", err, tt.sentinel)
			}
			if tt.detail != "" && !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q does not mention %q", err, tt.detail)
			}
		})
	}
}

func TestParseRejectsBadShapes(t *testing.T) {
	header := func() *metaBuilder {
		m := &metaBuilder{}
		m.u32(Magic)
		m.raw(14)
		return m
	}

	tests := []struct {
		name   string
		build  func() []byte
		detail string
	}{
		{
			"unknown type definition",
			func() []byte {
				m := header()
				m.compact(1)
				m.typeHeader(0)
				m.raw(9)
				return m.b
			},
			"unknown type definition 9",
		},
		{
			"unknown primitive",
			func() []byte {
				m := header()
				m.compact(1)
				m.typeHeader(0)
				m.raw(5, 15)
				return m.b
			},
			"unknown primitive 15",
		},
		{
			"bad option byte",
			func() []byte {
				m := header()
				m.compact(1)
				m.typeHeader(0)
				m.raw(0)     // composite
				m.compact(1) // one field
				m.raw(7)     // option discriminant out of range
				return m.b
			},
			"invalid option byte",
		},
		{
			"count beyond input",
			func() []byte {
				m := header()
				m.compact(4096)
				return m.b
			},
			"exceeds",
		},
		{
			"bad storage hasher",
			func() []byte {
				m := header()
				m.compact(0) // empty type table
				m.compact(1)
				m.text("System")
				m.option(true)
				m.text("System")
				m.compact(1)
				m.text("Account")
				m.raw(1)
				m.raw(1)
				m.compact(1)
				m.raw(7)
				return m.b
			},
			"invalid storage hasher 7",
		},
		{
			"bad storage modifier",
			func() []byte {
				m := header()
				m.compact(0)
				m.compact(1)
				m.text("System")
				m.option(true)
				m.text("System")
				m.compact(1)
				m.text("Account")
				m.raw(2)
				return m.b
			},
			"invalid storage modifier 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.build())
			if err == nil {
				t.Fatal("Parse succeeded")
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q does not mention %q", err, tt.detail)
			}
		})
	}
}

func TestParseErrorNamesContext(t *testing.T) {
	m := &metaBuilder{}
	m.u32(Magic)
	m.raw(14)
	m.compact(0)
	m.compact(1)
	m.text("Assets")
	m.option(true)
	m.text("Assets")
	m.compact(1)
	m.text("Holdings")
	m.raw(1)
	m.raw(9) // neither plain nor map

	_, err := Parse(m.b)
	if err == nil {
		t.Fatal("Parse succeeded")
	}
	for _, part := range []string{"pallet Assets", "storage Holdings", "invalid storage entry type 9"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("error %q does not mention %q", err, part)
		}
	}
}
