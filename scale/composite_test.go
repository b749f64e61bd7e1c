package scale

import (
	"strings"
	"testing"

	"github.com/substratools/scalewire/errors"
	"github.com/substratools/scalewire/registry"
)

func pointRegistry(t *testing.T) (*registry.Registry, registry.TypeID, []registry.Field) {
	t.Helper()
	b := registry.NewBuilder()
	u32 := b.Add(registry.PrimitiveDef{Kind: registry.U32})
	fields := []registry.Field{
		{Name: "x", Type: u32},
		{Name: "y", Type: u32},
		{Name: "z", Type: u32},
	}
	b.AddNamed("demo::Point", registry.CompositeDef{Fields: fields})
	return b.Build(), u32, fields
}

func TestCompositeIteration(t *testing.T) {
	reg, _, fields := pointRegistry(t)
	input := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	c := newComposite(input, []string{"demo", "Point"}, fields, reg)

	if c.Name() != "Point" {
		t.Errorf("Name() = %q, want Point", c.Name())
	}
	if c.HasUnnamedFields() {
		t.Error("HasUnnamedFields() = true for a fully named composite")
	}

	item := probe{onU32: func(v uint32, _ registry.TypeID) (any, error) { return v, nil }}
	wantNames := []string{"x", "y", "z"}
	for i := uint32(0); !c.Done(); i++ {
		name, ok := c.PeekName()
		if !ok || name != wantNames[i] {
			t.Errorf("PeekName() = %q, %v, want %q", name, ok, wantNames[i])
		}
		got, err := c.DecodeItem(item)
		if err != nil {
			t.Fatal(err)
		}
		if got.(uint32) != i+1 {
			t.Errorf("field %d = %v, want %d", i, got, i+1)
		}
	}
	if c.Remaining() != 0 || len(c.BytesFromUndecoded()) != 0 {
		t.Errorf("Remaining() = %d, %d byte(s) undecoded", c.Remaining(), len(c.BytesFromUndecoded()))
	}
	if _, ok := c.PeekName(); ok {
		t.Error("PeekName() returned a name past the end")
	}
	if len(c.BytesFromStart()) != len(input) {
		t.Errorf("BytesFromStart() = %d byte(s), want %d", len(c.BytesFromStart()), len(input))
	}
}

func TestCompositeAsTupleCoversRemainder(t *testing.T) {
	reg, _, fields := pointRegistry(t)
	input := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	c := newComposite(input, nil, fields, reg)

	item := probe{onU32: func(v uint32, _ registry.TypeID) (any, error) { return v, nil }}
	if _, err := c.DecodeItem(item); err != nil {
		t.Fatal(err)
	}

	tup := c.AsTuple()
	if tup.Remaining() != 2 {
		t.Fatalf("Remaining() = %d, want 2", tup.Remaining())
	}
	var got []uint32
	for !tup.Done() {
		v, err := tup.DecodeItem(item)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v.(uint32))
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("tuple items = %v, want [2 3]", got)
	}
	if len(tup.BytesFromUndecoded()) != 0 {
		t.Errorf("%d byte(s) left after the tuple", len(tup.BytesFromUndecoded()))
	}
}

func TestCompositeErrorExhausts(t *testing.T) {
	reg, _, fields := pointRegistry(t)
	input := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	c := newComposite(input, nil, fields, reg)

	boom := errors.New(errors.KindCustom).Detail("boom").Build()
	fail := probe{onU32: func(uint32, registry.TypeID) (any, error) { return nil, boom }}

	if _, err := c.DecodeItem(fail); err == nil {
		t.Fatal("expected the visitor error")
	}
	if !c.Done() {
		t.Error("a failed field should exhaust the composite")
	}
	_, err := c.DecodeItem(fail)
	if err == nil || !strings.Contains(err.Error(), "no fields left") {
		t.Errorf("error = %v, want no fields left", err)
	}
	// The failed field was not consumed.
	if len(c.BytesFromUndecoded()) != len(input) {
		t.Errorf("BytesFromUndecoded() = %d byte(s), want %d", len(c.BytesFromUndecoded()), len(input))
	}
}

func TestCompositeMixedNaming(t *testing.T) {
	b := registry.NewBuilder()
	u8 := b.Add(registry.PrimitiveDef{Kind: registry.U8})
	fields := []registry.Field{
		{Type: u8},
		{Name: "tag", Type: u8},
	}
	reg := b.Build()

	c := newComposite([]byte{7, 9}, nil, fields, reg)
	if !c.HasUnnamedFields() {
		t.Error("HasUnnamedFields() = false with a positional field pending")
	}
	if _, err := c.DecodeItem(IgnoreVisitor{}); err != nil {
		t.Fatal(err)
	}
	// Only the named field remains now.
	if c.HasUnnamedFields() {
		t.Error("HasUnnamedFields() = true after the positional field was consumed")
	}
	if got := c.Fields(); len(got) != 1 || got[0].Name != "tag" {
		t.Errorf("Fields() = %+v, want the tag field", got)
	}
}

func TestTupleDecode(t *testing.T) {
	b := registry.NewBuilder()
	u8 := b.Add(registry.PrimitiveDef{Kind: registry.U8})
	boolID := b.Add(registry.PrimitiveDef{Kind: registry.Bool})
	reg := b.Build()

	tup := newTuple([]byte{9, 1, 0xEE}, []registry.TypeID{u8, boolID}, reg)
	if tup.Remaining() != 2 {
		t.Fatalf("Remaining() = %d, want 2", tup.Remaining())
	}

	v, err := tup.DecodeItem(probe{onU8: func(v uint8, _ registry.TypeID) (any, error) { return v, nil }})
	if err != nil || v.(uint8) != 9 {
		t.Fatalf("first item = %v, %v", v, err)
	}
	v, err = tup.DecodeItem(probe{onBool: func(v bool, _ registry.TypeID) (any, error) { return v, nil }})
	if err != nil || v.(bool) != true {
		t.Fatalf("second item = %v, %v", v, err)
	}

	if !tup.Done() {
		t.Error("Done() = false after both items")
	}
	if _, err := tup.DecodeItem(IgnoreVisitor{}); err == nil {
		t.Error("DecodeItem() past the end succeeded")
	}
	rest := tup.BytesFromUndecoded()
	if len(rest) != 1 || rest[0] != 0xEE {
		t.Errorf("BytesFromUndecoded() = % x, want ee", rest)
	}
}
