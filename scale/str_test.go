package scale

import (
	"strings"
	"testing"

	"github.com/substratools/scalewire/errors"
)

func TestStr(t *testing.T) {
	input := []byte{0x14, 'h', 'e', 'l', 'l', 'o', 0xEE}
	s, err := newStr(input)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Len())
	}
	got, err := s.AsStr()
	if err != nil || got != "hello" {
		t.Errorf("AsStr() = %q, %v", got, err)
	}
	after := s.BytesAfter()
	if len(after) != 1 || after[0] != 0xEE {
		t.Errorf("BytesAfter() = % x, want ee", after)
	}
	if &s.Bytes()[0] != &input[1] {
		t.Error("Bytes() copied instead of aliasing the input")
	}
}

func TestStrEmpty(t *testing.T) {
	s, err := newStr([]byte{0x00})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if got, err := s.AsStr(); err != nil || got != "" {
		t.Errorf("AsStr() = %q, %v", got, err)
	}
}

func TestStrTruncated(t *testing.T) {
	_, err := newStr([]byte{0x14, 'h'})
	if !errors.IsKind(err, errors.KindNotEnoughInput) {
		t.Fatalf("error = %v, want not_enough_input", err)
	}
	if !strings.Contains(err.Error(), "string wants 5") {
		t.Errorf("error %q does not say how much is missing", err)
	}
}

func TestStrInvalidUTF8(t *testing.T) {
	s, err := newStr([]byte{0x08, 0xFF, 0xFE, 0xEE})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AsStr(); !errors.IsKind(err, errors.KindInvalidStr) {
		t.Errorf("AsStr() error = %v, want invalid_str", err)
	}
	// Raw access and the post-string window stay usable.
	if got := s.Bytes(); len(got) != 2 || got[0] != 0xFF || got[1] != 0xFE {
		t.Errorf("Bytes() = % x", got)
	}
	if after := s.BytesAfter(); len(after) != 1 || after[0] != 0xEE {
		t.Errorf("BytesAfter() = % x, want ee", after)
	}
}
