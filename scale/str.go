package scale

import (
	"unicode/utf8"

	"github.com/substratools/scalewire/errors"
)

// Str is a string found in the input: a compact byte count followed by that
// many bytes of UTF-8. Construction checks the count against the available
// input but leaves UTF-8 validation until AsStr is called, so callers that
// only want to skip over or capture the raw bytes never pay for it.
type Str struct {
	content []byte
	after   []byte
}

func newStr(data []byte) (*Str, error) {
	cur := NewCursor(data)
	n, err := decodeCompactU64(cur)
	if err != nil {
		return nil, err
	}
	if n > uint64(cur.Remaining()) {
		return nil, errors.New(errors.KindNotEnoughInput).
			Detail("string wants %d byte(s), only %d remain", n, cur.Remaining()).
			Build()
	}
	content, err := cur.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	return &Str{content: content, after: cur.Bytes()}, nil
}

// Len returns the string's byte length.
func (s *Str) Len() int {
	return len(s.content)
}

// Bytes returns the raw string bytes without validating them.
func (s *Str) Bytes() []byte {
	return s.content
}

// AsStr validates the bytes as UTF-8 and returns them as a Go string.
func (s *Str) AsStr() (string, error) {
	if !utf8.Valid(s.content) {
		return "", errors.InvalidStr(s.content)
	}
	return string(s.content), nil
}

// BytesAfter returns the input remaining after the string, valid even when
// the content is not UTF-8.
func (s *Str) BytesAfter() []byte {
	return s.after
}
