package metadata

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeHex parses a metadata blob from its 0x-prefixed hex form, the shape
// the state_getMetadata RPC hands it over in.
func DecodeHex(s string) (*Metadata, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("metadata hex: %w", err)
	}
	return Parse(raw)
}
