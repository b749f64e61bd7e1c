package scalewire

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RuntimeVersion identifies the runtime a node is executing. Spec and
// transaction versions decide whether previously built call data is
// still valid.
type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	ImplName           string `json:"implName"`
	AuthoringVersion   uint32 `json:"authoringVersion"`
	SpecVersion        uint32 `json:"specVersion"`
	ImplVersion        uint32 `json:"implVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
	StateVersion       uint32 `json:"stateVersion"`
}

// HexUint is a uint64 that marshals as the 0x-prefixed hex strings
// chain nodes use for block numbers in JSON.
type HexUint uint64

func (h *HexUint) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return fmt.Errorf("hex number %q: %w", s, err)
	}
	*h = HexUint(n)
	return nil
}

func (h HexUint) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + strconv.FormatUint(uint64(h), 16))
}

// Header is a block header as delivered by chain_getHeader and the
// new-heads subscription.
type Header struct {
	ParentHash     string  `json:"parentHash"`
	Number         HexUint `json:"number"`
	StateRoot      string  `json:"stateRoot"`
	ExtrinsicsRoot string  `json:"extrinsicsRoot"`
}

// ParseHeader decodes a new-heads notification payload.
func ParseHeader(raw json.RawMessage) (*Header, error) {
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	return &h, nil
}

// StorageChangeSet is one storage subscription notification: the
// block it was observed at and the keys that changed there.
type StorageChangeSet struct {
	Block   string          `json:"block"`
	Changes []StorageChange `json:"changes"`
}

// StorageChange is a single changed key. Value is nil when the key
// was deleted.
type StorageChange struct {
	Key   string
	Value *string
}

// UnmarshalJSON accepts the [key, value] pair arrays nodes emit
// instead of objects.
func (sc *StorageChange) UnmarshalJSON(b []byte) error {
	var pair []*string
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 || pair[0] == nil {
		return fmt.Errorf("storage change %s is not a [key, value] pair", b)
	}
	sc.Key = *pair[0]
	sc.Value = pair[1]
	return nil
}

// ParseStorageChanges decodes a storage subscription payload.
func ParseStorageChanges(raw json.RawMessage) (*StorageChangeSet, error) {
	var cs StorageChangeSet
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, fmt.Errorf("storage changes: %w", err)
	}
	return &cs, nil
}

func hexEncode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
