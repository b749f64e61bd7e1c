package storage

import (
	"errors"
	"fmt"

	"github.com/substratools/scalewire/metadata"
)

var (
	ErrPalletNotFound = errors.New("pallet not found in metadata")
	ErrEntryNotFound  = errors.New("storage entry not found in metadata")
	ErrKeyCount       = errors.New("wrong number of storage keys")
)

// PlainKey builds the key of a plain storage value. The same bytes are
// the common prefix of every entry in a map, so this is also the key
// to iterate a map from.
func PlainKey(prefix, entry string) []byte {
	key := make([]byte, 0, 32)
	key = append(key, twox128([]byte(prefix))...)
	key = append(key, twox128([]byte(entry))...)
	return key
}

// MapKey builds a map storage key from pre-encoded key components,
// hashing component i with hashers[i]. Fewer components than hashers
// yield a partial key, usable as an iteration prefix; more than the
// hasher count is an error.
func MapKey(prefix, entry string, hashers []metadata.Hasher, encodedKeys ...[]byte) ([]byte, error) {
	if len(encodedKeys) > len(hashers) {
		return nil, fmt.Errorf("%w: %d components for %d hashers", ErrKeyCount, len(encodedKeys), len(hashers))
	}
	key := PlainKey(prefix, entry)
	for i, ek := range encodedKeys {
		key = append(key, HashKey(hashers[i], ek)...)
	}
	return key, nil
}

// KeyFor builds the complete key of a storage entry, resolving the
// storage prefix and hasher list from metadata. Plain entries take no
// key arguments; map entries take exactly one per declared hasher.
func KeyFor(meta *metadata.Metadata, pallet, entry string, encodedKeys ...[]byte) ([]byte, error) {
	e, prefix, err := lookupEntry(meta, pallet, entry)
	if err != nil {
		return nil, err
	}
	if len(encodedKeys) != len(e.Hashers) {
		return nil, fmt.Errorf("%w: %s.%s takes %d, got %d", ErrKeyCount, pallet, entry, len(e.Hashers), len(encodedKeys))
	}
	return MapKey(prefix, e.Name, e.Hashers, encodedKeys...)
}

// PrefixFor builds an iteration prefix for a storage entry: the bare
// entry prefix with no arguments, or a partial key hashing only the
// leading map components given.
func PrefixFor(meta *metadata.Metadata, pallet, entry string, encodedKeys ...[]byte) ([]byte, error) {
	e, prefix, err := lookupEntry(meta, pallet, entry)
	if err != nil {
		return nil, err
	}
	return MapKey(prefix, e.Name, e.Hashers, encodedKeys...)
}

func lookupEntry(meta *metadata.Metadata, pallet, entry string) (*metadata.StorageEntry, string, error) {
	p, ok := meta.PalletByName(pallet)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrPalletNotFound, pallet)
	}
	e, ok := p.Entry(entry)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s.%s", ErrEntryNotFound, pallet, entry)
	}
	return e, p.StoragePrefix, nil
}
