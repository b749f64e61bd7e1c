package storage

import (
	"encoding/binary"

	"github.com/pierrec/xxHash/xxHash64"
	"golang.org/x/crypto/blake2b"

	"github.com/substratools/scalewire/metadata"
)

// HashKey runs one encoded key component through a hasher, producing
// the bytes that component contributes to a storage key. For
// HasherIdentity the input is returned as is.
func HashKey(h metadata.Hasher, encoded []byte) []byte {
	switch h {
	case metadata.HasherBlake2_128:
		return blake2_128(encoded)
	case metadata.HasherBlake2_256:
		sum := blake2b.Sum256(encoded)
		return sum[:]
	case metadata.HasherBlake2_128Concat:
		return append(blake2_128(encoded), encoded...)
	case metadata.HasherTwox128:
		return twox128(encoded)
	case metadata.HasherTwox256:
		return twox256(encoded)
	case metadata.HasherTwox64Concat:
		sum := make([]byte, 8, 8+len(encoded))
		binary.LittleEndian.PutUint64(sum, xxHash64.Checksum(encoded, 0))
		return append(sum, encoded...)
	default:
		return encoded
	}
}

// twox128 is two xxHash64 runs over the same input with seeds 0 and 1,
// digests concatenated little-endian.
func twox128(data []byte) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:8], xxHash64.Checksum(data, 0))
	binary.LittleEndian.PutUint64(out[8:16], xxHash64.Checksum(data, 1))
	return out
}

func twox256(data []byte) []byte {
	out := make([]byte, 32)
	for seed := uint64(0); seed < 4; seed++ {
		binary.LittleEndian.PutUint64(out[seed*8:], xxHash64.Checksum(data, seed))
	}
	return out
}

func blake2_128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return h.Sum(nil)
}
