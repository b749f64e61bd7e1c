// Package value decodes SCALE bytes into a generic value tree when the Go
// shape of the data is not known ahead of time.
//
// Every node carries the type id it was decoded from, so a tree can be
// walked back against the registry that produced it. Small integers widen
// into 128-bit primitives, and sequences, arrays and tuples all become
// positional composites; two registries that lay out the same data
// differently still produce comparable trees.
//
//	val, rest, err := value.DecodeValue(data, id, reg)
//
// The package also encodes trees back to SCALE bytes with Encode, which is
// independent of the decoder and useful for building test inputs and
// round-tripping.
package value
