// Package storage builds the hashed keys under which a chain keeps its
// state.
//
// Every storage item lives under a 32-byte base key made of two
// twox128 digests, one of the pallet's storage prefix and one of the
// entry name. Map entries append one hashed component per declared
// hasher, so the full key for a map value is
//
//	twox128(prefix) ++ twox128(entry) ++ hasher0(key0) ++ hasher1(key1) ...
//
// PlainKey and MapKey build keys from raw strings and pre-encoded key
// bytes. KeyFor and PrefixFor resolve the prefix, entry name and hasher
// list from parsed metadata, which is the form most callers want:
//
//	key, err := storage.KeyFor(meta, "System", "Account", encodedAccount)
//
// Key arguments are the SCALE encoding of the map's key type; for maps
// over tuples, one encoded argument per tuple element in order.
package storage
