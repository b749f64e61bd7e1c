// Package metadata parses Substrate runtime metadata.
//
// Runtime metadata is the self-description every FRAME chain publishes: a
// portable type table plus, per pallet, the storage layout, dispatchable
// calls, events, errors and constants, all SCALE-encoded behind a "meta"
// magic and a version byte. Parse decodes versions 14 and 15 into a
// Metadata, turning the type table into a registry.Registry ready for the
// scale and value decoders.
//
// # Layout
//
//	magic "meta" (u32)
//	version      (u8, 14 or 15)
//	type table   id + path + definition per entry
//	pallets      name, storage entries, call/event/error types, constants
//	extrinsic    format version and signed extensions
//	runtime type
//	v15 only:    runtime APIs, outer enums, custom values
//
// # Obtaining Metadata
//
// From a node over RPC (state_getMetadata returns hex):
//
//	meta, err := metadata.DecodeHex(hexBlob)
//
// From a raw blob:
//
//	meta, err := metadata.Parse(raw)
//
// Straight out of a runtime WASM binary, without a node:
//
//	meta, err := metadata.FromRuntimeWASM(ctx, wasmBytes)
//
// Lookups by pallet name, pallet index and storage entry are O(1).
// Metadata is immutable after Parse and safe to share across goroutines.
package metadata
