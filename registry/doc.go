// Package registry holds the runtime type information that drives decoding.
//
// A Registry maps opaque TypeID keys to TypeDef shapes (primitives, compact
// wrappers, composites, variants, sequences, arrays, tuples and bit
// sequences). Registries are built once, from parsed chain metadata or by
// hand through a Builder, and are immutable afterwards: any number of decode
// calls may resolve types from the same Registry concurrently.
//
// The engine trusts the registry it is given. It does not check that every
// referenced TypeID resolves; producing a consistent registry is the
// metadata parser's job.
package registry
