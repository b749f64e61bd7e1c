// Package scalewire reads Substrate chain state without code
// generation: the chain's own metadata describes every type, and the
// decoder walks those descriptions at runtime to turn SCALE bytes
// into inspectable values.
//
// # Architecture Overview
//
// The module is organized into layers, each usable on its own:
//
//	scalewire/           Root package with the metadata-aware Client
//	├── errors/          structured decode errors with location paths
//	├── scale/           SCALE primitives: cursor, compacts, 128-bit ints
//	├── registry/        the type graph embedded in chain metadata
//	├── value/           type-driven decoding and encoding of values
//	├── metadata/        metadata parsing (v14/v15) and runtime WASM extraction
//	├── storage/         storage key construction and the chain hashers
//	├── events/          event record decoding
//	├── rpc/             JSON-RPC 2.0 over websocket with subscriptions
//	└── cmd/             the scalewire command for inspecting chains
//
// # Quick Start
//
// Connect to a node and read decoded state:
//
//	client, err := scalewire.Connect(ctx, "ws://127.0.0.1:9944")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	issuance, ok, err := client.StorageValue(ctx, "Balances", "TotalIssuance")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if ok {
//	    fmt.Println(issuance.String())
//	}
//
//	evs, err := client.Events(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, ev := range evs {
//	    fmt.Println(ev.Phase, ev.FullName())
//	}
//
// # Offline Use
//
// Nothing below the Client needs a node. Metadata parsed from a file,
// or extracted from a runtime WASM blob with metadata.FromRuntimeWASM,
// decodes recorded state:
//
//	meta, err := metadata.Parse(blob)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := scalewire.NewFromMetadata(nil, meta)
//	v, err := client.DecodeStorage("System", "Account", raw)
//
// Network methods on an offline client return ErrOffline.
//
// # Thread Safety
//
// Client, rpc.Conn and metadata.Metadata are safe for concurrent use.
// A value.Value is immutable once decoded and may be shared freely.
package scalewire
