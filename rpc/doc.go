// Package rpc speaks JSON-RPC 2.0 to a chain node over a websocket.
//
// Dial opens a Conn, Call performs one request, and Subscribe opens a
// server-push stream:
//
//	conn, err := rpc.Dial(ctx, "wss://rpc.example.network")
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	var metaHex string
//	if err := conn.Call(ctx, "state_getMetadata", nil, &metaHex); err != nil {
//		return err
//	}
//
//	sub, err := conn.Subscribe(ctx, "chain_subscribeNewHeads", "chain_unsubscribeNewHeads", nil)
//	if err != nil {
//		return err
//	}
//	for head := range sub.Notifications() {
//		// decode head
//	}
//
// One goroutine reads the socket, routing responses by request id and
// notifications by subscription id; writes are serialized. A consumer
// that stops draining its subscription loses the oldest buffered
// updates first, never the read loop.
package rpc
