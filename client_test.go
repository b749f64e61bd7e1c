package scalewire

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/substratools/scalewire/events"
	"github.com/substratools/scalewire/metadata"
	"github.com/substratools/scalewire/rpc"
	"github.com/substratools/scalewire/storage"
)

// blobBuilder assembles the metadata and storage fixtures.
type blobBuilder struct{ b []byte }

func (m *blobBuilder) raw(p ...byte) { m.b = append(m.b, p...) }

func (m *blobBuilder) compact(n uint64) {
	switch {
	case n < 64:
		m.raw(byte(n << 2))
	case n < 16384:
		v := uint16(n<<2 | 1)
		m.raw(byte(v), byte(v>>8))
	default:
		v := uint32(n<<2 | 2)
		m.raw(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
}

func (m *blobBuilder) text(s string) {
	m.compact(uint64(len(s)))
	m.raw([]byte(s)...)
}

// Fixture type ids.
const (
	tU32 = iota
	tSystemEvent
	tRuntimeEvent
)

// chainBlob builds a v15 metadata blob with a System pallet holding a
// Number plain entry, an Account map and the Events entry.
func chainBlob() []byte {
	var m blobBuilder
	m.raw('m', 'e', 't', 'a', 15)

	m.compact(3) // types

	m.compact(tU32)
	m.compact(0)
	m.compact(0)
	m.raw(5, 5)
	m.compact(0)

	m.compact(tSystemEvent)
	m.compact(0)
	m.compact(0)
	m.raw(1) // variant
	m.compact(2)
	m.text("ExtrinsicSuccess")
	m.compact(0) // no fields
	m.raw(0)     // index
	m.compact(0) // docs
	m.text("Remarked")
	m.compact(1)
	m.raw(0) // unnamed field
	m.compact(tU32)
	m.raw(0)
	m.compact(0)
	m.raw(2)     // index
	m.compact(0) // docs
	m.compact(0) // type docs

	m.compact(tRuntimeEvent)
	m.compact(0)
	m.compact(0)
	m.raw(1)
	m.compact(1)
	m.text("System")
	m.compact(1)
	m.raw(0)
	m.compact(tSystemEvent)
	m.raw(0)
	m.compact(0)
	m.raw(0) // pallet index 0
	m.compact(0)
	m.compact(0)

	m.compact(1) // pallets

	m.text("System")
	m.raw(1) // storage
	m.text("System")
	m.compact(3)
	m.text("Account")
	m.raw(0, 1)  // optional, map
	m.compact(1) // hashers
	m.raw(2)     // blake2_128_concat
	m.compact(tU32)
	m.compact(tU32)
	m.compact(0) // default
	m.compact(0) // docs
	m.text("Events")
	m.raw(1, 0) // default, plain
	m.compact(tU32)
	m.compact(4)
	m.raw(0, 0, 0, 0)
	m.compact(0)
	m.text("Number")
	m.raw(1, 0)
	m.compact(tU32)
	m.compact(4)
	m.raw(0, 0, 0, 0)
	m.compact(0)
	m.raw(0) // no calls
	m.raw(1)
	m.compact(tSystemEvent)
	m.compact(0) // constants
	m.raw(0)     // no error
	m.raw(0)     // index
	m.compact(0) // docs

	m.raw(4)        // extrinsic version
	m.compact(tU32) // address
	m.compact(tU32) // call
	m.compact(tU32) // signature
	m.compact(tU32) // extra
	m.compact(0)    // signed extensions
	m.compact(tU32) // runtime type

	m.compact(0)             // runtime apis
	m.compact(tRuntimeEvent) // outer call
	m.compact(tRuntimeEvent) // outer event
	m.compact(tRuntimeEvent) // outer error
	m.compact(0)             // custom values

	return m.b
}

func chainMeta(t *testing.T) *metadata.Metadata {
	t.Helper()
	meta, err := metadata.Parse(chainBlob())
	if err != nil {
		t.Fatalf("parse fixture metadata: %v", err)
	}
	return meta
}

// eventsBlob encodes one System.ExtrinsicSuccess record.
func eventsBlob() []byte {
	var m blobBuilder
	m.compact(1)
	m.raw(2)     // Initialization
	m.raw(0, 0)  // System.ExtrinsicSuccess
	m.compact(0) // topics
	return m.b
}

func le32(n uint32) []byte {
	return []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
}

type nodeRequest struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// startNode runs a scripted websocket node and returns its ws URL.
func startNode(t *testing.T, handle func(ws *websocket.Conn, req nodeRequest)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var req nodeRequest
			if err := json.Unmarshal(data, &req); err != nil {
				t.Errorf("unreadable request %s: %v", data, err)
				return
			}
			handle(ws, req)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func reply(ws *websocket.Conn, id uint64, result any) {
	_ = ws.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
}

func replyError(ws *websocket.Conn, id uint64, code int, msg string) {
	_ = ws.WriteJSON(map[string]any{
		"jsonrpc": "2.0", "id": id,
		"error": map[string]any{"code": code, "message": msg},
	})
}

func notify(ws *websocket.Conn, method string, sub, result any) {
	_ = ws.WriteJSON(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  map[string]any{"subscription": sub, "result": result},
	})
}

// chainNode serves metadata and storage lookups. Storage values are
// keyed by hex key, or by "key@blockhash" for pinned reads.
type chainNode struct {
	kv           map[string]string
	genesisCalls atomic.Int32
}

func (n *chainNode) handle(t *testing.T) func(ws *websocket.Conn, req nodeRequest) {
	return func(ws *websocket.Conn, req nodeRequest) {
		switch req.Method {
		case "state_getMetadata":
			reply(ws, req.ID, hexEncode(chainBlob()))
		case "state_getStorage":
			var params []string
			if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
				t.Errorf("state_getStorage params: %s", req.Params)
				reply(ws, req.ID, nil)
				return
			}
			k := params[0]
			if len(params) == 2 {
				k += "@" + params[1]
			}
			if v, ok := n.kv[k]; ok {
				reply(ws, req.ID, v)
			} else {
				reply(ws, req.ID, nil)
			}
		case "state_getRuntimeVersion":
			reply(ws, req.ID, map[string]any{
				"specName":           "scalewire-test",
				"implName":           "scalewire-node",
				"authoringVersion":   1,
				"specVersion":        100,
				"implVersion":        2,
				"transactionVersion": 3,
				"stateVersion":       1,
			})
		case "chain_getBlockHash":
			var nums []uint64
			if len(req.Params) > 0 {
				if err := json.Unmarshal(req.Params, &nums); err != nil {
					t.Errorf("chain_getBlockHash params: %s", req.Params)
				}
			}
			if len(nums) == 0 {
				reply(ws, req.ID, "0xbe57")
				return
			}
			if nums[0] == 0 {
				n.genesisCalls.Add(1)
				reply(ws, req.ID, "0x9e4e")
				return
			}
			reply(ws, req.ID, "0xb10c")
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func connectTest(t *testing.T, node *chainNode) *Client {
	t.Helper()
	ctx := testContext(t)
	client, err := Connect(ctx, startNode(t, node.handle(t)))
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnectAndRead(t *testing.T) {
	numberKey := storage.PlainKey("System", "Number")
	accountKey, err := storage.MapKey("System", "Account",
		[]metadata.Hasher{metadata.HasherBlake2_128Concat}, le32(42))
	if err != nil {
		t.Fatalf("MapKey() error: %v", err)
	}
	eventsKey := storage.PlainKey("System", "Events")
	node := &chainNode{kv: map[string]string{
		hexEncode(numberKey):            "0x07000000",
		hexEncode(numberKey) + "@0xold": "0x05000000",
		hexEncode(accountKey):           "0x63000000",
		hexEncode(eventsKey):            hexEncode(eventsBlob()),
	}}
	client := connectTest(t, node)
	ctx := testContext(t)

	if client.Metadata() == nil || client.Metadata().Version != 15 {
		t.Fatalf("metadata version = %v", client.Metadata())
	}
	if client.Conn() == nil {
		t.Fatal("Conn() returned nil for a connected client")
	}

	t.Run("plain value", func(t *testing.T) {
		v, ok, err := client.StorageValue(ctx, "System", "Number")
		if err != nil || !ok {
			t.Fatalf("StorageValue() = %v, %v", ok, err)
		}
		p, isPrim := v.Primitive()
		if !isPrim {
			t.Fatalf("decoded to %s, not a primitive", v)
		}
		if n, _ := p.U128.Uint64(); n != 7 {
			t.Fatalf("System.Number = %d, want 7", n)
		}
	})

	t.Run("pinned value", func(t *testing.T) {
		v, ok, err := client.StorageValueAt(ctx, "0xold", "System", "Number")
		if err != nil || !ok {
			t.Fatalf("StorageValueAt() = %v, %v", ok, err)
		}
		p, _ := v.Primitive()
		if n, _ := p.U128.Uint64(); n != 5 {
			t.Fatalf("pinned System.Number = %d, want 5", n)
		}
	})

	t.Run("map entry", func(t *testing.T) {
		v, ok, err := client.StorageMapEntry(ctx, "System", "Account", le32(42))
		if err != nil || !ok {
			t.Fatalf("StorageMapEntry() = %v, %v", ok, err)
		}
		p, _ := v.Primitive()
		if n, _ := p.U128.Uint64(); n != 99 {
			t.Fatalf("Account[42] = %d, want 99", n)
		}
	})

	t.Run("missing entry", func(t *testing.T) {
		_, ok, err := client.StorageMapEntry(ctx, "System", "Account", le32(43))
		if err != nil {
			t.Fatalf("StorageMapEntry() error: %v", err)
		}
		if ok {
			t.Fatal("found a value under an unset key")
		}
	})

	t.Run("wrong key count", func(t *testing.T) {
		_, _, err := client.StorageValue(ctx, "System", "Account")
		if !errors.Is(err, storage.ErrKeyCount) {
			t.Fatalf("error = %v, want ErrKeyCount", err)
		}
	})

	t.Run("events", func(t *testing.T) {
		evs, err := client.Events(ctx)
		if err != nil {
			t.Fatalf("Events() error: %v", err)
		}
		if len(evs) != 1 {
			t.Fatalf("decoded %d events, want 1", len(evs))
		}
		if evs[0].FullName() != "System.ExtrinsicSuccess" {
			t.Fatalf("event = %s", evs[0].FullName())
		}
		if evs[0].Phase.Kind != events.PhaseInitialization {
			t.Fatalf("phase = %s", evs[0].Phase)
		}
	})

	t.Run("events at empty block", func(t *testing.T) {
		evs, err := client.EventsAt(ctx, "0xempty")
		if err != nil {
			t.Fatalf("EventsAt() error: %v", err)
		}
		if len(evs) != 0 {
			t.Fatalf("decoded %d events at a block with none", len(evs))
		}
	})

	t.Run("runtime version", func(t *testing.T) {
		rv, err := client.RuntimeVersion(ctx)
		if err != nil {
			t.Fatalf("RuntimeVersion() error: %v", err)
		}
		if rv.SpecName != "scalewire-test" || rv.SpecVersion != 100 || rv.TransactionVersion != 3 {
			t.Fatalf("runtime version = %+v", rv)
		}
	})

	t.Run("block hashes", func(t *testing.T) {
		best, err := client.BlockHashLatest(ctx)
		if err != nil || best != "0xbe57" {
			t.Fatalf("BlockHashLatest() = %q, %v", best, err)
		}
		h, err := client.BlockHash(ctx, 9)
		if err != nil || h != "0xb10c" {
			t.Fatalf("BlockHash(9) = %q, %v", h, err)
		}
	})

	t.Run("genesis hash cached", func(t *testing.T) {
		for range 2 {
			h, err := client.GenesisHash(ctx)
			if err != nil || h != "0x9e4e" {
				t.Fatalf("GenesisHash() = %q, %v", h, err)
			}
		}
		if calls := node.genesisCalls.Load(); calls != 1 {
			t.Fatalf("genesis fetched %d times, want 1", calls)
		}
	})
}

func TestConnectMetadataErrors(t *testing.T) {
	t.Run("node error", func(t *testing.T) {
		url := startNode(t, func(ws *websocket.Conn, req nodeRequest) {
			replyError(ws, req.ID, -32000, "metadata unavailable")
		})
		_, err := Connect(testContext(t), url)
		if err == nil || !strings.Contains(err.Error(), "fetch metadata") {
			t.Fatalf("Connect() error = %v", err)
		}
	})

	t.Run("bad blob", func(t *testing.T) {
		url := startNode(t, func(ws *websocket.Conn, req nodeRequest) {
			reply(ws, req.ID, "0xdeadbeef")
		})
		_, err := Connect(testContext(t), url)
		if !errors.Is(err, metadata.ErrInvalidMagic) {
			t.Fatalf("Connect() error = %v, want ErrInvalidMagic", err)
		}
	})
}

func TestOfflineClient(t *testing.T) {
	client := NewFromMetadata(nil, chainMeta(t))
	ctx := testContext(t)

	if _, _, err := client.StorageValue(ctx, "System", "Number"); !errors.Is(err, ErrOffline) {
		t.Fatalf("StorageValue() error = %v, want ErrOffline", err)
	}
	if _, err := client.RuntimeVersion(ctx); !errors.Is(err, ErrOffline) {
		t.Fatalf("RuntimeVersion() error = %v, want ErrOffline", err)
	}
	if _, err := client.BlockHashLatest(ctx); !errors.Is(err, ErrOffline) {
		t.Fatalf("BlockHashLatest() error = %v, want ErrOffline", err)
	}
	if _, err := client.SubscribeNewHeads(ctx); !errors.Is(err, ErrOffline) {
		t.Fatalf("SubscribeNewHeads() error = %v, want ErrOffline", err)
	}
	if client.Conn() != nil {
		t.Fatal("Conn() returned a connection for an offline client")
	}

	v, err := client.DecodeStorage("System", "Number", le32(7))
	if err != nil {
		t.Fatalf("DecodeStorage() error: %v", err)
	}
	p, _ := v.Primitive()
	if n, _ := p.U128.Uint64(); n != 7 {
		t.Fatalf("decoded %d, want 7", n)
	}

	if _, err := client.DecodeStorage("System", "Number", []byte{7, 0, 0, 0, 0xFF}); err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("trailing bytes error = %v", err)
	}
	if _, err := client.DecodeStorage("System", "Bonded", nil); !errors.Is(err, storage.ErrEntryNotFound) {
		t.Fatalf("unknown entry error = %v", err)
	}

	evs, err := client.DecodeEvents(eventsBlob())
	if err != nil {
		t.Fatalf("DecodeEvents() error: %v", err)
	}
	if len(evs) != 1 || evs[0].FullName() != "System.ExtrinsicSuccess" {
		t.Fatalf("decoded events: %+v", evs)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestSubscribeStorageChanges(t *testing.T) {
	key := storage.PlainKey("System", "Number")
	url := startNode(t, func(ws *websocket.Conn, req nodeRequest) {
		switch req.Method {
		case "state_subscribeStorage":
			var params [][]string
			if err := json.Unmarshal(req.Params, &params); err != nil || len(params) != 1 || len(params[0]) != 1 {
				t.Errorf("subscribe params: %s", req.Params)
			} else if params[0][0] != hexEncode(key) {
				t.Errorf("subscribed key = %s, want %s", params[0][0], hexEncode(key))
			}
			reply(ws, req.ID, "watch-1")
			notify(ws, "state_storage", "watch-1", map[string]any{
				"block": "0xb10c",
				"changes": []any{
					[]any{hexEncode(key), "0x2a000000"},
					[]any{"0xdead", nil},
				},
			})
		case "state_unsubscribeStorage":
			reply(ws, req.ID, true)
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
	})

	ctx := testContext(t)
	conn, err := rpc.Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	client := NewFromMetadata(conn, chainMeta(t))
	t.Cleanup(func() { client.Close() })

	sub, err := client.SubscribeStorage(ctx, key)
	if err != nil {
		t.Fatalf("SubscribeStorage() error: %v", err)
	}

	var raw json.RawMessage
	select {
	case raw = <-sub.Notifications():
	case <-time.After(2 * time.Second):
		t.Fatal("no storage notification")
	}
	cs, err := ParseStorageChanges(raw)
	if err != nil {
		t.Fatalf("ParseStorageChanges() error: %v", err)
	}
	if cs.Block != "0xb10c" || len(cs.Changes) != 2 {
		t.Fatalf("change set = %+v", cs)
	}
	if cs.Changes[0].Key != hexEncode(key) || cs.Changes[0].Value == nil || *cs.Changes[0].Value != "0x2a000000" {
		t.Fatalf("first change = %+v", cs.Changes[0])
	}
	if cs.Changes[1].Value != nil {
		t.Fatal("deleted key still carries a value")
	}

	if err := sub.Unsubscribe(ctx); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}
}

func TestSubscribeNewHeads(t *testing.T) {
	url := startNode(t, func(ws *websocket.Conn, req nodeRequest) {
		switch req.Method {
		case "chain_subscribeNewHeads":
			reply(ws, req.ID, "heads-1")
			notify(ws, "chain_newHead", "heads-1", map[string]any{
				"parentHash":     "0x01",
				"number":         "0x2a",
				"stateRoot":      "0x02",
				"extrinsicsRoot": "0x03",
			})
		case "chain_unsubscribeNewHeads":
			reply(ws, req.ID, true)
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
	})

	ctx := testContext(t)
	conn, err := rpc.Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	client := NewFromMetadata(conn, chainMeta(t))
	t.Cleanup(func() { client.Close() })

	sub, err := client.SubscribeNewHeads(ctx)
	if err != nil {
		t.Fatalf("SubscribeNewHeads() error: %v", err)
	}

	var raw json.RawMessage
	select {
	case raw = <-sub.Notifications():
	case <-time.After(2 * time.Second):
		t.Fatal("no head notification")
	}
	head, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader() error: %v", err)
	}
	if head.Number != 42 || head.ParentHash != "0x01" {
		t.Fatalf("header = %+v", head)
	}

	if err := sub.Unsubscribe(ctx); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}
}

func TestHexUint(t *testing.T) {
	tests := []struct {
		in      string
		want    HexUint
		wantErr bool
	}{
		{`"0x0"`, 0, false},
		{`"0x2a"`, 42, false},
		{`"0xff"`, 255, false},
		{`"2a"`, 42, false},
		{`"0xzz"`, 0, true},
		{`42`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var h HexUint
			err := json.Unmarshal([]byte(tt.in), &h)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("accepted %s as %d", tt.in, h)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal error: %v", err)
			}
			if h != tt.want {
				t.Fatalf("parsed %d, want %d", h, tt.want)
			}
		})
	}

	out, err := json.Marshal(HexUint(255))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(out) != `"0xff"` {
		t.Fatalf("marshaled %s, want \"0xff\"", out)
	}
}

func TestParseHeaderErrors(t *testing.T) {
	if _, err := ParseHeader(json.RawMessage(`"not an object"`)); err == nil {
		t.Fatal("ParseHeader() accepted a string")
	}
	if _, err := ParseHeader(json.RawMessage(`{"number": "0xzz"}`)); err == nil {
		t.Fatal("ParseHeader() accepted a bad block number")
	}
}

func TestParseStorageChangesErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not an object", `[1, 2]`},
		{"short pair", `{"block": "0xb", "changes": [["0xkey"]]}`},
		{"null key", `{"block": "0xb", "changes": [[null, "0xvalue"]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseStorageChanges(json.RawMessage(tt.in)); err == nil {
				t.Fatal("ParseStorageChanges() accepted bad input")
			}
		})
	}
}
