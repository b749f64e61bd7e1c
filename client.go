package scalewire

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/substratools/scalewire/events"
	"github.com/substratools/scalewire/metadata"
	"github.com/substratools/scalewire/rpc"
	"github.com/substratools/scalewire/storage"
	"github.com/substratools/scalewire/value"
)

// ErrOffline reports a network operation on a client that was built
// without a node connection.
var ErrOffline = errors.New("client has no node connection")

// Option adjusts how Connect builds a client.
type Option func(*config)

type config struct {
	logger  *zap.Logger
	rpcOpts []rpc.Option
}

// WithLogger routes client and connection diagnostics to l instead of
// the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRPCOptions forwards options to the underlying rpc.Dial.
func WithRPCOptions(opts ...rpc.Option) Option {
	return func(c *config) { c.rpcOpts = append(c.rpcOpts, opts...) }
}

// Client couples a node connection with the chain's parsed metadata,
// so storage and events come back as decoded values instead of hex
// blobs. Methods taking a blockHash accept "" for the best block.
//
// A Client is safe for concurrent use.
type Client struct {
	conn *rpc.Conn
	meta *metadata.Metadata
	log  *zap.Logger

	eventsOnce sync.Once
	eventsRdr  *events.Reader
	eventsErr  error

	genesisMu sync.Mutex
	genesis   string
}

// Connect dials a node, fetches its metadata and returns a ready
// client.
func Connect(ctx context.Context, url string, opts ...Option) (*Client, error) {
	cfg := config{logger: Logger()}
	for _, o := range opts {
		o(&cfg)
	}

	rpcOpts := append([]rpc.Option{rpc.WithLogger(cfg.logger)}, cfg.rpcOpts...)
	conn, err := rpc.Dial(ctx, url, rpcOpts...)
	if err != nil {
		return nil, err
	}

	var metaHex string
	if err := conn.Call(ctx, "state_getMetadata", nil, &metaHex); err != nil {
		conn.Close()
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	meta, err := metadata.DecodeHex(metaHex)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	c := NewFromMetadata(conn, meta)
	c.log = cfg.logger
	c.log.Debug("client ready",
		zap.Uint8("metadata_version", meta.Version),
		zap.Int("pallets", len(meta.Pallets)))
	return c, nil
}

// NewFromMetadata builds a client from an existing connection and
// already-parsed metadata. conn may be nil: network methods then
// return ErrOffline while the Decode methods keep working, which is
// how recorded state gets decoded without a node.
func NewFromMetadata(conn *rpc.Conn, meta *metadata.Metadata) *Client {
	return &Client{conn: conn, meta: meta, log: Logger()}
}

// Metadata returns the chain metadata the client decodes against.
func (c *Client) Metadata() *metadata.Metadata { return c.meta }

// Conn exposes the underlying connection for node calls the client
// does not wrap. It is nil for offline clients.
func (c *Client) Conn() *rpc.Conn { return c.conn }

// Close closes the node connection, if any.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// StorageValue fetches and decodes a plain storage entry at the best
// block. ok is false when the entry holds no value.
func (c *Client) StorageValue(ctx context.Context, pallet, entry string) (value.Value, bool, error) {
	return c.storageAt(ctx, "", pallet, entry, nil)
}

// StorageValueAt is StorageValue pinned to a block hash.
func (c *Client) StorageValueAt(ctx context.Context, blockHash, pallet, entry string) (value.Value, bool, error) {
	return c.storageAt(ctx, blockHash, pallet, entry, nil)
}

// StorageMapEntry fetches and decodes one map entry at the best
// block, taking one SCALE-encoded key component per declared hasher.
func (c *Client) StorageMapEntry(ctx context.Context, pallet, entry string, encodedKeys ...[]byte) (value.Value, bool, error) {
	return c.storageAt(ctx, "", pallet, entry, encodedKeys)
}

// StorageMapEntryAt is StorageMapEntry pinned to a block hash.
func (c *Client) StorageMapEntryAt(ctx context.Context, blockHash, pallet, entry string, encodedKeys ...[]byte) (value.Value, bool, error) {
	return c.storageAt(ctx, blockHash, pallet, entry, encodedKeys)
}

func (c *Client) storageAt(ctx context.Context, blockHash, pallet, entry string, encodedKeys [][]byte) (value.Value, bool, error) {
	key, err := storage.KeyFor(c.meta, pallet, entry, encodedKeys...)
	if err != nil {
		return value.Value{}, false, err
	}
	raw, ok, err := c.StorageRaw(ctx, key, blockHash)
	if err != nil || !ok {
		return value.Value{}, false, err
	}
	v, err := c.DecodeStorage(pallet, entry, raw)
	if err != nil {
		return value.Value{}, false, err
	}
	return v, true, nil
}

// StorageRaw fetches the raw bytes under an already-built storage
// key. ok is false when the key holds no value.
func (c *Client) StorageRaw(ctx context.Context, key []byte, blockHash string) ([]byte, bool, error) {
	if c.conn == nil {
		return nil, false, ErrOffline
	}
	params := []any{hexEncode(key)}
	if blockHash != "" {
		params = append(params, blockHash)
	}
	var res *string
	if err := c.conn.Call(ctx, "state_getStorage", params, &res); err != nil {
		return nil, false, err
	}
	if res == nil {
		return nil, false, nil
	}
	data, err := hexDecode(*res)
	if err != nil {
		return nil, false, fmt.Errorf("storage value: %w", err)
	}
	return data, true, nil
}

// DecodeStorage decodes raw storage bytes against an entry's value
// type. It works offline.
func (c *Client) DecodeStorage(pallet, entry string, raw []byte) (value.Value, error) {
	e, ok := c.meta.StorageEntry(pallet, entry)
	if !ok {
		return value.Value{}, fmt.Errorf("%w: %s.%s", storage.ErrEntryNotFound, pallet, entry)
	}
	v, rest, err := value.DecodeValue(raw, e.Value, c.meta.Types)
	if err != nil {
		return value.Value{}, fmt.Errorf("decode %s.%s: %w", pallet, entry, err)
	}
	if len(rest) > 0 {
		return value.Value{}, fmt.Errorf("decode %s.%s: %d trailing bytes", pallet, entry, len(rest))
	}
	return v, nil
}

// Events fetches and decodes the best block's event records.
func (c *Client) Events(ctx context.Context) ([]events.Event, error) {
	return c.EventsAt(ctx, "")
}

// EventsAt is Events pinned to a block hash. A block with no events
// yields an empty slice.
func (c *Client) EventsAt(ctx context.Context, blockHash string) ([]events.Event, error) {
	key, err := storage.KeyFor(c.meta, "System", "Events")
	if err != nil {
		return nil, err
	}
	raw, ok, err := c.StorageRaw(ctx, key, blockHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return c.DecodeEvents(raw)
}

// DecodeEvents decodes a raw System.Events storage value. It works
// offline.
func (c *Client) DecodeEvents(raw []byte) ([]events.Event, error) {
	c.eventsOnce.Do(func() {
		c.eventsRdr, c.eventsErr = events.NewReader(c.meta)
	})
	if c.eventsErr != nil {
		return nil, c.eventsErr
	}
	return c.eventsRdr.Read(raw)
}

// RuntimeVersion fetches the runtime version the node is executing.
func (c *Client) RuntimeVersion(ctx context.Context) (*RuntimeVersion, error) {
	if c.conn == nil {
		return nil, ErrOffline
	}
	var rv RuntimeVersion
	if err := c.conn.Call(ctx, "state_getRuntimeVersion", nil, &rv); err != nil {
		return nil, err
	}
	return &rv, nil
}

// BlockHash fetches the hash of the block at the given height.
func (c *Client) BlockHash(ctx context.Context, number uint64) (string, error) {
	return c.blockHash(ctx, []any{number})
}

// BlockHashLatest fetches the best block's hash.
func (c *Client) BlockHashLatest(ctx context.Context) (string, error) {
	return c.blockHash(ctx, nil)
}

func (c *Client) blockHash(ctx context.Context, params []any) (string, error) {
	if c.conn == nil {
		return "", ErrOffline
	}
	var hash string
	if err := c.conn.Call(ctx, "chain_getBlockHash", params, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// GenesisHash fetches the chain's genesis hash, caching it after the
// first success.
func (c *Client) GenesisHash(ctx context.Context) (string, error) {
	c.genesisMu.Lock()
	defer c.genesisMu.Unlock()
	if c.genesis != "" {
		return c.genesis, nil
	}
	h, err := c.BlockHash(ctx, 0)
	if err != nil {
		return "", err
	}
	c.genesis = h
	return h, nil
}

// SubscribeStorage streams value changes under the given raw keys.
// Decode notification payloads with ParseStorageChanges; nodes push
// the current values immediately after subscribing.
func (c *Client) SubscribeStorage(ctx context.Context, keys ...[]byte) (*rpc.Subscription, error) {
	if c.conn == nil {
		return nil, ErrOffline
	}
	hexKeys := make([]string, len(keys))
	for i, k := range keys {
		hexKeys[i] = hexEncode(k)
	}
	return c.conn.Subscribe(ctx, "state_subscribeStorage", "state_unsubscribeStorage", []any{hexKeys})
}

// SubscribeNewHeads streams block headers as the chain grows. Decode
// notification payloads with ParseHeader.
func (c *Client) SubscribeNewHeads(ctx context.Context) (*rpc.Subscription, error) {
	if c.conn == nil {
		return nil, ErrOffline
	}
	return c.conn.Subscribe(ctx, "chain_subscribeNewHeads", "chain_unsubscribeNewHeads", nil)
}
