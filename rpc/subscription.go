package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Notifications a node pushes before the subscribe response has been
// processed are held back per id, at most this many.
const orphanCap = 16

// Subscription is a server-push stream opened by Conn.Subscribe.
type Subscription struct {
	conn        *Conn
	id          string
	unsubMethod string
	ch          chan json.RawMessage
	once        sync.Once
}

// ID returns the node-assigned subscription id.
func (s *Subscription) ID() string { return s.id }

// Notifications returns the update stream. Each element is the result
// payload of one notification. The channel closes when the
// subscription or the connection ends.
func (s *Subscription) Notifications() <-chan json.RawMessage { return s.ch }

// Unsubscribe tells the node to stop the stream and closes the
// notification channel. It is safe to call more than once, and after
// the connection has already gone away.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		var ok bool
		err = s.conn.Call(ctx, s.unsubMethod, []any{s.id}, &ok)
		s.conn.removeSub(s.id)
		if errors.Is(err, ErrClosed) {
			err = nil
			return
		}
		if err == nil && !ok {
			s.conn.log.Warn("node did not acknowledge unsubscribe", zap.String("subscription", s.id))
		}
	})
	return err
}

// Subscribe opens a server-push stream: method starts it and
// unsubMethod, called by Unsubscribe, ends it. params follows Call's
// shape. Updates that raced ahead of the subscribe response are
// delivered first.
func (c *Conn) Subscribe(ctx context.Context, method, unsubMethod string, params any) (*Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.subscribing++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.subscribing--
		if c.subscribing == 0 {
			c.orphans = nil
		}
		c.mu.Unlock()
	}()

	var raw json.RawMessage
	if err := c.Call(ctx, method, params, &raw); err != nil {
		return nil, err
	}
	id, err := subscriptionID(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	s := &Subscription{
		conn:        c,
		id:          id,
		unsubMethod: unsubMethod,
		ch:          make(chan json.RawMessage, c.notifyBuffer),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.subs[id] = s
	for _, upd := range c.orphans[id] {
		c.deliverLocked(s, upd)
	}
	delete(c.orphans, id)
	return s, nil
}

func (c *Conn) removeSub(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(s.ch)
	}
}

// routeNotification hands a subscription update to its channel. While
// a Subscribe call is in flight, updates for ids nobody owns yet are
// held back instead of dropped.
func (c *Conn) routeNotification(params json.RawMessage) {
	var note notification
	if err := json.Unmarshal(params, &note); err != nil {
		c.log.Warn("malformed subscription notification", zap.Error(err))
		return
	}
	id, err := subscriptionID(note.Subscription)
	if err != nil {
		c.log.Warn("malformed subscription notification", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.subs[id]
	if !ok {
		if c.subscribing > 0 && len(c.orphans[id]) < orphanCap {
			if c.orphans == nil {
				c.orphans = make(map[string][]json.RawMessage)
			}
			c.orphans[id] = append(c.orphans[id], note.Result)
			return
		}
		c.log.Warn("notification for unknown subscription", zap.String("subscription", id))
		return
	}
	c.deliverLocked(s, note.Result)
}

// deliverLocked posts one update without ever blocking, dropping the
// oldest buffered update when the consumer lags. Caller holds c.mu.
func (c *Conn) deliverLocked(s *Subscription, upd json.RawMessage) {
	select {
	case s.ch <- upd:
		return
	default:
	}
	select {
	case <-s.ch:
		c.log.Warn("subscription consumer lagging, dropped oldest update", zap.String("subscription", s.id))
	default:
	}
	select {
	case s.ch <- upd:
	default:
	}
}
