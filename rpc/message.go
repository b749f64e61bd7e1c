package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// message is anything the node sends: a response to a call when ID is
// set, a subscription notification when Method is.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// notification is the params payload of a subscription message.
type notification struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// Error is the error object of a JSON-RPC response. Call returns it
// wrapped, so errors.As recovers the code.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("node error %d: %s", e.Code, e.Message)
}

// subscriptionID normalizes the id a node assigned to a subscription.
// Current nodes hand out strings, older ones numbers.
func subscriptionID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatUint(n, 10), nil
	}
	return "", fmt.Errorf("unusable subscription id %s", raw)
}
