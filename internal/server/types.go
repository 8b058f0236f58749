// Package server defines the event envelope and payload types exchanged
// with clients, plus helpers shared across client and hub logic.
package server

import (
	"encoding/json"
	"strings"
)

// Inbound event names (client -> server).
const (
	EventRegisterUser = "registerUser"
	EventSendMessage  = "sendMessage"
	EventTyping       = "typing"
	EventMessageSeen  = "messageSeen"
)

// Outbound event names (server -> client).
const (
	EventReceiveMessage    = "receiveMessage"
	EventUserTyping        = "userTyping"
	EventMessageSeenUpdate = "messageSeenUpdate"
)

// Frame is the JSON envelope carried on every WebSocket message. Data is
// left raw so each event decodes it into its own payload type.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SendMessagePayload is the raw client submission behind a sendMessage
// event. Both fields pass through the fabricator unvalidated.
type SendMessagePayload struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// SeenPayload asserts that a user has seen a message. The server holds no
// message state, so it relays the pair without checking the id.
type SeenPayload struct {
	MessageID string `json:"messageId"`
	User      string `json:"user"`
}

// inboundEvent pairs a decoded frame with the connection it arrived on.
type inboundEvent struct {
	client *Client
	frame  Frame
}

// encodeFrame marshals an outbound event into wire form.
func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
