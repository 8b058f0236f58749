// Package server fabricates broadcast messages from raw client payloads.
package server

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one broadcast unit. The server relays it and forgets it;
// each client accumulates its own history from received broadcasts.
type ChatMessage struct {
	ID     string   `json:"id"`
	Sender string   `json:"sender"`
	Text   string   `json:"text"`
	Time   string   `json:"time"`
	SeenBy []string `json:"seenBy"`
}

// messageTimeLayout renders a 2-digit 24-hour clock. The field is display
// text for the UI, not a sortable timestamp.
const messageTimeLayout = "15:04"

// NewChatMessage converts a raw {sender, text} payload into a fully formed
// ChatMessage. Sender and text pass through unvalidated; the id is a fresh
// uuid and the seen-by set starts as the singleton {sender}.
func NewChatMessage(sender, text string) ChatMessage {
	return ChatMessage{
		ID:     uuid.NewString(),
		Sender: sender,
		Text:   text,
		Time:   time.Now().Format(messageTimeLayout),
		SeenBy: []string{sender},
	}
}
