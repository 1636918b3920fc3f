package internal

import (
	"encoding/json"
	"sort"
	"time"
)

// EventKind distinguishes the two canonical event shapes
type EventKind int

const (
	EventMessage EventKind = iota + 1
	EventStatus
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Message status values. Any other value carried by a status event is stored as-is.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// ExtractedEvent is one canonical record produced from a raw webhook document
type ExtractedEvent struct {
	Kind           EventKind `json:"kind"`
	ConversationID string    `json:"conversationId"`
	EventID        string    `json:"eventId"`
	Text           *string   `json:"text,omitempty"`
	DisplayName    *string   `json:"displayName,omitempty"`
	Status         string    `json:"status,omitempty"`
	OccurredAt     int64     `json:"occurredAt"` // epoch millis
	Outbound       bool      `json:"outbound,omitempty"`
}

// Conversation is the durable aggregate of all messages exchanged with one counterparty.
// The JSON/BSON field names are the persisted document shape.
type Conversation struct {
	WaID        string          `json:"wa_id" yaml:"wa_id" bson:"wa_id"`
	Name        string          `json:"name" yaml:"name" bson:"name"`
	LastMessage string          `json:"lastMessage" yaml:"lastMessage" bson:"lastMessage"`
	Messages    []StoredMessage `json:"messages" yaml:"messages" bson:"messages"`
}

// StoredMessage is a message owned by its Conversation
type StoredMessage struct {
	ID        string  `json:"id" yaml:"id" bson:"id"`
	Text      *string `json:"text" yaml:"text" bson:"text"`
	Timestamp int64   `json:"timestamp" yaml:"timestamp" bson:"timestamp"` // epoch millis
	Status    string  `json:"status" yaml:"status" bson:"status"`
	FromMe    bool    `json:"fromMe" yaml:"fromMe" bson:"fromMe"`
}

// NewConversation creates an empty conversation
func NewConversation(waID, name string) *Conversation {
	return &Conversation{
		WaID:     waID,
		Name:     name,
		Messages: []StoredMessage{},
	}
}

// FindMessage returns the index of the message with the given id, or -1
func (c *Conversation) FindMessage(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Normalize restores the ordering and derived-field invariants:
// messages ascending by timestamp (stable) and lastMessage equal to the last message's text.
func (c *Conversation) Normalize() {
	sort.SliceStable(c.Messages, func(i, j int) bool {
		return c.Messages[i].Timestamp < c.Messages[j].Timestamp
	})
	c.LastMessage = ""
	if n := len(c.Messages); n > 0 {
		c.LastMessage = c.Messages[n-1].TextValue()
	}
}

// Clone returns a deep copy
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := &Conversation{
		WaID:        c.WaID,
		Name:        c.Name,
		LastMessage: c.LastMessage,
		Messages:    make([]StoredMessage, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		out.Messages[i] = msg
		if msg.Text != nil {
			text := *msg.Text
			out.Messages[i].Text = &text
		}
	}
	return out
}

// TextValue returns the message text or an empty string
func (m StoredMessage) TextValue() string {
	if m.Text == nil {
		return ""
	}
	return *m.Text
}

// Time returns the message timestamp as a time.Time
func (m StoredMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// ToJSON converts the conversation to its persisted JSON document
func (c *Conversation) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
