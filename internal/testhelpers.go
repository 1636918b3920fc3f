package internal

// CreateTestConversation creates a conversation holding the given messages, normalized
func CreateTestConversation(waID, name string, messages ...StoredMessage) *Conversation {
	conv := NewConversation(waID, name)
	conv.Messages = append(conv.Messages, messages...)
	conv.Normalize()
	return conv
}

// CreateTestMessage creates an inbound message with status sent
func CreateTestMessage(id, text string, timestamp int64) StoredMessage {
	return StoredMessage{
		ID:        id,
		Text:      StringPtr(text),
		Timestamp: timestamp,
		Status:    StatusSent,
	}
}

// CreateTestMessageEvent creates an inbound message event
func CreateTestMessageEvent(waID, id, text string, occurredAt int64) ExtractedEvent {
	return ExtractedEvent{
		Kind:           EventMessage,
		ConversationID: waID,
		EventID:        id,
		Text:           StringPtr(text),
		OccurredAt:     occurredAt,
	}
}

// CreateTestStatusEvent creates a status event
func CreateTestStatusEvent(waID, id, status string) ExtractedEvent {
	return ExtractedEvent{
		Kind:           EventStatus,
		ConversationID: waID,
		EventID:        id,
		Status:         status,
	}
}
