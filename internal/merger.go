package internal

import (
	"sort"
)

// DefaultPlaceholderName labels conversations created before any name is known
const DefaultPlaceholderName = "Unknown User"

// MergedConversation is a conversation built from one batch, plus what the
// batch knows about it beyond the aggregate itself.
type MergedConversation struct {
	Conversation *Conversation
	// NamedByEvent is set when a message event in the batch carried a display name
	NamedByEvent bool
}

// PendingStatus is a status event whose message was not part of the batch.
// It can only be applied against stored state.
type PendingStatus struct {
	ConversationID string
	EventID        string
	Status         string
}

// MergeStats counts the outcome of each applied event
type MergeStats struct {
	Messages          int `json:"messages"`
	DuplicateMessages int `json:"duplicateMessages"`
	StatusesApplied   int `json:"statusesApplied"`
	StatusesPending   int `json:"statusesPending"`
}

// MergeResult is the finalized output of a Merger
type MergeResult struct {
	Conversations []*MergedConversation // ordered by conversation id
	Pending       []PendingStatus       // in processing order
	Stats         MergeStats
}

// Merger applies a batch of events to conversation state owned by the batch
type Merger struct {
	placeholder string
	convs       map[string]*MergedConversation
	index       map[string]map[string]int // conversation id -> message id -> position
	pending     []PendingStatus
	stats       MergeStats
}

// NewMerger creates a Merger; conversations created without a name get placeholder
func NewMerger(placeholder string) *Merger {
	if placeholder == "" {
		placeholder = DefaultPlaceholderName
	}
	return &Merger{
		placeholder: placeholder,
		convs:       make(map[string]*MergedConversation),
		index:       make(map[string]map[string]int),
	}
}

// Apply applies a single event in processing order
func (m *Merger) Apply(ev ExtractedEvent) {
	switch ev.Kind {
	case EventMessage:
		m.applyMessage(ev)
	case EventStatus:
		m.applyStatus(ev)
	default:
		LogDebug("Ignoring event %q of unknown kind %d", ev.EventID, ev.Kind)
	}
}

func (m *Merger) applyMessage(ev ExtractedEvent) {
	mc, ok := m.convs[ev.ConversationID]
	if !ok {
		mc = &MergedConversation{
			Conversation: NewConversation(ev.ConversationID, m.placeholder),
		}
		m.convs[ev.ConversationID] = mc
		m.index[ev.ConversationID] = make(map[string]int)
		LogDebug("New conversation identified with WA ID: %s", ev.ConversationID)
	}
	conv := mc.Conversation

	if ev.DisplayName != nil && *ev.DisplayName != "" {
		conv.Name = *ev.DisplayName
		mc.NamedByEvent = true
	}

	idx := m.index[ev.ConversationID]
	if _, exists := idx[ev.EventID]; exists {
		m.stats.DuplicateMessages++
		LogDebug("Message %s already present in conversation %s", ev.EventID, ev.ConversationID)
		return
	}

	idx[ev.EventID] = len(conv.Messages)
	conv.Messages = append(conv.Messages, StoredMessage{
		ID:        ev.EventID,
		Text:      ev.Text,
		Timestamp: ev.OccurredAt,
		Status:    StatusSent,
		FromMe:    ev.Outbound,
	})
	conv.LastMessage = conv.Messages[len(conv.Messages)-1].TextValue()
	m.stats.Messages++
	LogDebug("Added message %s to conversation %s", ev.EventID, ev.ConversationID)
}

// applyStatus is last-write-wins in processing order; no rank between status values is enforced.
func (m *Merger) applyStatus(ev ExtractedEvent) {
	if mc, ok := m.convs[ev.ConversationID]; ok {
		if pos, found := m.index[ev.ConversationID][ev.EventID]; found {
			mc.Conversation.Messages[pos].Status = ev.Status
			m.stats.StatusesApplied++
			LogDebug("Updated status of message %s to '%s'", ev.EventID, ev.Status)
			return
		}
	}
	m.pending = append(m.pending, PendingStatus{
		ConversationID: ev.ConversationID,
		EventID:        ev.EventID,
		Status:         ev.Status,
	})
	m.stats.StatusesPending++
	LogDebug("Status '%s' for message %s not in batch, deferring to stored state", ev.Status, ev.EventID)
}

// Finalize sorts every touched conversation and recomputes derived fields.
// The Merger must not be used afterwards.
func (m *Merger) Finalize() *MergeResult {
	result := &MergeResult{
		Conversations: make([]*MergedConversation, 0, len(m.convs)),
		Pending:       m.pending,
		Stats:         m.stats,
	}
	for _, mc := range m.convs {
		mc.Conversation.Normalize()
		result.Conversations = append(result.Conversations, mc)
	}
	sort.Slice(result.Conversations, func(i, j int) bool {
		return result.Conversations[i].Conversation.WaID < result.Conversations[j].Conversation.WaID
	})
	m.index = nil
	return result
}

// MergeEvents is a convenience wrapper applying events to a fresh Merger
func MergeEvents(placeholder string, events []ExtractedEvent) *MergeResult {
	m := NewMerger(placeholder)
	for _, ev := range events {
		m.Apply(ev)
	}
	return m.Finalize()
}
