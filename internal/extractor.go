package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"
	"time"
)

// envelope is the outer webhook document. Entries are kept raw so that one
// malformed entry does not prevent the others from being read.
type envelope struct {
	MetaData *struct {
		Entry []json.RawMessage `json:"entry"`
	} `json:"metaData"`
	Entry []json.RawMessage `json:"entry"`
}

type webhookEntry struct {
	Changes []json.RawMessage `json:"changes"`
}

type webhookChange struct {
	Value changeValue `json:"value"`
}

type changeValue struct {
	Metadata struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
	} `json:"metadata"`
	Contacts []webhookContact `json:"contacts"`
	Messages []json.RawMessage `json:"messages"`
	Statuses []json.RawMessage `json:"statuses"`
}

type webhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type messageRecord struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type statusRecord struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Timestamp   json.RawMessage `json:"timestamp"`
	RecipientID string          `json:"recipient_id"`
}

// ExtractStats counts what an Extractor saw and skipped
type ExtractStats struct {
	Documents        int `json:"documents"`
	DocumentsSkipped int `json:"documentsSkipped"`
	RecordsSkipped   int `json:"recordsSkipped"`
	Events           int `json:"events"`
}

// Extractor turns raw webhook documents into canonical events.
// Malformed documents, entries and records are logged and skipped.
type Extractor struct {
	now   func() time.Time
	Stats ExtractStats
}

// NewExtractor creates an Extractor. now supplies the fallback timestamp for
// records without a source timestamp; nil means time.Now.
func NewExtractor(now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{now: now}
}

// Extract lazily yields the events contained in one raw document. A document
// that is a JSON array is treated as a list of documents.
func (x *Extractor) Extract(source string, data []byte) iter.Seq[ExtractedEvent] {
	return func(yield func(ExtractedEvent) bool) {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(trimmed, &items); err != nil {
				x.skipDocument(&ParseError{Source: source, Err: err})
				return
			}
			for i, item := range items {
				if !x.extractEnvelope(fmt.Sprintf("%s[%d]", source, i), item, yield) {
					return
				}
			}
			return
		}
		x.extractEnvelope(source, trimmed, yield)
	}
}

// ExtractAll collects every event of a document
func (x *Extractor) ExtractAll(source string, data []byte) []ExtractedEvent {
	var events []ExtractedEvent
	for ev := range x.Extract(source, data) {
		events = append(events, ev)
	}
	return events
}

func (x *Extractor) skipDocument(err error) {
	x.Stats.Documents++
	x.Stats.DocumentsSkipped++
	LogWarn("Skipping document: %v", err)
}

func (x *Extractor) skipRecord(err error) {
	x.Stats.RecordsSkipped++
	LogWarn("Skipping record: %v", err)
}

func (x *Extractor) emit(ev ExtractedEvent, yield func(ExtractedEvent) bool) bool {
	x.Stats.Events++
	return yield(ev)
}

func (x *Extractor) extractEnvelope(source string, data []byte, yield func(ExtractedEvent) bool) bool {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		x.skipDocument(&ParseError{Source: source, Err: err})
		return true
	}
	x.Stats.Documents++

	entries := env.Entry
	if env.MetaData != nil && len(env.MetaData.Entry) > 0 {
		entries = env.MetaData.Entry
	}

	for i, rawEntry := range entries {
		var entry webhookEntry
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			x.skipRecord(&ParseError{Source: source, Key: fmt.Sprintf("entry[%d]", i), Err: err})
			continue
		}
		for j, rawChange := range entry.Changes {
			var change webhookChange
			if err := json.Unmarshal(rawChange, &change); err != nil {
				x.skipRecord(&ParseError{Source: source, Key: fmt.Sprintf("entry[%d].changes[%d]", i, j), Err: err})
				continue
			}
			key := fmt.Sprintf("entry[%d].changes[%d].value", i, j)
			if !x.extractValue(source, key, &change.Value, yield) {
				return false
			}
		}
	}
	return true
}

func (x *Extractor) extractValue(source, key string, value *changeValue, yield func(ExtractedEvent) bool) bool {
	for k, raw := range value.Messages {
		var rec messageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			x.skipRecord(&ParseError{Source: source, Key: fmt.Sprintf("%s.messages[%d]", key, k), Err: err})
			continue
		}
		ev, err := x.messageEvent(&rec, value)
		if err != nil {
			x.skipRecord(err)
			continue
		}
		if !x.emit(ev, yield) {
			return false
		}
	}

	for k, raw := range value.Statuses {
		var rec statusRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			x.skipRecord(&ParseError{Source: source, Key: fmt.Sprintf("%s.statuses[%d]", key, k), Err: err})
			continue
		}
		ev, err := x.statusEvent(&rec, value)
		if err != nil {
			x.skipRecord(err)
			continue
		}
		if !x.emit(ev, yield) {
			return false
		}
	}
	return true
}

func (x *Extractor) messageEvent(rec *messageRecord, value *changeValue) (ExtractedEvent, error) {
	if rec.ID == "" {
		return ExtractedEvent{}, fmt.Errorf("%w: message record without id", ErrInvalidInput)
	}
	outbound := isOutbound(rec.From, value.Metadata.DisplayPhoneNumber)
	conversationID, ok := messageConversationID(rec, value, outbound)
	if !ok {
		return ExtractedEvent{}, &IdentityError{Kind: EventMessage, EventID: rec.ID}
	}

	ev := ExtractedEvent{
		Kind:           EventMessage,
		ConversationID: conversationID,
		EventID:        rec.ID,
		OccurredAt:     x.occurredAt(rec.Timestamp),
		Outbound:       outbound,
	}
	if rec.Text != nil {
		ev.Text = StringPtr(rec.Text.Body)
	}
	if contact, ok := firstContact(value); ok {
		ev.DisplayName = StringPtr(contact.Profile.Name)
	}
	return ev, nil
}

func (x *Extractor) statusEvent(rec *statusRecord, value *changeValue) (ExtractedEvent, error) {
	if rec.ID == "" {
		return ExtractedEvent{}, fmt.Errorf("%w: status record without id", ErrInvalidInput)
	}
	if rec.Status == "" {
		return ExtractedEvent{}, fmt.Errorf("%w: status record %q without status", ErrInvalidInput, rec.ID)
	}
	conversationID, ok := statusConversationID(rec, value)
	if !ok {
		return ExtractedEvent{}, &IdentityError{Kind: EventStatus, EventID: rec.ID}
	}
	return ExtractedEvent{
		Kind:           EventStatus,
		ConversationID: conversationID,
		EventID:        rec.ID,
		Status:         rec.Status,
		OccurredAt:     x.occurredAt(rec.Timestamp),
	}, nil
}

// occurredAt converts a source timestamp in epoch seconds to millis, falling
// back to the extraction wall clock when absent or unparseable.
func (x *Extractor) occurredAt(raw json.RawMessage) int64 {
	if secs, ok := parseEpochSeconds(raw); ok {
		return secs * 1000
	}
	return x.now().UnixMilli()
}

// isOutbound reports whether the sender is the owning account itself
func isOutbound(from, ownNumber string) bool {
	return from != "" && from == ownNumber
}

func firstContact(value *changeValue) (webhookContact, bool) {
	if len(value.Contacts) == 0 {
		return webhookContact{}, false
	}
	return value.Contacts[0], true
}

// messageConversationID files outbound messages under the counterparty
// (first contact) and inbound messages under their sender.
func messageConversationID(rec *messageRecord, value *changeValue, outbound bool) (string, bool) {
	if !outbound {
		return rec.From, rec.From != ""
	}
	contact, ok := firstContact(value)
	if !ok || contact.WaID == "" {
		return "", false
	}
	return contact.WaID, true
}

// statusConversationID prefers the first contact, then the recipient.
func statusConversationID(rec *statusRecord, value *changeValue) (string, bool) {
	if contact, ok := firstContact(value); ok && contact.WaID != "" {
		return contact.WaID, true
	}
	return rec.RecipientID, rec.RecipientID != ""
}

// parseEpochSeconds accepts a JSON number or numeric string. Fractional
// values are truncated.
func parseEpochSeconds(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f), true
	}
	return 0, false
}
