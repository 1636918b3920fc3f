package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultAPIPlaceholderName labels conversations started through the send API
const DefaultAPIPlaceholderName = "New User"

// RawDocument is one input document, e.g. a payload file or a webhook body
type RawDocument struct {
	Name string
	Data []byte
}

// IngestResult summarizes one ingestion run
type IngestResult struct {
	RunID                  string `json:"runId"`
	Documents              int    `json:"documents"`
	DocumentsSkipped       int    `json:"documentsSkipped"`
	Events                 int    `json:"events"`
	EventsSkipped          int    `json:"eventsSkipped"`
	DuplicateMessages      int    `json:"duplicateMessages"`
	StatusesApplied        int    `json:"statusesApplied"`
	StatusesDropped        int    `json:"statusesDropped"`
	ConversationsCreated   int    `json:"conversationsCreated"`
	ConversationsUpdated   int    `json:"conversationsUpdated"`
	ConversationsUnchanged int    `json:"conversationsUnchanged"`
}

// Ingestor is the public entry point of the engine: raw documents in,
// reconciled conversations persisted through the store.
type Ingestor struct {
	store          ConversationStore
	placeholder    string
	apiPlaceholder string
	now            func() time.Time
	dryRun         bool
	locks          *KeyedMutex
}

// IngestorOption configures an Ingestor
type IngestorOption func(*Ingestor)

// WithPlaceholderName sets the name of conversations ingested without a contact name
func WithPlaceholderName(name string) IngestorOption {
	return func(in *Ingestor) {
		if name != "" {
			in.placeholder = name
		}
	}
}

// WithAPIPlaceholderName sets the name of conversations created by AppendOutbound
func WithAPIPlaceholderName(name string) IngestorOption {
	return func(in *Ingestor) {
		if name != "" {
			in.apiPlaceholder = name
		}
	}
}

// WithClock overrides the wall clock
func WithClock(now func() time.Time) IngestorOption {
	return func(in *Ingestor) {
		if now != nil {
			in.now = now
		}
	}
}

// WithDryRun computes results without writing to the store
func WithDryRun(dryRun bool) IngestorOption {
	return func(in *Ingestor) {
		in.dryRun = dryRun
	}
}

// NewIngestor creates an Ingestor backed by store
func NewIngestor(store ConversationStore, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		store:          store,
		placeholder:    DefaultPlaceholderName,
		apiPlaceholder: DefaultAPIPlaceholderName,
		now:            time.Now,
		locks:          NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Store returns the underlying store
func (in *Ingestor) Store() ConversationStore {
	return in.store
}

// Ingest extracts, merges and reconciles a batch of documents. Extraction and
// merge problems are logged and counted; only store failures are returned,
// together with the counts accumulated so far. Re-running a failed batch is safe.
func (in *Ingestor) Ingest(ctx context.Context, docs []RawDocument) (*IngestResult, error) {
	result := &IngestResult{RunID: uuid.NewString()}

	extractor := NewExtractor(in.now)
	merger := NewMerger(in.placeholder)
	for _, doc := range docs {
		for ev := range extractor.Extract(doc.Name, doc.Data) {
			merger.Apply(ev)
		}
	}
	merged := merger.Finalize()

	result.Documents = extractor.Stats.Documents
	result.DocumentsSkipped = extractor.Stats.DocumentsSkipped
	result.Events = extractor.Stats.Events
	result.EventsSkipped = extractor.Stats.RecordsSkipped
	result.DuplicateMessages = merged.Stats.DuplicateMessages
	result.StatusesApplied = merged.Stats.StatusesApplied

	byID := make(map[string]*MergedConversation, len(merged.Conversations))
	for _, mc := range merged.Conversations {
		byID[mc.Conversation.WaID] = mc
	}
	pendingByID := make(map[string][]PendingStatus)
	for _, ps := range merged.Pending {
		pendingByID[ps.ConversationID] = append(pendingByID[ps.ConversationID], ps)
	}

	ids := make([]string, 0, len(byID)+len(pendingByID))
	for id := range byID {
		ids = append(ids, id)
	}
	for id := range pendingByID {
		if _, ok := byID[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	LogInfo("Run %s: %d document(s), %d event(s), %d conversation(s) touched", result.RunID, result.Documents, result.Events, len(ids))

	reconciler := NewReconciler(in.store, in.dryRun)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rec, err := in.reconcileLocked(ctx, reconciler, id, byID[id], pendingByID[id])
		if err != nil {
			return result, err
		}
		result.StatusesApplied += rec.StatusesApplied
		result.StatusesDropped += rec.StatusesDropped
		switch rec.Outcome {
		case OutcomeCreated:
			result.ConversationsCreated++
			LogInfo("Created conversation %s (%d message(s))", id, len(rec.Conversation.Messages))
		case OutcomeUpdated:
			result.ConversationsUpdated++
			LogInfo("Updated conversation %s (%d message(s))", id, len(rec.Conversation.Messages))
		case OutcomeUnchanged:
			result.ConversationsUnchanged++
			LogDebug("Conversation %s unchanged", id)
		}
	}
	return result, nil
}

func (in *Ingestor) reconcileLocked(ctx context.Context, r *Reconciler, id string, mc *MergedConversation, pending []PendingStatus) (*Reconciliation, error) {
	unlock := in.locks.Lock(id)
	defer unlock()
	return r.Reconcile(ctx, id, mc, pending)
}

// IngestDir ingests every payload file of a directory
func (in *Ingestor) IngestDir(ctx context.Context, dir string) (*IngestResult, error) {
	docs, err := ReadPayloadDir(dir)
	if err != nil {
		return nil, err
	}
	LogInfo("Found %d JSON file(s) to process in %s", len(docs), dir)
	return in.Ingest(ctx, docs)
}

// AppendOutbound records a message sent by the owning account and returns the
// updated conversation. The conversation is created when absent.
func (in *Ingestor) AppendOutbound(ctx context.Context, waID, text string) (*Conversation, *StoredMessage, error) {
	if waID == "" || text == "" {
		return nil, nil, fmt.Errorf("%w: wa_id and text are required", ErrInvalidInput)
	}
	unlock := in.locks.Lock(waID)
	defer unlock()

	conv, err := in.store.FindByConversationID(ctx, waID)
	switch {
	case errors.Is(err, ErrNotFound):
		conv = NewConversation(waID, in.apiPlaceholder)
		LogInfo("Created new conversation for wa_id: %s", waID)
	case err != nil:
		return nil, nil, &StoreError{Op: "find", ConversationID: waID, Err: err}
	}

	msg := StoredMessage{
		ID:        "msg-" + uuid.NewString(),
		Text:      StringPtr(text),
		Timestamp: in.now().UnixMilli(),
		Status:    StatusSent,
		FromMe:    true,
	}
	conv.Messages = append(conv.Messages, msg)
	conv.Normalize()

	if err := in.store.Upsert(ctx, conv); err != nil {
		return nil, nil, &StoreError{Op: "upsert", ConversationID: waID, Err: err}
	}
	return conv, &msg, nil
}

// SetStatus overwrites the status of one stored message
func (in *Ingestor) SetStatus(ctx context.Context, waID, messageID, status string) (*StoredMessage, error) {
	if status == "" {
		return nil, fmt.Errorf("%w: status is required", ErrInvalidInput)
	}
	unlock := in.locks.Lock(waID)
	defer unlock()

	conv, err := in.store.FindByConversationID(ctx, waID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("conversation %s: %w", waID, ErrNotFound)
	}
	if err != nil {
		return nil, &StoreError{Op: "find", ConversationID: waID, Err: err}
	}
	pos := conv.FindMessage(messageID)
	if pos < 0 {
		return nil, fmt.Errorf("message %s in conversation %s: %w", messageID, waID, ErrNotFound)
	}
	conv.Messages[pos].Status = status
	if err := in.store.Upsert(ctx, conv); err != nil {
		return nil, &StoreError{Op: "upsert", ConversationID: waID, Err: err}
	}
	msg := conv.Messages[pos]
	return &msg, nil
}
