package internal

import (
	"context"
	"errors"
)

// ConversationStore is the persistence collaborator of the engine.
// FindByConversationID returns ErrNotFound when no conversation is stored.
type ConversationStore interface {
	FindByConversationID(ctx context.Context, waID string) (*Conversation, error)
	Upsert(ctx context.Context, conv *Conversation) error
	ListAll(ctx context.Context) ([]*Conversation, error)
	Close() error
}

// Outcome describes what reconciliation did to one conversation
type Outcome int

const (
	OutcomeSkipped Outcome = iota // nothing to persist
	OutcomeCreated
	OutcomeUpdated
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "skipped"
	}
}

// Reconciliation is the result for one conversation
type Reconciliation struct {
	Outcome         Outcome
	Conversation    *Conversation // reconciled state, nil when skipped
	StatusesApplied int
	StatusesDropped int
}

// Reconciler merges batch results into stored conversations
type Reconciler struct {
	store  ConversationStore
	dryRun bool
}

// NewReconciler creates a Reconciler. With dryRun the reconciled state is
// computed but never upserted.
func NewReconciler(store ConversationStore, dryRun bool) *Reconciler {
	return &Reconciler{store: store, dryRun: dryRun}
}

// Reconcile performs the read-modify-write of one conversation. merged may be
// nil when the batch only carried status events for the conversation.
// Callers running concurrently must serialize calls per conversation id.
func (r *Reconciler) Reconcile(ctx context.Context, waID string, merged *MergedConversation, pending []PendingStatus) (*Reconciliation, error) {
	stored, err := r.store.FindByConversationID(ctx, waID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, &StoreError{Op: "find", ConversationID: waID, Err: err}
	}
	if errors.Is(err, ErrNotFound) {
		stored = nil
	}

	rec := &Reconciliation{}
	var next *Conversation
	if stored == nil {
		// Nothing stored to attach status events to.
		rec.StatusesDropped = len(pending)
		if len(pending) > 0 {
			LogDebug("Dropping %d status event(s) for unknown conversation %s", len(pending), waID)
		}
		if merged == nil {
			rec.Outcome = OutcomeSkipped
			return rec, nil
		}
		next = merged.Conversation.Clone()
		next.Normalize()
		rec.Outcome = OutcomeCreated
	} else {
		next = stored.Clone()
		rec.StatusesApplied, rec.StatusesDropped = applyPending(next, pending)
		if merged != nil {
			mergeInto(next, merged)
		}
		next.Normalize()
		if Fingerprint(next) == Fingerprint(stored) {
			rec.Outcome = OutcomeUnchanged
			rec.Conversation = next
			return rec, nil
		}
		rec.Outcome = OutcomeUpdated
	}

	rec.Conversation = next
	if r.dryRun {
		return rec, nil
	}
	if err := r.store.Upsert(ctx, next); err != nil {
		return nil, &StoreError{Op: "upsert", ConversationID: waID, Err: err}
	}
	return rec, nil
}

// applyPending applies status events against stored messages in processing order
func applyPending(conv *Conversation, pending []PendingStatus) (applied, dropped int) {
	for _, ps := range pending {
		pos := conv.FindMessage(ps.EventID)
		if pos < 0 {
			dropped++
			LogDebug("Dropping status '%s' for unknown message %s in conversation %s", ps.Status, ps.EventID, conv.WaID)
			continue
		}
		conv.Messages[pos].Status = ps.Status
		applied++
	}
	return applied, dropped
}

// mergeInto appends batch messages absent from conv. Messages already stored
// take the batch's status, which is "sent" unless a status event in the batch
// moved it. Text, timestamp and direction of stored messages never change.
func mergeInto(conv *Conversation, merged *MergedConversation) {
	if merged.NamedByEvent {
		conv.Name = merged.Conversation.Name
	}
	for _, msg := range merged.Conversation.Messages {
		pos := conv.FindMessage(msg.ID)
		if pos < 0 {
			conv.Messages = append(conv.Messages, msg)
			continue
		}
		conv.Messages[pos].Status = msg.Status
	}
}
