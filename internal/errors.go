package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when a conversation does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks requests missing required fields
	ErrInvalidInput = errors.New("invalid input")
)

// ParseError represents a document that could not be parsed as structured data
type ParseError struct {
	Source string // document name, e.g. file path or "webhook"
	Key    string // location inside the document, empty for the whole document
	Err    error
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("parse error [%s]: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IdentityError represents an event record whose conversation id cannot be resolved
type IdentityError struct {
	Kind    EventKind
	EventID string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("unresolvable conversation for %s event %q", e.Kind, e.EventID)
}

// StoreError represents a failure of the persistence collaborator
type StoreError struct {
	Op             string // "find", "upsert", "list"
	ConversationID string
	Err            error
}

func (e *StoreError) Error() string {
	if e.ConversationID == "" {
		return fmt.Sprintf("store error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store error: %s %s: %v", e.Op, e.ConversationID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
