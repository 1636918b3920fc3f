package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/iksnae/wa-history/internal"
)

// MemoryStore holds conversations in process memory. Values are copied
// through JSON on the way in and out so callers never share state with it.
type MemoryStore struct {
	mu    sync.Mutex
	convs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string][]byte)}
}

// FindByConversationID loads one conversation
func (m *MemoryStore) FindByConversationID(_ context.Context, waID string) (*internal.Conversation, error) {
	m.mu.Lock()
	data, ok := m.convs[waID]
	m.mu.Unlock()
	if !ok {
		return nil, internal.ErrNotFound
	}
	var conv internal.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Upsert stores a copy of conv
func (m *MemoryStore) Upsert(_ context.Context, conv *internal.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[conv.WaID] = data
	return nil
}

// ListAll returns copies of every conversation ordered by wa_id
func (m *MemoryStore) ListAll(_ context.Context) ([]*internal.Conversation, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.convs))
	for id := range m.convs {
		ids = append(ids, id)
	}
	snapshot := make(map[string][]byte, len(m.convs))
	for id, data := range m.convs {
		snapshot[id] = data
	}
	m.mu.Unlock()

	sort.Strings(ids)
	convs := make([]*internal.Conversation, 0, len(ids))
	for _, id := range ids {
		var conv internal.Conversation
		if err := json.Unmarshal(snapshot[id], &conv); err != nil {
			return nil, err
		}
		convs = append(convs, &conv)
	}
	return convs, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
