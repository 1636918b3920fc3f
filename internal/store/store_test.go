package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iksnae/wa-history/internal"
	"github.com/iksnae/wa-history/testutil"
)

// runStoreContract exercises the behavior every backend must share
func runStoreContract(t *testing.T, s internal.ConversationStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.FindByConversationID(ctx, "15551234567")
	require.ErrorIs(t, err, internal.ErrNotFound)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	conv := internal.CreateTestConversation("15551234567", "Ravi Kumar",
		internal.CreateTestMessage("m1", "hi", 1700000000000),
	)
	conv.Messages = append(conv.Messages, internal.StoredMessage{
		ID: "m2", Timestamp: 1700000001000, Status: internal.StatusDelivered, FromMe: true,
	})
	conv.Normalize()
	require.NoError(t, s.Upsert(ctx, conv))

	got, err := s.FindByConversationID(ctx, "15551234567")
	require.NoError(t, err)
	require.Equal(t, internal.Fingerprint(conv), internal.Fingerprint(got))
	require.Nil(t, got.Messages[1].Text)

	got.Messages[0].Status = internal.StatusRead
	got.Name = "Ravi K."
	require.NoError(t, s.Upsert(ctx, got))

	again, err := s.FindByConversationID(ctx, "15551234567")
	require.NoError(t, err)
	require.Equal(t, internal.StatusRead, again.Messages[0].Status)
	require.Equal(t, "Ravi K.", again.Name)
	require.Len(t, again.Messages, 2)

	require.NoError(t, s.Upsert(ctx, internal.CreateTestConversation("100", "A")))
	all, err = s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "100", all[0].WaID)
	require.Equal(t, "15551234567", all[1].WaID)
	require.NotNil(t, all[0].Messages)
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	conv := internal.CreateTestConversation("1", "A", internal.CreateTestMessage("m1", "hi", 1))
	require.NoError(t, s.Upsert(ctx, conv))

	conv.Messages[0].Status = internal.StatusRead
	got, err := s.FindByConversationID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, internal.StatusSent, got.Messages[0].Status)
}

func TestOpen_Schemes(t *testing.T) {
	ctx := context.Background()
	dir := testutil.CreateTempDir(t)

	tests := []struct {
		name    string
		dsn     string
		want    string
		wantErr error
	}{
		{"memory", "memory://", "*store.MemoryStore", nil},
		{"sqlite url", "sqlite://" + dir + "/a.db", "*store.SQLStore", nil},
		{"sqlite in memory", "sqlite://:memory:", "*store.SQLStore", nil},
		{"bare path", dir + "/b.db", "*store.SQLStore", nil},
		{"empty", "  ", "", internal.ErrInvalidInput},
		{"unknown", "redis://localhost", "", internal.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.dsn, Options{})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			require.Equal(t, tt.want, typeName(s))
		})
	}
}

func TestDescribe(t *testing.T) {
	require.Equal(t, "postgres://app@db:5432/wa", Describe("postgres://app:secret@db:5432/wa"))
	require.Equal(t, "sqlite://./wa-history.db", Describe("sqlite://./wa-history.db"))
}

func TestOptionsTimeoutDefault(t *testing.T) {
	require.Equal(t, DefaultOperationTimeout, Options{}.timeout())
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *MemoryStore:
		return "*store.MemoryStore"
	case *SQLStore:
		return "*store.SQLStore"
	case *MongoStore:
		return "*store.MongoStore"
	case *DynamoStore:
		return "*store.DynamoStore"
	default:
		return "unknown"
	}
}

var errInjected = errors.New("injected failure")
