package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/iksnae/wa-history/testutil"
	"github.com/stretchr/testify/require"
)

func newTestIngestor(store ConversationStore, opts ...IngestorOption) *Ingestor {
	return NewIngestor(store, append([]IngestorOption{WithClock(fixedClock)}, opts...)...)
}

func TestIngest_MessageThenStatusThenReingest(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	in := newTestIngestor(store)
	inbound := RawDocument{Name: "1.json", Data: testutil.InboundMessage("15551234567", "Ravi Kumar", "m1", "hi", "1700000000")}

	result, err := in.Ingest(ctx, []RawDocument{inbound})
	require.NoError(t, err)
	require.Equal(t, 1, result.ConversationsCreated)
	require.NotEmpty(t, result.RunID)

	conv := store.get("15551234567")
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 1)
	require.Equal(t, StatusSent, conv.Messages[0].Status)
	require.Equal(t, int64(1700000000000), conv.Messages[0].Timestamp)
	require.Equal(t, "hi", conv.LastMessage)

	status := RawDocument{Name: "2.json", Data: testutil.StatusUpdate("m1", "read", "15551234567", "1700000060")}
	result, err = in.Ingest(ctx, []RawDocument{status})
	require.NoError(t, err)
	require.Equal(t, 1, result.ConversationsUpdated)
	require.Equal(t, 1, result.StatusesApplied)

	conv = store.get("15551234567")
	require.Len(t, conv.Messages, 1)
	require.Equal(t, StatusRead, conv.Messages[0].Status)

	// the message document alone carries no status event, so the stored
	// status goes back to the batch's "sent"
	result, err = in.Ingest(ctx, []RawDocument{inbound})
	require.NoError(t, err)
	require.Equal(t, 1, result.ConversationsUpdated)

	conv = store.get("15551234567")
	require.Len(t, conv.Messages, 1)
	require.Equal(t, "m1", conv.Messages[0].ID)
	require.Equal(t, StatusSent, conv.Messages[0].Status)

	result, err = in.Ingest(ctx, []RawDocument{inbound})
	require.NoError(t, err)
	require.Equal(t, 1, result.ConversationsUnchanged)
}

func TestIngest_SameBatchTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	docs := []RawDocument{
		{Name: "a.json", Data: testutil.InboundMessage("100", "Alice", "a1", "hello", "1700000000")},
		{Name: "b.json", Data: testutil.OutboundMessage("100", "Alice", "a2", "hi Alice", "1700000010")},
		{Name: "c.json", Data: testutil.StatusUpdate("a2", "delivered", "100", "1700000011")},
		{Name: "d.json", Data: testutil.InboundMessage("200", "Bob", "b1", "yo", "1700000005")},
	}

	once := newMapStore()
	_, err := newTestIngestor(once).Ingest(ctx, docs)
	require.NoError(t, err)

	twice := newMapStore()
	in := newTestIngestor(twice)
	_, err = in.Ingest(ctx, docs)
	require.NoError(t, err)
	result, err := in.Ingest(ctx, docs)
	require.NoError(t, err)
	require.Equal(t, 2, result.ConversationsUnchanged)
	require.Zero(t, result.ConversationsUpdated)

	onceAll, _ := once.ListAll(ctx)
	twiceAll, _ := twice.ListAll(ctx)
	require.Equal(t, onceAll, twiceAll)

	alice := twice.get("100")
	require.Len(t, alice.Messages, 2)
	require.True(t, alice.Messages[1].FromMe)
	require.Equal(t, StatusDelivered, alice.Messages[1].Status)
	require.Equal(t, "hi Alice", alice.LastMessage)
}

func TestIngest_StatusForUnknownConversationCreatesNothing(t *testing.T) {
	store := newMapStore()
	result, err := newTestIngestor(store).Ingest(context.Background(), []RawDocument{
		{Name: "s.json", Data: testutil.StatusUpdate("ghost", "read", "15550000000", "1700000000")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.StatusesDropped)
	require.Zero(t, result.ConversationsCreated)
	require.Empty(t, store.convs)
}

func TestIngest_CountsSkips(t *testing.T) {
	store := newMapStore()
	result, err := newTestIngestor(store).Ingest(context.Background(), []RawDocument{
		{Name: "bad.json", Data: []byte("{nope")},
		{Name: "orphan.json", Data: testutil.StatusUpdate("x", "read", "", "")},
		{Name: "ok.json", Data: testutil.InboundMessage("1", "A", "a1", "x", "1700000000")},
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Documents)
	require.Equal(t, 1, result.DocumentsSkipped)
	require.Equal(t, 1, result.EventsSkipped)
	require.Equal(t, 1, result.Events)
	require.Equal(t, 1, result.ConversationsCreated)
}

func TestIngest_DryRun(t *testing.T) {
	store := newMapStore()
	result, err := newTestIngestor(store, WithDryRun(true)).Ingest(context.Background(), []RawDocument{
		{Name: "ok.json", Data: testutil.InboundMessage("1", "A", "a1", "x", "1700000000")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.ConversationsCreated)
	require.Empty(t, store.convs)
}

func TestIngest_StoreFailureReturnsPartialResult(t *testing.T) {
	store := newMapStore()
	store.upsertErr = errors.New("read-only")
	result, err := newTestIngestor(store).Ingest(context.Background(), []RawDocument{
		{Name: "ok.json", Data: testutil.InboundMessage("1", "A", "a1", "x", "1700000000")},
	})

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	require.NotNil(t, result)
	require.Equal(t, 1, result.Events)
	require.Zero(t, result.ConversationsCreated)
}

func TestIngest_CustomPlaceholder(t *testing.T) {
	store := newMapStore()
	doc := testutil.Envelope(nil, []testutil.MessageRecord{{From: "1", ID: "a1", Text: "x", Timestamp: "1"}}, nil)
	_, err := newTestIngestor(store, WithPlaceholderName("Someone")).Ingest(context.Background(), []RawDocument{{Name: "d", Data: doc}})
	require.NoError(t, err)
	require.Equal(t, "Someone", store.get("1").Name)
}

func TestIngest_ConcurrentBatchesDoNotLoseMessages(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	in := newTestIngestor(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := testutil.InboundMessage("15551234567", "Ravi", fmt.Sprintf("m%02d", i), "msg", fmt.Sprint(1700000000+i))
			if _, err := in.Ingest(ctx, []RawDocument{{Name: "live", Data: doc}}); err != nil {
				t.Errorf("Ingest() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, store.get("15551234567").Messages, 20)
	require.Zero(t, in.locks.Len())
}

func TestIngestDir(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.WritePayloadFile(t, dir, "01_message.json", testutil.InboundMessage("1", "A", "a1", "x", "1700000000"))
	testutil.WritePayloadFile(t, dir, "02_status.json", testutil.StatusUpdate("a1", "read", "1", "1700000001"))
	testutil.WritePayloadFile(t, dir, "notes.txt", []byte("ignored"))

	store := newMapStore()
	result, err := newTestIngestor(store).IngestDir(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 2, result.Documents)
	require.Equal(t, StatusRead, store.get("1").Messages[0].Status)

	_, err = newTestIngestor(store).IngestDir(context.Background(), dir+"/missing")
	require.Error(t, err)
}

func TestAppendOutbound(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	in := newTestIngestor(store)

	conv, msg, err := in.AppendOutbound(ctx, "15551234567", "hello there")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(msg.ID, "msg-"))
	require.True(t, msg.FromMe)
	require.Equal(t, StatusSent, msg.Status)
	require.Equal(t, fixedNow.UnixMilli(), msg.Timestamp)
	require.Equal(t, DefaultAPIPlaceholderName, conv.Name)
	require.Equal(t, "hello there", store.get("15551234567").LastMessage)

	_, _, err = in.AppendOutbound(ctx, "15551234567", "")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = in.AppendOutbound(ctx, "", "text")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	store := newMapStore(CreateTestConversation("1", "A", CreateTestMessage("m1", "hi", 1000)))
	in := newTestIngestor(store)

	msg, err := in.SetStatus(ctx, "1", "m1", StatusDelivered)
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, msg.Status)
	require.Equal(t, StatusDelivered, store.get("1").Messages[0].Status)

	_, err = in.SetStatus(ctx, "1", "nope", StatusRead)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = in.SetStatus(ctx, "2", "m1", StatusRead)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = in.SetStatus(ctx, "1", "m1", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}
