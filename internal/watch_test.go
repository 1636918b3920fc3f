package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iksnae/wa-history/testutil"
)

func TestWatchDir_DeliversNewPayloads(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]bool)
	got := make(chan struct{}, 1)

	errc := make(chan error, 1)
	go func() {
		errc <- WatchDir(ctx, dir, 20*time.Millisecond, func(_ context.Context, docs []RawDocument) error {
			mu.Lock()
			for _, d := range docs {
				seen[d.Name] = true
			}
			mu.Unlock()
			select {
			case got <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	testutil.WritePayloadFile(t, dir, "live.json", testutil.InboundMessage("1", "A", "a1", "x", "1700000000"))
	testutil.WritePayloadFile(t, dir, "ignored.txt", []byte("x"))

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not deliver the payload")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("WatchDir() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !seen["live.json"] {
		t.Errorf("live.json not delivered, seen %v", seen)
	}
	if seen["ignored.txt"] {
		t.Error("non-payload file should be ignored")
	}
}

func TestWatchDir_FlushesPendingOnCancel(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		seen   []string
		ctxErr error
	)
	errc := make(chan error, 1)
	go func() {
		// the debounce never fires, only cancellation flushes
		errc <- WatchDir(ctx, dir, time.Hour, func(hctx context.Context, docs []RawDocument) error {
			mu.Lock()
			defer mu.Unlock()
			for _, d := range docs {
				seen = append(seen, d.Name)
			}
			ctxErr = hctx.Err()
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)
	testutil.WritePayloadFile(t, dir, "late.json", testutil.InboundMessage("1", "A", "a1", "x", "1700000000"))
	time.Sleep(200 * time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("WatchDir() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WatchDir did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "late.json" {
		t.Fatalf("pending file not flushed on cancel, seen %v", seen)
	}
	if ctxErr != nil {
		t.Errorf("flush handler got a cancelled context: %v", ctxErr)
	}
}

func TestWatchDir_FlushIngestsAfterCancel(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	store := newMapStore()
	in := newTestIngestor(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- WatchDir(ctx, dir, time.Hour, func(hctx context.Context, docs []RawDocument) error {
			_, err := in.Ingest(hctx, docs)
			return err
		})
	}()

	time.Sleep(100 * time.Millisecond)
	testutil.WritePayloadFile(t, dir, "late.json", testutil.InboundMessage("15551234567", "Ravi", "m1", "hi", "1700000000"))
	time.Sleep(200 * time.Millisecond)

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("WatchDir() error = %v", err)
	}
	conv := store.get("15551234567")
	if conv == nil || len(conv.Messages) != 1 {
		t.Fatalf("file changed before cancel was not ingested: %+v", conv)
	}
}

func TestWatchDir_MissingDir(t *testing.T) {
	err := WatchDir(context.Background(), "/nonexistent/wa-history/payloads", 0, func(context.Context, []RawDocument) error {
		return nil
	})
	if err == nil {
		t.Error("watching a missing directory should fail")
	}
}
