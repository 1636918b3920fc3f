package internal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce groups file events arriving close together into one batch
const DefaultWatchDebounce = 250 * time.Millisecond

// WatchHandler receives each batch of new or rewritten payload documents
type WatchHandler func(ctx context.Context, docs []RawDocument) error

// WatchDir watches dir for payload files being created or written and hands
// them to fn in debounced batches until ctx is cancelled. Handler errors are
// logged and watching continues. Files still waiting out the debounce when ctx
// is cancelled are handed over once more with a context that is not cancelled.
func WatchDir(ctx context.Context, dir string, debounce time.Duration, fn WatchHandler) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	LogInfo("Watching %s for payload files", dir)

	changed := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	flush := func(ctx context.Context) {
		if len(changed) == 0 {
			return
		}
		paths := make([]string, 0, len(changed))
		for p := range changed {
			paths = append(paths, p)
		}
		clear(changed)
		sort.Strings(paths)

		docs := make([]RawDocument, 0, len(paths))
		for _, p := range paths {
			doc, err := ReadPayloadFile(p)
			if err != nil {
				LogWarn("%v", err)
				continue
			}
			docs = append(docs, doc)
		}
		if len(docs) == 0 {
			return
		}
		if err := fn(ctx, docs); err != nil {
			LogError("Failed to ingest %d watched file(s): %v", len(docs), err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush(context.WithoutCancel(ctx))
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsPayloadFile(ev.Name) || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			LogDebug("Payload file event: %s", ev)
			changed[ev.Name] = struct{}{}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			LogWarn("Watcher error: %v", err)
		case <-timer.C:
			flush(ctx)
		}
	}
}
