package cli

import (
	"context"
	"errors"

	"github.com/custodia-labs/replyguard/internal/logger"
)

// startIndexWatcher reloads the retrieval index whenever a new generation is
// published, then calls onReload. It returns immediately; watching stops
// with ctx. Without a watcher it does nothing.
func startIndexWatcher(ctx context.Context, onReload func(err error)) {
	watcher, retrieval := indexWatcher, retrievalService
	if watcher == nil || retrieval == nil {
		return
	}

	go func() {
		err := watcher.Watch(ctx, func() {
			err := retrieval.Reload(ctx)
			if err != nil {
				logger.Warn("reload index: %v", err)
			}
			if onReload != nil {
				onReload(err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("index watcher stopped: %v", err)
		}
	}()
}

// warmer is implemented by retrieval services that can preload the index.
type warmer interface {
	Warm(ctx context.Context) error
}

// warmIndex loads the current generation ahead of the first request.
// A missing index is not an error for long-running modes.
func warmIndex(ctx context.Context) {
	w, ok := retrievalService.(warmer)
	if !ok {
		return
	}
	if err := w.Warm(ctx); err != nil {
		logger.Warn("index not loaded: %v", err)
	}
}
