package driven

import "context"

// IndexWatcher reports when a new index generation is published.
type IndexWatcher interface {
	// Watch blocks until ctx is cancelled, calling onChange after each publish.
	Watch(ctx context.Context, onChange func()) error
}
