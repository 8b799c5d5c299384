package poll

import (
	"context"
)

// Poller drives a fetch function until it is stopped
type Poller interface {
	// Run blocks, calling fetch repeatedly until ctx is done or Stop is called
	Run(ctx context.Context, fetch FetchFunc) error
	// Stop asks a running poller to return before its next fetch
	Stop() error
}

// FetchFunc performs one round of work. Returning true means more work may be
// waiting and the poller calls it again at once; false means sleep first.
type FetchFunc func(ctx context.Context) (more bool)
