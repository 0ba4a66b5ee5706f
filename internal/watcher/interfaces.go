package watcher

import (
	"context"
	"time"
)

// Fetcher fetches the target page and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (Page, error)
}

// Classifier turns a fetched page into an Outcome. Implementations must be pure.
type Classifier interface {
	Classify(page Page) Result
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
