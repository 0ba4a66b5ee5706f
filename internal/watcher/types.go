package watcher

import (
	"net/http"
	"time"
)

// Outcome is the classification of a single observation of the target page.
type Outcome string

// Classification outcomes. Only OutcomeAvailable triggers notifications.
const (
	OutcomeAvailable   Outcome = "available"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeUnknown     Outcome = "unknown"
	OutcomeError       Outcome = "error"
)

// FetchRequest captures everything needed to fetch the target page.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// Page is the raw result returned by a Fetcher implementation.
type Page struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Size       int
	Duration   time.Duration
	Rendered   bool
}

// Result is the verdict produced by a Classifier.
type Result struct {
	Outcome    Outcome `json:"outcome"`
	Detail     string  `json:"detail"`
	StatusCode int     `json:"status_code"`
	Size       int     `json:"size"`
}

// Available reports whether the result should trigger a notification.
func (r Result) Available() bool {
	return r.Outcome == OutcomeAvailable
}
