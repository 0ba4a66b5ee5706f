// Package notify delivers slot alerts over the configured channels.
//
// A Dispatcher fans a Notice out to every Channel independently. Alert rounds
// are gated by a cooldown; test rounds bypass it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotConfigured is returned by a channel that lacks credentials.
var ErrNotConfigured = errors.New("channel not configured")

// Kind distinguishes real alerts from manual tests.
type Kind string

// Notice kinds.
const (
	KindAlert Kind = "alert"
	KindTest  Kind = "test"
)

// Notice is the payload handed to every channel.
type Notice struct {
	Kind       Kind
	BookingURL string
	Detail     string
	Checks     int64
	At         time.Time
}

// Channel is one delivery path.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notice) error
}

// Report records the outcome of a dispatch round per channel.
type Report struct {
	Delivered map[string]bool
	Errors    []string
}

func newReport() Report {
	return Report{Delivered: make(map[string]bool), Errors: []string{}}
}

// Any reports whether at least one channel delivered.
func (r Report) Any() bool {
	for _, ok := range r.Delivered {
		if ok {
			return true
		}
	}
	return false
}

// MarshalJSON renders {"<channel>": bool, ..., "errors": [...]}.
func (r Report) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Delivered)+1)
	for name, ok := range r.Delivered {
		out[name] = ok
	}
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	out["errors"] = errs
	return json.Marshal(out)
}
