package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/slotwatcher/internal/metrics"
	"github.com/JakeFAU/slotwatcher/internal/watcher"
)

// DefaultCooldown is the minimum spacing between alert rounds.
const DefaultCooldown = 5 * time.Minute

// Dispatcher fans notices out to its channels.
type Dispatcher struct {
	channels []Channel
	clock    watcher.Clock
	cooldown time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	lastSent time.Time
}

// NewDispatcher builds a Dispatcher. A negative cooldown selects DefaultCooldown.
func NewDispatcher(clock watcher.Clock, cooldown time.Duration, logger *zap.Logger, channels ...Channel) *Dispatcher {
	if cooldown < 0 {
		cooldown = DefaultCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		channels: channels,
		clock:    clock,
		cooldown: cooldown,
		logger:   logger,
	}
}

// Notify runs an alert round unless one was attempted within the cooldown. The
// boolean reports whether a round was attempted. The cooldown starts with every
// attempted round, whether or not any channel delivered.
func (d *Dispatcher) Notify(ctx context.Context, n Notice) (Report, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if !d.lastSent.IsZero() && now.Sub(d.lastSent) < d.cooldown {
		d.logger.Debug("notification suppressed by cooldown",
			zap.Duration("remaining", d.cooldown-now.Sub(d.lastSent)))
		return Report{}, false
	}

	d.lastSent = now
	n.Kind = KindAlert
	return d.dispatch(ctx, n), true
}

// SendTest delivers a test notice to every channel, ignoring the cooldown.
func (d *Dispatcher) SendTest(ctx context.Context, n Notice) Report {
	n.Kind = KindTest
	return d.dispatch(ctx, n)
}

type sendResult struct {
	delivered bool
	err       error
}

func (d *Dispatcher) dispatch(ctx context.Context, n Notice) Report {
	results := make([]sendResult, len(d.channels))
	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			err := ch.Send(ctx, n)
			results[i] = sendResult{delivered: err == nil, err: err}
		}(i, ch)
	}
	wg.Wait()

	report := newReport()
	for i, ch := range d.channels {
		res := results[i]
		name := ch.Name()
		report.Delivered[name] = res.delivered
		metrics.ObserveNotification(name, res.delivered)
		if res.delivered {
			d.logger.Info("notification delivered", zap.String("channel", name), zap.String("kind", string(n.Kind)))
			continue
		}
		report.Errors = append(report.Errors, describe(name, res.err))
		if errors.Is(res.err, ErrNotConfigured) {
			d.logger.Warn("channel not configured", zap.String("channel", name))
			continue
		}
		d.logger.Error("notification failed", zap.String("channel", name), zap.Error(res.err))
	}
	return report
}

func describe(name string, err error) string {
	if errors.Is(err, ErrNotConfigured) {
		return name + ": no configurado"
	}
	return name + ": " + err.Error()
}
