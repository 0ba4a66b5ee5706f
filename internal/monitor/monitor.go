// Package monitor runs the fetch, classify, record and notify loop.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/slotwatcher/internal/hash/sha256"
	"github.com/JakeFAU/slotwatcher/internal/metrics"
	"github.com/JakeFAU/slotwatcher/internal/notify"
	"github.com/JakeFAU/slotwatcher/internal/status"
	"github.com/JakeFAU/slotwatcher/internal/watcher"
)

// DefaultSummaryEvery is how many checks pass between history summaries.
const DefaultSummaryEvery = 50

// Notifier is the cooldown-gated alert sink.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notice) (notify.Report, bool)
}

// Config controls Monitor behavior.
type Config struct {
	TargetURL    string
	BookingURL   string
	Headers      http.Header
	Schedule     Schedule
	SummaryEvery int
}

// Monitor polls the target page until its context ends.
type Monitor struct {
	fetcher    watcher.Fetcher
	classifier watcher.Classifier
	store      *status.Store
	notifier   Notifier
	clock      watcher.Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Monitor.
func New(
	fetcher watcher.Fetcher,
	classifier watcher.Classifier,
	store *status.Store,
	notifier Notifier,
	clock watcher.Clock,
	cfg Config,
	logger *zap.Logger,
) *Monitor {
	if cfg.BookingURL == "" {
		cfg.BookingURL = cfg.TargetURL
	}
	if cfg.SummaryEvery == 0 {
		cfg.SummaryEvery = DefaultSummaryEvery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		fetcher:    fetcher,
		classifier: classifier,
		store:      store,
		notifier:   notifier,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, checking the page on the schedule until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.store.MarkStarted(m.clock.Now())
	metrics.SetEnabled(m.store.Enabled())
	m.store.Log(status.LevelInfo, "🚀 Bot iniciado - Monitoreando turnos")
	m.logger.Info("monitor started",
		zap.String("url", m.cfg.TargetURL),
		zap.Duration("interval", m.cfg.Schedule.Interval),
		zap.Duration("peak_interval", m.cfg.Schedule.PeakInterval))

	for {
		m.CheckOnce(ctx)

		delay := m.cfg.Schedule.Next(m.clock.Now())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("monitor stopped")
			return nil
		case <-timer.C:
		}
	}
}

// CheckOnce runs a single polling cycle and returns its classification.
func (m *Monitor) CheckOnce(ctx context.Context) watcher.Result {
	page, err := m.fetcher.Fetch(ctx, watcher.FetchRequest{URL: m.cfg.TargetURL, Headers: m.cfg.Headers})
	now := m.clock.Now()
	if err != nil {
		if ctx.Err() != nil {
			return watcher.Result{Outcome: watcher.OutcomeError, Detail: "cancelado"}
		}
		msg := fetchErrorMessage(err)
		m.store.RecordCheck(status.Check{
			At:      now,
			Outcome: watcher.OutcomeError,
			Message: msg,
			Failed:  true,
		})
		m.store.Log(status.LevelError, "⚠️ "+msg)
		metrics.ObserveCheck(m.cfg.TargetURL, "fetch_error")
		m.logger.Warn("fetch failed", zap.String("url", m.cfg.TargetURL), zap.Error(err))
		return watcher.Result{Outcome: watcher.OutcomeError, Detail: msg}
	}

	metrics.ObserveFetch(m.cfg.TargetURL, page.Size, page.Duration)
	res := m.classifier.Classify(page)
	hash := sha256.Fingerprint(page.Body)
	prevHash := m.store.Snapshot().LastPageHash
	snap := m.store.RecordCheck(status.Check{
		At:         now,
		Outcome:    res.Outcome,
		StatusCode: res.StatusCode,
		Size:       res.Size,
		PageHash:   hash,
		Message:    res.Detail,
	})
	if prevHash != "" && prevHash != hash {
		m.logger.Info("page content changed",
			zap.String("previous", prevHash),
			zap.String("current", hash),
			zap.Int("bytes", res.Size))
	}
	metrics.ObserveCheck(m.cfg.TargetURL, string(res.Outcome))
	m.logger.Debug("check complete",
		zap.Int64("check", snap.Checks),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("status", res.StatusCode),
		zap.Int("bytes", res.Size))

	switch res.Outcome {
	case watcher.OutcomeAvailable:
		m.store.Log(status.LevelSuccess, "🎉 "+res.Detail)
		m.logger.Info("slots detected", zap.String("detail", res.Detail))
		m.alert(ctx, res, snap)
	case watcher.OutcomeError:
		m.store.Log(status.LevelError, "⚠️ "+res.Detail)
	case watcher.OutcomeUnknown:
		m.store.Log(status.LevelInfo, "❓ "+res.Detail)
	}

	if m.cfg.SummaryEvery > 0 && snap.Checks%int64(m.cfg.SummaryEvery) == 0 {
		m.store.Log(status.LevelInfo, fmt.Sprintf("#%d - %s", snap.Checks, res.Detail))
	}
	return res
}

func (m *Monitor) alert(ctx context.Context, res watcher.Result, snap status.Snapshot) {
	if !snap.Enabled {
		m.store.Log(status.LevelInfo, "⏸️ Notificaciones pausadas - alerta no enviada")
		m.logger.Info("alert skipped while paused")
		return
	}
	report, dispatched := m.notifier.Notify(ctx, notify.Notice{
		BookingURL: m.cfg.BookingURL,
		Detail:     res.Detail,
		Checks:     snap.Checks,
		At:         m.clock.Now(),
	})
	if !dispatched {
		return
	}
	if report.Any() {
		m.store.RecordNotification()
	}
	for _, name := range slices.Sorted(maps.Keys(report.Delivered)) {
		if report.Delivered[name] {
			m.store.Log(status.LevelSuccess, fmt.Sprintf("✅ %s enviado", name))
		}
	}
	for _, e := range report.Errors {
		m.store.Log(status.LevelError, "❌ "+e)
	}
}

func fetchErrorMessage(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "Timeout - servidor lento"
	}
	text := err.Error()
	if r := []rune(text); len(r) > 40 {
		text = string(r[:40])
	}
	return "Error: " + text
}
