// Package server builds the application graph and owns its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/slotwatcher/internal/api"
	"github.com/JakeFAU/slotwatcher/internal/clock/system"
	"github.com/JakeFAU/slotwatcher/internal/config"
	"github.com/JakeFAU/slotwatcher/internal/detector"
	collyfetcher "github.com/JakeFAU/slotwatcher/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/slotwatcher/internal/fetcher/headless"
	"github.com/JakeFAU/slotwatcher/internal/logging"
	"github.com/JakeFAU/slotwatcher/internal/monitor"
	"github.com/JakeFAU/slotwatcher/internal/notify"
	"github.com/JakeFAU/slotwatcher/internal/policy/ratelimit"
	"github.com/JakeFAU/slotwatcher/internal/status"
	"github.com/JakeFAU/slotwatcher/internal/watcher"
)

// App contains the application's dependencies.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      *status.Store
	monitor    *monitor.Monitor
	apiServer  *api.Server
	httpServer *http.Server
	closers    []func()
}

// Build creates the application's dependencies.
func Build(_ context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	// Only non-sensitive fields are logged.
	logger.Info("creating application",
		zap.Int("port", cfg.Server.Port),
		zap.String("target", cfg.Target.URL),
		zap.String("fetcher_mode", cfg.Fetcher.Mode),
		zap.Bool("telegram_configured", cfg.Notify.Telegram.BotToken != "" && cfg.Notify.Telegram.ChatID != ""),
		zap.Bool("smtp_configured", cfg.Notify.SMTP.Username != "" && cfg.Notify.SMTP.Password != ""),
		zap.Int("recipients", len(cfg.Notify.SMTP.Recipients)),
	)

	app := &App{cfg: cfg, logger: logger}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	clock := system.New(loc)
	app.store = status.NewStore(clock, cfg.Status.HistorySize)

	fetcher, err := app.setupFetcher()
	if err != nil {
		return nil, err
	}

	classifier := detector.NewHeuristic(detector.Config{
		MinBytes:         cfg.Detector.MinBytes,
		NegativePhrases:  cfg.Detector.NegativePhrases,
		AmbiguousPhrases: cfg.Detector.AmbiguousPhrases,
		ErrorMarkers:     cfg.Detector.ErrorMarkers,
		RequiredMarkers:  cfg.Detector.RequiredMarkers,
		SelectionMarkers: cfg.Detector.SelectionMarkers,
	})

	dispatcher := notify.NewDispatcher(clock, cfg.Notify.Cooldown(), logger.Named("notify"), app.setupChannels()...)

	sched, err := monitor.ParseSchedule(
		cfg.Schedule.Interval(),
		cfg.Schedule.PeakInterval(),
		cfg.Schedule.PeakStart,
		cfg.Schedule.PeakEnd,
		clock.Location(),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	app.monitor = monitor.New(fetcher, classifier, app.store, dispatcher, clock, monitor.Config{
		TargetURL:    cfg.Target.URL,
		BookingURL:   cfg.Target.BookingURL,
		Headers:      collyfetcher.BrowserHeaders(),
		Schedule:     sched,
		SummaryEvery: cfg.Schedule.SummaryEvery,
	}, logger.Named("monitor"))

	app.apiServer, err = api.NewServer(app.store, dispatcher, clock, api.Options{
		BookingURL: cfg.Target.BookingURL,
		MinBytes:   cfg.Detector.MinBytes,
		TestGuard: ratelimit.New(ratelimit.Config{
			Every: time.Duration(cfg.TestGuard.IntervalSeconds) * time.Second,
			Burst: cfg.TestGuard.Burst,
		}),
	}, logger.Named("api"))
	if err != nil {
		return nil, fmt.Errorf("api init failed: %w", err)
	}

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return app, nil
}

func (a *App) setupFetcher() (watcher.Fetcher, error) {
	ua := a.cfg.Target.UserAgent
	if ua == "" {
		ua = collyfetcher.DefaultUserAgent
	}
	if a.cfg.Fetcher.Mode == config.FetcherModeHeadless {
		f, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         ua,
			NavigationTimeout: a.cfg.Fetcher.Timeout(),
			SettleDelay:       time.Duration(a.cfg.Fetcher.SettleDelayMs) * time.Millisecond,
			ExecPath:          a.cfg.Fetcher.ChromePath,
		})
		if err != nil {
			return nil, fmt.Errorf("headless fetcher init failed: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		a.logger.Info("using headless fetcher", zap.Duration("timeout", a.cfg.Fetcher.Timeout()))
		return f, nil
	}
	a.logger.Info("using colly fetcher", zap.Duration("timeout", a.cfg.Fetcher.Timeout()))
	return collyfetcher.New(collyfetcher.Config{
		UserAgent: ua,
		Timeout:   a.cfg.Fetcher.Timeout(),
	}), nil
}

func (a *App) setupChannels() []notify.Channel {
	tg := a.cfg.Notify.Telegram
	smtp := a.cfg.Notify.SMTP
	if tg.BotToken == "" || tg.ChatID == "" {
		a.logger.Warn("telegram not configured; set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}
	if smtp.Username == "" || smtp.Password == "" {
		a.logger.Warn("smtp not configured; set SMTP_EMAIL and SMTP_PASSWORD")
	}
	return []notify.Channel{
		notify.NewTelegram(notify.TelegramConfig{
			Token:       tg.BotToken,
			ChatID:      tg.ChatID,
			APIEndpoint: tg.APIEndpoint,
		}),
		notify.NewEmail(notify.EmailConfig{
			Host:       smtp.Host,
			Port:       smtp.Port,
			Username:   smtp.Username,
			Password:   smtp.Password,
			Recipients: smtp.Recipients,
			Timeout:    time.Duration(smtp.TimeoutSeconds) * time.Second,
		}),
	}
}

// Run starts the monitor and the dashboard and blocks until ctx is cancelled,
// SIGINT/SIGTERM arrives or the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.monitor.Run(gctx)
	})
	g.Go(func() error {
		a.logger.Info("http server started", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	runErr := g.Wait()
	return errors.Join(runErr, a.Close())
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.cfg.Server.ShutdownTimeoutSeconds) * time.Second
}

// Close releases the browser (if any) and flushes the logger.
func (a *App) Close() error {
	for _, closeFn := range a.closers {
		closeFn()
	}
	a.closers = nil
	a.logger.Info("shutdown complete")
	// Sync on stderr/stdout returns EINVAL on some platforms; it is not actionable.
	_ = a.logger.Sync()
	return nil
}

// Store exposes the status store, mainly for tests.
func (a *App) Store() *status.Store {
	return a.store
}
