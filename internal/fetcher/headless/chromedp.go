// Package headless renders the appointment page in headless Chrome for when the
// slot widget is assembled client-side.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/slotwatcher/internal/watcher"
)

const (
	defaultNavigationTimeout = 45 * time.Second
	defaultSettleDelay       = 500 * time.Millisecond
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// SettleDelay gives client-side scripts time to paint the slot widget.
	SettleDelay time.Duration
	// ExecPath overrides the Chrome binary; empty uses chromedp's lookup.
	ExecPath string
}

// Fetcher implements watcher.Fetcher using chromedp. One browser process is
// shared across cycles; each fetch opens a fresh tab.
type Fetcher struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	start       func(context.Context) error

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedp creates a headless fetcher. Chrome is started lazily on the first Fetch
// and kept running until Close.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.NavigationTimeout < 0 || cfg.SettleDelay < 0 {
		return nil, fmt.Errorf("headless timeouts must be >= 0")
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = defaultSettleDelay
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		start:       func(ctx context.Context) error { return chromedp.Run(ctx) },
	}, nil
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browserCancel != nil {
		f.browserCancel()
		f.browserCtx, f.browserCancel = nil, nil
	}
	f.allocCancel()
}

// browser returns the context owning the Chrome process, launching it on first
// use or after it has gone away. Tabs must be derived from it: cancelling the
// first context created on an allocator kills the browser.
func (f *Fetcher) browser() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browserCtx != nil {
		if f.browserCtx.Err() == nil {
			return f.browserCtx, nil
		}
		f.browserCancel()
		f.browserCtx, f.browserCancel = nil, nil
	}

	browserCtx, cancel := chromedp.NewContext(f.allocator)
	if err := f.start(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	f.browserCtx, f.browserCancel = browserCtx, cancel
	return browserCtx, nil
}

// newTab opens a tab in the shared browser. Its cancel closes only the tab.
func (f *Fetcher) newTab() (context.Context, context.CancelFunc, error) {
	browserCtx, err := f.browser()
	if err != nil {
		return nil, nil, err
	}
	tabCtx, cancel := chromedp.NewContext(browserCtx)
	return tabCtx, cancel, nil
}

// Fetch navigates to the page and returns the rendered DOM with the document's status code.
func (f *Fetcher) Fetch(ctx context.Context, request watcher.FetchRequest) (watcher.Page, error) {
	tabCtx, tabCancel, err := f.newTab()
	if err != nil {
		return watcher.Page{}, err
	}
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	tabCtx, cancel := context.WithTimeout(tabCtx, f.cfg.NavigationTimeout)
	defer cancel()

	doc := &documentResponse{}
	chromedp.ListenTarget(tabCtx, doc.listen)

	start := time.Now()
	var html, finalURL string
	err = chromedp.Run(tabCtx,
		f.prepare(request.Headers),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return watcher.Page{}, fmt.Errorf("headless fetch canceled: %w", ctx.Err())
		}
		return watcher.Page{}, fmt.Errorf("chromedp run: %w", err)
	}

	status, headers := doc.result()
	if finalURL == "" {
		finalURL = request.URL
	}
	return watcher.Page{
		URL:        finalURL,
		StatusCode: status,
		Headers:    headers,
		Body:       []byte(html),
		Size:       len(html),
		Duration:   time.Since(start),
		Rendered:   true,
	}, nil
}

func (f *Fetcher) prepare(headers http.Header) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if extra := toNetworkHeaders(headers); len(extra) > 0 {
			if err := network.SetExtraHTTPHeaders(extra).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

// documentResponse records the status of the main document, ignoring sub-resources.
type documentResponse struct {
	mu      sync.Mutex
	status  int
	headers http.Header
}

func (d *documentResponse) listen(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	headers := http.Header{}
	for key, value := range resp.Response.Headers {
		headers.Add(key, fmt.Sprint(value))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	// Iframes emit documents too; the first one is the top-level page.
	if d.status != 0 {
		return
	}
	d.status = int(resp.Response.Status)
	d.headers = headers
}

func (d *documentResponse) result() (int, http.Header) {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	headers := d.headers
	if headers == nil {
		headers = http.Header{}
	}
	return status, headers
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			headers[key] = values[0]
		} else {
			headers[key] = append([]string(nil), values...)
		}
	}
	return headers
}
