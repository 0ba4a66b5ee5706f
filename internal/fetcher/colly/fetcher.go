// Package collyfetcher implements Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/slotwatcher/internal/watcher"
)

const defaultTimeout = 15 * time.Second

// BrowserHeaders is the literal header set sent with every check.
func BrowserHeaders() http.Header {
	return http.Header{
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": {"es-AR,es;q=0.9"},
	}
}

// DefaultUserAgent mimics a desktop Chrome build.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements watcher.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	// Non-2xx pages still carry a status worth reporting.
	c.ParseHTTPErrorResponse = true
	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, request watcher.FetchRequest) (watcher.Page, error) {
	var (
		result   watcher.Page
		fetchErr error
	)
	collector := f.buildCollector(request, time.Now(), &result, &fetchErr)
	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return watcher.Page{}, err
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	request watcher.FetchRequest,
	start time.Time,
	result *watcher.Page,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, request, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request watcher.FetchRequest,
	start time.Time,
	result *watcher.Page,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		body := append([]byte(nil), r.Body...)
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = watcher.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       body,
			Size:       len(body),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

// copyHeaders overrides colly's defaults (notably Accept) with the request's headers.
func (f *Fetcher) copyHeaders(request watcher.FetchRequest, r *colly.Request) {
	if request.Headers == nil || r.Headers == nil {
		return
	}
	for key, values := range request.Headers {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
