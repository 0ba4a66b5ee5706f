package headless

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpDefaults(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{NavigationTimeout: -time.Second})
	require.Error(t, err)

	fetcher, err := NewChromedp(Config{UserAgent: "agent"})
	require.NoError(t, err)
	defer fetcher.Close()
	require.Equal(t, defaultNavigationTimeout, fetcher.cfg.NavigationTimeout)
	require.Equal(t, defaultSettleDelay, fetcher.cfg.SettleDelay)
}

func TestTabsShareOneBrowserContext(t *testing.T) {
	t.Parallel()

	fetcher, err := NewChromedp(Config{})
	require.NoError(t, err)
	starts := 0
	fetcher.start = func(context.Context) error {
		starts++
		return nil
	}

	first, closeFirst, err := fetcher.newTab()
	require.NoError(t, err)
	closeFirst()
	require.Error(t, first.Err())

	second, closeSecond, err := fetcher.newTab()
	require.NoError(t, err)
	defer closeSecond()

	require.Equal(t, 1, starts)
	require.NotNil(t, fetcher.browserCtx)
	require.NoError(t, fetcher.browserCtx.Err(), "closing a tab must keep the browser alive")

	fetcher.Close()
	require.Error(t, second.Err(), "tabs are children of the browser context")
	require.Nil(t, fetcher.browserCtx)
}

func TestBrowserStartFailureIsRetried(t *testing.T) {
	t.Parallel()

	fetcher, err := NewChromedp(Config{})
	require.NoError(t, err)
	defer fetcher.Close()
	fail := true
	fetcher.start = func(context.Context) error {
		if fail {
			return errors.New("chrome not found")
		}
		return nil
	}

	_, _, err = fetcher.newTab()
	require.ErrorContains(t, err, "start browser")
	require.Nil(t, fetcher.browserCtx)

	fail = false
	_, closeTab, err := fetcher.newTab()
	require.NoError(t, err)
	closeTab()
}

func TestToNetworkHeaders(t *testing.T) {
	t.Parallel()

	netHeaders := toNetworkHeaders(http.Header{
		"Accept-Language": {"es-AR", "es"},
		"Accept":          {"text/html"},
		"Empty":           {},
	})
	multi, ok := netHeaders["Accept-Language"].([]string)
	require.True(t, ok, "expected []string, got %T", netHeaders["Accept-Language"])
	require.Len(t, multi, 2)
	require.Equal(t, "text/html", netHeaders["Accept"])
	require.NotContains(t, netHeaders, "Empty")
}

func TestDocumentResponseKeepsFirstDocument(t *testing.T) {
	t.Parallel()

	doc := &documentResponse{}
	doc.listen(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500},
	})
	doc.listen(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  404,
			Headers: network.Headers{"X-Request-ID": "abc"},
		},
	})
	doc.listen(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200},
	})

	status, headers := doc.result()
	require.Equal(t, 404, status)
	require.Equal(t, "abc", headers.Get("X-Request-ID"))
}

func TestDocumentResponseDefaultsToOK(t *testing.T) {
	t.Parallel()

	status, headers := (&documentResponse{}).result()
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, headers)
}
