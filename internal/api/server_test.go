package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/slotwatcher/internal/notify"
	"github.com/JakeFAU/slotwatcher/internal/policy/ratelimit"
	"github.com/JakeFAU/slotwatcher/internal/status"
	"github.com/JakeFAU/slotwatcher/internal/watcher"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeTester struct {
	calls atomic.Int32
	last  atomic.Pointer[notify.Notice]
}

func (f *fakeTester) SendTest(_ context.Context, n notify.Notice) notify.Report {
	f.calls.Add(1)
	f.last.Store(&n)
	return notify.Report{
		Delivered: map[string]bool{"telegram": true, "email": false},
		Errors:    []string{"email: no configurado"},
	}
}

func newTestServer(t *testing.T, guard *ratelimit.Limiter) (*Server, *status.Store, *fakeTester) {
	t.Helper()
	clock := fakeClock{now: time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC)}
	store := status.NewStore(clock, 10)
	tester := &fakeTester{}
	srv, err := NewServer(store, tester, clock, Options{
		BookingURL: "https://citas.example.org/reservar",
		MinBytes:   5000,
		TestGuard:  guard,
	}, zap.NewNop())
	require.NoError(t, err)
	return srv, store, tester
}

func do(srv *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Dashboard(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, nil)
	rec := do(srv, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	require.Contains(t, body, `href="https://citas.example.org/reservar"`)
	require.Contains(t, body, "/api/estado")
	require.Contains(t, body, "Bot Consulado España")
}

func TestServer_StatusGetAndPost(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t, nil)
	store.RecordCheck(status.Check{
		At:         time.Unix(1_700_000_000, 0),
		Outcome:    watcher.OutcomeUnavailable,
		StatusCode: 200,
		Size:       4000,
		Message:    "No hay citas (HTTP 200, 4000 bytes)",
	})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := do(srv, method, "/api/estado")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

		var snap status.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		require.EqualValues(t, 1, snap.Checks)
		require.Equal(t, 4000, snap.LastPageBytes)
		require.True(t, snap.Enabled)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, nil)
	rec := do(srv, http.MethodOptions, "/api/estado")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_SendTest(t *testing.T) {
	t.Parallel()

	srv, store, tester := newTestServer(t, nil)
	store.RecordCheck(status.Check{Outcome: watcher.OutcomeUnavailable, StatusCode: 200})

	rec := do(srv, http.MethodGet, "/api/test")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"telegram":true,"email":false,"errors":["email: no configurado"]}`, rec.Body.String())
	require.EqualValues(t, 1, tester.last.Load().Checks)

	rec = do(srv, http.MethodPost, "/api/test")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 2, tester.calls.Load())

	snap := store.Snapshot()
	require.Zero(t, snap.NotificationsSent, "test sends are not counted as alerts")
	var messages []string
	for _, e := range snap.History {
		messages = append(messages, e.Message)
	}
	require.Contains(t, strings.Join(messages, "\n"), "Test telegram enviado")
}

func TestServer_SendTestThrottled(t *testing.T) {
	t.Parallel()

	guard := ratelimit.New(ratelimit.Config{Every: time.Hour, Burst: 1})
	srv, _, tester := newTestServer(t, guard)

	require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/api/test").Code)
	rec := do(srv, http.MethodPost, "/api/test")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "error")
	require.EqualValues(t, 1, tester.calls.Load())
}

func TestServer_Toggle(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/api/toggle")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"enabled":false}`, rec.Body.String())
	require.False(t, store.Enabled())

	rec = do(srv, http.MethodPost, "/api/toggle")
	require.JSONEq(t, `{"enabled":true}`, rec.Body.String())

	require.Equal(t, http.StatusMethodNotAllowed, do(srv, http.MethodGet, "/api/toggle").Code)
}

func TestServer_HealthEndpoints(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t, nil)

	require.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/healthz").Code)
	require.Equal(t, http.StatusServiceUnavailable, do(srv, http.MethodGet, "/readyz").Code)

	store.MarkStarted(time.Now())
	require.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/readyz").Code)

	rec := do(srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, nil)
	srv.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := do(srv, http.MethodGet, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
