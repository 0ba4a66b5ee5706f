package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type telegramStub struct {
	mu      sync.Mutex
	getMe   int
	sent    []map[string]string
	failing bool
}

func (s *telegramStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if s.failing {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		s.getMe++
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"slots","username":"slots_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		s.sent = append(s.sent, map[string]string{
			"chat_id":    r.Form.Get("chat_id"),
			"text":       r.Form.Get("text"),
			"parse_mode": r.Form.Get("parse_mode"),
		})
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"group"},"text":"ok"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func newTelegramForTest(t *testing.T, stub *telegramStub, chatID string) *Telegram {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return NewTelegram(TelegramConfig{
		Token:       "123:abc",
		ChatID:      chatID,
		APIEndpoint: srv.URL + "/bot%s/%s",
		Client:      srv.Client(),
	})
}

func TestTelegramSendAlert(t *testing.T) {
	t.Parallel()

	stub := &telegramStub{}
	tg := newTelegramForTest(t, stub, "-100200")

	err := tg.Send(context.Background(), Notice{Kind: KindAlert, BookingURL: "https://citas.example.org/?t=4&x=1"})
	require.NoError(t, err)
	require.NoError(t, tg.Send(context.Background(), Notice{Kind: KindAlert}))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Equal(t, 1, stub.getMe, "bot authenticates once")
	require.Len(t, stub.sent, 2)
	require.Equal(t, "-100200", stub.sent[0]["chat_id"])
	require.Equal(t, "HTML", stub.sent[0]["parse_mode"])
	require.Contains(t, stub.sent[0]["text"], "¡TURNOS DISPONIBLES!")
	require.Contains(t, stub.sent[0]["text"], `href="https://citas.example.org/?t=4&amp;x=1"`)
}

func TestTelegramSendTestToChannelUsername(t *testing.T) {
	t.Parallel()

	stub := &telegramStub{}
	tg := newTelegramForTest(t, stub, "@turnos")

	at := time.Date(2026, 5, 4, 11, 2, 3, 0, time.UTC)
	require.NoError(t, tg.Send(context.Background(), Notice{Kind: KindTest, Checks: 12, At: at}))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Equal(t, "@turnos", stub.sent[0]["chat_id"])
	require.Contains(t, stub.sent[0]["text"], "11:02:03")
	require.Contains(t, stub.sent[0]["text"], "Verificaciones: 12")
}

func TestTelegramNotConfigured(t *testing.T) {
	t.Parallel()

	err := NewTelegram(TelegramConfig{Token: "x"}).Send(context.Background(), Notice{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestTelegramAuthFailureIsRetried(t *testing.T) {
	t.Parallel()

	stub := &telegramStub{failing: true}
	tg := newTelegramForTest(t, stub, "1")

	err := tg.Send(context.Background(), Notice{})
	require.ErrorContains(t, err, "telegram auth")

	stub.mu.Lock()
	stub.failing = false
	stub.mu.Unlock()
	require.NoError(t, tg.Send(context.Background(), Notice{}))
}
