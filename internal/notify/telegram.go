package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramConfig holds the bot credentials and transport overrides.
type TelegramConfig struct {
	Token  string
	ChatID string
	// APIEndpoint overrides tgbotapi.APIEndpoint; it must contain two %s verbs.
	APIEndpoint string
	Client      *http.Client
}

// Telegram sends HTML messages through the Bot API.
type Telegram struct {
	cfg TelegramConfig

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegram creates the channel. The bot is authenticated on first use.
func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{cfg: cfg}
}

// Name implements Channel.
func (t *Telegram) Name() string { return "telegram" }

// Send implements Channel.
func (t *Telegram) Send(ctx context.Context, n Notice) error {
	if t.cfg.Token == "" || t.cfg.ChatID == "" {
		return fmt.Errorf("telegram: %w", ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot, err := t.client()
	if err != nil {
		return err
	}
	msg := t.message(telegramText(n))
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *Telegram) message(text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(t.cfg.ChatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(strings.TrimSpace(t.cfg.ChatID), text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

// client authenticates lazily so a bad token surfaces as a per-send failure.
func (t *Telegram) client() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.cfg.Token, t.cfg.APIEndpoint, t.cfg.Client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	t.bot = bot
	return bot, nil
}
