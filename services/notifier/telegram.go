package notifier

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Transport delivers a formatted message to the chat
type Transport interface {
	Send(ctx context.Context, text string) error
}

// chatID implements tele.Recipient for both numeric IDs and @channel names
type chatID string

func (c chatID) Recipient() string { return string(c) }

// TelegramConfig configures the Telegram transport
type TelegramConfig struct {
	Token          string
	ChatID         string
	APIURL         string
	DisablePreview bool
	Timeout        time.Duration
}

// TelegramTransport sends MarkdownV2 messages through the Bot API
type TelegramTransport struct {
	bot            *tele.Bot
	chat           chatID
	disablePreview bool
}

var _ Transport = (*TelegramTransport)(nil)

// NewTelegramTransport creates a send-only bot; it never polls for updates
func NewTelegramTransport(cfg TelegramConfig) (*TelegramTransport, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		return nil, errors.New("telegram chat id is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}

	return &TelegramTransport{
		bot:            b,
		chat:           chatID(strings.TrimSpace(cfg.ChatID)),
		disablePreview: cfg.DisablePreview,
	}, nil
}

// Send posts text to the configured chat
func (t *TelegramTransport) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(t.chat, text, &tele.SendOptions{
		ParseMode:             tele.ModeMarkdownV2,
		DisableWebPagePreview: t.disablePreview,
	})
	return err
}
