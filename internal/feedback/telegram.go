package feedback

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramEndpoint is the Bot API URL pattern. Package-level var for test substitution.
var telegramEndpoint = tgbotapi.APIEndpoint

// SecretSource supplies the bot token at send time.
type SecretSource interface {
	Lookup(key string) (string, bool)
}

// TelegramSink posts entries to one Telegram chat. The bot is created on
// first use so that a missing token only affects delivery.
type TelegramSink struct {
	secrets  SecretSource
	tokenKey string
	chatID   int64
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegram creates a sink posting to chatID with the token stored under
// tokenKey.
func NewTelegram(secrets SecretSource, tokenKey string, chatID int64, client *http.Client) *TelegramSink {
	if client == nil {
		client = &http.Client{}
	}
	return &TelegramSink{secrets: secrets, tokenKey: tokenKey, chatID: chatID, client: client}
}

func (t *TelegramSink) Name() string { return "telegram" }

// Send posts e as a plain-text message.
func (t *TelegramSink) Send(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := t.botAPI()
	if err != nil {
		return err
	}
	if _, err := bot.Send(tgbotapi.NewMessage(t.chatID, FormatMessage(e))); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

func (t *TelegramSink) botAPI() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}

	token, ok := t.secrets.Lookup(t.tokenKey)
	if !ok {
		return nil, fmt.Errorf("%s not found in secrets", t.tokenKey)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, telegramEndpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("connecting telegram bot: %w", err)
	}
	t.bot = bot
	return bot, nil
}

// FormatMessage renders an entry for chat delivery.
func FormatMessage(e Entry) string {
	return fmt.Sprintf("📝 Feedback from %s (%s)\n\n%s", e.Name, e.CreatedAt.Format("2006-01-02 15:04 MST"), e.Message)
}
