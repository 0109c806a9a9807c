package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/debrief-io/debrief/internal/core"
)

// sendTimeout bounds one delivery attempt including the limiter wait.
const sendTimeout = 10 * time.Second

// Sender is the part of the Bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers notifications to one chat over the Telegram Bot
// API. Outbound sends are rate limited; Telegram throttles bots at
// roughly one message per second per chat.
type Telegram struct {
	api     Sender
	chatID  int64
	limiter *rate.Limiter
}

// New creates a Telegram notifier from a bot token.
func New(botToken string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return NewWithSender(api, chatID), nil
}

// NewWithSender creates a notifier around an existing API client, so
// the engine and the command listener can share one bot session.
func NewWithSender(api Sender, chatID int64) *Telegram {
	return &Telegram{
		api:     api,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

// Send delivers one message. At-most-once: no retry on failure.
func (t *Telegram) Send(title, body string, disablePreview bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := t.limiter.Wait(ctx); err != nil {
		return core.WrapError(core.ErrNotifierFailed, err)
	}

	text := body
	if title != "" {
		text = fmt.Sprintf("<b>%s</b>\n%s", title, body)
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = disablePreview

	if _, err := t.api.Send(msg); err != nil {
		return core.WrapError(core.ErrNotifierFailed, err)
	}
	return nil
}
