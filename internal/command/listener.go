package command

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// BotAPI is the slice of the Telegram client the listener needs.
type BotAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Listener long-polls Telegram for operator commands and replies
// synchronously. Messages from chats other than the configured one are
// ignored.
type Listener struct {
	api       BotAPI
	chatID    int64
	processor *Processor
	logger    *zap.Logger
}

// NewListener creates a command listener bound to one chat.
func NewListener(api BotAPI, chatID int64, processor *Processor, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		api:       api,
		chatID:    chatID,
		processor: processor,
		logger:    logger,
	}
}

// Run consumes updates until ctx is canceled.
func (l *Listener) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := l.api.GetUpdatesChan(u)

	l.logger.Info("command listener started", zap.Int64("chat_id", l.chatID))

	for {
		select {
		case <-ctx.Done():
			l.api.StopReceivingUpdates()
			l.logger.Info("command listener stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			l.handleUpdate(ctx, update)
		}
	}
}

func (l *Listener) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if update.Message.Chat.ID != l.chatID {
		l.logger.Warn("ignoring message from unknown chat",
			zap.Int64("chat_id", update.Message.Chat.ID))
		return
	}

	reply := l.processor.Handle(ctx, update.Message.Text)
	if reply == "" {
		return
	}

	msg := tgbotapi.NewMessage(l.chatID, reply)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := l.api.Send(msg); err != nil {
		l.logger.Error("sending reply", zap.Error(err))
	}
}
