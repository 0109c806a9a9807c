package command

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debrief-io/debrief/internal/store"
)

type fakeBot struct {
	updates chan tgbotapi.Update
	sent    chan tgbotapi.MessageConfig
	stopped bool
}

func newFakeBot() *fakeBot {
	return &fakeBot{
		updates: make(chan tgbotapi.Update, 8),
		sent:    make(chan tgbotapi.MessageConfig, 8),
	}
}

func (f *fakeBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBot) StopReceivingUpdates() {
	f.stopped = true
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent <- c.(tgbotapi.MessageConfig)
	return tgbotapi.Message{}, nil
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: &tgbotapi.Chat{ID: chatID},
		},
	}
}

func TestListener_RepliesInConfiguredChat(t *testing.T) {
	bot := newFakeBot()
	p, _ := newProcessor(store.NewMemoryStore(nil))
	l := NewListener(bot, 42, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	bot.updates <- textUpdate(42, "add AAPL")

	select {
	case msg := <-bot.sent:
		assert.Equal(t, int64(42), msg.ChatID)
		assert.Contains(t, msg.Text, "Watching AAPL")
		assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
		assert.True(t, msg.DisableWebPagePreview)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply sent")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, bot.stopped)
}

func TestListener_IgnoresForeignChats(t *testing.T) {
	bot := newFakeBot()
	docs := store.NewMemoryStore(nil)
	p, _ := newProcessor(docs)
	l := NewListener(bot, 42, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	bot.updates <- textUpdate(999, "add EVIL")
	bot.updates <- textUpdate(42, "list")

	// The reply to `list` proves the foreign update was dropped first
	select {
	case msg := <-bot.sent:
		assert.Contains(t, msg.Text, "Watchlist")
		assert.NotContains(t, msg.Text, "EVIL")
	case <-time.After(2 * time.Second):
		t.Fatal("no reply sent")
	}

	doc, err := docs.Load(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, doc.Tickers, "EVIL")

	cancel()
	<-done
}

func TestListener_SkipsNonTextUpdates(t *testing.T) {
	bot := newFakeBot()
	p, _ := newProcessor(store.NewMemoryStore(nil))
	l := NewListener(bot, 42, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	bot.updates <- tgbotapi.Update{}  // no message at all
	bot.updates <- textUpdate(42, "") // no text
	bot.updates <- textUpdate(42, "help")

	select {
	case msg := <-bot.sent:
		assert.Contains(t, msg.Text, "DeBrief commands")
	case <-time.After(2 * time.Second):
		t.Fatal("no reply sent")
	}

	cancel()
	<-done
}
