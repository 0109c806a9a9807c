package provider

import (
	"context"

	"github.com/debrief-io/debrief/internal/core"
)

// QuoteProvider fetches the latest trade snapshot for a symbol.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (*core.Quote, error)
}

// HistoryProvider fetches a daily OHLCV series, most recent last.
type HistoryProvider interface {
	History(ctx context.Context, symbol string, days int) ([]core.Candle, error)
}

// NewsProvider fetches recent news and filing headlines for a symbol,
// newest first.
type NewsProvider interface {
	News(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error)
}

// ProfileProvider fetches descriptive company data.
type ProfileProvider interface {
	Profile(ctx context.Context, symbol string) (*core.Profile, error)
}

// CalendarProvider fetches the week's macro calendar events.
type CalendarProvider interface {
	WeekAhead(ctx context.Context) ([]core.CalendarEvent, error)
}
