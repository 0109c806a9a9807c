// Package command parses inbound operator commands and executes them
// against the config store and the data providers. Replies share the
// formatting conventions of alert notifications.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/debrief-io/debrief/internal/core"
	"github.com/debrief-io/debrief/internal/format"
	"github.com/debrief-io/debrief/internal/metrics"
	"github.com/debrief-io/debrief/internal/provider"
	"github.com/debrief-io/debrief/internal/store"
)

const usageText = `<b>DeBrief commands</b>
add SYM — watch a ticker
del SYM — stop watching
list — show the watchlist
on / off — resume / pause the system
allon / alloff — toggle every rule for every ticker
p SYM — latest price
news SYM — recent headlines
sec SYM — recent filings
summary SYM — company profile
earning SYM — next earnings date
eco — this week's macro calendar
eco on/off — toggle macro alerts
vix — fear index
market — major indices
help — this text`

const queryTimeout = 8 * time.Second

// marketIndices are the quotes behind the `market` command.
var marketIndices = []struct{ symbol, label string }{
	{"^GSPC", "S&P 500"},
	{"^IXIC", "Nasdaq"},
	{"^DJI", "Dow Jones"},
}

// Forgetter drops per-symbol dedup state when a symbol is removed.
type Forgetter interface {
	Forget(symbol string)
}

// Processor executes one command at a time. Mutating verbs go through
// the store's read-modify-write Update; queries hit the same providers
// the engine uses.
type Processor struct {
	docs     store.Store
	quotes   provider.QuoteProvider
	news     provider.NewsProvider
	profiles provider.ProfileProvider
	calendar provider.CalendarProvider
	dedup    Forgetter
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// New creates a command processor.
func New(docs store.Store, quotes provider.QuoteProvider, news provider.NewsProvider,
	profiles provider.ProfileProvider, calendar provider.CalendarProvider,
	ded Forgetter, reg *metrics.Registry, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		docs:     docs,
		quotes:   quotes,
		news:     news,
		profiles: profiles,
		calendar: calendar,
		dedup:    ded,
		metrics:  reg,
		logger:   logger,
	}
}

// Handle executes one inbound command and returns the reply text.
// Malformed input produces a usage reply; nothing raises to the caller.
func (p *Processor) Handle(ctx context.Context, text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return usageText
	}
	verb := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]

	if p.metrics != nil {
		p.metrics.CommandHandled(verb)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	switch verb {
	case "add":
		return p.withSymbol(args, func(sym string) string { return p.addSymbol(ctx, sym) })
	case "del":
		return p.withSymbol(args, func(sym string) string { return p.delSymbol(ctx, sym) })
	case "list":
		return p.list(ctx)
	case "on":
		return p.setActive(ctx, true)
	case "off":
		return p.setActive(ctx, false)
	case "allon":
		return p.toggleAll(ctx, true)
	case "alloff":
		return p.toggleAll(ctx, false)
	case "p":
		return p.withSymbol(args, func(sym string) string { return p.queryPrice(ctx, sym) })
	case "news":
		return p.withSymbol(args, func(sym string) string { return p.queryNews(ctx, sym, false) })
	case "sec":
		return p.withSymbol(args, func(sym string) string { return p.queryNews(ctx, sym, true) })
	case "summary":
		return p.withSymbol(args, func(sym string) string { return p.querySummary(ctx, sym) })
	case "earning":
		return p.withSymbol(args, func(sym string) string { return p.queryEarnings(ctx, sym) })
	case "eco":
		if len(args) == 1 {
			switch strings.ToLower(args[0]) {
			case "on":
				return p.setEco(ctx, true)
			case "off":
				return p.setEco(ctx, false)
			}
		}
		return p.queryCalendar(ctx)
	case "vix":
		return p.queryPrice(ctx, "^VIX")
	case "market":
		return p.queryMarket(ctx)
	case "start", "help":
		return usageText
	default:
		return fmt.Sprintf("Unknown command %q.\n\n%s", verb, usageText)
	}
}

func (p *Processor) withSymbol(args []string, fn func(sym string) string) string {
	if len(args) != 1 {
		return usageText
	}
	sym := core.NormalizeSymbol(args[0])
	if sym == "" {
		return usageText
	}
	return fn(sym)
}

func (p *Processor) addSymbol(ctx context.Context, sym string) string {
	reply := ""
	err := p.docs.Update(ctx, func(doc *store.Document) error {
		if _, exists := doc.Tickers[sym]; exists {
			reply = fmt.Sprintf("%s is already on the watchlist.", sym)
			return nil
		}
		doc.Tickers[sym] = core.DefaultToggles()
		reply = fmt.Sprintf("✅ Watching %s (news, filings and price moves on by default).", sym)
		return nil
	})
	if err != nil {
		return p.storeErrReply(err)
	}
	return reply
}

func (p *Processor) delSymbol(ctx context.Context, sym string) string {
	reply := ""
	removed := false
	err := p.docs.Update(ctx, func(doc *store.Document) error {
		if _, exists := doc.Tickers[sym]; !exists {
			reply = fmt.Sprintf("%s is not on the watchlist.", sym)
			return nil
		}
		delete(doc.Tickers, sym)
		delete(doc.NewsHistory, sym)
		removed = true
		reply = fmt.Sprintf("🗑️ Stopped watching %s.", sym)
		return nil
	})
	if err != nil {
		return p.storeErrReply(err)
	}
	if removed && p.dedup != nil {
		p.dedup.Forget(sym)
	}
	return reply
}

func (p *Processor) list(ctx context.Context) string {
	doc, err := p.docs.Load(ctx)
	if err != nil {
		return p.storeErrReply(err)
	}
	if len(doc.Tickers) == 0 {
		return "The watchlist is empty. Use `add SYM` to watch a ticker."
	}

	symbols := make([]string, 0, len(doc.Tickers))
	for sym := range doc.Tickers {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	state := "🟢 active"
	if !doc.SystemActive {
		state = "⛔ paused"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Watchlist</b> (%s)\n", state)
	for _, sym := range symbols {
		toggles := doc.Tickers[sym]
		var on []string
		for _, kind := range core.AllRuleKinds() {
			if toggles.Enabled(kind) {
				on = append(on, string(kind))
			}
		}
		fmt.Fprintf(&sb, "• %s — %s\n", sym, strings.Join(on, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (p *Processor) setActive(ctx context.Context, active bool) string {
	err := p.docs.Update(ctx, func(doc *store.Document) error {
		doc.SystemActive = active
		return nil
	})
	if err != nil {
		return p.storeErrReply(err)
	}
	if active {
		return "🟢 System resumed."
	}
	return "⛔ System paused. Calendar briefings stay on."
}

func (p *Processor) setEco(ctx context.Context, on bool) string {
	err := p.docs.Update(ctx, func(doc *store.Document) error {
		doc.EcoMode = on
		return nil
	})
	if err != nil {
		return p.storeErrReply(err)
	}
	if on {
		return "🔔 Macro alerts enabled."
	}
	return "🔕 Macro alerts disabled."
}

func (p *Processor) toggleAll(ctx context.Context, on bool) string {
	count := 0
	err := p.docs.Update(ctx, func(doc *store.Document) error {
		for sym := range doc.Tickers {
			toggles := doc.Tickers[sym]
			if toggles == nil {
				toggles = make(core.Toggles)
				doc.Tickers[sym] = toggles
			}
			for _, kind := range core.AllRuleKinds() {
				toggles[kind] = on
			}
			count++
		}
		return nil
	})
	if err != nil {
		return p.storeErrReply(err)
	}
	if on {
		return fmt.Sprintf("✅ All rules enabled for %d tickers.", count)
	}
	return fmt.Sprintf("⛔ All rules disabled for %d tickers.", count)
}

func (p *Processor) queryPrice(ctx context.Context, sym string) string {
	quote, err := p.quotes.Quote(ctx, sym)
	if err != nil {
		return p.providerErrReply(sym, err)
	}
	pct := quote.ChangePct()
	return fmt.Sprintf("<b>%s</b> %s %s (%s)\nVolume %s",
		sym, format.Price(quote.Price), format.Arrow(pct), format.Pct(pct),
		format.Volume(quote.Volume))
}

func (p *Processor) queryNews(ctx context.Context, sym string, filingsOnly bool) string {
	items, err := p.news.News(ctx, sym, 20)
	if err != nil {
		return p.providerErrReply(sym, err)
	}

	var sb strings.Builder
	count := 0
	for _, item := range items {
		if item.Filing != filingsOnly {
			continue
		}
		fmt.Fprintf(&sb, "• <a href=\"%s\">%s</a>\n", item.Link, item.Title)
		count++
		if count >= 5 {
			break
		}
	}
	if count == 0 {
		if filingsOnly {
			return fmt.Sprintf("No recent filings for %s.", sym)
		}
		return fmt.Sprintf("No recent news for %s.", sym)
	}
	header := fmt.Sprintf("📰 <b>%s news</b>\n", sym)
	if filingsOnly {
		header = fmt.Sprintf("🏛️ <b>%s filings</b>\n", sym)
	}
	return header + strings.TrimRight(sb.String(), "\n")
}

func (p *Processor) querySummary(ctx context.Context, sym string) string {
	profile, err := p.profiles.Profile(ctx, sym)
	if err != nil {
		return p.providerErrReply(sym, err)
	}
	summary := profile.Summary
	if len(summary) > 400 {
		summary = summary[:400] + "…"
	}
	return fmt.Sprintf("<b>%s</b> (%s)\nSector: %s\nMarket cap: %s\n\n%s",
		profile.Name, sym, orNA(profile.Sector), format.MarketCap(profile.MarketCap), summary)
}

func (p *Processor) queryEarnings(ctx context.Context, sym string) string {
	profile, err := p.profiles.Profile(ctx, sym)
	if err != nil {
		return p.providerErrReply(sym, err)
	}
	if profile.NextEarnings.IsZero() {
		return fmt.Sprintf("No scheduled earnings date for %s.", sym)
	}
	return fmt.Sprintf("📆 <b>%s</b> next earnings: %s", sym, format.Date(profile.NextEarnings))
}

func (p *Processor) queryCalendar(ctx context.Context) string {
	if p.calendar == nil {
		return "No macro calendar feed configured."
	}
	events, err := p.calendar.WeekAhead(ctx)
	if err != nil {
		return p.providerErrReply("calendar", err)
	}
	if len(events) == 0 {
		return "No high-impact events scheduled this week."
	}

	var sb strings.Builder
	sb.WriteString("🗓️ <b>This week</b>\n")
	for _, e := range events {
		marker := "•"
		if e.Importance == core.ImportanceHigh {
			marker = "★"
		}
		fmt.Fprintf(&sb, "%s %s %s — %s\n", marker, e.Date.Format("Mon 01-02"), e.Time, e.Title)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (p *Processor) queryMarket(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString("<b>Markets</b>\n")
	got := 0
	for _, idx := range marketIndices {
		quote, err := p.quotes.Quote(ctx, idx.symbol)
		if err != nil {
			p.logger.Debug("index quote failed", zap.String("symbol", idx.symbol), zap.Error(err))
			continue
		}
		pct := quote.ChangePct()
		fmt.Fprintf(&sb, "%s %s: %s (%s)\n", format.Arrow(pct), idx.label,
			format.Price(quote.Price), format.Pct(pct))
		got++
	}
	if got == 0 {
		return "Market data is unavailable right now."
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (p *Processor) providerErrReply(sym string, err error) string {
	if core.ErrSymbolNotFound.Is(err) {
		return fmt.Sprintf("Symbol %s was not found.", sym)
	}
	if core.ErrNoData.Is(err) {
		return fmt.Sprintf("No data available for %s.", sym)
	}
	p.logger.Warn("query failed", zap.String("symbol", sym), zap.Error(err))
	return "Data provider is unavailable right now, try again shortly."
}

func (p *Processor) storeErrReply(err error) string {
	p.logger.Error("config store update failed", zap.Error(err))
	return "Settings storage is unreachable right now, nothing was changed."
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
