// Package engine owns the tick cadence: it periodically loads the
// config document, fans per-symbol work out to a bounded pool, applies
// dedup, dispatches novel alerts and writes dedup state back.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/debrief-io/debrief/internal/core"
	"github.com/debrief-io/debrief/internal/dedup"
	"github.com/debrief-io/debrief/internal/metrics"
	"github.com/debrief-io/debrief/internal/notifier"
	"github.com/debrief-io/debrief/internal/provider"
	"github.com/debrief-io/debrief/internal/signal"
	"github.com/debrief-io/debrief/internal/store"
)

// fetchTimeout bounds each provider call so one slow upstream delays
// only its own symbol for the current tick.
const fetchTimeout = 8 * time.Second

// historyDays covers the slow moving average plus warmup.
const historyDays = 365

// Config holds the engine settings.
type Config struct {
	Interval    time.Duration
	Workers     int
	NewsLimit   int
	BriefingDay time.Weekday
	WeeklyHour  int
	DailyHour   int
}

// Providers bundles the data adapters the engine fans out to.
type Providers struct {
	Quotes   provider.QuoteProvider
	History  provider.HistoryProvider
	News     provider.NewsProvider
	Calendar provider.CalendarProvider
}

// Engine drives the alert loop.
type Engine struct {
	cfg       Config
	docs      store.Store
	dedup     *dedup.Store
	eval      *signal.Evaluator
	providers Providers
	notifiers *notifier.Registry
	metrics   *metrics.Registry
	logger    *zap.Logger

	// Injectable clocks for tests
	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
}

// New creates an engine. The dedup store should already be restored
// from the config document.
func New(cfg Config, docs store.Store, ded *dedup.Store, eval *signal.Evaluator,
	providers Providers, notifiers *notifier.Registry, reg *metrics.Registry,
	logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 5
	}
	return &Engine{
		cfg:       cfg,
		docs:      docs,
		dedup:     ded,
		eval:      eval,
		providers: providers,
		notifiers: notifiers,
		metrics:   reg,
		logger:    logger,
		now:       time.Now,
		after:     time.After,
	}
}

// Run executes the tick loop until ctx is canceled. The period is
// sleep-after-work: processing time is not subtracted, so the cadence
// drifts upward when providers are slow. That drift is accepted.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return core.ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.logger.Info("engine starting",
		zap.Duration("interval", e.cfg.Interval),
		zap.Int("workers", e.cfg.Workers),
	)

	for {
		started := e.now()
		e.tick(ctx)
		if e.metrics != nil {
			e.metrics.ObserveTick(e.now().Sub(started).Seconds())
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine shutting down")
			return ctx.Err()
		case <-e.after(e.cfg.Interval):
		}
	}
}

// tick runs one full cycle: fresh config load, per-symbol fan-out when
// the system is active, calendar briefings regardless, state write-back.
func (e *Engine) tick(ctx context.Context) {
	doc, err := e.docs.Load(ctx)
	if err != nil {
		// Load already falls back internally; reaching here means even
		// the fallback failed. Skip the tick, keep the loop alive.
		e.logger.Error("loading config document", zap.Error(err))
		return
	}

	if e.metrics != nil {
		e.metrics.SetWatchlistSize(len(doc.Tickers))
	}

	if doc.SystemActive {
		e.processSymbols(ctx, doc)
	} else {
		e.logger.Debug("system paused, skipping symbol processing")
	}

	// Briefings run even while paused: macro alerts are deliberately
	// independent of per-symbol monitoring.
	e.runBriefings(ctx, doc)

	e.persistState(ctx)
}

func (e *Engine) processSymbols(ctx context.Context, doc *store.Document) {
	symbols := make([]string, 0, len(doc.Tickers))
	for sym := range doc.Tickers {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(sym string, toggles core.Toggles) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			e.runSymbolTask(ctx, sym, toggles)
		}(sym, doc.Tickers[sym])
	}
	wg.Wait()
}

// runSymbolTask is the task boundary: any failure inside, including a
// panic, is caught and logged here and never reaches the pool.
func (e *Engine) runSymbolTask(ctx context.Context, sym string, toggles core.Toggles) {
	failed := false
	defer func() {
		if r := recover(); r != nil {
			failed = true
			e.logger.Error("symbol task panicked",
				zap.String("symbol", sym),
				zap.Any("panic", r),
			)
		}
		if e.metrics != nil {
			e.metrics.SymbolProcessed(failed)
		}
	}()

	in := signal.Input{
		Symbol:  sym,
		Toggles: toggles,
		Now:     e.now(),
	}

	quote, err := e.fetchQuote(ctx, sym)
	if err != nil {
		failed = true
		e.logProviderErr("quotes", sym, err)
	} else {
		in.Quote = quote
	}

	if needsHistory(toggles) {
		history, err := e.fetchHistory(ctx, sym)
		if err != nil {
			failed = true
			e.logProviderErr("history", sym, err)
		} else {
			in.History = history
		}
	}

	if toggles.Enabled(core.RuleNews) || toggles.Enabled(core.RuleFiling) {
		news, err := e.fetchNews(ctx, sym)
		if err != nil {
			failed = true
			e.logProviderErr("news", sym, err)
		} else {
			in.News = news
		}
	}

	res := e.eval.Evaluate(in, e.dedup)
	if e.metrics != nil {
		for _, kind := range res.Candidates {
			e.metrics.CandidateAlert(string(kind))
		}
	}
	for _, alert := range res.Alerts {
		e.dispatch(alert)
	}
}

func (e *Engine) fetchQuote(ctx context.Context, sym string) (*core.Quote, error) {
	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	return e.providers.Quotes.Quote(cctx, sym)
}

func (e *Engine) fetchHistory(ctx context.Context, sym string) ([]core.Candle, error) {
	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	return e.providers.History.History(cctx, sym, historyDays)
}

func (e *Engine) fetchNews(ctx context.Context, sym string) ([]core.NewsItem, error) {
	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	return e.providers.News.News(cctx, sym, e.cfg.NewsLimit)
}

// logProviderErr applies the error taxonomy: absence of data is not a
// failure, transient provider errors are logged and skipped.
func (e *Engine) logProviderErr(providerName, sym string, err error) {
	if core.ErrNoData.Is(err) || core.ErrSymbolNotFound.Is(err) {
		e.logger.Debug("no data",
			zap.String("provider", providerName),
			zap.String("symbol", sym),
		)
		return
	}
	if e.metrics != nil {
		e.metrics.ProviderError(providerName)
	}
	e.logger.Warn("provider failed, skipping this tick",
		zap.String("provider", providerName),
		zap.String("symbol", sym),
		zap.Error(err),
	)
}

// dispatch sends one novel alert. At-most-once: failures are logged and
// dropped.
func (e *Engine) dispatch(alert core.Alert) {
	body := alert.Body
	if alert.Link != "" {
		body += "\n" + alert.Link
	}
	errs := e.notifiers.SendAll(alert.Title, body, alert.SuppressPreview())
	for name, err := range errs {
		e.logger.Error("notifier failed",
			zap.String("notifier", name),
			zap.String("symbol", alert.Symbol),
			zap.String("kind", string(alert.Kind)),
			zap.Error(err),
		)
	}
	if e.metrics != nil {
		e.metrics.AlertSent(string(alert.Kind))
	}
	e.logger.Info("alert dispatched",
		zap.String("symbol", alert.Symbol),
		zap.String("kind", string(alert.Kind)),
		zap.String("title", alert.Title),
	)
}

// persistState writes the dedup snapshot back to the config document so
// a restart does not resend everything. Failure here is tolerated: the
// in-memory state stays authoritative until the next attempt.
func (e *Engine) persistState(ctx context.Context) {
	err := e.docs.Update(ctx, func(doc *store.Document) error {
		e.dedup.Snapshot(doc)
		return nil
	})
	if err != nil {
		e.logger.Warn("persisting dedup state", zap.Error(err))
	}
}

// needsHistory reports whether any enabled rule requires the OHLC
// series.
func needsHistory(t core.Toggles) bool {
	for _, k := range []core.RuleKind{
		core.RuleRSI, core.RuleMACross, core.RuleVolumeSpike,
		core.RuleBollinger, core.RuleMACD,
	} {
		if t.Enabled(k) {
			return true
		}
	}
	return false
}
