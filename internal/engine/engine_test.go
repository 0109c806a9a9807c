package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debrief-io/debrief/internal/core"
	"github.com/debrief-io/debrief/internal/dedup"
	"github.com/debrief-io/debrief/internal/notifier"
	"github.com/debrief-io/debrief/internal/signal"
	"github.com/debrief-io/debrief/internal/store"
)

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]*core.Quote
	errs   map[string]error
	calls  []string
}

func (f *fakeQuotes) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, core.ErrSymbolNotFound
	}
	return q, nil
}

type fakeCalendar struct {
	mu     sync.Mutex
	events []core.CalendarEvent
	calls  int
}

func (f *fakeCalendar) WeekAhead(ctx context.Context) ([]core.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.events, nil
}

type sink struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	panic bool
}

func (s *sink) Name() string { return "sink" }

func (s *sink) Send(title, body string, disablePreview bool) error {
	if s.panic {
		panic("notifier exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return core.ErrNotifierFailed
	}
	s.sent = append(s.sent, title)
	return nil
}

func (s *sink) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func testEngine(t *testing.T, docs store.Store, quotes *fakeQuotes, cal *fakeCalendar, out *sink) *Engine {
	t.Helper()

	reg := notifier.NewRegistry()
	require.NoError(t, reg.Register(out))

	ded := dedup.New(dedup.Config{
		PriceTriggerPct: 3.0,
		PriceRearmPct:   1.0,
		RSIOverbought:   70,
		RSIOversold:     30,
		RSINeutralHigh:  65,
		RSINeutralLow:   35,
	})
	eval := signal.NewEvaluator(signal.Thresholds{
		RSIPeriod: 14, VolumeRatio: 2.0,
		MAFast: 50, MASlow: 200,
		BollPeriod: 20, BollWidth: 2.0,
	})

	e := New(Config{
		Interval:    time.Minute,
		Workers:     5,
		NewsLimit:   10,
		BriefingDay: time.Monday,
		WeeklyHour:  8,
		DailyHour:   8,
	}, docs, ded, eval, Providers{Quotes: quotes, Calendar: cal}, reg, nil, nil)

	// Fixed clock: Friday mid-morning, away from briefing windows.
	e.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }
	return e
}

func priceOnly() core.Toggles {
	return core.Toggles{
		core.RulePriceMove: true,
		core.RuleNews:      false, core.RuleFiling: false,
	}
}

func watchlist(toggles core.Toggles, symbols ...string) *store.Document {
	doc := &store.Document{SystemActive: true, EcoMode: false}
	doc.Normalize()
	for _, sym := range symbols {
		doc.Tickers[sym] = toggles
	}
	return doc
}

func TestTick_DispatchesNovelAlerts(t *testing.T) {
	docs := store.NewMemoryStore(watchlist(priceOnly(), "TSLA"))
	quotes := &fakeQuotes{quotes: map[string]*core.Quote{
		"TSLA": {Symbol: "TSLA", Price: 105, PrevClose: 100, Volume: 1, Time: time.Now()},
	}}
	out := &sink{}
	e := testEngine(t, docs, quotes, nil, out)

	e.tick(context.Background())
	require.Len(t, out.titles(), 1)
	assert.Contains(t, out.titles()[0], "TSLA Price Move")

	// Same quote next tick: deduplicated
	e.tick(context.Background())
	assert.Len(t, out.titles(), 1)
}

func TestTick_FailedSymbolDoesNotBlockOthers(t *testing.T) {
	docs := store.NewMemoryStore(watchlist(priceOnly(), "AAAA", "TSLA"))
	quotes := &fakeQuotes{
		quotes: map[string]*core.Quote{
			"TSLA": {Symbol: "TSLA", Price: 105, PrevClose: 100, Volume: 1, Time: time.Now()},
		},
		errs: map[string]error{"AAAA": core.ErrProviderFailed},
	}
	out := &sink{}
	e := testEngine(t, docs, quotes, nil, out)

	e.tick(context.Background())

	require.Len(t, out.titles(), 1, "healthy symbol still alerts")
	assert.Contains(t, out.titles()[0], "TSLA")
}

func TestTick_PanicInTaskIsContained(t *testing.T) {
	docs := store.NewMemoryStore(watchlist(priceOnly(), "NVDA", "TSLA"))
	quotes := &fakeQuotes{quotes: map[string]*core.Quote{
		"NVDA": {Symbol: "NVDA", Price: 208, PrevClose: 200, Volume: 1, Time: time.Now()},
		"TSLA": {Symbol: "TSLA", Price: 105, PrevClose: 100, Volume: 1, Time: time.Now()},
	}}
	out := &sink{panic: true}
	e := testEngine(t, docs, quotes, nil, out)

	assert.NotPanics(t, func() { e.tick(context.Background()) })
}

func TestTick_PausedSkipsSymbolsButBriefingsRun(t *testing.T) {
	doc := watchlist(priceOnly(), "TSLA")
	doc.SystemActive = false
	doc.EcoMode = true
	docs := store.NewMemoryStore(doc)

	quotes := &fakeQuotes{quotes: map[string]*core.Quote{
		"TSLA": {Symbol: "TSLA", Price: 105, PrevClose: 100, Volume: 1, Time: time.Now()},
	}}
	cal := &fakeCalendar{events: []core.CalendarEvent{{
		Date:   time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Time:   "08:30",
		Title:  "CPI",
		Actual: "3.2%",
	}}}
	out := &sink{}
	e := testEngine(t, docs, quotes, cal, out)

	e.tick(context.Background())

	assert.Empty(t, quotes.calls, "paused system must not fetch symbol data")
	titles := out.titles()
	require.NotEmpty(t, titles, "calendar alerts still flow while paused")
	assert.Contains(t, titles, "🔔 Economic Release")
}

func TestTick_EcoOffSkipsBriefings(t *testing.T) {
	doc := watchlist(priceOnly(), "TSLA")
	doc.EcoMode = false
	docs := store.NewMemoryStore(doc)

	cal := &fakeCalendar{events: []core.CalendarEvent{{
		Date:   time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Time:   "08:30",
		Title:  "CPI",
		Actual: "3.2%",
	}}}
	quotes := &fakeQuotes{}
	out := &sink{}
	e := testEngine(t, docs, quotes, cal, out)

	e.tick(context.Background())

	for _, title := range out.titles() {
		assert.NotContains(t, title, "Economic Release")
	}
}

func TestTick_PersistsDedupState(t *testing.T) {
	docs := store.NewMemoryStore(watchlist(priceOnly(), "TSLA"))
	quotes := &fakeQuotes{quotes: map[string]*core.Quote{
		"TSLA": {Symbol: "TSLA", Price: 105, PrevClose: 100, Volume: 1, Time: time.Now()},
	}}
	out := &sink{}
	e := testEngine(t, docs, quotes, nil, out)

	e.tick(context.Background())

	doc, err := docs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.0, doc.AlertState.PricePct["TSLA"], "last alerted move written back")
}

func TestTick_NotifierFailureIsAtMostOnce(t *testing.T) {
	docs := store.NewMemoryStore(watchlist(priceOnly(), "TSLA"))
	quotes := &fakeQuotes{quotes: map[string]*core.Quote{
		"TSLA": {Symbol: "TSLA", Price: 105, PrevClose: 100, Volume: 1, Time: time.Now()},
	}}
	out := &sink{fail: true}
	e := testEngine(t, docs, quotes, nil, out)

	e.tick(context.Background())
	out.fail = false
	e.tick(context.Background())

	assert.Empty(t, out.titles(), "a failed send is dropped, never retried")
}

func TestRun_SecondRunnerRefused(t *testing.T) {
	docs := store.NewMemoryStore(watchlist(priceOnly(), "TSLA"))
	quotes := &fakeQuotes{}
	out := &sink{}
	e := testEngine(t, docs, quotes, nil, out)

	started := make(chan struct{})
	blocked := make(chan time.Duration)
	e.after = func(d time.Duration) <-chan time.Time {
		close(started)
		blocked <- d // parks the loop until the test is done
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	<-started
	assert.ErrorIs(t, e.Run(ctx), core.ErrAlreadyRunning)

	cancel()
	<-blocked
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRun_SleepAfterWorkInterval(t *testing.T) {
	docs := store.NewMemoryStore(watchlist(priceOnly(), "TSLA"))
	quotes := &fakeQuotes{}
	out := &sink{}
	e := testEngine(t, docs, quotes, nil, out)

	var intervals []time.Duration
	ctx, cancel := context.WithCancel(context.Background())
	e.after = func(d time.Duration) <-chan time.Time {
		intervals = append(intervals, d)
		if len(intervals) == 3 {
			cancel()
		}
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.GreaterOrEqual(t, len(intervals), 3)
	for _, d := range intervals {
		assert.Equal(t, time.Minute, d, "full interval slept regardless of work time")
	}
}
