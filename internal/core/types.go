package core

import (
	"fmt"
	"strings"
	"time"
)

// RuleKind identifies a signal rule that can be toggled per symbol.
type RuleKind string

const (
	RuleNews        RuleKind = "news"
	RuleFiling      RuleKind = "filing"
	RulePriceMove   RuleKind = "price_move"
	RuleVolumeSpike RuleKind = "volume_spike"
	RuleNewHigh     RuleKind = "new_high"
	RuleRSI         RuleKind = "rsi"
	RuleMACross     RuleKind = "ma_cross"
	RuleBollinger   RuleKind = "bollinger"
	RuleMACD        RuleKind = "macd"
)

// AllRuleKinds returns every per-symbol rule kind in display order.
func AllRuleKinds() []RuleKind {
	return []RuleKind{
		RuleNews, RuleFiling, RulePriceMove, RuleVolumeSpike,
		RuleNewHigh, RuleRSI, RuleMACross, RuleBollinger, RuleMACD,
	}
}

// DefaultEnabled reports whether the rule is on for a symbol that has
// no explicit toggle recorded.
func (k RuleKind) DefaultEnabled() bool {
	switch k {
	case RuleNews, RuleFiling, RulePriceMove:
		return true
	default:
		return false
	}
}

// Valid reports whether k is a known rule kind.
func (k RuleKind) Valid() bool {
	for _, kind := range AllRuleKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Toggles holds the per-symbol rule switches. Absent keys fall back to
// the rule's default.
type Toggles map[RuleKind]bool

// Enabled reports whether the rule is active for this symbol.
func (t Toggles) Enabled(k RuleKind) bool {
	if t == nil {
		return k.DefaultEnabled()
	}
	if v, ok := t[k]; ok {
		return v
	}
	return k.DefaultEnabled()
}

// DefaultToggles returns the toggle set assigned to a newly added symbol.
func DefaultToggles() Toggles {
	t := make(Toggles, len(AllRuleKinds()))
	for _, k := range AllRuleKinds() {
		t[k] = k.DefaultEnabled()
	}
	return t
}

// Quote is a snapshot of the latest trade for a symbol.
type Quote struct {
	Symbol    string
	Price     float64
	PrevClose float64
	Volume    int64
	High52W   float64
	Time      time.Time
	Source    string
}

// IsValid checks that the quote carries the fields evaluators need.
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0 && q.PrevClose > 0
}

// ChangePct is the day move in percent against the previous close.
func (q Quote) ChangePct() float64 {
	if q.PrevClose == 0 {
		return 0
	}
	return (q.Price - q.PrevClose) / q.PrevClose * 100
}

// Candle is one daily OHLCV bar.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Time   time.Time
}

// NewsItem is one news or filing headline from the news adapter.
type NewsItem struct {
	ID        string
	Title     string
	Link      string
	Source    string
	Filing    bool
	Published time.Time
}

// Profile holds descriptive company data used by query commands.
type Profile struct {
	Symbol       string
	Name         string
	Summary      string
	Sector       string
	MarketCap    float64
	NextEarnings time.Time
}

// Importance grades a macro calendar event.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// CalendarEvent is one macro calendar entry. Events are re-fetched every
// tick; Key identifies the same event across fetches.
type CalendarEvent struct {
	Date       time.Time
	Time       string
	Title      string
	Country    string
	Importance Importance
	Forecast   string
	Actual     string
}

// Key returns the stable identity of the event across re-fetches.
func (e CalendarEvent) Key() string {
	return fmt.Sprintf("%s|%s|%s", e.Date.Format("2006-01-02"), e.Time, e.Title)
}

// SameDay reports whether the event falls on the given calendar day.
func (e CalendarEvent) SameDay(t time.Time) bool {
	ey, em, ed := e.Date.Date()
	ty, tm, td := t.Date()
	return ey == ty && em == tm && ed == td
}

// MomentumState is the RSI hysteresis machine state.
type MomentumState string

const (
	MomentumNormal     MomentumState = "normal"
	MomentumOverbought MomentumState = "overbought"
	MomentumOversold   MomentumState = "oversold"
)

// Alert is a candidate notification produced by an evaluator. Whether it
// is actually sent is decided by the dedup store.
type Alert struct {
	ID     string
	Symbol string
	Kind   RuleKind
	Title  string
	Body   string
	Link   string
	At     time.Time
}

// SuppressPreview reports whether the outbound message should disable
// link previews. Headline alerts keep previews; everything else is text.
func (a Alert) SuppressPreview() bool {
	return a.Link == ""
}

// NormalizeSymbol uppercases and trims a user-supplied ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
