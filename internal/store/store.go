package store

import (
	"context"

	"github.com/debrief-io/debrief/internal/core"
)

// Document is the persisted config document shared by the engine, the
// command processor and the dashboard. It is versionless JSON; unknown
// callers must never drop fields they do not own, which is why every
// mutation goes through Update (read-modify-write) rather than a blind
// overwrite.
type Document struct {
	SystemActive bool                    `json:"system_active"`
	EcoMode      bool                    `json:"eco_mode"`
	Tickers      map[string]core.Toggles `json:"tickers"`
	NewsHistory  map[string][]string     `json:"news_history"`
	AlertState   AlertState              `json:"alert_state"`
}

// AlertState is the persisted slice of the dedup store. Losing it on a
// crash degrades to duplicate alerts, which is accepted.
type AlertState struct {
	PricePct     map[string]float64            `json:"price_pct,omitempty"`
	Momentum     map[string]core.MomentumState `json:"momentum,omitempty"`
	MATrend      map[string]int                `json:"ma_trend,omitempty"`
	DayGates     map[string]string             `json:"day_gates,omitempty"`
	CalendarSeen []string                      `json:"calendar_seen,omitempty"`
	WeeklySent   string                        `json:"weekly_sent,omitempty"`
	DailySent    string                        `json:"daily_sent,omitempty"`
}

// Store is the config document adapter. Load returns the latest
// document; Update applies fn atomically relative to other Updates on
// the same Store.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Update(ctx context.Context, fn func(*Document) error) error
}

// DefaultDocument returns the document used when the remote bin is
// empty or unreachable on first start.
func DefaultDocument() *Document {
	doc := &Document{
		SystemActive: true,
		EcoMode:      true,
		Tickers: map[string]core.Toggles{
			"TSLA": core.DefaultToggles(),
			"NVDA": core.DefaultToggles(),
		},
	}
	doc.Normalize()
	return doc
}

// Normalize initializes nil maps so callers can mutate without checks.
func (d *Document) Normalize() {
	if d.Tickers == nil {
		d.Tickers = make(map[string]core.Toggles)
	}
	if d.NewsHistory == nil {
		d.NewsHistory = make(map[string][]string)
	}
	if d.AlertState.PricePct == nil {
		d.AlertState.PricePct = make(map[string]float64)
	}
	if d.AlertState.Momentum == nil {
		d.AlertState.Momentum = make(map[string]core.MomentumState)
	}
	if d.AlertState.MATrend == nil {
		d.AlertState.MATrend = make(map[string]int)
	}
	if d.AlertState.DayGates == nil {
		d.AlertState.DayGates = make(map[string]string)
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		SystemActive: d.SystemActive,
		EcoMode:      d.EcoMode,
		Tickers:      make(map[string]core.Toggles, len(d.Tickers)),
		NewsHistory:  make(map[string][]string, len(d.NewsHistory)),
	}
	for sym, toggles := range d.Tickers {
		t := make(core.Toggles, len(toggles))
		for k, v := range toggles {
			t[k] = v
		}
		out.Tickers[sym] = t
	}
	for sym, ids := range d.NewsHistory {
		out.NewsHistory[sym] = append([]string(nil), ids...)
	}
	out.AlertState = d.AlertState.clone()
	out.Normalize()
	return out
}

func (s AlertState) clone() AlertState {
	out := AlertState{
		WeeklySent: s.WeeklySent,
		DailySent:  s.DailySent,
	}
	if s.PricePct != nil {
		out.PricePct = make(map[string]float64, len(s.PricePct))
		for k, v := range s.PricePct {
			out.PricePct[k] = v
		}
	}
	if s.Momentum != nil {
		out.Momentum = make(map[string]core.MomentumState, len(s.Momentum))
		for k, v := range s.Momentum {
			out.Momentum[k] = v
		}
	}
	if s.MATrend != nil {
		out.MATrend = make(map[string]int, len(s.MATrend))
		for k, v := range s.MATrend {
			out.MATrend[k] = v
		}
	}
	if s.DayGates != nil {
		out.DayGates = make(map[string]string, len(s.DayGates))
		for k, v := range s.DayGates {
			out.DayGates[k] = v
		}
	}
	out.CalendarSeen = append([]string(nil), s.CalendarSeen...)
	return out
}
