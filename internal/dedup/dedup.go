// Package dedup is the sole arbiter of alert novelty. Evaluators
// produce candidate alerts; every candidate passes through exactly one
// check-and-update call here before it may be dispatched.
//
// All methods are safe under concurrent symbol tasks. Distinct symbols
// never share state; the single mutex only serializes the map access
// itself.
package dedup

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/debrief-io/debrief/internal/core"
	"github.com/debrief-io/debrief/internal/store"
)

// newsCapacity bounds the per-symbol FIFO of sent item IDs. Old IDs are
// evicted oldest-first, so near-term duplicates are caught without
// unbounded growth.
const newsCapacity = 30

// Config holds the thresholds the state machines enforce.
type Config struct {
	PriceTriggerPct float64
	PriceRearmPct   float64
	RSIOverbought   float64
	RSIOversold     float64
	RSINeutralHigh  float64
	RSINeutralLow   float64
}

// Store tracks per-(symbol, kind) dedup state.
type Store struct {
	cfg Config

	mu           sync.Mutex
	newsSeen     map[string]*fifoSet
	pricePct     map[string]float64
	momentum     map[string]core.MomentumState
	maTrend      map[string]int // -1 fast below slow, +1 above, 0 unknown
	dayGates     map[string]string
	calendarSeen map[string]struct{}
	weeklySent   string
	dailySent    string
}

// New creates an empty dedup store.
func New(cfg Config) *Store {
	return &Store{
		cfg:          cfg,
		newsSeen:     make(map[string]*fifoSet),
		pricePct:     make(map[string]float64),
		momentum:     make(map[string]core.MomentumState),
		maTrend:      make(map[string]int),
		dayGates:     make(map[string]string),
		calendarSeen: make(map[string]struct{}),
	}
}

// NovelNews reports whether the news item has not been sent within the
// FIFO window, recording it if novel.
func (s *Store) NovelNews(symbol, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.newsSeen[symbol]
	if !ok {
		set = newFIFOSet(newsCapacity)
		s.newsSeen[symbol] = set
	}
	return set.add(itemID)
}

// NovelPriceMove applies the two-threshold rule: fire when |pct| is at
// or past the trigger AND the move since the last alerted pct is at
// least the re-arm threshold. Records pct when it fires.
func (s *Store) NovelPriceMove(symbol string, pct float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if math.Abs(pct) < s.cfg.PriceTriggerPct {
		return false
	}
	if last, ok := s.pricePct[symbol]; ok {
		if math.Abs(pct-last) < s.cfg.PriceRearmPct {
			return false
		}
	}
	s.pricePct[symbol] = pct
	return true
}

// MomentumTransition runs the three-state hysteresis machine on an RSI
// value. It returns the state after the update and whether a transition
// alert should fire. Re-entering an extreme fires only after the value
// has passed back through the neutral band.
func (s *Store) MomentumTransition(symbol string, rsi float64) (core.MomentumState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.momentum[symbol]
	if !ok {
		state = core.MomentumNormal
	}

	switch state {
	case core.MomentumNormal:
		if rsi >= s.cfg.RSIOverbought {
			s.momentum[symbol] = core.MomentumOverbought
			return core.MomentumOverbought, true
		}
		if rsi <= s.cfg.RSIOversold {
			s.momentum[symbol] = core.MomentumOversold
			return core.MomentumOversold, true
		}
	case core.MomentumOverbought:
		if rsi <= s.cfg.RSIOversold {
			// Straight flip, still a transition
			s.momentum[symbol] = core.MomentumOversold
			return core.MomentumOversold, true
		}
		if rsi <= s.cfg.RSINeutralHigh && rsi >= s.cfg.RSINeutralLow {
			s.momentum[symbol] = core.MomentumNormal
			return core.MomentumNormal, false
		}
	case core.MomentumOversold:
		if rsi >= s.cfg.RSIOverbought {
			s.momentum[symbol] = core.MomentumOverbought
			return core.MomentumOverbought, true
		}
		if rsi >= s.cfg.RSINeutralLow && rsi <= s.cfg.RSINeutralHigh {
			s.momentum[symbol] = core.MomentumNormal
			return core.MomentumNormal, false
		}
	}
	return state, false
}

// TrendChange records the current sign of a crossover series under the
// given key ("SYM" for the MA pair, "SYM|macd" for the MACD histogram)
// and reports whether it flipped against the previously recorded sign.
// The first observation never fires; it only seeds the state.
func (s *Store) TrendChange(key string, diff float64) (direction int, fired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sign := 0
	if diff > 0 {
		sign = 1
	} else if diff < 0 {
		sign = -1
	}

	prev, ok := s.maTrend[key]
	s.maTrend[key] = sign
	if !ok || prev == 0 || sign == 0 {
		return sign, false
	}
	return sign, sign != prev
}

// PassDayGate reports whether the (symbol, gate) pair has not fired yet
// on the given day, recording the day if it passes. Used by the rules
// that may alert at most once per symbol per calendar day.
func (s *Store) PassDayGate(symbol, gate string, day time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%s|%s", symbol, gate)
	stamp := day.Format("2006-01-02")
	if s.dayGates[key] == stamp {
		return false
	}
	s.dayGates[key] = stamp
	return true
}

// NovelCalendarActual reports whether the event's actual value has not
// been announced yet, recording the event key if novel.
func (s *Store) NovelCalendarActual(eventKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.calendarSeen[eventKey]; seen {
		return false
	}
	s.calendarSeen[eventKey] = struct{}{}
	return true
}

// TryWeekly claims the weekly briefing for the given ISO week. At most
// one caller per week succeeds.
func (s *Store) TryWeekly(isoWeek string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.weeklySent == isoWeek {
		return false
	}
	s.weeklySent = isoWeek
	return true
}

// TryDaily claims the daily briefing for the given calendar day.
func (s *Store) TryDaily(day string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dailySent == day {
		return false
	}
	s.dailySent = day
	return true
}

// Forget drops all state for a symbol. Called when a symbol is removed
// from the watchlist so a re-add starts clean.
func (s *Store) Forget(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.newsSeen, symbol)
	delete(s.pricePct, symbol)
	delete(s.momentum, symbol)
	delete(s.maTrend, symbol)
	prefix := symbol + "|"
	for key := range s.maTrend {
		if strings.HasPrefix(key, prefix) {
			delete(s.maTrend, key)
		}
	}
	for key := range s.dayGates {
		if strings.HasPrefix(key, prefix) {
			delete(s.dayGates, key)
		}
	}
}

// Snapshot copies the persistable state into the config document. The
// caller owns the document; only dedup-owned fields are touched.
func (s *Store) Snapshot(doc *store.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.NewsHistory = make(map[string][]string, len(s.newsSeen))
	for sym, set := range s.newsSeen {
		doc.NewsHistory[sym] = set.items()
	}

	state := store.AlertState{
		PricePct:   make(map[string]float64, len(s.pricePct)),
		Momentum:   make(map[string]core.MomentumState, len(s.momentum)),
		MATrend:    make(map[string]int, len(s.maTrend)),
		DayGates:   make(map[string]string, len(s.dayGates)),
		WeeklySent: s.weeklySent,
		DailySent:  s.dailySent,
	}
	for k, v := range s.pricePct {
		state.PricePct[k] = v
	}
	for k, v := range s.momentum {
		state.Momentum[k] = v
	}
	for k, v := range s.maTrend {
		state.MATrend[k] = v
	}
	for k, v := range s.dayGates {
		state.DayGates[k] = v
	}
	state.CalendarSeen = make([]string, 0, len(s.calendarSeen))
	for k := range s.calendarSeen {
		state.CalendarSeen = append(state.CalendarSeen, k)
	}
	doc.AlertState = state
}

// Restore loads persisted state from the config document, replacing
// the in-memory state. Called once at startup.
func (s *Store) Restore(doc *store.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.newsSeen = make(map[string]*fifoSet, len(doc.NewsHistory))
	for sym, ids := range doc.NewsHistory {
		set := newFIFOSet(newsCapacity)
		for _, id := range ids {
			set.add(id)
		}
		s.newsSeen[sym] = set
	}

	st := doc.AlertState
	s.pricePct = make(map[string]float64, len(st.PricePct))
	for k, v := range st.PricePct {
		s.pricePct[k] = v
	}
	s.momentum = make(map[string]core.MomentumState, len(st.Momentum))
	for k, v := range st.Momentum {
		s.momentum[k] = v
	}
	s.maTrend = make(map[string]int, len(st.MATrend))
	for k, v := range st.MATrend {
		s.maTrend[k] = v
	}
	s.dayGates = make(map[string]string, len(st.DayGates))
	for k, v := range st.DayGates {
		s.dayGates[k] = v
	}
	s.calendarSeen = make(map[string]struct{}, len(st.CalendarSeen))
	for _, k := range st.CalendarSeen {
		s.calendarSeen[k] = struct{}{}
	}
	s.weeklySent = st.WeeklySent
	s.dailySent = st.DailySent
}

// fifoSet is a bounded insertion-ordered set; adding past capacity
// evicts the oldest entry.
type fifoSet struct {
	cap   int
	order []string
	seen  map[string]struct{}
}

func newFIFOSet(capacity int) *fifoSet {
	return &fifoSet{
		cap:  capacity,
		seen: make(map[string]struct{}, capacity),
	}
}

// add inserts the id and reports whether it was not already present.
func (f *fifoSet) add(id string) bool {
	if _, ok := f.seen[id]; ok {
		return false
	}
	f.seen[id] = struct{}{}
	f.order = append(f.order, id)
	if len(f.order) > f.cap {
		oldest := f.order[0]
		f.order = f.order[1:]
		delete(f.seen, oldest)
	}
	return true
}

func (f *fifoSet) items() []string {
	return append([]string(nil), f.order...)
}
