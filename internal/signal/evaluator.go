// Package signal holds the per-symbol rule evaluators. Evaluators are
// pure with respect to process state: everything they need arrives in
// the Input, and novelty decisions are delegated to the injected
// Arbiter rather than read from ambient caches.
package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/debrief-io/debrief/internal/core"
	"github.com/debrief-io/debrief/internal/format"
	"github.com/debrief-io/debrief/internal/indicator"
)

// Arbiter decides whether a candidate alert is novel. Implemented by
// the dedup store; every method both checks and records.
type Arbiter interface {
	NovelNews(symbol, itemID string) bool
	NovelPriceMove(symbol string, pct float64) bool
	MomentumTransition(symbol string, rsi float64) (core.MomentumState, bool)
	TrendChange(key string, diff float64) (direction int, fired bool)
	PassDayGate(symbol, gate string, day time.Time) bool
}

// Thresholds holds the tunable rule parameters.
type Thresholds struct {
	RSIPeriod   int
	VolumeRatio float64
	MAFast      int
	MASlow      int
	BollPeriod  int
	BollWidth   float64
}

// Input is one symbol's fetched data for one tick. Nil/empty fields
// mean the corresponding fetch failed or returned nothing; evaluators
// treat that as "no candidates", never as an error.
type Input struct {
	Symbol  string
	Toggles core.Toggles
	Quote   *core.Quote
	History []core.Candle
	News    []core.NewsItem
	Now     time.Time
}

// Result carries the novel alerts plus the pre-dedup candidate kinds,
// which only feed metrics.
type Result struct {
	Alerts     []core.Alert
	Candidates []core.RuleKind
}

// Evaluator runs the per-symbol rules in a fixed order.
type Evaluator struct {
	th Thresholds
}

// NewEvaluator creates an evaluator with the given thresholds.
func NewEvaluator(th Thresholds) *Evaluator {
	return &Evaluator{th: th}
}

// Evaluate runs every enabled rule for one symbol. Order is fixed:
// news/filing, price move, momentum, crossover, volume, new high,
// bollinger, macd.
func (e *Evaluator) Evaluate(in Input, arb Arbiter) Result {
	var res Result
	e.evaluateNews(in, arb, &res)
	e.evaluatePriceMove(in, arb, &res)
	e.evaluateMomentum(in, arb, &res)
	e.evaluateCrossover(in, arb, &res)
	e.evaluateVolumeSpike(in, arb, &res)
	e.evaluateNewHigh(in, arb, &res)
	e.evaluateBollinger(in, arb, &res)
	e.evaluateMACD(in, arb, &res)
	return res
}

func (e *Evaluator) evaluateNews(in Input, arb Arbiter, res *Result) {
	wantNews := in.Toggles.Enabled(core.RuleNews)
	wantFilings := in.Toggles.Enabled(core.RuleFiling)
	if !wantNews && !wantFilings {
		return
	}

	for _, item := range in.News {
		kind := core.RuleNews
		if item.Filing {
			kind = core.RuleFiling
		}
		// A filing-classified item is suppressed unless the filing
		// toggle is on, and vice versa for general news.
		if item.Filing && !wantFilings {
			continue
		}
		if !item.Filing && !wantNews {
			continue
		}
		res.Candidates = append(res.Candidates, kind)

		if !arb.NovelNews(in.Symbol, item.ID) {
			continue
		}

		title := fmt.Sprintf("📰 %s News", in.Symbol)
		if item.Filing {
			title = fmt.Sprintf("🏛️ %s Filing", in.Symbol)
		}
		res.Alerts = append(res.Alerts, newAlert(in, kind, title, item.Title, item.Link))
	}
}

func (e *Evaluator) evaluatePriceMove(in Input, arb Arbiter, res *Result) {
	if !in.Toggles.Enabled(core.RulePriceMove) || in.Quote == nil || !in.Quote.IsValid() {
		return
	}

	pct := in.Quote.ChangePct()
	res.Candidates = append(res.Candidates, core.RulePriceMove)

	if !arb.NovelPriceMove(in.Symbol, pct) {
		return
	}

	body := fmt.Sprintf("%s %s (%s, prev close %s)",
		format.Arrow(pct), format.Pct(pct),
		format.Price(in.Quote.Price), format.Price(in.Quote.PrevClose))
	title := fmt.Sprintf("📈 %s Price Move", in.Symbol)
	if pct < 0 {
		title = fmt.Sprintf("📉 %s Price Move", in.Symbol)
	}
	res.Alerts = append(res.Alerts, newAlert(in, core.RulePriceMove, title, body, ""))
}

func (e *Evaluator) evaluateMomentum(in Input, arb Arbiter, res *Result) {
	if !in.Toggles.Enabled(core.RuleRSI) {
		return
	}
	values := indicator.RSI(closes(in.History), e.th.RSIPeriod)
	if len(values) == 0 {
		return
	}
	rsi := values[len(values)-1]
	res.Candidates = append(res.Candidates, core.RuleRSI)

	state, fired := arb.MomentumTransition(in.Symbol, rsi)
	if !fired {
		return
	}

	label := "Overbought"
	if state == core.MomentumOversold {
		label = "Oversold"
	}
	body := fmt.Sprintf("RSI(%d) = %.1f → %s", e.th.RSIPeriod, rsi, label)
	res.Alerts = append(res.Alerts,
		newAlert(in, core.RuleRSI, fmt.Sprintf("📊 %s RSI %s", in.Symbol, label), body, ""))
}

func (e *Evaluator) evaluateCrossover(in Input, arb Arbiter, res *Result) {
	if !in.Toggles.Enabled(core.RuleMACross) {
		return
	}
	prices := closes(in.History)
	fast := indicator.SMA(prices, e.th.MAFast)
	slow := indicator.SMA(prices, e.th.MASlow)
	if len(fast) == 0 || len(slow) == 0 {
		return
	}
	diff := fast[len(fast)-1] - slow[len(slow)-1]
	res.Candidates = append(res.Candidates, core.RuleMACross)

	direction, fired := arb.TrendChange(in.Symbol, diff)
	if !fired {
		return
	}

	label := "Golden Cross"
	emoji := "⚡"
	if direction < 0 {
		label = "Dead Cross"
		emoji = "💀"
	}
	body := fmt.Sprintf("MA%d crossed MA%d (%s)", e.th.MAFast, e.th.MASlow, label)
	res.Alerts = append(res.Alerts,
		newAlert(in, core.RuleMACross, fmt.Sprintf("%s %s %s", emoji, in.Symbol, label), body, ""))
}

func (e *Evaluator) evaluateVolumeSpike(in Input, arb Arbiter, res *Result) {
	if !in.Toggles.Enabled(core.RuleVolumeSpike) || in.Quote == nil || in.Quote.Volume == 0 {
		return
	}
	avg := averageVolume(in.History, 10)
	if avg == 0 {
		return
	}
	ratio := float64(in.Quote.Volume) / avg
	if ratio < e.th.VolumeRatio {
		return
	}
	res.Candidates = append(res.Candidates, core.RuleVolumeSpike)

	if !arb.PassDayGate(in.Symbol, "volume_spike", in.Now) {
		return
	}
	body := fmt.Sprintf("Volume %s is %.1fx the 10-day average",
		format.Volume(in.Quote.Volume), ratio)
	res.Alerts = append(res.Alerts,
		newAlert(in, core.RuleVolumeSpike, fmt.Sprintf("📢 %s Volume Spike", in.Symbol), body, ""))
}

func (e *Evaluator) evaluateNewHigh(in Input, arb Arbiter, res *Result) {
	if !in.Toggles.Enabled(core.RuleNewHigh) || in.Quote == nil || in.Quote.High52W <= 0 {
		return
	}
	if in.Quote.Price < in.Quote.High52W {
		return
	}
	res.Candidates = append(res.Candidates, core.RuleNewHigh)

	if !arb.PassDayGate(in.Symbol, "new_high", in.Now) {
		return
	}
	body := fmt.Sprintf("%s marks a fresh 52-week high", format.Price(in.Quote.Price))
	res.Alerts = append(res.Alerts,
		newAlert(in, core.RuleNewHigh, fmt.Sprintf("🏆 %s 52-Week High", in.Symbol), body, ""))
}

func (e *Evaluator) evaluateBollinger(in Input, arb Arbiter, res *Result) {
	if !in.Toggles.Enabled(core.RuleBollinger) {
		return
	}
	prices := closes(in.History)
	_, upper, lower := indicator.Bollinger(prices, e.th.BollPeriod, e.th.BollWidth)
	if len(upper) == 0 {
		return
	}
	last := prices[len(prices)-1]
	up, low := upper[len(upper)-1], lower[len(lower)-1]

	var gate, label string
	switch {
	case last > up:
		gate, label = "bollinger_up", "above the upper band"
	case last < low:
		gate, label = "bollinger_down", "below the lower band"
	default:
		return
	}
	res.Candidates = append(res.Candidates, core.RuleBollinger)

	if !arb.PassDayGate(in.Symbol, gate, in.Now) {
		return
	}
	body := fmt.Sprintf("Close %s is %s (%d-day, %.0fσ)",
		format.Price(last), label, e.th.BollPeriod, e.th.BollWidth)
	res.Alerts = append(res.Alerts,
		newAlert(in, core.RuleBollinger, fmt.Sprintf("🍩 %s Bollinger Break", in.Symbol), body, ""))
}

func (e *Evaluator) evaluateMACD(in Input, arb Arbiter, res *Result) {
	if !in.Toggles.Enabled(core.RuleMACD) {
		return
	}
	_, _, histogram := indicator.MACD(closes(in.History), 12, 26, 9)
	if len(histogram) == 0 {
		return
	}
	diff := histogram[len(histogram)-1]
	res.Candidates = append(res.Candidates, core.RuleMACD)

	direction, fired := arb.TrendChange(in.Symbol+"|macd", diff)
	if !fired {
		return
	}

	label := "Bullish Cross"
	if direction < 0 {
		label = "Bearish Cross"
	}
	body := fmt.Sprintf("MACD(12,26,9) signal-line cross: %s", label)
	res.Alerts = append(res.Alerts,
		newAlert(in, core.RuleMACD, fmt.Sprintf("🌊 %s MACD %s", in.Symbol, label), body, ""))
}

func newAlert(in Input, kind core.RuleKind, title, body, link string) core.Alert {
	return core.Alert{
		ID:     uuid.NewString(),
		Symbol: in.Symbol,
		Kind:   kind,
		Title:  title,
		Body:   body,
		Link:   link,
		At:     in.Now,
	}
}

func closes(candles []core.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// averageVolume averages the volume of the most recent `days` bars,
// excluding the last bar (today's partial volume).
func averageVolume(candles []core.Candle, days int) float64 {
	if len(candles) < 2 {
		return 0
	}
	hist := candles[:len(candles)-1]
	if len(hist) > days {
		hist = hist[len(hist)-days:]
	}
	var sum int64
	var n int
	for _, c := range hist {
		if c.Volume > 0 {
			sum += c.Volume
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
