package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debrief-io/debrief/internal/core"
	"github.com/debrief-io/debrief/internal/store"
)

func testConfig() Config {
	return Config{
		PriceTriggerPct: 3.0,
		PriceRearmPct:   1.0,
		RSIOverbought:   70,
		RSIOversold:     30,
		RSINeutralHigh:  65,
		RSINeutralLow:   35,
	}
}

func TestNovelNews_Idempotent(t *testing.T) {
	s := New(testConfig())

	assert.True(t, s.NovelNews("TSLA", "item-1"))
	assert.False(t, s.NovelNews("TSLA", "item-1"), "repeat within window must be suppressed")

	// Other symbols have independent windows
	assert.True(t, s.NovelNews("NVDA", "item-1"))
}

func TestNovelNews_FIFOEviction(t *testing.T) {
	s := New(testConfig())

	for i := 0; i < newsCapacity; i++ {
		require.True(t, s.NovelNews("TSLA", fmt.Sprintf("item-%d", i)))
	}

	// Capacity not yet exceeded: oldest still remembered
	assert.False(t, s.NovelNews("TSLA", "item-0"))

	// One more new item evicts the oldest
	require.True(t, s.NovelNews("TSLA", "item-new"))
	assert.True(t, s.NovelNews("TSLA", "item-0"), "evicted id should be novel again")
	assert.False(t, s.NovelNews("TSLA", "item-2"), "younger ids stay in the window")
}

func TestNovelPriceMove_RearmSequence(t *testing.T) {
	s := New(testConfig())

	// previous_close=100: ticks 103 -> 103.5 -> 105
	assert.True(t, s.NovelPriceMove("TSLA", 3.0), "first crossing fires")
	assert.False(t, s.NovelPriceMove("TSLA", 3.5), "within re-arm threshold")
	assert.True(t, s.NovelPriceMove("TSLA", 5.0), "2pp past last alerted")
}

func TestNovelPriceMove_BelowTrigger(t *testing.T) {
	s := New(testConfig())

	assert.False(t, s.NovelPriceMove("TSLA", 2.9))
	assert.False(t, s.NovelPriceMove("TSLA", -2.0))
	assert.True(t, s.NovelPriceMove("TSLA", -3.1), "trigger compares absolute move")
}

func TestMomentumTransition_Hysteresis(t *testing.T) {
	s := New(testConfig())

	sequence := []float64{72, 74, 73, 68, 50, 31, 28}
	var fired []core.MomentumState
	for _, rsi := range sequence {
		if state, fire := s.MomentumTransition("TSLA", rsi); fire {
			fired = append(fired, state)
		}
	}

	require.Len(t, fired, 2, "exactly one overbought and one oversold alert")
	assert.Equal(t, core.MomentumOverbought, fired[0])
	assert.Equal(t, core.MomentumOversold, fired[1])
}

func TestMomentumTransition_NoResetOutsideNeutralBand(t *testing.T) {
	s := New(testConfig())

	_, fired := s.MomentumTransition("TSLA", 75)
	require.True(t, fired)

	// 68 is above the neutral band: still armed, no reset
	state, fired := s.MomentumTransition("TSLA", 68)
	assert.False(t, fired)
	assert.Equal(t, core.MomentumOverbought, state)

	// Re-crossing 70 without touching the band must not re-fire
	_, fired = s.MomentumTransition("TSLA", 71)
	assert.False(t, fired)

	// Passing through the band resets, then a fresh crossing fires
	state, fired = s.MomentumTransition("TSLA", 50)
	assert.False(t, fired)
	assert.Equal(t, core.MomentumNormal, state)

	_, fired = s.MomentumTransition("TSLA", 72)
	assert.True(t, fired)
}

func TestTrendChange_FiresOnceOnFlip(t *testing.T) {
	s := New(testConfig())

	// First observation only seeds
	_, fired := s.TrendChange("TSLA", -1.5)
	assert.False(t, fired)

	// Flip fires
	dir, fired := s.TrendChange("TSLA", 0.5)
	assert.True(t, fired)
	assert.Equal(t, 1, dir)

	// Staying positive for more periods stays quiet
	for i := 0; i < 5; i++ {
		_, fired = s.TrendChange("TSLA", 0.8)
		assert.False(t, fired)
	}

	// Flip back fires again
	_, fired = s.TrendChange("TSLA", -0.2)
	assert.True(t, fired)
}

func TestPassDayGate(t *testing.T) {
	s := New(testConfig())
	day := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	assert.True(t, s.PassDayGate("TSLA", "volume_spike", day))
	assert.False(t, s.PassDayGate("TSLA", "volume_spike", day.Add(2*time.Hour)))
	assert.True(t, s.PassDayGate("TSLA", "new_high", day), "gates are independent")
	assert.True(t, s.PassDayGate("TSLA", "volume_spike", day.AddDate(0, 0, 1)))
}

func TestBriefingMarkers(t *testing.T) {
	s := New(testConfig())

	assert.True(t, s.TryWeekly("2026-W35"))
	assert.False(t, s.TryWeekly("2026-W35"))
	assert.True(t, s.TryWeekly("2026-W36"))

	assert.True(t, s.TryDaily("2026-08-28"))
	assert.False(t, s.TryDaily("2026-08-28"))
	assert.True(t, s.TryDaily("2026-08-29"))
}

func TestNovelCalendarActual(t *testing.T) {
	s := New(testConfig())

	key := "2026-08-28|08:30|CPI"
	assert.True(t, s.NovelCalendarActual(key))
	assert.False(t, s.NovelCalendarActual(key))
}

func TestForget_DropsSymbolState(t *testing.T) {
	s := New(testConfig())

	s.NovelNews("TSLA", "item-1")
	s.NovelPriceMove("TSLA", 4.0)
	s.MomentumTransition("TSLA", 75)
	s.TrendChange("TSLA|macd", 1)
	s.PassDayGate("TSLA", "new_high", time.Now())

	s.Forget("TSLA")

	assert.True(t, s.NovelNews("TSLA", "item-1"))
	assert.True(t, s.NovelPriceMove("TSLA", 4.0))
	_, fired := s.MomentumTransition("TSLA", 75)
	assert.True(t, fired)
	assert.True(t, s.PassDayGate("TSLA", "new_high", time.Now()))
}

func TestSnapshotRestore_Roundtrip(t *testing.T) {
	s := New(testConfig())

	s.NovelNews("TSLA", "item-1")
	s.NovelNews("TSLA", "item-2")
	s.NovelPriceMove("TSLA", 3.4)
	s.MomentumTransition("NVDA", 75)
	s.TrendChange("TSLA", 1.0)
	s.PassDayGate("TSLA", "volume_spike", time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
	s.NovelCalendarActual("2026-08-28|08:30|CPI")
	s.TryWeekly("2026-W35")
	s.TryDaily("2026-08-28")

	doc := &store.Document{}
	doc.Normalize()
	s.Snapshot(doc)

	restored := New(testConfig())
	restored.Restore(doc)

	assert.False(t, restored.NovelNews("TSLA", "item-1"))
	assert.False(t, restored.NovelNews("TSLA", "item-2"))
	assert.False(t, restored.NovelPriceMove("TSLA", 3.5), "last alerted pct survives")
	_, fired := restored.MomentumTransition("NVDA", 72)
	assert.False(t, fired, "overbought state survives")
	assert.False(t, restored.NovelCalendarActual("2026-08-28|08:30|CPI"))
	assert.False(t, restored.TryWeekly("2026-W35"))
	assert.False(t, restored.TryDaily("2026-08-28"))
	assert.False(t, restored.PassDayGate("TSLA", "volume_spike",
		time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)))
}

func TestConcurrentSymbolsDoNotInterfere(t *testing.T) {
	s := New(testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sym := fmt.Sprintf("SYM%d", n)
			for j := 0; j < 100; j++ {
				s.NovelNews(sym, fmt.Sprintf("item-%d", j))
				s.NovelPriceMove(sym, 4.0)
				s.MomentumTransition(sym, 75)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		sym := fmt.Sprintf("SYM%d", i)
		assert.False(t, s.NovelNews(sym, "item-0"))
	}
}
