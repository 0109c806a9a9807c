package core

import (
	"testing"
	"time"
)

func TestToggles_Enabled(t *testing.T) {
	var nilToggles Toggles
	if !nilToggles.Enabled(RuleNews) {
		t.Error("nil toggles should fall back to defaults")
	}
	if nilToggles.Enabled(RuleRSI) {
		t.Error("rsi is off by default")
	}

	toggles := Toggles{RuleRSI: true, RuleNews: false}
	if !toggles.Enabled(RuleRSI) {
		t.Error("explicit true wins")
	}
	if toggles.Enabled(RuleNews) {
		t.Error("explicit false wins over the default")
	}
	if !toggles.Enabled(RulePriceMove) {
		t.Error("absent key falls back to the default")
	}
}

func TestDefaultToggles(t *testing.T) {
	toggles := DefaultToggles()
	if len(toggles) != len(AllRuleKinds()) {
		t.Fatalf("expected %d entries, got %d", len(AllRuleKinds()), len(toggles))
	}
	for _, on := range []RuleKind{RuleNews, RuleFiling, RulePriceMove} {
		if !toggles[on] {
			t.Errorf("%s should default on", on)
		}
	}
	for _, off := range []RuleKind{RuleVolumeSpike, RuleNewHigh, RuleRSI, RuleMACross, RuleBollinger, RuleMACD} {
		if toggles[off] {
			t.Errorf("%s should default off", off)
		}
	}
}

func TestRuleKind_Valid(t *testing.T) {
	if !RuleNews.Valid() {
		t.Error("news should be valid")
	}
	if RuleKind("bogus").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestQuote_ChangePct(t *testing.T) {
	q := Quote{Symbol: "TSLA", Price: 103, PrevClose: 100}
	if got := q.ChangePct(); got != 3 {
		t.Errorf("got %f, want 3", got)
	}
	if got := (Quote{Price: 97, PrevClose: 100}).ChangePct(); got != -3 {
		t.Errorf("got %f, want -3", got)
	}
	if got := (Quote{Price: 97}).ChangePct(); got != 0 {
		t.Errorf("zero prev close yields 0, got %f", got)
	}
}

func TestQuote_IsValid(t *testing.T) {
	valid := Quote{Symbol: "TSLA", Price: 1, PrevClose: 1}
	if !valid.IsValid() {
		t.Error("expected valid")
	}
	for _, q := range []Quote{
		{Price: 1, PrevClose: 1},
		{Symbol: "TSLA", PrevClose: 1},
		{Symbol: "TSLA", Price: 1},
	} {
		if q.IsValid() {
			t.Errorf("expected invalid: %+v", q)
		}
	}
}

func TestCalendarEvent_Key(t *testing.T) {
	e := CalendarEvent{
		Date:  time.Date(2026, 8, 24, 13, 45, 0, 0, time.UTC),
		Time:  "08:30",
		Title: "CPI",
	}
	if got := e.Key(); got != "2026-08-24|08:30|CPI" {
		t.Errorf("got %q", got)
	}
}

func TestCalendarEvent_SameDay(t *testing.T) {
	e := CalendarEvent{Date: time.Date(2026, 8, 24, 23, 0, 0, 0, time.UTC)}
	if !e.SameDay(time.Date(2026, 8, 24, 1, 0, 0, 0, time.UTC)) {
		t.Error("same calendar day regardless of hour")
	}
	if e.SameDay(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)) {
		t.Error("different day")
	}
}

func TestAlert_SuppressPreview(t *testing.T) {
	if (Alert{Link: "https://x"}).SuppressPreview() {
		t.Error("linked alerts keep previews")
	}
	if !(Alert{}).SuppressPreview() {
		t.Error("plain alerts disable previews")
	}
}

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		" tsla ": "TSLA",
		"NVDA":   "NVDA",
		"brk.b":  "BRK.B",
		"  ":     "",
	}
	for in, want := range cases {
		if got := NormalizeSymbol(in); got != want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
