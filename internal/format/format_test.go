package format

import (
	"testing"
	"time"
)

func TestPrice(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{242.5, "$242.5"},
		{1234.56, "$1,234.56"},
		{0.5, "$0.5"},
	}
	for _, tc := range cases {
		if got := Price(tc.in); got != tc.want {
			t.Errorf("Price(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPct(t *testing.T) {
	if got := Pct(3.456); got != "+3.46%" {
		t.Errorf("got %q", got)
	}
	if got := Pct(-2.1); got != "-2.10%" {
		t.Errorf("got %q", got)
	}
	if got := Pct(0); got != "+0.00%" {
		t.Errorf("zero is rendered as a gain, got %q", got)
	}
}

func TestVolume(t *testing.T) {
	if got := Volume(98_000_000); got != "98 M" {
		t.Errorf("got %q", got)
	}
}

func TestMarketCap(t *testing.T) {
	if got := MarketCap(0); got != "n/a" {
		t.Errorf("got %q", got)
	}
	if got := MarketCap(770e9); got != "$770 G" {
		t.Errorf("got %q", got)
	}
}

func TestDate(t *testing.T) {
	if got := Date(time.Time{}); got != "n/a" {
		t.Errorf("got %q", got)
	}
	ts := time.Date(2026, 10, 29, 15, 0, 0, 0, time.UTC)
	if got := Date(ts); got != "2026-10-29" {
		t.Errorf("got %q", got)
	}
}

func TestArrow(t *testing.T) {
	if Arrow(1.2) != "▲" || Arrow(-0.1) != "▼" {
		t.Error("arrow direction wrong")
	}
}
