// Package format holds the text conventions shared by alert bodies and
// command replies, so queries and notifications read the same.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Price renders a dollar price with two decimals.
func Price(v float64) string {
	return fmt.Sprintf("$%s", humanize.CommafWithDigits(v, 2))
}

// Pct renders a signed percentage with two decimals.
func Pct(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// Volume renders a share count compactly (1.2M, 340.5K).
func Volume(v int64) string {
	return humanize.SIWithDigits(float64(v), 1, "")
}

// MarketCap renders a market capitalization compactly ($1.2T).
func MarketCap(v float64) string {
	if v <= 0 {
		return "n/a"
	}
	return "$" + humanize.SIWithDigits(v, 2, "")
}

// Date renders a calendar day.
func Date(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.Format("2006-01-02")
}

// Arrow picks the direction marker for a signed change.
func Arrow(v float64) string {
	if v >= 0 {
		return "▲"
	}
	return "▼"
}
