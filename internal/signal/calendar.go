package signal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/debrief-io/debrief/internal/core"
)

// RuleCalendar tags alerts built from the macro calendar. It is not a
// per-symbol toggle; macro alerts are gated by the eco_mode flag.
const RuleCalendar core.RuleKind = "calendar"

// CalendarArbiter is the slice of the dedup store the calendar rules
// need.
type CalendarArbiter interface {
	NovelCalendarActual(eventKey string) bool
	TryWeekly(isoWeek string) bool
	TryDaily(day string) bool
}

// WeeklyDigest builds the week-ahead briefing if it is due: the
// configured weekday at or past the configured hour, at most once per
// ISO week.
func WeeklyDigest(events []core.CalendarEvent, now time.Time, weekday time.Weekday, hour int, arb CalendarArbiter) (core.Alert, bool) {
	if now.Weekday() != weekday || now.Hour() < hour {
		return core.Alert{}, false
	}
	year, week := now.ISOWeek()
	if !arb.TryWeekly(fmt.Sprintf("%d-W%02d", year, week)) {
		return core.Alert{}, false
	}

	body := "No high-impact events scheduled this week."
	if len(events) > 0 {
		body = renderEvents(events, true)
	}
	return calendarAlert("🗓️ This Week's Macro Calendar", body, now), true
}

// DailyDigest builds the day's briefing if it is due: at or past the
// configured hour, at most once per calendar day, restricted to events
// dated today.
func DailyDigest(events []core.CalendarEvent, now time.Time, hour int, arb CalendarArbiter) (core.Alert, bool) {
	if now.Hour() < hour {
		return core.Alert{}, false
	}
	var today []core.CalendarEvent
	for _, e := range events {
		if e.SameDay(now) {
			today = append(today, e)
		}
	}
	if len(today) == 0 {
		return core.Alert{}, false
	}
	if !arb.TryDaily(now.Format("2006-01-02")) {
		return core.Alert{}, false
	}
	return calendarAlert("📅 Today's Macro Events", renderEvents(today, false), now), true
}

// ActualAlerts returns one alert for each event whose actual value has
// just been published, gated by event identity.
func ActualAlerts(events []core.CalendarEvent, now time.Time, arb CalendarArbiter) []core.Alert {
	var alerts []core.Alert
	for _, e := range events {
		if e.Actual == "" {
			continue
		}
		if !arb.NovelCalendarActual(e.Key()) {
			continue
		}
		body := fmt.Sprintf("%s: actual %s", e.Title, e.Actual)
		if e.Forecast != "" {
			body += fmt.Sprintf(" (forecast %s)", e.Forecast)
		}
		alerts = append(alerts, calendarAlert("🔔 Economic Release", body, now))
	}
	return alerts
}

func renderEvents(events []core.CalendarEvent, withDate bool) string {
	sorted := append([]core.CalendarEvent(nil), events...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Time < sorted[j].Time
	})

	var sb strings.Builder
	for _, e := range sorted {
		marker := "•"
		if e.Importance == core.ImportanceHigh {
			marker = "★"
		}
		if withDate {
			fmt.Fprintf(&sb, "%s %s %s — %s", marker, e.Date.Format("Mon 01-02"), e.Time, e.Title)
		} else {
			fmt.Fprintf(&sb, "%s %s — %s", marker, e.Time, e.Title)
		}
		if e.Forecast != "" {
			fmt.Fprintf(&sb, " (f: %s)", e.Forecast)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func calendarAlert(title, body string, now time.Time) core.Alert {
	return core.Alert{
		ID:    uuid.NewString(),
		Kind:  RuleCalendar,
		Title: title,
		Body:  body,
		At:    now,
	}
}
