package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/debrief-io/debrief/internal/signal"
	"github.com/debrief-io/debrief/internal/store"
)

// runBriefings evaluates the calendar-based one-shot alerts: the weekly
// digest, the daily digest and actual-value releases. Gated by the
// eco_mode flag, not by system_active.
func (e *Engine) runBriefings(ctx context.Context, doc *store.Document) {
	if !doc.EcoMode || e.providers.Calendar == nil {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	events, err := e.providers.Calendar.WeekAhead(cctx)
	cancel()
	if err != nil {
		e.logProviderErr("calendar", "", err)
		return
	}

	now := e.now()

	if alert, due := signal.WeeklyDigest(events, now, e.cfg.BriefingDay, e.cfg.WeeklyHour, e.dedup); due {
		e.dispatch(alert)
	}
	if alert, due := signal.DailyDigest(events, now, e.cfg.DailyHour, e.dedup); due {
		e.dispatch(alert)
	}
	for _, alert := range signal.ActualAlerts(events, now, e.dedup) {
		e.dispatch(alert)
	}

	e.logger.Debug("calendar evaluated", zap.Int("events", len(events)))
}
