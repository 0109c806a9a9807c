// Package econoday fetches the week's macro calendar from a JSON feed.
//
// The feed contract is deliberately narrow: an array of events with an
// RFC3339 (or plain 2006-01-02) date field, compared by calendar day
// only. Event identity across re-fetches is date|time|title.
package econoday

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/debrief-io/debrief/internal/core"
)

const requestTimeout = 8 * time.Second

// Client fetches macro calendar events for one country filter.
type Client struct {
	feedURL string
	country string
	client  *http.Client
}

// New creates a calendar client for the given feed and country filter.
func New(feedURL, country string) *Client {
	return &Client{
		feedURL: feedURL,
		country: country,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// WeekAhead fetches this week's high- and medium-importance events for
// the configured country.
func (c *Client) WeekAhead(ctx context.Context) ([]core.CalendarEvent, error) {
	if c.feedURL == "" {
		return nil, core.ErrNoData
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.WrapError(core.ErrProviderTimeout, err)
		}
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var raw []feedEvent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding feed: %w", err))
	}

	events := make([]core.CalendarEvent, 0, len(raw))
	for _, fe := range raw {
		if c.country != "" && fe.Country != c.country {
			continue
		}
		importance := core.Importance(fe.Importance)
		if importance != core.ImportanceHigh && importance != core.ImportanceMedium {
			continue
		}
		date, err := parseDate(fe.Date)
		if err != nil {
			continue // malformed rows are dropped, not fatal
		}
		events = append(events, core.CalendarEvent{
			Date:       date,
			Time:       fe.Time,
			Title:      fe.Title,
			Country:    fe.Country,
			Importance: importance,
			Forecast:   fe.Forecast,
			Actual:     fe.Actual,
		})
	}
	return events, nil
}

func parseDate(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}

type feedEvent struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Title      string `json:"title"`
	Country    string `json:"country"`
	Importance string `json:"importance"`
	Forecast   string `json:"forecast"`
	Actual     string `json:"actual"`
}
