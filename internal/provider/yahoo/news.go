package yahoo

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/debrief-io/debrief/internal/core"
)

// filingMarkers are title/source substrings that classify a headline as
// a regulatory filing rather than general news.
var filingMarkers = []string{
	"sec filing", "8-k", "10-q", "10-k", "13f", "13d", "13g",
	"s-1", "6-k", "form 4", "prospectus", "edgar",
}

// News fetches recent headlines for a symbol from the Yahoo Finance RSS
// feed, newest first, capped at limit.
func (c *Client) News(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, err)
	}
	url := fmt.Sprintf("%s?s=%s&region=US&lang=en-US", c.rssBase, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "debrief/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.WrapError(core.ErrProviderTimeout, err)
		}
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding feed: %w", err))
	}

	items := make([]core.NewsItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		if it.Link == "" {
			continue
		}
		id := it.GUID
		if id == "" {
			id = it.Link
		}
		item := core.NewsItem{
			ID:     id,
			Title:  strings.TrimSpace(it.Title),
			Link:   it.Link,
			Source: strings.TrimSpace(it.Source),
			Filing: isFiling(it.Title, it.Source),
		}
		if ts, err := parsePubDate(it.PubDate); err == nil {
			item.Published = ts
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func isFiling(title, source string) bool {
	haystack := strings.ToLower(title + " " + source)
	for _, marker := range filingMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}

func parsePubDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized pubDate: %q", s)
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
	Source  string `xml:"source"`
}
