package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/debrief-io/debrief/internal/core"
	gocache "github.com/patrickmn/go-cache"
)

// profileCache avoids hammering the quoteSummary endpoint for data that
// changes rarely (company names, summaries, earnings dates).
type profileCache struct {
	c *gocache.Cache
}

func newProfileCache() profileCache {
	return profileCache{c: gocache.New(6*time.Hour, 30*time.Minute)}
}

// Profile fetches descriptive company data, cached for several hours.
func (c *Client) Profile(ctx context.Context, symbol string) (*core.Profile, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, err)
	}
	if cached, ok := c.profiles.c.Get(symbol); ok {
		p := cached.(core.Profile)
		return &p, nil
	}

	url := fmt.Sprintf("%s/%s?modules=price,assetProfile,calendarEvents", c.summaryBase, symbol)

	var result summaryResponse
	if err := c.getJSON(ctx, url, &result); err != nil {
		return nil, err
	}
	if result.QuoteSummary.Error != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound,
			fmt.Errorf("yahoo: %s", result.QuoteSummary.Error.Description))
	}
	if len(result.QuoteSummary.Result) == 0 {
		return nil, core.ErrNoData
	}

	r := result.QuoteSummary.Result[0]
	profile := core.Profile{
		Symbol:    symbol,
		Name:      r.Price.LongName,
		Summary:   r.AssetProfile.LongBusinessSummary,
		Sector:    r.AssetProfile.Sector,
		MarketCap: r.Price.MarketCap.Raw,
	}
	if profile.Name == "" {
		profile.Name = r.Price.ShortName
	}
	if len(r.CalendarEvents.Earnings.EarningsDate) > 0 {
		profile.NextEarnings = time.Unix(r.CalendarEvents.Earnings.EarningsDate[0].Raw, 0)
	}

	c.profiles.c.Set(symbol, profile, gocache.DefaultExpiration)
	return &profile, nil
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	Price struct {
		LongName  string `json:"longName"`
		ShortName string `json:"shortName"`
		MarketCap struct {
			Raw float64 `json:"raw"`
		} `json:"marketCap"`
	} `json:"price"`
	AssetProfile struct {
		LongBusinessSummary string `json:"longBusinessSummary"`
		Sector              string `json:"sector"`
	} `json:"assetProfile"`
	CalendarEvents struct {
		Earnings struct {
			EarningsDate []struct {
				Raw int64 `json:"raw"`
			} `json:"earningsDate"`
		} `json:"earnings"`
	} `json:"calendarEvents"`
}
