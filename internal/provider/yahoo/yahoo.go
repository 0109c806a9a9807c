package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/debrief-io/debrief/internal/core"
)

const (
	chartBase   = "https://query1.finance.yahoo.com/v8/finance/chart"
	summaryBase = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"
	rssBase     = "https://feeds.finance.yahoo.com/rss/2.0/headline"

	requestTimeout = 8 * time.Second
)

// validSymbol matches stock symbols like AAPL, MSFT, BRK.B, ^VIX
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9\-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Client talks to the public Yahoo Finance endpoints. It serves the
// quote, history, news and profile adapter interfaces.
type Client struct {
	client      *http.Client
	chartBase   string
	summaryBase string
	rssBase     string
	profiles    profileCache
}

// New creates a Yahoo Finance client.
func New() *Client {
	return &Client{
		client:      &http.Client{Timeout: requestTimeout},
		chartBase:   chartBase,
		summaryBase: summaryBase,
		rssBase:     rssBase,
		profiles:    newProfileCache(),
	}
}

// Quote fetches the latest trade snapshot.
func (c *Client) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, err)
	}
	url := fmt.Sprintf("%s/%s?interval=1d&range=1d", c.chartBase, symbol)

	var result chartResponse
	if err := c.getJSON(ctx, url, &result); err != nil {
		return nil, err
	}
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound,
			fmt.Errorf("yahoo: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.ErrNoData
	}

	meta := result.Chart.Result[0].Meta
	return &core.Quote{
		Symbol:    symbol,
		Price:     meta.RegularMarketPrice,
		PrevClose: meta.ChartPreviousClose,
		Volume:    int64(meta.RegularMarketVolume),
		High52W:   meta.FiftyTwoWeekHigh,
		Time:      time.Unix(int64(meta.RegularMarketTime), 0),
		Source:    "yahoo",
	}, nil
}

// History fetches the last `days` daily bars, oldest first.
func (c *Client) History(ctx context.Context, symbol string, days int) ([]core.Candle, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, err)
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		c.chartBase, symbol, start.Unix(), end.Unix())

	var result chartResponse
	if err := c.getJSON(ctx, url, &result); err != nil {
		return nil, err
	}
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound,
			fmt.Errorf("yahoo: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.ErrNoData
	}

	r := result.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, core.ErrNoData
	}
	quotes := r.Indicators.Quote[0]

	candles := make([]core.Candle, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(quotes.Open) || quotes.Open[i] == nil || quotes.Close[i] == nil {
			continue // skip missing bars
		}
		candle := core.Candle{
			Open:  *quotes.Open[i],
			Close: *quotes.Close[i],
			Time:  time.Unix(int64(ts), 0),
		}
		if quotes.High[i] != nil {
			candle.High = *quotes.High[i]
		}
		if quotes.Low[i] != nil {
			candle.Low = *quotes.Low[i]
		}
		if quotes.Volume[i] != nil {
			candle.Volume = int64(*quotes.Volume[i])
		}
		candles = append(candles, candle)
	}
	if len(candles) == 0 {
		return nil, core.ErrNoData
	}
	return candles, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "debrief/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return core.WrapError(core.ErrProviderTimeout, err)
		}
		return core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return core.ErrSymbolNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int      `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol              string  `json:"symbol"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	ChartPreviousClose  float64 `json:"chartPreviousClose"`
	RegularMarketVolume int     `json:"regularMarketVolume"`
	RegularMarketTime   int     `json:"regularMarketTime"`
	FiftyTwoWeekHigh    float64 `json:"fiftyTwoWeekHigh"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int     `json:"volume"`
}
