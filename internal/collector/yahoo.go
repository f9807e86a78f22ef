package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"pricecast/internal/model"
)

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: "https://query1.finance.yahoo.com",
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"BRENT": "BZ=F",
			"WTI":   "CL=F",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset            int    `json:"gmtoffset"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// exchangeLocation resolves the exchange timezone, falling back to the fixed
// offset when the zone database does not know the name.
func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if gmtOffset == 0 {
		return time.UTC
	}
	return time.FixedZone("exchange", gmtOffset)
}

func yahooRange(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	default:
		return "5y"
	}
}

func (f *YahooFetcher) FetchDailyCloses(ctx context.Context, symbol string, days int) ([]model.Observation, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), yahooRange(days))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)
	obs := make([]model.Observation, 0, len(result.Timestamp))
	seen := make(map[time.Time]int, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // null bars (holidays etc.)
		}
		// Bars are stamped at the exchange's session open, which can fall on
		// the previous UTC day for exchanges east of Greenwich.
		d := model.Date(time.Unix(ts, 0).In(loc))
		// The intraday bar for today can share a date with the last close.
		if j, ok := seen[d]; ok {
			obs[j].Value = *closes[i]
			continue
		}
		seen[d] = len(obs)
		obs = append(obs, model.Observation{Date: d, Value: *closes[i]})
	}

	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	if days > 0 && len(obs) > days {
		obs = obs[len(obs)-days:]
	}
	return obs, nil
}
