package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

const (
	yahooChartBase   = "https://query1.finance.yahoo.com"
	yahooSummaryBase = "https://query2.finance.yahoo.com"
	yahooCookieURL   = "https://fc.yahoo.com"
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker

	ChartBase   string
	SummaryBase string
	CookieURL   string

	mu    sync.Mutex
	crumb string
}

// NewHTTPClient builds the proxy-aware client shared by all remote sources.
func NewHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		Jar:       jar,
	}
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		Client: NewHTTPClient(proxyURL, 30*time.Second),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		ChartBase:   yahooChartBase,
		SummaryBase: yahooSummaryBase,
		CookieURL:   yahooCookieURL,
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
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(values []interface{}, i int) float64 {
	if i >= len(values) {
		return 0
	}
	return toFloat(values[i])
}

func (f *YahooFetcher) get(ctx context.Context, u string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("yahoo read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.ChartBase, url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	status, body, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{Source: "yahoo chart", StatusCode: status, Body: truncate(string(body), 200)}
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
		return nil, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		// a row without a close (holiday, halted session) is not a bar
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		o := at(quote.Open, i)
		h := at(quote.High, i)
		l := at(quote.Low, i)
		c := at(quote.Close, i)
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// FetchBars returns daily bars over period. A response without rows yields
// an empty slice.
func (f *YahooFetcher) FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error) {
	return f.fetchChart(ctx, symbol, "1d", string(period))
}

// quoteSummary is the subset of the quoteSummary response the app reads.
type quoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE rawValue `json:"trailingPE"`
			} `json:"summaryDetail"`
			FinancialData struct {
				ReturnOnEquity rawValue `json:"returnOnEquity"`
			} `json:"financialData"`
			Price struct {
				ShortName string `json:"shortName"`
			} `json:"price"`
			AssetProfile struct {
				Industry            string `json:"industry"`
				LongBusinessSummary string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

var errCrumbRejected = errors.New("yahoo crumb rejected")

// FetchFundamentals reads valuation and profile data from the quoteSummary
// endpoint. The endpoint requires a session cookie and a crumb, which are
// obtained once and refreshed when rejected.
func (f *YahooFetcher) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	fund, err := f.fetchSummary(ctx, symbol)
	if errors.Is(err, errCrumbRejected) {
		f.resetCrumb()
		fund, err = f.fetchSummary(ctx, symbol)
	}
	return fund, err
}

func (f *YahooFetcher) fetchSummary(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	crumb, err := f.getCrumb(ctx)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,financialData,price,assetProfile&crumb=%s",
		f.SummaryBase, url.PathEscape(f.yahooSymbol(symbol)), url.QueryEscape(crumb))

	status, body, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, errCrumbRejected
	}
	if status != http.StatusOK {
		return nil, &APIError{Source: "yahoo quoteSummary", StatusCode: status, Body: truncate(string(body), 200)}
	}

	var qs quoteSummary
	if err := json.Unmarshal(body, &qs); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if qs.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", qs.QuoteSummary.Error.Description)
	}
	if len(qs.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo quoteSummary %s: %w", symbol, model.ErrNoData)
	}

	r := qs.QuoteSummary.Result[0]
	return &model.Fundamentals{
		Symbol:         symbol,
		ShortName:      r.Price.ShortName,
		TrailingPE:     r.SummaryDetail.TrailingPE.Raw,
		ReturnOnEquity: r.FinancialData.ReturnOnEquity.Raw,
		Industry:       r.AssetProfile.Industry,
		Summary:        r.AssetProfile.LongBusinessSummary,
		FetchedAt:      time.Now(),
	}, nil
}

func (f *YahooFetcher) getCrumb(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb != "" {
		return f.crumb, nil
	}

	// The cookie endpoint answers 404 but still sets the session cookie.
	if _, _, err := f.get(ctx, f.CookieURL); err != nil {
		return "", fmt.Errorf("yahoo cookie: %w", err)
	}
	status, body, err := f.get(ctx, f.SummaryBase+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if status != http.StatusOK || crumb == "" {
		return "", &APIError{Source: "yahoo crumb", StatusCode: status, Body: truncate(crumb, 200)}
	}
	f.crumb = crumb
	return crumb, nil
}

func (f *YahooFetcher) resetCrumb() {
	f.mu.Lock()
	f.crumb = ""
	f.mu.Unlock()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
