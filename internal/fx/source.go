// Package fx reads KRW exchange rates and converts between KRW and THB.
package fx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/rlaalswo86-stack/godlifedaily/internal/collector"
	"github.com/rlaalswo86-stack/godlifedaily/internal/currency"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// Market index codes.
const (
	CodeUSDKRW = "FX_USDKRW"
	CodeTHBKRW = "FX_THBKRW"
)

// DefaultCodes are the pairs shown on the dashboard.
var DefaultCodes = []string{CodeUSDKRW, CodeTHBKRW}

const (
	naverURL  = "https://finance.naver.com/marketindex/exchangeDetail.naver"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36"
	upMarker  = "상승"
)

// QuoteSource yields the current rate of one market index code.
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, code string) (*model.FXQuote, error)
}

// NaverSource scrapes the Naver Finance exchange detail page.
type NaverSource struct {
	BaseURL string
	Client  *http.Client
}

// NewNaverSource creates a NaverSource using client.
func NewNaverSource(client *http.Client) *NaverSource {
	return &NaverSource{BaseURL: naverURL, Client: client}
}

func (s *NaverSource) Name() string { return "naver" }

func (s *NaverSource) Quote(ctx context.Context, code string) (*model.FXQuote, error) {
	u := s.BaseURL + "?marketindexCd=" + code
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("naver fetch %s: %w", code, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &collector.APIError{Source: "naver " + code, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("naver read body: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(decodeBody(body, resp.Header.Get("Content-Type")))
	if err != nil {
		return nil, fmt.Errorf("naver parse: %w", err)
	}
	return parseNaver(doc, code)
}

// decodeBody converts EUC-KR pages to UTF-8. UTF-8 pages pass through.
func decodeBody(body []byte, contentType string) io.Reader {
	head := body
	if len(head) > 2048 {
		head = head[:2048]
	}
	if strings.Contains(strings.ToLower(contentType), "euc-kr") ||
		bytes.Contains(bytes.ToLower(head), []byte("euc-kr")) {
		return transform.NewReader(bytes.NewReader(body), korean.EUCKR.NewDecoder())
	}
	return bytes.NewReader(body)
}

func parseNaver(doc *goquery.Document, code string) (*model.FXQuote, error) {
	rateText := strings.TrimSpace(doc.Find("div.head_info > span.value").First().Text())
	if rateText == "" {
		return nil, fmt.Errorf("naver %s: rate element not found", code)
	}
	rate := currency.ParseAmount(rateText)
	if rate <= 0 {
		return nil, fmt.Errorf("naver %s: unparsable rate %q", code, rateText)
	}

	change := currency.ParseAmount(doc.Find("div.head_info > span.change").First().Text())
	if strings.TrimSpace(doc.Find("div.head_info > span.blind").First().Text()) != upMarker {
		change = -change
	}

	return &model.FXQuote{
		Code:      code,
		Rate:      rate,
		Change:    change,
		Source:    "naver",
		FetchedAt: time.Now(),
	}, nil
}

// YahooSource derives a quote from the last two daily closes of the Yahoo
// currency pair (FX_USDKRW -> USDKRW=X).
type YahooSource struct {
	Bars collector.BarFetcher
}

func (s *YahooSource) Name() string { return "yahoo" }

// YahooPair maps a market index code to the Yahoo pair symbol.
func YahooPair(code string) string {
	return strings.TrimPrefix(code, "FX_") + "=X"
}

func (s *YahooSource) Quote(ctx context.Context, code string) (*model.FXQuote, error) {
	bars, err := s.Bars.FetchBars(ctx, YahooPair(code), model.Period5d)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", code, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", code, model.ErrNoData)
	}
	last := bars[len(bars)-1].Close
	change := 0.0
	if len(bars) >= 2 {
		change = last - bars[len(bars)-2].Close
	}
	return &model.FXQuote{
		Code:      code,
		Rate:      last,
		Change:    change,
		Source:    "yahoo",
		FetchedAt: time.Now(),
	}, nil
}
