// Package universe resolves the list of tickers the screener walks.
package universe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rlaalswo86-stack/godlifedaily/internal/collector"
)

const (
	DatahubURL     = "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/main/data/constituents.csv"
	WikipediaURL   = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
	SlickchartsURL = "https://www.slickcharts.com/sp500"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

var errNoSymbolColumn = errors.New("no Symbol column found")

// Source yields raw ticker symbols from one remote table.
type Source interface {
	Name() string
	Symbols(ctx context.Context) ([]string, error)
}

// DefaultSources returns the S&P 500 constituent tables in preference order.
func DefaultSources(client *http.Client) []Source {
	return []Source{
		&CSVSource{SourceName: "datahub", URL: DatahubURL, Column: "Symbol", Client: client},
		&HTMLTableSource{SourceName: "wikipedia", URL: WikipediaURL, Column: "Symbol", Client: client},
		&HTMLTableSource{SourceName: "slickcharts", URL: SlickchartsURL, Column: "Symbol", Client: client},
	}
}

func fetch(ctx context.Context, client *http.Client, source, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", source, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &collector.APIError{Source: source, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// CSVSource reads one column of a CSV file with a header row.
type CSVSource struct {
	SourceName string
	URL        string
	Column     string
	Client     *http.Client
}

func (s *CSVSource) Name() string { return s.SourceName }

func (s *CSVSource) Symbols(ctx context.Context) ([]string, error) {
	body, err := fetch(ctx, s.Client, s.SourceName, s.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	r := csv.NewReader(body)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s read header: %w", s.SourceName, err)
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), s.Column) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errNoSymbolColumn
	}

	var symbols []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s read row: %w", s.SourceName, err)
		}
		if col < len(rec) {
			symbols = append(symbols, rec[col])
		}
	}
	return symbols, nil
}

// HTMLTableSource reads one column of the first HTML table whose header row
// names that column.
type HTMLTableSource struct {
	SourceName string
	URL        string
	Column     string
	Client     *http.Client
}

func (s *HTMLTableSource) Name() string { return s.SourceName }

func (s *HTMLTableSource) Symbols(ctx context.Context) ([]string, error) {
	body, err := fetch(ctx, s.Client, s.SourceName, s.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("%s parse: %w", s.SourceName, err)
	}
	return tableColumn(doc, s.Column)
}

func tableColumn(doc *goquery.Document, column string) ([]string, error) {
	var symbols []string
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		col := -1
		table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			row.Children().Filter("th").EachWithBreak(func(i int, cell *goquery.Selection) bool {
				if strings.EqualFold(strings.TrimSpace(cell.Text()), column) {
					col = i
					return false
				}
				return true
			})
			return col < 0
		})
		if col < 0 {
			return true
		}
		found = true
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Children().Filter("td")
			if cells.Length() == 0 || col >= cells.Length() {
				return
			}
			symbols = append(symbols, strings.TrimSpace(cells.Eq(col).Text()))
		})
		return false
	})
	if !found {
		return nil, errNoSymbolColumn
	}
	return symbols, nil
}
