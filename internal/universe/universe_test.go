package universe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlaalswo86-stack/godlifedaily/internal/cache"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

const wikiHTML = `<html><body>
<table class="infobox"><tr><th>Founded</th><td>1957</td></tr></table>
<table id="constituents" class="wikitable sortable">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th></tr>
<tr><td><a href="#">MMM</a></td><td>3M</td><td>Industrials</td></tr>
<tr><td><a href="#">BRK.B</a></td><td>Berkshire Hathaway</td><td>Financials</td></tr>
<tr><td> aapl </td><td>Apple Inc.</td><td>Information Technology</td></tr>
<tr><td>MMM</td><td>3M duplicate</td><td>Industrials</td></tr>
</tbody>
</table>
</body></html>`

const slickHTML = `<table class="table"><thead><tr><th>#</th><th>Company</th><th>Symbol</th></tr></thead>
<tbody><tr><td>1</td><td>Microsoft</td><td>MSFT</td></tr><tr><td>2</td><td>Nvidia</td><td>NVDA</td></tr></tbody></table>`

const constituentsCSV = "Symbol,Security,GICS Sector\nMMM,3M,Industrials\nBF.B,Brown-Forman,Consumer Staples\n"

func newTableServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/wiki", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, wikiHTML) })
	mux.HandleFunc("/slick", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, slickHTML) })
	mux.HandleFunc("/csv", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, constituentsCSV) })
	mux.HandleFunc("/nosymbol", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<table><tr><th>Ticker</th></tr><tr><td>AAPL</td></tr></table>`)
	})
	mux.HandleFunc("/empty.csv", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "Symbol,Name\n") })
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTMLTableSource(t *testing.T) {
	srv := newTableServer(t)
	tests := []struct {
		path string
		want []string
	}{
		{"/wiki", []string{"MMM", "BRK.B", "aapl", "MMM"}},
		{"/slick", []string{"MSFT", "NVDA"}},
	}
	for _, tt := range tests {
		src := &HTMLTableSource{SourceName: tt.path, URL: srv.URL + tt.path, Column: "Symbol"}
		got, err := src.Symbols(context.Background())
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	src := &HTMLTableSource{SourceName: "bad", URL: srv.URL + "/nosymbol", Column: "Symbol"}
	_, err := src.Symbols(context.Background())
	assert.ErrorIs(t, err, errNoSymbolColumn)
}

func TestCSVSource(t *testing.T) {
	srv := newTableServer(t)
	src := &CSVSource{SourceName: "datahub", URL: srv.URL + "/csv", Column: "Symbol"}
	got, err := src.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"MMM", "BF.B"}, got)
}

func TestProvider_FirstSuccessWinsAndNormalizes(t *testing.T) {
	srv := newTableServer(t)
	p := NewProvider(
		&CSVSource{SourceName: "datahub", URL: srv.URL + "/forbidden", Column: "Symbol"},
		&HTMLTableSource{SourceName: "wikipedia", URL: srv.URL + "/wiki", Column: "Symbol"},
		&HTMLTableSource{SourceName: "slickcharts", URL: srv.URL + "/slick", Column: "Symbol"},
	)
	u, warning := p.Universe(context.Background())
	assert.Empty(t, warning)
	assert.Equal(t, model.Universe{"MMM", "BRK-B", "AAPL"}, u)
}

func TestProvider_AllSourcesFailUsesFallback(t *testing.T) {
	srv := newTableServer(t)
	p := NewProvider(
		&CSVSource{SourceName: "datahub", URL: srv.URL + "/empty.csv", Column: "Symbol"},
		&HTMLTableSource{SourceName: "wikipedia", URL: srv.URL + "/forbidden", Column: "Symbol"},
		&HTMLTableSource{SourceName: "slickcharts", URL: srv.URL + "/nosymbol", Column: "Symbol"},
	)
	u, warning := p.Universe(context.Background())
	assert.Equal(t, model.Universe{"AAPL", "MSFT", "GOOGL", "NVDA", "TSLA"}, u)
	require.NotEmpty(t, warning)
	assert.Contains(t, warning, "datahub")
	assert.Contains(t, warning, "wikipedia")
	assert.Contains(t, warning, "403")
	assert.Contains(t, warning, "slickcharts")
}

type countingSource struct {
	calls   int
	symbols []string
	err     error
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Symbols(context.Context) ([]string, error) {
	s.calls++
	return s.symbols, s.err
}

func TestProvider_CacheSkipsFallback(t *testing.T) {
	ctx := context.Background()
	failing := &countingSource{err: errors.New("offline")}
	p := NewProvider(failing)
	p.Cache = cache.New[model.Universe](cache.NewMemoryStore(), time.Hour)

	_, w1 := p.Universe(ctx)
	_, w2 := p.Universe(ctx)
	assert.NotEmpty(t, w1)
	assert.NotEmpty(t, w2)
	assert.Equal(t, 2, failing.calls, "fallback results must not be cached")

	ok := &countingSource{symbols: []string{"AMD", "INTC"}}
	p.Sources = []Source{ok}
	for i := 0; i < 3; i++ {
		u, w := p.Universe(ctx)
		assert.Empty(t, w)
		assert.Equal(t, model.Universe{"AMD", "INTC"}, u)
	}
	assert.Equal(t, 1, ok.calls)

	require.NoError(t, p.Invalidate(ctx))
	p.Universe(ctx)
	assert.Equal(t, 2, ok.calls)
}
