package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

const alpacaBarsJSON = `{"bars":{"BRK.B":[
{"t":"2026-01-05T05:00:00Z","o":410,"h":415,"l":408,"c":412.5,"v":1000,"n":10,"vw":411},
{"t":"2026-01-02T05:00:00Z","o":405,"h":411,"l":404,"c":409,"v":900,"n":9,"vw":408}]},
"next_page_token":null}`

func TestAlpacaFetcher_RoutesThroughConfiguredProxy(t *testing.T) {
	var proxied int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&proxied, 1)
		assert.Equal(t, "alpaca.test", r.Host)
		assert.Equal(t, "/v2/stocks/bars", r.URL.Path)
		assert.Equal(t, "BRK.B", r.URL.Query().Get("symbols"))
		assert.Equal(t, "iex", r.URL.Query().Get("feed"))
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, alpacaBarsJSON)
	}))
	t.Cleanup(proxy.Close)

	client := NewHTTPClient(proxy.URL, 5*time.Second)
	f := NewAlpacaFetcher("key", "secret", "http://alpaca.test", "", client)

	bars, err := f.FetchBars(context.Background(), "brk-b", model.Period1mo)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&proxied))
	require.Len(t, bars, 2)
	assert.Equal(t, []float64{409, 412.5}, model.Closes(bars))
}
