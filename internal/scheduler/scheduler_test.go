package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlaalswo86-stack/godlifedaily/internal/cache"
	"github.com/rlaalswo86-stack/godlifedaily/internal/collector"
	"github.com/rlaalswo86-stack/godlifedaily/internal/fx"
	"github.com/rlaalswo86-stack/godlifedaily/internal/metrics"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
	"github.com/rlaalswo86-stack/godlifedaily/internal/recorder"
	"github.com/rlaalswo86-stack/godlifedaily/internal/screener"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

type staticUniverse struct {
	symbols []string
	warning string
}

func (u staticUniverse) Universe(context.Context) (model.Universe, string) {
	return model.Universe(u.symbols), u.warning
}

type stubQuoteSource struct {
	rates map[string]float64
}

func (s stubQuoteSource) Name() string { return "stub" }

func (s stubQuoteSource) Quote(_ context.Context, code string) (*model.FXQuote, error) {
	r, ok := s.rates[code]
	if !ok {
		return nil, errors.New("no such pair")
	}
	return &model.FXQuote{Code: code, Rate: r, Source: "stub"}, nil
}

// blockingScanner holds every scan until release is closed.
type blockingScanner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingScanner) Scan(ctx context.Context, universe []string, c model.Criteria, _ screener.ProgressFunc) (*model.ScanResult, error) {
	close(b.started)
	<-b.release
	return &model.ScanResult{ID: "blocked", Criteria: c, UniverseSize: len(universe)}, nil
}

func oscillating(up, down float64) []model.OHLCV {
	closes := make([]float64, 30)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] + up
		} else {
			closes[i] = closes[i-1] - down
		}
	}
	return collector.BarsFromCloses(closes...)
}

func ptr(v float64) *float64 { return &v }

type fixture struct {
	sched  *Scheduler
	sender *fakeSender
	rec    *recorder.SQLiteRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{
			"KO":   oscillating(1, 2), // RSI 33
			"NVDA": oscillating(4, 1), // RSI 80
		},
		Fundamentals: map[string]*model.Fundamentals{
			"KO":   {Symbol: "KO", ShortName: "Coca-Cola", TrailingPE: ptr(23), ReturnOnEquity: ptr(0.4), Industry: "Beverages"},
			"NVDA": {Symbol: "NVDA", ShortName: "NVIDIA", TrailingPE: ptr(60), ReturnOnEquity: ptr(0.9)},
		},
	}
	sc := screener.New(mock, screener.Config{Workers: 2, CallTimeout: time.Second})
	monitor := fx.NewMonitor(cache.New[model.FXQuote](cache.NewMemoryStore(), time.Minute),
		stubQuoteSource{rates: map[string]float64{fx.CodeTHBKRW: 40, fx.CodeUSDKRW: 1380.5}})

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	sender := &fakeSender{}
	s := NewScheduler(context.Background(),
		staticUniverse{symbols: []string{"KO", "NVDA"}, warning: "fallback list used"},
		sc, collector.NewAnalyzer(mock), monitor, sender, rec)
	return &fixture{sched: s, sender: sender, rec: rec}
}

func TestRegisterAll(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sched.RegisterAll("0 30 6 * * 2-6", "0 0 9 * * *"))
	assert.Len(t, f.sched.Cron.Entries(), 2)

	assert.Error(t, f.sched.RegisterAll("not a cron", "0 0 9 * * *"))
}

func TestRunScanNow_RecordsAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.sched.Health = metrics.NewHealthStatus()
	f.sched.RunScanNow()

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "<b>KO</b> Coca-Cola")
	assert.NotContains(t, msgs[0], "NVDA")
	assert.Contains(t, msgs[0], "fallback list used")

	scans, err := f.rec.RecentScans(5)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "fallback list used", scans[0].UniverseWarning)
	require.Len(t, scans[0].Matches, 1)
	assert.Equal(t, "KO", scans[0].Matches[0].Symbol)

	assert.False(t, f.sched.Scanning())
	assert.False(t, f.sched.Health.LastScanAt.IsZero())
}

func TestScan_RejectsOverlap(t *testing.T) {
	f := newFixture(t)
	blocker := &blockingScanner{started: make(chan struct{}), release: make(chan struct{})}
	f.sched.Screener = blocker

	done := make(chan error, 1)
	go func() {
		_, err := f.sched.Scan(context.Background(), model.DefaultCriteria(), nil)
		done <- err
	}()
	<-blocker.started

	_, err := f.sched.Scan(context.Background(), model.DefaultCriteria(), nil)
	assert.ErrorIs(t, err, ErrScanInProgress)
	assert.Contains(t, f.sched.HandleCommand(context.Background(), "/scan"), "이미 스캔이 진행 중")

	close(blocker.release)
	require.NoError(t, <-done)
	assert.False(t, f.sched.Scanning())
}

func TestScan_InvalidCriteria(t *testing.T) {
	f := newFixture(t)
	res, err := f.sched.Scan(context.Background(), model.Criteria{MaxRSI: 70, MaxPER: 40, MinROEPercent: nan()}, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, model.ErrInvalidCriteria)

	scans, err := f.rec.RecentScans(5)
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{"help", "hello", []string{"사용 가능한 명령", "/stock SYMBOL"}},
		{"empty", "   ", []string{"사용 가능한 명령"}},
		{"fx", "/fx", []string{"USD/KRW: <b>1,380.50원</b>", "THB/KRW: <b>40.00원</b>"}},
		{"fx with bot suffix", "/FX@godlife_bot", []string{"환율 리포트"}},
		{"stock", "/stock ko 3mo", []string{"<b>KO</b> Coca-Cola (3mo)", "업종: Beverages"}},
		{"stock usage", "/stock", []string{"사용법: /stock"}},
		{"stock bad period", "/stock KO 7y", []string{"지원하지 않는 기간"}},
		{"convert thb", "/convert 100 thb-krw", []string{"100바트 → <b>4,000원</b>", "☕"}},
		{"convert grouped krw", "/convert 10,000 krw-thb", []string{"10,000원 → <b>250.00바트</b>"}},
		{"convert no amount", "/convert abc krw-thb", []string{"금액을 입력해주세요"}},
		{"convert bad direction", "/convert 100 usd-krw", []string{"krw-thb 또는 thb-krw"}},
		{"convert usage", "/convert 100", []string{"사용법: /convert"}},
		{"history empty", "/history", []string{"스캔 기록이 없습니다"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := f.sched.HandleCommand(ctx, tt.command)
			for _, w := range tt.want {
				assert.Contains(t, reply, w)
			}
		})
	}
}

func TestHandleCommand_StockNoData(t *testing.T) {
	f := newFixture(t)
	mock := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"GONE": {}}}
	f.sched.Analyzer = collector.NewAnalyzer(mock)

	reply := f.sched.HandleCommand(context.Background(), "/stock gone")
	assert.Contains(t, reply, "GONE: 데이터가 없습니다")
}

func TestHandleCommand_ScanRunsInBackground(t *testing.T) {
	f := newFixture(t)
	reply := f.sched.HandleCommand(context.Background(), "/scan")
	assert.Contains(t, reply, "스캔을 시작합니다")

	require.Eventually(t, func() bool { return len(f.sender.messages()) == 1 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return !f.sched.Scanning() }, time.Second, 10*time.Millisecond)

	reply = f.sched.HandleCommand(context.Background(), "/history")
	assert.Contains(t, reply, "최근 스캔")
	assert.Contains(t, reply, "1/2개 KO")
}

func TestFXTask_RecordsQuotes(t *testing.T) {
	f := newFixture(t)
	f.sched.FXCodes = []string{fx.CodeUSDKRW, "FX_JPYKRW"}
	f.sched.fxTask()

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "USD/KRW")
	assert.Contains(t, msgs[0], "FX_JPYKRW: 조회 실패")

	var n int
	require.NoError(t, f.rec.DB().QueryRow(`SELECT COUNT(*) FROM fx_quotes`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestTrySend_NilNotifier(t *testing.T) {
	f := newFixture(t)
	f.sched.Notifier = nil
	f.sched.fxTask()
	assert.True(t, strings.Contains(f.sched.HandleCommand(context.Background(), "/help"), "/fx"))
}
