package recorder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

func sampleScan(id string, started time.Time) *model.ScanResult {
	return &model.ScanResult{
		ID:              id,
		StartedAt:       started,
		FinishedAt:      started.Add(90 * time.Second),
		Criteria:        model.DefaultCriteria(),
		UniverseSize:    503,
		UniverseWarning: "",
		Matches: []model.Match{
			{Symbol: "KO", Price: 61.2, RSI: 31.5, PER: 23.1, ROEPercent: 40.2, Company: "Coca-Cola"},
			{Symbol: "PFE", Price: 28.9, RSI: 44.0, PER: 12.4, ROEPercent: 11.3, Company: "Pfizer"},
		},
		Counts: map[model.SkipReason]int{
			model.ReasonMatched:  2,
			model.ReasonRSIAbove: 501,
		},
	}
}

func TestSQLiteRecorder_ScansAndHistory(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer rec.Close()

	base := time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)
	require.NoError(t, rec.RecordScan(sampleScan("run-1", base)))
	second := sampleScan("run-2", base.Add(24*time.Hour))
	second.Matches = nil
	second.Cancelled = true
	second.UniverseWarning = "fallback list"
	require.NoError(t, rec.RecordScan(second))

	scans, err := rec.RecentScans(10)
	require.NoError(t, err)
	require.Len(t, scans, 2)

	assert.Equal(t, "run-2", scans[0].ID, "newest first")
	assert.True(t, scans[0].Cancelled)
	assert.Equal(t, "fallback list", scans[0].UniverseWarning)
	assert.Empty(t, scans[0].Matches)

	assert.Equal(t, "run-1", scans[1].ID)
	assert.Equal(t, base.UnixMilli(), scans[1].StartedAt.UnixMilli())
	assert.Equal(t, 503, scans[1].UniverseSize)
	assert.Equal(t, model.DefaultCriteria(), scans[1].Criteria)
	require.Len(t, scans[1].Matches, 2)
	assert.Equal(t, "KO", scans[1].Matches[0].Symbol)
	assert.Equal(t, 31.5, scans[1].Matches[0].RSI)

	limited, err := rec.RecentScans(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	assert.Error(t, rec.RecordScan(sampleScan("run-1", base)), "duplicate run id")
}

func TestSQLiteRecorder_RecordQuote(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer rec.Close()

	require.NoError(t, rec.RecordQuote(&model.FXQuote{Code: "FX_THBKRW", Rate: 38.4, Change: -0.1, Source: "naver"}))
	require.NoError(t, rec.RecordQuote(&model.FXQuote{Code: "FX_USDKRW", Rate: 1380.5, Change: 2, Source: "naver", FetchedAt: time.Now()}))

	var n int
	require.NoError(t, rec.db.QueryRow(`SELECT COUNT(*) FROM fx_quotes`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestParquetRecorder(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewParquetRecorder(dir)
	require.NoError(t, err)

	started := time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)
	res := sampleScan("run-abc", started)
	require.NoError(t, rec.RecordScan(res))

	path := rec.ScanPath(res)
	assert.Equal(t, filepath.Join(dir, "scans", "2026-03-10", "run-abc.parquet"), path)

	records, err := ReadMatches(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "KO", records[0].Symbol)
	assert.Equal(t, int32(1), records[0].Rank)
	assert.Equal(t, "run-abc", records[1].RunID)
	assert.Equal(t, 12.4, records[1].PER)

	empty := sampleScan("run-empty", started)
	empty.Matches = nil
	require.NoError(t, rec.RecordScan(empty))
	_, err = os.Stat(rec.ScanPath(empty))
	assert.True(t, os.IsNotExist(err))
}

type stubRecorder struct {
	NoopRecorder
	err   error
	scans int
}

func (s *stubRecorder) RecordScan(*model.ScanResult) error {
	s.scans++
	return s.err
}

func TestMulti(t *testing.T) {
	ok := &stubRecorder{}
	bad := &stubRecorder{err: errors.New("disk full")}
	m := Multi{ok, bad, NewNoopRecorder()}

	err := m.RecordScan(sampleScan("x", time.Now()))
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, ok.scans)
	assert.Equal(t, 1, bad.scans)
	assert.NoError(t, m.RecordQuote(&model.FXQuote{}))
	assert.NoError(t, m.Close())

	scans, err := m.RecentScans(5)
	assert.NoError(t, err)
	assert.Nil(t, scans)
}
