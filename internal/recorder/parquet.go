package recorder

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// MatchRecord is one screener match as stored in Parquet.
type MatchRecord struct {
	RunID      string  `parquet:"run_id"`
	Time       int64   `parquet:"time,timestamp(millisecond)"` // scan start, Unix ms
	Rank       int32   `parquet:"rank"`
	Symbol     string  `parquet:"symbol"`
	Price      float64 `parquet:"price"`
	RSI        float64 `parquet:"rsi"`
	PER        float64 `parquet:"per"`
	ROEPercent float64 `parquet:"roe_percent"`
	Company    string  `parquet:"company"`
}

// ParquetRecorder archives the matches of each scan as a Parquet file.
// Layout: <dataDir>/scans/<YYYY-MM-DD>/<run-id>.parquet
type ParquetRecorder struct {
	DataDir string
}

// NewParquetRecorder creates the archive root if needed.
func NewParquetRecorder(dataDir string) (*ParquetRecorder, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create parquet dir: %w", err)
	}
	log.Printf("[INFO] parquet recorder writing to %s", dataDir)
	return &ParquetRecorder{DataDir: dataDir}, nil
}

// ScanPath returns the file a scan is archived to.
func (p *ParquetRecorder) ScanPath(res *model.ScanResult) string {
	return filepath.Join(p.DataDir, "scans", res.StartedAt.Format("2006-01-02"), res.ID+".parquet")
}

// RecordScan writes the scan's matches. Scans without matches write nothing.
func (p *ParquetRecorder) RecordScan(res *model.ScanResult) error {
	if len(res.Matches) == 0 {
		return nil
	}
	records := make([]MatchRecord, len(res.Matches))
	for i, m := range res.Matches {
		records[i] = MatchRecord{
			RunID:      res.ID,
			Time:       res.StartedAt.UnixMilli(),
			Rank:       int32(i + 1),
			Symbol:     m.Symbol,
			Price:      m.Price,
			RSI:        m.RSI,
			PER:        m.PER,
			ROEPercent: m.ROEPercent,
			Company:    m.Company,
		}
	}

	path := p.ScanPath(res)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RecordQuote is a no-op; quotes are kept in SQLite only.
func (p *ParquetRecorder) RecordQuote(_ *model.FXQuote) error { return nil }

func (p *ParquetRecorder) Close() error { return nil }

// ReadMatches loads an archived scan file.
func ReadMatches(path string) ([]MatchRecord, error) {
	return parquet.ReadFile[MatchRecord](path)
}
