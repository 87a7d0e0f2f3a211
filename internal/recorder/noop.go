package recorder

import "github.com/rlaalswo86-stack/godlifedaily/internal/model"

// NoopRecorder is a no-op implementation used when no storage is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(_ *model.ScanResult) error { return nil }
func (n *NoopRecorder) RecordQuote(_ *model.FXQuote) error   { return nil }
func (n *NoopRecorder) Close() error                         { return nil }
