package recorder

import (
	"context"
	"time"

	"StockAnalytics/internal/model"
)

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSeries(_ context.Context, _ string, _ []model.EnrichedRecord) (int, error) {
	return 0, nil
}
func (n *NoopRecorder) RecordRun(_ context.Context, _ *RunEvent) error { return nil }
func (n *NoopRecorder) SeriesByTicker(_ context.Context, _ string, _ *time.Time) ([]StockRow, error) {
	return nil, nil
}
func (n *NoopRecorder) ListSeries(_ context.Context, _, _ int) ([]StockRow, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                               { return nil }
