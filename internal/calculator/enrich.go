// Package calculator derives the trend fields of a price series: the
// percentage change of the close and the short and long simple moving
// averages. Every derived value at position i depends only on closes at or
// before i.
package calculator

import (
	"github.com/guregu/null/v6"

	"StockAnalytics/internal/model"
)

// Enrich computes price_change_pct, sma_short and sma_long for an ascending
// sequence. Window sizes are validated by the configuration layer.
func Enrich(seq []model.NormalizedRecord, shortWindow, longWindow int) []model.EnrichedRecord {
	out := make([]model.EnrichedRecord, len(seq))
	short := NewSMAWindow(shortWindow)
	long := NewSMAWindow(longWindow)

	for i, rec := range seq {
		c := rec.Close.Float64
		e := model.EnrichedRecord{NormalizedRecord: rec}
		if i > 0 {
			e.PriceChangePct = PercentChange(seq[i-1].Close.Float64, c)
		}
		if v, ok := short.Push(c); ok {
			e.SMAShort = null.FloatFrom(v)
		}
		if v, ok := long.Push(c); ok {
			e.SMALong = null.FloatFrom(v)
		}
		out[i] = e
	}
	return out
}
