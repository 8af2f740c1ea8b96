package model

import (
	"regexp"
	"time"

	"github.com/guregu/null/v6"
)

// Source column names. The casing is part of the provider data contract.
const (
	ColDate   = "Date"
	ColOpen   = "Open"
	ColHigh   = "High"
	ColLow    = "Low"
	ColClose  = "Close"
	ColVolume = "Volume"
)

// Derived column names, lowercase to set them apart from source fields.
const (
	ColPriceChangePct = "price_change_pct"
	ColSMAShort       = "sma_short"
	ColSMALong        = "sma_long"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.^=-]{1,15}$`)

// ValidTicker reports whether s is an upper-case symbol such as AAPL, BRK.B
// or ^GSPC. Valid tickers never contain path separators.
func ValidTicker(s string) bool {
	return tickerPattern.MatchString(s)
}

// SourceColumns is the OHLCV column set in canonical order.
var SourceColumns = []string{ColDate, ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// RequiredColumns must be present in every raw batch.
var RequiredColumns = []string{ColDate, ColClose}

// ProcessedColumns is the header of a processed artifact.
var ProcessedColumns = []string{
	ColDate, ColOpen, ColHigh, ColLow, ColClose, ColVolume,
	ColPriceChangePct, ColSMAShort, ColSMALong,
}

// RawRecord is one trading session as supplied by the provider.
type RawRecord struct {
	Date   string
	Open   null.Float
	High   null.Float
	Low    null.Float
	Close  null.Float
	Volume null.Float
}

// RawBatch is an unordered set of raw records for a single ticker.
type RawBatch struct {
	Ticker  string
	Source  string
	Columns []string // columns present in the source, in source order
	Records []RawRecord
}

// HasColumn reports whether the batch carries the named column.
func (b RawBatch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// NormalizedRecord is a raw record with its date resolved to a UTC instant.
// Close is always valid.
type NormalizedRecord struct {
	Date   time.Time
	Open   null.Float
	High   null.Float
	Low    null.Float
	Close  null.Float
	Volume null.Float
}

// EnrichedRecord adds the derived trend fields to a normalized record.
type EnrichedRecord struct {
	NormalizedRecord
	PriceChangePct null.Float
	SMAShort       null.Float
	SMALong        null.Float
}
