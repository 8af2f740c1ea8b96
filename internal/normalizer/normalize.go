// Package normalizer turns an unordered raw batch into a strictly ascending,
// duplicate-free sequence of UTC-dated records.
package normalizer

import (
	"sort"

	"StockAnalytics/internal/model"
)

// Result is a normalized sequence plus the rows that did not make it in.
type Result struct {
	Records    []model.NormalizedRecord
	Invalid    int // rows without a parseable date or a close value
	Duplicates int // rows superseded by a later row with the same instant
}

// instant identifies a timestamp over the full time.Time range.
type instant struct {
	sec  int64
	nsec int
}

// Normalize parses dates, keeps the last row seen for each instant and sorts
// ascending. Rows that cannot be dated or carry no close are dropped before
// deduplication. The input batch is not modified.
func Normalize(batch model.RawBatch) Result {
	res := Result{Records: make([]model.NormalizedRecord, 0, len(batch.Records))}

	// instant -> index into res.Records
	seen := make(map[instant]int, len(batch.Records))
	for _, raw := range batch.Records {
		ts, err := ParseDate(raw.Date)
		if err != nil || !raw.Close.Valid {
			res.Invalid++
			continue
		}
		rec := model.NormalizedRecord{
			Date:   ts,
			Open:   raw.Open,
			High:   raw.High,
			Low:    raw.Low,
			Close:  raw.Close,
			Volume: raw.Volume,
		}
		key := instant{sec: ts.Unix(), nsec: ts.Nanosecond()}
		if idx, ok := seen[key]; ok {
			res.Records[idx] = rec
			res.Duplicates++
			continue
		}
		seen[key] = len(res.Records)
		res.Records = append(res.Records, rec)
	}

	sort.Slice(res.Records, func(i, j int) bool {
		return res.Records[i].Date.Before(res.Records[j].Date)
	})
	return res
}
