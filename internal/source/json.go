package source

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"StockAnalytics/internal/model"
)

// decodeJSON accepts the two record layouts pandas produces:
//
//	[{"Date": ..., "Close": ...}, ...]                 records
//	{"Date": [...], "Close": [...]}                    list
//	{"Date": {"0": ...}, "Close": {"0": ...}}          columns
//
// Numeric dates are epoch milliseconds.
func decodeJSON(r io.Reader) ([]string, []model.RawRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode json: %w", err)
	}

	switch v := doc.(type) {
	case []interface{}:
		return decodeRecords(v)
	case map[string]interface{}:
		return decodeColumns(v)
	default:
		return nil, nil, fmt.Errorf("decode json: expected an array of records or an object of columns, got %T", doc)
	}
}

func decodeRecords(rows []interface{}) ([]string, []model.RawRecord, error) {
	set := make(map[string]struct{})
	records := make([]model.RawRecord, 0, len(rows))
	for i, item := range rows {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, nil, fmt.Errorf("record %d: expected an object, got %T", i, item)
		}
		for k := range obj {
			set[k] = struct{}{}
		}
		records = append(records, recordFrom(func(col string) interface{} { return obj[col] }))
	}
	return orderColumns(set), records, nil
}

func decodeColumns(doc map[string]interface{}) ([]string, []model.RawRecord, error) {
	set := make(map[string]struct{}, len(doc))
	// column -> row key -> value
	cells := make(map[string]map[string]interface{}, len(doc))
	keySet := make(map[string]struct{})
	for col, raw := range doc {
		set[col] = struct{}{}
		values := make(map[string]interface{})
		switch v := raw.(type) {
		case []interface{}:
			for i, x := range v {
				values[strconv.Itoa(i)] = x
			}
		case map[string]interface{}:
			for k, x := range v {
				values[k] = x
			}
		default:
			return nil, nil, fmt.Errorf("column %q: expected an array or an object, got %T", col, raw)
		}
		for k := range values {
			keySet[k] = struct{}{}
		}
		cells[col] = values
	}

	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sortRowKeys(keys)

	records := make([]model.RawRecord, 0, len(keys))
	for _, k := range keys {
		records = append(records, recordFrom(func(col string) interface{} { return cells[col][k] }))
	}
	return orderColumns(set), records, nil
}

// sortRowKeys orders integer keys numerically, ahead of any other key.
func sortRowKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

func recordFrom(get func(col string) interface{}) model.RawRecord {
	return model.RawRecord{
		Date:   jsonDate(get(model.ColDate)),
		Open:   jsonFloat(get(model.ColOpen)),
		High:   jsonFloat(get(model.ColHigh)),
		Low:    jsonFloat(get(model.ColLow)),
		Close:  jsonFloat(get(model.ColClose)),
		Volume: jsonFloat(get(model.ColVolume)),
	}
}

func jsonDate(v interface{}) string {
	switch d := v.(type) {
	case string:
		return strings.TrimSpace(d)
	case json.Number:
		ms, err := d.Float64()
		if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) {
			return d.String()
		}
		return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

func jsonFloat(v interface{}) null.Float {
	switch n := v.(type) {
	case json.Number:
		return parseFloat(n.String())
	case string:
		return parseFloat(n)
	default:
		return null.Float{}
	}
}
