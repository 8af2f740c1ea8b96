package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"StockAnalytics/internal/model"
)

const utf8BOM = "\ufeff"

// decodeCSV reads a header row followed by data rows. Short rows are padded
// with empty cells, surplus cells are ignored.
func decodeCSV(r io.Reader) ([]string, []model.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, []model.RawRecord{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	cols := make([]string, len(header))
	idx := make(map[string]int, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
		if _, dup := idx[cols[i]]; !dup {
			idx[cols[i]] = i
		}
	}

	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := []model.RawRecord{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", line, err)
		}
		records = append(records, model.RawRecord{
			Date:   strings.TrimSpace(cell(row, model.ColDate)),
			Open:   parseFloat(cell(row, model.ColOpen)),
			High:   parseFloat(cell(row, model.ColHigh)),
			Low:    parseFloat(cell(row, model.ColLow)),
			Close:  parseFloat(cell(row, model.ColClose)),
			Volume: parseFloat(cell(row, model.ColVolume)),
		})
	}
	return cols, records, nil
}
