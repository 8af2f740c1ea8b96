package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "StockAnalytics/internal/errors"
)

func newTestPipeline(short, long int) *Pipeline {
	return New(Config{ShortWindow: short, LongWindow: long}, zerolog.Nop())
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readArtifact(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestProcess_Scenario(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "AAPL.csv", "Date,Close\n"+
		"2024-01-03,121\n"+
		"2024-01-01,100\n"+
		"2024-01-02,110\n")
	dst := filepath.Join(dir, "out", "AAPL_processed.csv")

	res, err := newTestPipeline(2, 20).Process(context.Background(), Job{Ticker: "AAPL", Source: src, Destination: dst})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), res.FirstDate)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), res.LastDate)

	rows := readArtifact(t, dst)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Date", "Open", "High", "Low", "Close", "Volume", "price_change_pct", "sma_short", "sma_long"}, rows[0])

	wantClose := []string{"100", "110", "121"}
	wantPct := []float64{0, 10, 10}
	wantSMA := []float64{0, 105, 115.5}
	for i, row := range rows[1:] {
		assert.Equal(t, wantClose[i], row[4])
		assert.Empty(t, row[8], "long SMA must be null before 20 rows")
		if i == 0 {
			assert.Empty(t, row[6])
			assert.Empty(t, row[7])
			continue
		}
		pct, err := strconv.ParseFloat(row[6], 64)
		require.NoError(t, err)
		assert.InDelta(t, wantPct[i], pct, 1e-9)
		sma, err := strconv.ParseFloat(row[7], 64)
		require.NoError(t, err)
		assert.InDelta(t, wantSMA[i], sma, 1e-9)
	}
}

func TestProcess_DuplicateLastWins(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "AAPL.json", `[
		{"Date": "2024-01-01", "Close": 100},
		{"Date": "2024-01-02", "Close": 110},
		{"Date": "2024-01-02", "Close": 115}
	]`)
	res, err := newTestPipeline(2, 3).Process(context.Background(), Job{Ticker: "AAPL", Source: src, Destination: filepath.Join(dir, "out.csv")})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 115.0, res.Records[1].Close.Float64)
}

func TestProcess_MissingClose(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "AAPL.csv", "Date,Open\n2024-01-01,1\n")
	dst := filepath.Join(dir, "out.csv")

	_, err := newTestPipeline(2, 3).Process(context.Background(), Job{Ticker: "AAPL", Source: src, Destination: dst})
	require.Error(t, err)

	var ve *apperrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"Close"}, ve.Missing)
	assert.Equal(t, string(StageValidating), apperrors.StageOf(err))

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "no artifact on failure")
}

func TestProcess_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	_, err := newTestPipeline(2, 3).Process(context.Background(), Job{
		Ticker:      "AAPL",
		Source:      filepath.Join(dir, "AAPL.txt"),
		Destination: filepath.Join(dir, "out.csv"),
	})
	assert.True(t, apperrors.IsFormat(err))
	assert.Equal(t, string(StageLoading), apperrors.StageOf(err))
}

func TestProcess_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "AAPL.csv", "Date,Close\n2024-01-01,1\n")
	blocker := writeSource(t, dir, "blocker", "")

	_, err := newTestPipeline(2, 3).Process(context.Background(), Job{
		Ticker:      "AAPL",
		Source:      src,
		Destination: filepath.Join(blocker, "out.csv"),
	})
	assert.True(t, apperrors.IsIO(err))
	assert.Equal(t, string(StageWriting), apperrors.StageOf(err))
}

func TestProcess_EmptyInputWritesHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "AAPL.csv", "Date,Open,High,Low,Close,Volume\n")
	dst := filepath.Join(dir, "out.csv")

	res, err := newTestPipeline(2, 3).Process(context.Background(), Job{Ticker: "AAPL", Source: src, Destination: dst})
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	assert.True(t, res.FirstDate.IsZero())
	assert.Len(t, readArtifact(t, dst), 1)
}

func TestProcess_Idempotent(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "AAPL.csv", "Date,Open,High,Low,Close,Volume\n"+
		"2024-01-02 00:00:00-05:00,187.15,188.44,183.89,185.64,82488700\n"+
		"2024-01-03 00:00:00-05:00,184.22,185.88,183.43,184.25,58414500\n"+
		"2024-01-04 00:00:00-05:00,182.15,183.09,180.88,181.91,71983600\n")
	dst := filepath.Join(dir, "out.csv")
	p := newTestPipeline(2, 3)

	_, err := p.Process(context.Background(), Job{Ticker: "AAPL", Source: src, Destination: dst})
	require.NoError(t, err)
	first, err := os.ReadFile(dst)
	require.NoError(t, err)

	_, err = p.Process(context.Background(), Job{Ticker: "AAPL", Source: src, Destination: dst})
	require.NoError(t, err)
	second, err := os.ReadFile(dst)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProcess_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "AAPL.csv", "Date,Close\n2024-01-01,1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(2, 3).Process(ctx, Job{Ticker: "AAPL", Source: src, Destination: filepath.Join(dir, "out.csv")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, string(StageLoading), apperrors.StageOf(err))
}

func TestProcessAll_IndependentOutcomes(t *testing.T) {
	dir := t.TempDir()
	var jobs []Job
	for i := 0; i < 6; i++ {
		ticker := fmt.Sprintf("T%d", i)
		content := fmt.Sprintf("Date,Close\n2024-01-01,%d\n2024-01-02,%d\n", 100+i, 110+i)
		if i == 3 {
			content = "Date,Open\n2024-01-01,1\n"
		}
		jobs = append(jobs, Job{
			Ticker:      ticker,
			Source:      writeSource(t, dir, ticker+".csv", content),
			Destination: filepath.Join(dir, "out", ticker+"_processed.csv"),
		})
	}

	outcomes := newTestPipeline(2, 3).ProcessAll(context.Background(), jobs, 3)
	require.Len(t, outcomes, len(jobs))
	for i, o := range outcomes {
		assert.Equal(t, jobs[i], o.Job)
		if i == 3 {
			assert.True(t, apperrors.IsValidation(o.Err))
			assert.Nil(t, o.Result)
			continue
		}
		require.NoError(t, o.Err)
		assert.Equal(t, 2, o.Result.Rows)
		assert.Equal(t, float64(110+i), o.Result.Records[1].Close.Float64)
	}
}

func TestProcessAll_MatchesSequential(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "A.csv", "Date,Close\n2024-01-02,2\n2024-01-01,1\n2024-01-03,4\n")
	p := newTestPipeline(2, 3)

	seq, err := p.Process(context.Background(), Job{Ticker: "A", Source: src, Destination: filepath.Join(dir, "seq.csv")})
	require.NoError(t, err)

	outcomes := p.ProcessAll(context.Background(), []Job{
		{Ticker: "A", Source: src, Destination: filepath.Join(dir, "par1.csv")},
		{Ticker: "A", Source: src, Destination: filepath.Join(dir, "par2.csv")},
	}, 0)
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, seq.Records, o.Result.Records)
	}
}
