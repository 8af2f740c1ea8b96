package model

import "time"

// Run statuses.
const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// TickerRun is the latest run outcome of one ticker.
type TickerRun struct {
	Ticker     string    `json:"ticker"`
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"` // done or failed
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	RawPath    string    `json:"raw_path,omitempty"`
	Artifact   string    `json:"artifact,omitempty"`
	Rows       int       `json:"rows"`
	Invalid    int       `json:"invalid"`
	Duplicates int       `json:"duplicates"`
	LastDate   time.Time `json:"last_date,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunState persists per-ticker run outcomes across restarts.
type RunState struct {
	Tickers   map[string]TickerRun `json:"tickers"`
	TotalRuns int                  `json:"total_runs"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// RunSummary describes one batch run over all configured tickers.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Runs      []TickerRun   `json:"runs"`
}

// Failed counts the failed runs of the batch.
func (s *RunSummary) Failed() int {
	n := 0
	for _, r := range s.Runs {
		if r.Status == StatusFailed {
			n++
		}
	}
	return n
}
