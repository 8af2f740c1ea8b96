package state

import (
	"fmt"
	"sort"
	"sync"

	"StockAnalytics/internal/model"
)

// Manager guards the run state and saves it after every update.
type Manager struct {
	mu       sync.Mutex
	state    *model.RunState
	filePath string
}

// NewManager creates a Manager, loading or initializing state from disk.
func NewManager(filePath string) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load run state: %w", err)
	}
	return &Manager{state: state, filePath: filePath}, nil
}

// Update stores run as the latest outcome for its ticker.
func (m *Manager) Update(run model.TickerRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Tickers[run.Ticker] = run
	m.state.TotalRuns++
	return SaveState(m.filePath, m.state)
}

// Get returns the latest run of ticker.
func (m *Manager) Get(ticker string) (model.TickerRun, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.state.Tickers[ticker]
	return run, ok
}

// Snapshot returns every ticker's latest run sorted by ticker, and the total run count.
func (m *Manager) Snapshot() ([]model.TickerRun, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]model.TickerRun, 0, len(m.state.Tickers))
	for _, r := range m.state.Tickers {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Ticker < runs[j].Ticker })
	return runs, m.state.TotalRuns
}
