package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"StockAnalytics/internal/model"
)

// LoadState reads the run state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.RunState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.RunState{Tickers: map[string]model.TickerRun{}}, nil
		}
		return nil, err
	}
	var state model.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Tickers == nil {
		state.Tickers = map[string]model.TickerRun{}
	}
	return &state, nil
}

// SaveState writes the run state to a JSON file.
func SaveState(filePath string, state *model.RunState) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
