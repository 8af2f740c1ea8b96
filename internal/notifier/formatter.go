package notifier

import (
	"fmt"
	"strings"
	"time"

	"StockAnalytics/internal/model"
)

// FormatRunSummary formats a batch run into a Telegram message.
func FormatRunSummary(s *model.RunSummary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>StockAnalytics run</b> | %s\n", s.StartedAt.UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("run: <code>%s</code>\n", s.RunID))
	b.WriteString(fmt.Sprintf("tickers: %d | failed: %d | took %s\n\n",
		len(s.Runs), s.Failed(), s.Duration.Round(time.Millisecond)))

	for _, r := range s.Runs {
		b.WriteString(formatRun(r))
	}
	return b.String()
}

// FormatStatus formats the latest run of every ticker.
func FormatStatus(runs []model.TickerRun, totalRuns int) string {
	var b strings.Builder
	b.WriteString("📦 <b>Ticker status</b>\n\n")
	if len(runs) == 0 {
		b.WriteString("no runs yet\n")
		return b.String()
	}
	for _, r := range runs {
		b.WriteString(formatRun(r))
	}
	b.WriteString(fmt.Sprintf("\ntotal runs: %d\n", totalRuns))
	return b.String()
}

func formatRun(r model.TickerRun) string {
	if r.Status == model.StatusFailed {
		return fmt.Sprintf("❌ %s failed at %s: %s\n", r.Ticker, r.Stage, r.Error)
	}
	last := "-"
	if !r.LastDate.IsZero() {
		last = r.LastDate.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("✅ %s rows=%d last=%s\n", r.Ticker, r.Rows, last)
}

// HelpText lists the chat commands.
const HelpText = "Commands:\n• /run - process all tickers\n• /run TICKER - process one ticker\n• /status - latest run per ticker"
