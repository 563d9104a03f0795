package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spboyer/gauntlet/internal/models"
	"github.com/spboyer/gauntlet/internal/orchestration"
	"golang.org/x/term"
)

// progressReporter renders runner progress. On a TTY it rewrites a single
// status line; otherwise (CI logs) it prints one line per completed unit in
// verbose mode and stays quiet in quiet mode.
type progressReporter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	isTTY   bool
	active  bool
}

func newProgressReporter(w io.Writer, verbose bool) *progressReporter {
	isTTY := false
	if f, ok := w.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return &progressReporter{w: w, verbose: verbose, isTTY: isTTY}
}

// OnProgress is safe for concurrent use; the runner invokes it from worker
// goroutines.
func (p *progressReporter) OnProgress(ev orchestration.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isTTY {
		fmt.Fprintf(p.w, "\r[%d/%d] item %d run %d    ",
			ev.CompletedExecutions, ev.TotalExecutions, ev.ItemIndex, ev.RunIndex)
		p.active = true
		return
	}

	if p.verbose {
		fmt.Fprintf(p.w, "[%d/%d] completed item %d run %d\n",
			ev.CompletedExecutions, ev.TotalExecutions, ev.ItemIndex, ev.RunIndex)
	}
}

// Finish terminates the in-place status line, if any.
func (p *progressReporter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		fmt.Fprintln(p.w)
		p.active = false
	}
}

// padRight pads s with spaces to the given display width, counting wide
// runes correctly.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func printSummary(w io.Writer, report *models.ExperimentReport) {
	s := report.Summary

	errored := 0
	for _, item := range report.Items {
		if item.Error != "" {
			errored++
		}
	}

	fmt.Fprintf(w, "\nItems: %d (%d errored) | Runs/item: %d | Duration: %s | Avg latency: %dms\n",
		s.TotalItems, errored, s.RunsPerItem,
		(time.Duration(s.TotalDurationMs) * time.Millisecond).String(), s.AvgLatencyMs)

	if s.TotalTokens > 0 {
		fmt.Fprintf(w, "Tokens: %d", s.TotalTokens)
		if s.TotalCostUSD > 0 {
			fmt.Fprintf(w, " | Cost: $%.4f", s.TotalCostUSD)
		}
		fmt.Fprintln(w)
	}

	names := make([]string, 0, len(s.Scores))
	nameWidth := len("evaluator")
	for name := range s.Scores {
		names = append(names, name)
		if w := runewidth.StringWidth(name); w > nameWidth {
			nameWidth = w
		}
	}
	sort.Strings(names)

	fmt.Fprintf(w, "\n%s    avg    min    max    p50    p95\n", padRight("evaluator", nameWidth))
	for _, name := range names {
		st := s.Scores[name]
		fmt.Fprintf(w, "%s  %.3f  %.3f  %.3f  %.3f  %.3f\n",
			padRight(name, nameWidth), st.Avg, st.Min, st.Max, st.P50, st.P95)
	}
}

func printGateResult(w io.Writer, result models.CIResult) {
	if result.Passed {
		fmt.Fprintf(w, "\nGate: PASSED (%s)\n", result.Summary)
		return
	}

	fmt.Fprintf(w, "\nGate: FAILED (%s)\n", result.Summary)
	for _, v := range result.Violations {
		fmt.Fprintf(w, "  ✗ [%s/%s] %s\n", v.Category, v.Metric, v.Message)
	}
}
