package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/utkarsh5026/parmap/internal/config"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

func printSectionHeader(w io.Writer, title string, descriptions ...string) {
	line := strings.Repeat("═", 59)
	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, line)
	_, _ = bold.Fprintln(w, title)
	_, _ = bold.Fprintln(w, line)
	for _, desc := range descriptions {
		fmt.Fprintln(w, desc)
	}
	fmt.Fprintln(w)
}

func printConfig(w io.Writer, cfg *config.Config, cpus int) {
	printSectionHeader(w, "PARBENCH",
		fmt.Sprintf("  Workload:      %s", cfg.Workload),
		fmt.Sprintf("  Items:         %s", formatNumber(cfg.Items)),
		fmt.Sprintf("  Stages:        %d", cfg.Stages),
		fmt.Sprintf("  Worker counts: %s", joinInts(cfg.Workers)),
		fmt.Sprintf("  Runs:          %d", cfg.Runs),
		fmt.Sprintf("  Logical CPUs:  %d", cpus),
	)
}

// renderResults writes the results table followed by a summary line.
func renderResults(w io.Writer, items int, results []result) error {
	printSectionHeader(w, "RESULTS",
		"Best and mean wall time per worker count; speedup is relative to the first row")

	table := tablewriter.NewWriter(w)
	table.Header("Workers", "Best", "Mean", "Items/sec", "Speedup", "Verified")

	var baseline result
	for _, r := range results {
		if r.Err == nil {
			baseline = r
			break
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			_ = table.Append(strconv.Itoa(r.Workers), "-", "-", "-", "-", "error")
			continue
		}
		_ = table.Append(
			strconv.Itoa(r.Workers),
			formatLatency(r.Best),
			formatLatency(r.Mean),
			formatNumber(int(r.ItemsPerSec(items))),
			fmt.Sprintf("%.2fx", speedup(r, baseline)),
			verifiedMark(r.Verified),
		)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}

	fmt.Fprintln(w)
	for _, r := range results {
		if r.Err != nil {
			_, _ = red.Fprintf(w, "  • workers=%d: %v\n", r.Workers, r.Err)
		}
	}
	if failed == 0 {
		_, _ = green.Fprintf(w, "Completed %d configurations\n", len(results))
	} else {
		_, _ = red.Fprintf(w, "%d of %d configurations failed\n", failed, len(results))
	}
	return nil
}

func verifiedMark(ok bool) string {
	if ok {
		return "yes"
	}
	return "NO"
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// formatNumber formats an integer with comma separators.
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// formatLatency formats a duration in the most appropriate unit.
func formatLatency(d time.Duration) string {
	switch {
	case d <= 0:
		return "0"
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fµs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
