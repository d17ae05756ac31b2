package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/s0_data/collector"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// JobMetadata holds job execution metadata
type JobMetadata struct {
	JobType string
	Tag     string
	Date    string
	Symbols string // Optional
}

// PrintJobHeader prints a formatted job header
func PrintJobHeader(meta JobMetadata) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", meta.JobType)
	PrintSeparator()
	fmt.Printf("  Date      : %s\n", meta.Date)
	if meta.Symbols != "" {
		fmt.Printf("  Symbols   : %s\n", meta.Symbols)
	}
	PrintSeparator()
	fmt.Printf("[%s] Triggered at %s\n", meta.Tag, time.Now().Format("2006-01-02 15:04:05"))
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintRunReport prints the verdict and per-status counts of an ingestion run
func PrintRunReport(r *collector.RunReport) {
	if r == nil {
		return
	}
	counts := r.Counts()

	PrintSeparator()
	PrintKeyValue("Run ID", r.RunID, 13)
	PrintKeyValue("Target", r.Target.Format(contracts.DateLayout), 13)
	PrintKeyValue("State", string(r.State), 13)
	PrintKeyValue("Status", statusLabel(r), 13)
	PrintKeyValue("Committed", strconv.Itoa(counts[collector.OutcomeCommitted]), 13)
	PrintKeyValue("Up to date", strconv.Itoa(counts[collector.OutcomeUpToDate]), 13)
	PrintKeyValue("No new data", strconv.Itoa(counts[collector.OutcomeNoNewData]), 13)
	PrintKeyValue("Failed", strconv.Itoa(counts[collector.OutcomeFailed]), 13)
	PrintKeyValue("Not attempted", strconv.Itoa(counts[collector.OutcomeNotAttempted]), 13)
	PrintKeyValue("Duration", r.Duration().Round(time.Millisecond).String(), 13)
	if r.AbortCause != "" {
		PrintKeyValue("Abort cause", r.AbortCause, 13)
	}

	var failed []string
	for _, o := range r.Outcomes {
		if o.Status == collector.OutcomeFailed && o.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", o.Symbol, o.Err))
		}
	}
	if len(failed) > 0 {
		fmt.Println("\n  Failed symbols:")
		PrintList(failed)
	}
	PrintSeparator()
}

func statusLabel(r *collector.RunReport) string {
	if r.Status == collector.RunSucceeded && r.Partial {
		return "Succeeded (partial)"
	}
	return string(r.Status)
}

// PrintRanking prints the first n ranked rows and the skip summary
func PrintRanking(r *contracts.ScanResult, n int) {
	widths := []int{4, 12, 7, 10, 8, 7, 7, 16}
	PrintTableHeader([]string{"RANK", "SYMBOL", "SCORE", "CLOSE", "BOX%", "ATR", "VOL", "TAGS"}, widths)

	stale := make(map[string]bool, len(r.Stale))
	for _, s := range r.Stale {
		stale[s] = true
	}
	for _, row := range r.Top(n) {
		tags := strings.Join(row.Tags, ",")
		if stale[row.Symbol] {
			tags = strings.TrimPrefix(tags+",stale", ",")
		}
		PrintTableRow([]string{
			strconv.Itoa(row.Rank),
			row.Symbol,
			strconv.FormatFloat(row.Score, 'f', 4, 64),
			strconv.FormatFloat(row.Metrics.Close, 'f', 2, 64),
			strconv.FormatFloat(row.Metrics.BoxSpan*100, 'f', 2, 64),
			strconv.FormatFloat(row.Metrics.ATRRatio, 'f', 2, 64),
			strconv.FormatFloat(row.Metrics.VolRatio, 'f', 2, 64),
			tags,
		}, widths)
	}

	fmt.Println()
	PrintKeyValue("Universe", strconv.Itoa(r.UniverseSize), 9)
	PrintKeyValue("Ranked", strconv.Itoa(len(r.Ranked)), 9)
	PrintKeyValue("Stale", strconv.Itoa(len(r.Stale)), 9)
	counts := r.SkipCounts()
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		PrintKeyValue("Skipped", fmt.Sprintf("%d %s", counts[contracts.SkipReason(reason)], reason), 9)
	}
}
