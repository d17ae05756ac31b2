package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/momentumchaser/internal/contracts"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "저장된 일봉으로 스캔 실행",
	Long: `저장소에 있는 일봉만으로 종목을 점수화하고 순위를 매깁니다.
네트워크를 사용하지 않으며, 같은 데이터와 설정이면 항상 같은 결과를 냅니다.

결과는 저장소에 기록되고, --publish 시 CSV/JSON 산출물을 씁니다.

Example:
  go run ./cmd/chaser scan
  go run ./cmd/chaser scan --date 2025-03-14 --publish --top 30`,
	RunE: runScan,
}

var (
	scanDate    string
	scanPublish bool
	scanTop     int
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanDate, "date", "", "as-of date YYYY-MM-DD (default: last trading day)")
	scanCmd.Flags().BoolVar(&scanPublish, "publish", false, "write CSV/JSON artifacts")
	scanCmd.Flags().IntVar(&scanTop, "top", 20, "rows to print")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	day, err := resolveDate(scanDate, a.cfg.Market.Location())
	if err != nil {
		return err
	}
	asOf := a.calendar.LastTradingDay(day)

	eng, err := a.engine()
	if err != nil {
		return err
	}

	PrintJobHeader(JobMetadata{
		JobType: "Swing Scan",
		Tag:     "Scan",
		Date:    asOf.Format(contracts.DateLayout),
	})
	PrintKeyValue("Config", eng.ConfigHash()[:12], 6)

	result, run, err := eng.ScanAndSave(ctx, asOf, a.store)
	if err != nil {
		PrintError(fmt.Sprintf("Scan failed: %v", err))
		return err
	}
	if c := a.responseCache(); c != nil {
		if err := c.InvalidateScan(ctx, asOf.Format(contracts.DateLayout)); err != nil {
			a.log.WithError(err).Warn("Failed to invalidate cached scan")
		}
	}

	fmt.Println()
	PrintRanking(result, scanTop)

	if scanPublish {
		artifacts, err := a.publisher().Publish(result, run)
		if err != nil {
			PrintError(fmt.Sprintf("Publish failed: %v", err))
			return err
		}
		fmt.Println()
		written := []string{artifacts.RankedCSV, artifacts.DebugCSV, artifacts.ScanJSON, artifacts.ArchiveCSV}
		if artifacts.LatestJSON == "" {
			PrintWarning("A newer scan is already latest; latest.json left unchanged")
		} else {
			written = append(written, artifacts.LatestJSON, artifacts.LatestCSV)
		}
		PrintList(written)
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Scan %s stored (%d ranked in %s)", run.RunID, run.RankedSymbols, run.Duration))
	return nil
}
