package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/momentumchaser/internal/contracts"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "데이터 신선도 확인",
	Long: `저장소의 최신 일봉을 마지막 거래일과 비교합니다.

  no-data  저장된 일봉 없음
  stale    최신 일봉이 마지막 거래일보다 과거
  fresh    마지막 거래일까지 수집됨

--symbols 시 유니버스 종목별로 확인하고 뒤처진 종목을 나열합니다.

Example:
  go run ./cmd/chaser status
  go run ./cmd/chaser status --symbols`,
	RunE: runStatus,
}

var (
	statusSymbols bool
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusSymbols, "symbols", false, "check each universe symbol")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var symbols []string
	if statusSymbols {
		u, err := a.universe.Resolve(ctx, a.calendar.LastTradingDay(timeNowIn(a)))
		if err != nil {
			return fmt.Errorf("resolve universe: %w", err)
		}
		symbols = u.Symbols
	}

	snap, err := a.checker().Check(ctx, symbols)
	if err != nil {
		return fmt.Errorf("check freshness: %w", err)
	}

	fmt.Println("=== Data Health ===")
	fmt.Println()
	PrintKeyValue("Health", string(snap.Health), 15)
	PrintKeyValue("Trading date", snap.TradingDate.Format(contracts.DateLayout), 15)
	PrintKeyValue("Latest ingested", formatDatePtr(snap.LatestIngested), 15)
	PrintKeyValue("Latest scan", formatDatePtr(snap.LatestScan), 15)
	if statusSymbols {
		PrintKeyValue("Current", fmt.Sprintf("%d / %d (%.1f%%)", snap.CurrentSymbols, snap.TotalSymbols, snap.Coverage()*100), 15)
		PrintKeyValue("Stale", strconv.Itoa(len(snap.StaleSymbols)), 15)
	}
	fmt.Println()

	switch snap.Health {
	case contracts.HealthFresh:
		PrintSuccess("Data is fresh")
	case contracts.HealthStale:
		PrintWarning("Data is stale, run: go run ./cmd/chaser ingest")
	default:
		PrintWarning("No data yet, run: go run ./cmd/chaser ingest")
	}
	return nil
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(contracts.DateLayout)
}

func timeNowIn(a *app) time.Time {
	now := time.Now().In(a.cfg.Market.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
