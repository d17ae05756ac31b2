package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/s0_data/collector"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "일봉 수집 (증분)",
	Long: `유니버스 전 종목의 일봉을 대상일까지 증분 수집합니다.

종목별로 저장된 마지막 날짜 이후만 요청하며, 이미 최신인 종목은 건너뜁니다.
모든 요청은 공유 레이트 게이트(기본 3 req/s)를 통과합니다.

Exit code:
  0  Succeeded (partial 포함)
  1  Failed / Aborted (토큰 만료, 취소, 예산 초과)

Example:
  go run ./cmd/chaser ingest
  go run ./cmd/chaser ingest --date 2025-03-14 --workers 4`,
	RunE: runIngest,
}

var (
	ingestDate    string
	ingestWorkers int
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "target date YYYY-MM-DD (default: today in market timezone)")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "worker count (default: INGEST_WORKERS)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	target, err := resolveDate(ingestDate, a.cfg.Market.Location())
	if err != nil {
		return err
	}
	if ingestWorkers > 0 {
		a.cfg.Ingest.Workers = ingestWorkers
	}

	col, err := a.collector()
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintJobHeader(JobMetadata{
		JobType: "Daily Bar Ingestion",
		Tag:     "Ingest",
		Date:    a.calendar.LastTradingDay(target).Format(contracts.DateLayout),
		Symbols: a.cfg.Universe.Path,
	})

	report, err := col.Run(ctx, target)
	PrintRunReport(report)
	if c := a.responseCache(); c != nil && report != nil && report.Counts()[collector.OutcomeCommitted] > 0 {
		if cerr := c.InvalidateSeries(context.WithoutCancel(ctx)); cerr != nil {
			PrintWarning(fmt.Sprintf("Cached series not invalidated: %v", cerr))
		}
	}
	if err != nil {
		PrintError(fmt.Sprintf("Ingestion failed: %v", err))
		return err
	}
	if report.Partial {
		PrintWarning("Ingestion finished with failed or empty symbols")
		return nil
	}
	PrintSuccess("Ingestion completed")
	return nil
}
