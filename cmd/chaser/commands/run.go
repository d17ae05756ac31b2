package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "일일 파이프라인 1회 실행 (수집 → 스캔 → 퍼블리시)",
	Long: `일일 배치를 한 번 실행합니다.

1. 일봉 증분 수집
2. 스캔 및 저장 (수집이 partial이어도 진행)
3. 산출물 퍼블리시

수집이 실패하면 스캔하지 않고 non-zero로 종료합니다.

Example:
  go run ./cmd/chaser run
  go run ./cmd/chaser run --date 2025-03-14 --no-publish`,
	RunE: runPipeline,
}

var (
	runDate      string
	runNoPublish bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "target date YYYY-MM-DD (default: today in market timezone)")
	runCmd.Flags().BoolVar(&runNoPublish, "no-publish", false, "skip writing artifacts")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	target, err := resolveDate(runDate, a.cfg.Market.Location())
	if err != nil {
		return err
	}

	p, err := a.pipeline(!runNoPublish)
	if err != nil {
		return err
	}

	PrintJobHeader(JobMetadata{
		JobType: "Daily Pipeline",
		Tag:     "Pipeline",
		Date:    target.Format("2006-01-02"),
	})

	res, err := p.Execute(ctx, target)
	if res != nil {
		PrintRunReport(res.Ingest)
	}
	if err != nil {
		PrintError(fmt.Sprintf("Pipeline failed: %v", err))
		return err
	}

	fmt.Println()
	PrintRanking(res.Scan, 10)
	if res.Artifacts != nil {
		fmt.Println()
		PrintInfo("Published " + res.Artifacts.ScanJSON)
	}
	fmt.Println()
	PrintSuccess("Pipeline completed")
	return nil
}
