package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "유니버스(NIFTY 500) 관리",
	Long: `스캔 대상 종목 목록을 조회하거나 갱신합니다.

Subcommands:
  show     - 현재 유니버스 파일 출력
  refresh  - 원격 소스에서 받아 파일 교체 (실패 시 기존 파일 유지)

Example:
  go run ./cmd/chaser universe show
  go run ./cmd/chaser universe refresh`,
}

var (
	universeShowCmd = &cobra.Command{
		Use:   "show",
		Short: "현재 유니버스 출력",
		RunE:  showUniverse,
	}

	universeRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "유니버스 갱신",
		RunE:  refreshUniverse,
	}
)

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeShowCmd)
	universeCmd.AddCommand(universeRefreshCmd)
}

func showUniverse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.universe.Resolve(cmd.Context(), time.Now())
	if err != nil {
		return fmt.Errorf("resolve universe: %w", err)
	}

	fmt.Printf("Universe: %s (%d symbols)\n", a.universe.Path(), u.Count())
	PrintSeparator()
	PrintList(u.Symbols)
	return nil
}

func refreshUniverse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.refresher().Refresh(cmd.Context())
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintKeyValue("Source", res.Source, 7)
	PrintKeyValue("Symbols", fmt.Sprintf("%d", len(res.Symbols)), 7)
	if len(res.Added) > 0 {
		fmt.Println("\n  Added:")
		PrintList(res.Added)
	}
	if len(res.Removed) > 0 {
		fmt.Println("\n  Removed:")
		PrintList(res.Removed)
	}
	fmt.Println()
	PrintSuccess("Universe refreshed")
	return nil
}
