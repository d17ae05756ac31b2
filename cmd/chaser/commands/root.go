package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chaser",
	Short: "Momentum Chaser - NIFTY 500 스윙 스캐너",
	Long: `Momentum Chaser CLI

일봉 수집 → 스캔 → 퍼블리시 파이프라인.
Kite Connect에서 일봉을 받아 저장하고, 매일 장 마감 후 종목을 순위화합니다.

Usage:
  go run ./cmd/chaser [command]

Examples:
  go run ./cmd/chaser run
  go run ./cmd/chaser ingest --date 2025-03-14
  go run ./cmd/chaser scan --publish
  go run ./cmd/chaser api
  go run ./cmd/chaser scheduler start`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// config.Load reads ENV_FILE before falling back to .env
		if configFile != "" {
			os.Setenv("ENV_FILE", configFile)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
