package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/momentumchaser/internal/api"
	"github.com/wonny/momentumchaser/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `읽기 전용 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                       - 데이터 신선도 (no-data / stale / fresh)
  GET  /api/scan/latest              - 최신 스캔 결과
  GET  /api/scan/dates               - 저장된 스캔 날짜
  GET  /api/scan/{date}              - 특정 날짜 스캔 결과
  GET  /api/symbols                  - 저장된 종목
  GET  /api/symbols/{symbol}/bars    - 종목 일봉 (?from=&to=)
  GET  /api/universe                 - 현재 유니버스

Example:
  go run ./cmd/chaser api
  go run ./cmd/chaser api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Momentum Chaser API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	cache := a.cache(ctx)
	router := api.NewRouter(api.Handlers{
		Data:    handlers.NewDataHandler(a.checker(), a.universe, a.log),
		Scan:    handlers.NewScanHandler(a.store, cache, a.log),
		Symbols: handlers.NewSymbolHandler(a.store, cache, a.log),
	}, a.log)
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
