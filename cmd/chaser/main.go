package main

import (
	"os"

	"github.com/wonny/momentumchaser/cmd/chaser/commands"
)

// main is the entry point for the chaser CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/chaser [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
