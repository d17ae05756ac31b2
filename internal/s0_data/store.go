package s0_data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/config"
	"github.com/wonny/momentumchaser/pkg/database"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// Open returns the store selected by STORE_DRIVER
// ⭐ SSOT: 저장소 백엔드 선택은 여기서만
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.Store, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case "", "sqlite":
		db, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.Store.SQLitePath).Debug("Opened sqlite store")
		return NewSQLiteRepository(db), nil

	case "postgres":
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Debug("Opened postgres store")
		return NewPriceRepository(db), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// checkBars rejects a batch that mixes in another symbol's rows
func checkBars(symbol string, bars []contracts.Bar) error {
	if symbol == "" {
		return fmt.Errorf("upsert: empty symbol")
	}
	for _, b := range bars {
		if b.Symbol != symbol {
			return fmt.Errorf("upsert %s: bar for %q in batch", symbol, b.Symbol)
		}
		if b.Date.IsZero() {
			return fmt.Errorf("upsert %s: bar without date", symbol)
		}
	}
	return nil
}

func encodeScan(result *contracts.ScanResult) ([]byte, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal scan result: %w", err)
	}
	return payload, nil
}

func decodeScan(payload []byte) (*contracts.ScanResult, error) {
	var result contracts.ScanResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal scan result: %w", err)
	}
	return &result, nil
}
