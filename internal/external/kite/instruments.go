package kite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseInstruments reads the instrument master CSV and keeps equity rows of exchange
func parseInstruments(r io.Reader, exchange string) (map[string]Instrument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("instrument header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"instrument_token", "tradingsymbol", "instrument_type", "segment"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("instrument master missing column %q", required)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := make(map[string]Instrument)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("instrument row: %w", err)
		}

		// NSE 현물 주식만
		if get(rec, "segment") != exchange || get(rec, "instrument_type") != "EQ" {
			continue
		}

		token, err := strconv.ParseInt(get(rec, "instrument_token"), 10, 64)
		if err != nil {
			continue
		}

		symbol := get(rec, "tradingsymbol")
		out[symbol] = Instrument{
			Token:          token,
			TradingSymbol:  symbol,
			Name:           get(rec, "name"),
			InstrumentType: "EQ",
			Segment:        exchange,
			Exchange:       get(rec, "exchange"),
		}
	}

	return out, nil
}
