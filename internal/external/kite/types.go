package kite

import (
	"encoding/json"
	"fmt"
	"time"
)

// candleTimeLayout is the timestamp format of historical candles, e.g. 2017-12-15T09:15:00+0530
const candleTimeLayout = "2006-01-02T15:04:05-0700"

// envelope wraps every Kite JSON response
type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

// historicalData is the data field of the historical candles endpoint
type historicalData struct {
	Candles []candle `json:"candles"`
}

// candle is [timestamp, open, high, low, close, volume]
type candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// UnmarshalJSON decodes the positional candle array
func (c *candle) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("candle: %w", err)
	}
	if len(fields) < 6 {
		return fmt.Errorf("candle: expected 6 fields, got %d", len(fields))
	}

	var ts string
	if err := json.Unmarshal(fields[0], &ts); err != nil {
		return fmt.Errorf("candle timestamp: %w", err)
	}
	t, err := time.Parse(candleTimeLayout, ts)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, ts); err != nil {
			return fmt.Errorf("candle timestamp %q: %w", ts, err)
		}
	}
	c.Time = t

	var nums [5]float64
	for i := range nums {
		if err := json.Unmarshal(fields[i+1], &nums[i]); err != nil {
			return fmt.Errorf("candle field %d: %w", i+1, err)
		}
	}
	c.Open, c.High, c.Low, c.Close = nums[0], nums[1], nums[2], nums[3]
	c.Volume = int64(nums[4])
	return nil
}

// Profile is the subset of /user/profile used by the auth check
type Profile struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Broker   string `json:"broker"`
}

// Instrument is one row of the instrument master
type Instrument struct {
	Token          int64
	TradingSymbol  string
	Name           string
	InstrumentType string
	Segment        string
	Exchange       string
}
