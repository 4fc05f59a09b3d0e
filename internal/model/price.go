package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/guregu/null/v5"
)

// IndicatorSet maps indicator keys (e.g. "sma_20", "rsi_14") to computed values.
// A null value means the trailing window for that row was incomplete.
type IndicatorSet map[string]null.Float

// Value implements the driver.Valuer interface for IndicatorSet
func (s IndicatorSet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for IndicatorSet
func (s *IndicatorSet) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, s)
}

// PriceRecord represents one daily price row for a ticker
type PriceRecord struct {
	Ticker     string       `json:"ticker" db:"ticker"`
	Date       time.Time    `json:"date" db:"trading_date"`
	Open       float64      `json:"open" db:"open"`
	High       float64      `json:"high" db:"high"`
	Low        float64      `json:"low" db:"low"`
	Close      float64      `json:"close" db:"close"`
	Volume     int64        `json:"volume" db:"volume"`
	Indicators IndicatorSet `json:"indicators,omitempty" db:"indicators"`
	CreatedAt  time.Time    `json:"-" db:"created_at"`
	UpdatedAt  *time.Time   `json:"-" db:"updated_at"`
}

// PriceSeriesQuery represents a query for a ticker's daily price series.
// Either Days (trailing lookback) or From/To (explicit range) is set, not both.
type PriceSeriesQuery struct {
	Ticker     string     `json:"ticker" form:"ticker"`
	Days       int        `json:"days" form:"days"`
	From       *time.Time `json:"from" form:"from"`
	To         *time.Time `json:"to" form:"to"`
	Indicators []string   `json:"indicators" form:"indicators"`
}
