package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/yourorg/market-insights/internal/model"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestSMA(t *testing.T) {
	t.Run("Given enough values When computing Then averages the trailing window", func(t *testing.T) {
		got, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
		if err != nil {
			t.Fatalf("SMA failed: %v", err)
		}
		if !almostEqual(got, 4.0, 1e-9) {
			t.Errorf("expected 4.0, got %v", got)
		}
	})

	t.Run("Given exactly window-sized input When computing Then uses all values", func(t *testing.T) {
		got, err := SMA([]float64{1, 2, 3, 4, 5}, 5)
		if err != nil {
			t.Fatalf("SMA failed: %v", err)
		}
		if !almostEqual(got, 3.0, 1e-9) {
			t.Errorf("expected 3.0, got %v", got)
		}
	})

	t.Run("Given too few values When computing Then reports insufficient data", func(t *testing.T) {
		_, err := SMA([]float64{1, 2}, 3)
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("expected ErrInsufficientData, got %v", err)
		}
	})
}

func TestRSI(t *testing.T) {
	t.Run("Given a known series When computing Then matches the Wilder value", func(t *testing.T) {
		values := []float64{44.00, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83}
		got, err := RSI(values, 3)
		if err != nil {
			t.Fatalf("RSI failed: %v", err)
		}
		if !almostEqual(got, 77.7663, 0.01) {
			t.Errorf("expected ~77.77, got %v", got)
		}
	})

	t.Run("Given only gains When computing Then returns 100", func(t *testing.T) {
		got, err := RSI([]float64{1, 2, 3, 4, 5}, 3)
		if err != nil {
			t.Fatalf("RSI failed: %v", err)
		}
		if got != 100.0 {
			t.Errorf("expected 100, got %v", got)
		}
	})

	t.Run("Given only losses When computing Then returns 0", func(t *testing.T) {
		got, err := RSI([]float64{5, 4, 3, 2, 1}, 3)
		if err != nil {
			t.Fatalf("RSI failed: %v", err)
		}
		if !almostEqual(got, 0.0, 1e-9) {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("Given window-sized input When computing Then reports insufficient data", func(t *testing.T) {
		// RSI needs one extra row for the first price change.
		_, err := RSI([]float64{1, 2, 3}, 3)
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("expected ErrInsufficientData, got %v", err)
		}
	})
}

func TestBollingerBands(t *testing.T) {
	t.Run("Given a constant series When computing Then bands collapse onto the mean", func(t *testing.T) {
		upper, lower, err := BollingerBands([]float64{5, 5, 5, 5}, 4)
		if err != nil {
			t.Fatalf("BollingerBands failed: %v", err)
		}
		if !almostEqual(upper, 5.0, 1e-9) || !almostEqual(lower, 5.0, 1e-9) {
			t.Errorf("expected collapsed bands at 5.0, got upper=%v lower=%v", upper, lower)
		}
	})

	t.Run("Given a known series When computing Then bands sit two deviations out", func(t *testing.T) {
		upper, lower, err := BollingerBands([]float64{1, 2, 3, 4, 5}, 5)
		if err != nil {
			t.Fatalf("BollingerBands failed: %v", err)
		}
		std := math.Sqrt(2.5)
		if !almostEqual(upper, 3+2*std, 1e-9) {
			t.Errorf("expected upper %v, got %v", 3+2*std, upper)
		}
		if !almostEqual(lower, 3-2*std, 1e-9) {
			t.Errorf("expected lower %v, got %v", 3-2*std, lower)
		}
	})

	t.Run("Given too few values When computing Then reports insufficient data", func(t *testing.T) {
		_, _, err := BollingerBands([]float64{1, 2}, 3)
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("expected ErrInsufficientData, got %v", err)
		}
	})
}

func TestParseSpec(t *testing.T) {
	t.Run("Given valid names When parsing Then normalizes kind and window", func(t *testing.T) {
		cases := map[string]Spec{
			"sma_20":       {Kind: KindSMA, Window: 20},
			"MA_200":       {Kind: KindSMA, Window: 200},
			"rsi_14":       {Kind: KindRSI, Window: 14},
			"RSI_7":        {Kind: KindRSI, Window: 7},
			"bb_20":        {Kind: KindBollinger, Window: 20},
			"boll_10":      {Kind: KindBollinger, Window: 10},
			"bollinger_20": {Kind: KindBollinger, Window: 20},
			" sma_50 ":     {Kind: KindSMA, Window: 50},
		}
		for raw, want := range cases {
			got, err := ParseSpec(raw)
			if err != nil {
				t.Errorf("ParseSpec(%q) failed: %v", raw, err)
				continue
			}
			if got != want {
				t.Errorf("ParseSpec(%q) = %+v, want %+v", raw, got, want)
			}
		}
	})

	t.Run("Given invalid names When parsing Then fails", func(t *testing.T) {
		for _, raw := range []string{"", "sma", "sma_", "_20", "sma_0", "sma_-5", "sma_abc", "xyz_14", "sma_501"} {
			if _, err := ParseSpec(raw); err == nil {
				t.Errorf("ParseSpec(%q) should have failed", raw)
			}
		}
	})
}

func TestParseSpecs(t *testing.T) {
	t.Run("Given duplicates and blanks When parsing Then deduplicates and skips", func(t *testing.T) {
		specs, err := ParseSpecs([]string{"sma_20", "", "SMA_20", "rsi_14", " "})
		if err != nil {
			t.Fatalf("ParseSpecs failed: %v", err)
		}
		if len(specs) != 2 {
			t.Fatalf("expected 2 specs, got %d: %+v", len(specs), specs)
		}
		if specs[0].Key() != "sma_20" || specs[1].Key() != "rsi_14" {
			t.Errorf("unexpected specs: %+v", specs)
		}
	})

	t.Run("Given one invalid name When parsing Then the whole list fails", func(t *testing.T) {
		if _, err := ParseSpecs([]string{"sma_20", "bogus"}); err == nil {
			t.Error("expected error for invalid spec in list")
		}
	})
}

func TestMaxWindow(t *testing.T) {
	specs := []Spec{
		{Kind: KindSMA, Window: 50},
		{Kind: KindRSI, Window: 50}, // needs 51 rows
		{Kind: KindBollinger, Window: 20},
	}
	if got := MaxWindow(specs); got != 51 {
		t.Errorf("expected 51, got %d", got)
	}
	if got := MaxWindow(nil); got != 0 {
		t.Errorf("expected 0 for no specs, got %d", got)
	}
}

func makeRecords(closes []float64) []model.PriceRecord {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC) // Monday
	records := make([]model.PriceRecord, len(closes))
	date := start
	for i, c := range closes {
		records[i] = model.PriceRecord{Ticker: "TEST", Date: date, Close: c}
		date = date.AddDate(0, 0, 1)
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}
	}
	return records
}

func TestApply(t *testing.T) {
	t.Run("Given a short history When applying Then incomplete windows are null", func(t *testing.T) {
		records := makeRecords([]float64{1, 2, 3, 4, 5})
		Apply(records, []Spec{{Kind: KindSMA, Window: 3}})

		for i := 0; i < 2; i++ {
			if records[i].Indicators["sma_3"].Valid {
				t.Errorf("row %d: expected null sma_3, got %v", i, records[i].Indicators["sma_3"])
			}
		}
		for i, want := range map[int]float64{2: 2, 3: 3, 4: 4} {
			got := records[i].Indicators["sma_3"]
			if !got.Valid || !almostEqual(got.Float64, want, 1e-9) {
				t.Errorf("row %d: expected sma_3=%v, got %+v", i, want, got)
			}
		}
	})

	t.Run("Given an RSI window When applying Then the extra change row is respected", func(t *testing.T) {
		records := makeRecords([]float64{1, 2, 3, 4})
		Apply(records, []Spec{{Kind: KindRSI, Window: 3}})

		if records[2].Indicators["rsi_3"].Valid {
			t.Error("row 2: expected null rsi_3, window has no extra row yet")
		}
		got := records[3].Indicators["rsi_3"]
		if !got.Valid || got.Float64 != 100.0 {
			t.Errorf("row 3: expected rsi_3=100, got %+v", got)
		}
	})

	t.Run("Given a Bollinger spec When applying Then both bands are attached", func(t *testing.T) {
		records := makeRecords([]float64{1, 2, 3})
		Apply(records, []Spec{{Kind: KindBollinger, Window: 2}})

		if records[0].Indicators["bb_upper_2"].Valid || records[0].Indicators["bb_lower_2"].Valid {
			t.Error("row 0: expected null bands")
		}
		upper, lower := records[2].Indicators["bb_upper_2"], records[2].Indicators["bb_lower_2"]
		if !upper.Valid || !lower.Valid {
			t.Fatalf("row 2: expected both bands, got upper=%+v lower=%+v", upper, lower)
		}
		if upper.Float64 <= lower.Float64 {
			t.Errorf("row 2: upper band %v not above lower %v", upper.Float64, lower.Float64)
		}
	})

	t.Run("Given no specs When applying Then records stay untouched", func(t *testing.T) {
		records := makeRecords([]float64{1, 2})
		Apply(records, nil)
		if records[0].Indicators != nil {
			t.Error("expected no indicator allocation without specs")
		}
	})
}
