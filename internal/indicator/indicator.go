package indicator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/guregu/null/v5"

	"github.com/yourorg/market-insights/internal/model"
)

// Supported indicator kinds.
const (
	KindSMA       = "sma"
	KindRSI       = "rsi"
	KindBollinger = "bb"
)

// MaxWindowSize bounds indicator windows to keep fetch lengths sane.
const MaxWindowSize = 500

// Spec identifies one requested indicator, e.g. SMA over a 20-row window.
type Spec struct {
	Kind   string
	Window int
}

// ParseSpec parses a raw indicator name such as "sma_20", "ma_200", "rsi_14"
// or "bb_20". Matching is case-insensitive.
func ParseSpec(raw string) (Spec, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	idx := strings.LastIndex(name, "_")
	if idx <= 0 || idx == len(name)-1 {
		return Spec{}, fmt.Errorf("invalid indicator %q", raw)
	}

	kind := name[:idx]
	window, err := strconv.Atoi(name[idx+1:])
	if err != nil || window <= 0 {
		return Spec{}, fmt.Errorf("invalid indicator window in %q", raw)
	}
	if window > MaxWindowSize {
		return Spec{}, fmt.Errorf("indicator window in %q exceeds maximum of %d", raw, MaxWindowSize)
	}

	switch kind {
	case "sma", "ma":
		return Spec{Kind: KindSMA, Window: window}, nil
	case "rsi":
		return Spec{Kind: KindRSI, Window: window}, nil
	case "bb", "boll", "bollinger":
		return Spec{Kind: KindBollinger, Window: window}, nil
	default:
		return Spec{}, fmt.Errorf("unknown indicator kind %q", raw)
	}
}

// ParseSpecs parses a list of raw indicator names, dropping duplicates.
func ParseSpecs(raw []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(raw))
	seen := make(map[Spec]bool)
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		spec, err := ParseSpec(r)
		if err != nil {
			return nil, err
		}
		if seen[spec] {
			continue
		}
		seen[spec] = true
		specs = append(specs, spec)
	}
	return specs, nil
}

// Key returns the canonical result key for the spec. Bollinger specs produce
// two keys, see UpperKey and LowerKey.
func (s Spec) Key() string {
	return fmt.Sprintf("%s_%d", s.Kind, s.Window)
}

// UpperKey returns the upper band key for a Bollinger spec.
func (s Spec) UpperKey() string {
	return fmt.Sprintf("bb_upper_%d", s.Window)
}

// LowerKey returns the lower band key for a Bollinger spec.
func (s Spec) LowerKey() string {
	return fmt.Sprintf("bb_lower_%d", s.Window)
}

// RequiredRows returns the number of trailing rows needed before the spec
// yields a value. RSI needs one extra row for the first price change.
func (s Spec) RequiredRows() int {
	if s.Kind == KindRSI {
		return s.Window + 1
	}
	return s.Window
}

// MaxWindow returns the largest row requirement across the given specs,
// or zero when no indicators were requested.
func MaxWindow(specs []Spec) int {
	max := 0
	for _, s := range specs {
		if need := s.RequiredRows(); need > max {
			max = need
		}
	}
	return max
}

// Apply computes the requested indicators for every record in place. Records
// must be sorted ascending by date. Rows whose trailing window is incomplete
// get an explicit null value, never a partial computation.
func Apply(records []model.PriceRecord, specs []Spec) {
	if len(records) == 0 || len(specs) == 0 {
		return
	}

	closes := make([]float64, len(records))
	for i := range records {
		closes[i] = records[i].Close
	}

	for i := range records {
		if records[i].Indicators == nil {
			records[i].Indicators = make(model.IndicatorSet, len(specs))
		}
		for _, spec := range specs {
			applyAt(records, closes, i, spec)
		}
	}
}

func applyAt(records []model.PriceRecord, closes []float64, i int, spec Spec) {
	need := spec.RequiredRows()
	window := closes[maxInt(0, i+1-need) : i+1]

	switch spec.Kind {
	case KindSMA:
		v, err := SMA(window, spec.Window)
		records[i].Indicators[spec.Key()] = floatOrNull(v, err)
	case KindRSI:
		v, err := RSI(window, spec.Window)
		records[i].Indicators[spec.Key()] = floatOrNull(v, err)
	case KindBollinger:
		upper, lower, err := BollingerBands(window, spec.Window)
		records[i].Indicators[spec.UpperKey()] = floatOrNull(upper, err)
		records[i].Indicators[spec.LowerKey()] = floatOrNull(lower, err)
	}
}

func floatOrNull(v float64, err error) null.Float {
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ErrInsufficientData is returned by the calculators when the input slice is
// shorter than the requested window.
var ErrInsufficientData = errors.New("not enough data for calculation")
