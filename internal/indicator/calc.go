package indicator

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// SMA computes the simple moving average of the last `period` values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// RSI computes the Wilder-smoothed relative strength index over the given
// period. Requires at least period+1 values.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period+1 {
		return 0, ErrInsufficientData
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for remaining values
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// BollingerBands computes the upper and lower Bollinger bands (two standard
// deviations around the simple moving average) of the last `period` values.
func BollingerBands(values []float64, period int) (upper, lower float64, err error) {
	if period <= 0 {
		return 0, 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, 0, ErrInsufficientData
	}

	window := values[len(values)-period:]
	mean, std := stat.MeanStdDev(window, nil)
	return mean + 2*std, mean - 2*std, nil
}
