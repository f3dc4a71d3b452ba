package market

import (
	"sync"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/shopspring/decimal"
)

const (
	defaultVolatilityWindow = 20
	maxSamples              = 200
)

// VolatilityTracker keeps a rolling window of observed mid prices per
// commodity and derives a relative volatility score and a recent price-change
// percentage from it.
type VolatilityTracker struct {
	mu      sync.Mutex
	window  int
	samples map[string][]float64
}

// NewVolatilityTracker creates a tracker with the given moving-std window.
func NewVolatilityTracker(window int) *VolatilityTracker {
	if window <= 0 {
		window = defaultVolatilityWindow
	}
	return &VolatilityTracker{
		window:  window,
		samples: make(map[string][]float64),
	}
}

// Observe records a price sample for a commodity.
func (v *VolatilityTracker) Observe(commodity string, price decimal.Decimal) {
	if price.LessThanOrEqual(decimal.Zero) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	samples := append(v.samples[commodity], price.InexactFloat64())
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}
	v.samples[commodity] = samples
}

// Score returns the relative volatility of a commodity: moving standard
// deviation of the window normalized by the latest price, so commodities on
// different price levels are comparable. Zero until enough samples exist.
func (v *VolatilityTracker) Score(commodity string) decimal.Decimal {
	v.mu.Lock()
	samples := append([]float64(nil), v.samples[commodity]...)
	v.mu.Unlock()

	if len(samples) < v.window {
		return decimal.Zero
	}

	std := volatility.NewMovingStdWithPeriod[float64](v.window)
	values := helper.ChanToSlice(std.Compute(helper.SliceToChan(samples)))
	if len(values) == 0 {
		return decimal.Zero
	}

	last := samples[len(samples)-1]
	if last <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(values[len(values)-1] / last)
}

// ChangePercent returns the price change over the tracked window in percent.
func (v *VolatilityTracker) ChangePercent(commodity string) decimal.Decimal {
	v.mu.Lock()
	samples := v.samples[commodity]
	var first, last float64
	if len(samples) > 1 {
		first, last = samples[0], samples[len(samples)-1]
	}
	v.mu.Unlock()

	if first <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat((last - first) / first * 100)
}

// Highest returns the candidate commodity with the largest volatility score.
// Ties and an all-zero field fall back to the first candidate.
func (v *VolatilityTracker) Highest(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	best := candidates[0]
	bestScore := v.Score(best)
	for _, commodity := range candidates[1:] {
		if score := v.Score(commodity); score.GreaterThan(bestScore) {
			best = commodity
			bestScore = score
		}
	}
	return best
}
