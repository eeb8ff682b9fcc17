// Package derive computes the price metrics shown alongside an analysis.
// Every view and the report exporter read these values from Derive so they
// always agree.
package derive

import "github.com/sells-group/property-cli/internal/model"

// MarketBandFraction is the half-width of the fallback market band around
// the estimate when the backend supplies none.
const MarketBandFraction = 0.10

// Metrics are values derived from an AnalysisRecord.
type Metrics struct {
	Currency       string
	EstimatedPrice float64
	LocationScore  float64
	Confidence     float64

	PricePerArea    float64
	HasPricePerArea bool

	AskingPrice  float64
	HasAsking    bool
	Delta        float64 // estimated minus asking
	DeltaPercent float64 // Delta relative to asking, in percent

	MarketLow         float64
	MarketHigh        float64
	MarketFromBackend bool
}

// Underpriced reports whether the asking price is below the estimate.
func (m Metrics) Underpriced() bool {
	return m.HasAsking && m.Delta > 0
}

// Derive computes Metrics for rec. It performs no I/O.
func Derive(rec model.AnalysisRecord) Metrics {
	m := Metrics{
		Currency:       rec.CurrencyCode(),
		EstimatedPrice: rec.EstimatedPrice,
		LocationScore:  model.NormalizeScore(rec.LocationScore),
		Confidence:     model.NormalizeScore(rec.Confidence),
	}

	if rec.Features != nil && rec.Features.Area != nil && *rec.Features.Area > 0 && rec.EstimatedPrice > 0 {
		m.PricePerArea = rec.EstimatedPrice / *rec.Features.Area
		m.HasPricePerArea = true
	} else if rec.PricePerSqft != nil && *rec.PricePerSqft > 0 {
		m.PricePerArea = *rec.PricePerSqft
		m.HasPricePerArea = true
	}

	if asking, ok := rec.AskingPrice(); ok {
		m.AskingPrice = asking
		m.HasAsking = true
		m.Delta = rec.EstimatedPrice - asking
		m.DeltaPercent = m.Delta / asking * 100
	}

	if rec.MarketLow != nil && rec.MarketHigh != nil && *rec.MarketLow > 0 && *rec.MarketHigh > 0 {
		m.MarketLow, m.MarketHigh = *rec.MarketLow, *rec.MarketHigh
		if m.MarketLow > m.MarketHigh {
			m.MarketLow, m.MarketHigh = m.MarketHigh, m.MarketLow
		}
		m.MarketFromBackend = true
	} else {
		m.MarketLow = rec.EstimatedPrice * (1 - MarketBandFraction)
		m.MarketHigh = rec.EstimatedPrice * (1 + MarketBandFraction)
	}

	return m
}
