package model

import (
	"sort"
	"strings"
)

// DealVerdict is the backend's price competitiveness label.
type DealVerdict string

const (
	VerdictGoodDeal   DealVerdict = "Good Deal"
	VerdictFair       DealVerdict = "Fair"
	VerdictOverpriced DealVerdict = "Overpriced"
)

// DefaultCurrency is the currency the backend prices in when none is given.
const DefaultCurrency = "LKR"

// Features are the structured property attributes submitted with a query.
type Features struct {
	City        string   `json:"city,omitempty"`
	District    string   `json:"district,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Beds        *int     `json:"beds,omitempty"`
	Baths       *int     `json:"baths,omitempty"`
	Area        *float64 `json:"area,omitempty"`
	YearBuilt   *int     `json:"year_built,omitempty"`
	AskingPrice *float64 `json:"asking_price,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// HasLocation reports whether both coordinates are set.
func (f Features) HasLocation() bool {
	return f.Lat != nil && f.Lon != nil
}

// QueryRequest is the body of a property query submission.
type QueryRequest struct {
	Query    string   `json:"query"`
	Features Features `json:"features"`
}

// Facility is one nearby point of interest returned by location analysis.
type Facility struct {
	Name       string   `json:"name"`
	Type       string   `json:"type,omitempty"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
}

// LocationAnalysis is the optional nested location result of a record.
type LocationAnalysis struct {
	Score       float64               `json:"score"`
	RiskLevel   string                `json:"risk_level,omitempty"`
	RiskFactors []string              `json:"risk_factors,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Facilities  map[string][]Facility `json:"nearby_facilities,omitempty"`
}

// FacilityCategories returns the non-empty facility categories in name order.
func (l LocationAnalysis) FacilityCategories() []string {
	cats := make([]string, 0, len(l.Facilities))
	for k, v := range l.Facilities {
		if len(v) > 0 {
			cats = append(cats, k)
		}
	}
	sort.Strings(cats)
	return cats
}

// LocationRequest asks the backend to score a point.
type LocationRequest struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	City string  `json:"city,omitempty"`
}

// AnalysisRecord is the backend-computed result for one property query.
type AnalysisRecord struct {
	ID                   string            `json:"query_id"`
	ResponseID           string            `json:"response_id,omitempty"`
	QueryText            string            `json:"query_text,omitempty"`
	Features             *Features         `json:"features,omitempty"`
	EstimatedPrice       float64           `json:"estimated_price"`
	LocationScore        float64           `json:"location_score"`
	DealVerdict          DealVerdict       `json:"deal_verdict"`
	Confidence           float64           `json:"confidence"`
	Why                  string            `json:"why"`
	Provenance           Provenance        `json:"provenance"`
	Location             *LocationAnalysis `json:"location_analysis,omitempty"`
	Currency             string            `json:"currency,omitempty"`
	PricePerSqft         *float64          `json:"price_per_sqft,omitempty"`
	MarketLow            *float64          `json:"market_low,omitempty"`
	MarketHigh           *float64          `json:"market_high,omitempty"`
	MarketRangeRationale string            `json:"market_range_rationale,omitempty"`
	DealRiskFlags        []string          `json:"deal_risk_flags,omitempty"`
	DealRecommendation   string            `json:"deal_recommendation,omitempty"`
	LLMExplanation       string            `json:"llm_explanation,omitempty"`
	QuerySummary         string            `json:"query_summary,omitempty"`
	LocationFactor       *float64          `json:"location_factor,omitempty"`
	LocationRationale    string            `json:"location_rationale,omitempty"`
	DealKeyMetrics       map[string]any    `json:"deal_key_metrics,omitempty"`
	LandDetails          map[string]any    `json:"land_details,omitempty"`
	Entities             []Entity          `json:"entities,omitempty"`
	RetrievedContext     []map[string]any  `json:"retrieved_context,omitempty"`
	Plan                 PlanTier          `json:"plan,omitempty"`
	AnalysesRemaining    *int              `json:"analyses_remaining,omitempty"`
}

// Entity is a named entity picked out of the analysis text.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// KeyMetricNames returns the deal key metric names that carry a value, in
// name order.
func (r AnalysisRecord) KeyMetricNames() []string {
	names := make([]string, 0, len(r.DealKeyMetrics))
	for k, v := range r.DealKeyMetrics {
		if v != nil {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// LandAnalysis returns the narrative part of the land details, if any.
func (r AnalysisRecord) LandAnalysis() string {
	s, _ := r.LandDetails["land_analysis"].(string)
	return strings.TrimSpace(s)
}

// CurrencyCode returns the record currency or the backend default.
func (r AnalysisRecord) CurrencyCode() string {
	if c := strings.TrimSpace(r.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return DefaultCurrency
}

// AskingPrice returns the submitted asking price when it is positive.
func (r AnalysisRecord) AskingPrice() (float64, bool) {
	if r.Features == nil || r.Features.AskingPrice == nil || *r.Features.AskingPrice <= 0 {
		return 0, false
	}
	return *r.Features.AskingPrice, true
}

// NormalizeScore maps a score reported either as a fraction or a percentage
// onto [0,1].
func NormalizeScore(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
