package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/property-cli/internal/derive"
	"github.com/sells-group/property-cli/internal/model"
)

// FormatSummary generates a human-readable analysis summary for the
// terminal. entry may be nil.
func FormatSummary(rec model.AnalysisRecord, entry *model.HistoryEntry) string {
	var b strings.Builder
	m := derive.Derive(rec)

	query := rec.QueryText
	if query == "" && entry != nil {
		query = entry.QueryText
	}
	fmt.Fprintf(&b, "# Property Analysis: %s\n", rec.ID)
	if query != "" {
		fmt.Fprintf(&b, "Query: %s\n", query)
	}
	if rec.Features != nil && rec.Features.City != "" {
		fmt.Fprintf(&b, "City: %s\n", rec.Features.City)
	} else if entry != nil && entry.City != "" {
		fmt.Fprintf(&b, "City: %s\n", entry.City)
	}
	b.WriteString("\n")

	b.WriteString("## Key Metrics\n")
	fmt.Fprintf(&b, "- Estimated price: %s\n", Money(m.Currency, m.EstimatedPrice))
	fmt.Fprintf(&b, "- Location score: %s [%s]\n", Percent(m.LocationScore), ScoreTone(m.LocationScore).Name)
	fmt.Fprintf(&b, "- Deal verdict: %s [%s]\n", orDash(string(rec.DealVerdict)), VerdictTone(rec.DealVerdict).Name)
	fmt.Fprintf(&b, "- Confidence: %s [%s]\n\n", Percent(m.Confidence), ScoreTone(m.Confidence).Name)

	if m.HasAsking {
		b.WriteString("## Pricing\n")
		fmt.Fprintf(&b, "- Asking price: %s\n", Money(m.Currency, m.AskingPrice))
		fmt.Fprintf(&b, "- Difference: %s (%s)", SignedMoney(m.Currency, m.Delta), SignedPercent(m.DeltaPercent))
		if m.Underpriced() {
			b.WriteString(", asking is below the estimate")
		}
		b.WriteString("\n")
		if m.HasPricePerArea {
			fmt.Fprintf(&b, "- Price per sq ft: %s\n", Money(m.Currency, m.PricePerArea))
		}
		fmt.Fprintf(&b, "- Market range: %s - %s\n\n", Money(m.Currency, m.MarketLow), Money(m.Currency, m.MarketHigh))
	}

	b.WriteString("## Summary\n")
	if rec.Why != "" {
		b.WriteString(rec.Why + "\n")
	} else {
		b.WriteString("No explanation provided.\n")
	}
	if rec.DealRecommendation != "" {
		fmt.Fprintf(&b, "\nRecommendation: %s\n", rec.DealRecommendation)
	}
	if names := rec.KeyMetricNames(); len(names) > 0 {
		b.WriteString("\nKey metrics:\n")
		for _, k := range names {
			fmt.Fprintf(&b, "- %s: %s\n", Label(k), MetricValue(rec.DealKeyMetrics[k]))
		}
	}
	for _, f := range rec.DealRiskFlags {
		fmt.Fprintf(&b, "- Risk: %s\n", f)
	}
	b.WriteString("\n")

	rationale := strings.TrimSpace(rec.LocationRationale)
	if loc := rec.Location; loc != nil || rationale != "" || rec.LocationFactor != nil {
		b.WriteString("## Location\n")
		if loc != nil {
			fmt.Fprintf(&b, "- Score: %s\n", Percent(model.NormalizeScore(loc.Score)))
			fmt.Fprintf(&b, "- Risk level: %s [%s]\n", orDash(loc.RiskLevel), RiskTone(loc.RiskLevel).Name)
			for _, cat := range loc.FacilityCategories() {
				fmt.Fprintf(&b, "- %s: %d nearby\n", Label(cat), len(loc.Facilities[cat]))
			}
		}
		if rec.LocationFactor != nil {
			fmt.Fprintf(&b, "- Price factor: %s\n", Factor(*rec.LocationFactor))
		}
		if rationale != "" {
			fmt.Fprintf(&b, "Rationale: %s\n", rationale)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Sources\n")
	if len(rec.Provenance) == 0 {
		b.WriteString("No sources provided.\n")
	}
	for _, p := range rec.Provenance {
		if p.Link != "" {
			fmt.Fprintf(&b, "- %s <%s>\n", p.Title, p.Link)
		} else {
			fmt.Fprintf(&b, "- %s\n", p.Title)
		}
	}

	if rec.AnalysesRemaining != nil {
		fmt.Fprintf(&b, "\nAnalyses remaining: %d\n", *rec.AnalysesRemaining)
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
