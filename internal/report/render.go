package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/property-cli/internal/derive"
	"github.com/sells-group/property-cli/internal/model"
)

// DefaultFacilityCap is how many facilities are listed per category.
const DefaultFacilityCap = 5

// document renders one record onto a canvas.
type document struct {
	l           *layout
	rec         model.AnalysisRecord
	entry       *model.HistoryEntry
	metrics     derive.Metrics
	facilityCap int
	generated   time.Time
}

// render draws every section and the page footers.
func render(c Canvas, rec model.AnalysisRecord, entry *model.HistoryEntry, facilityCap int, now time.Time) {
	if facilityCap <= 0 {
		facilityCap = DefaultFacilityCap
	}
	d := &document{
		l:           newLayout(c),
		rec:         rec,
		entry:       entry,
		metrics:     derive.Derive(rec),
		facilityCap: facilityCap,
		generated:   now,
	}
	d.header()
	d.queryInfo()
	d.keyMetrics()
	d.pricing()
	d.summary()
	d.location()
	d.provenance()
	footers(c, rec.ID)
}

func (d *document) header() {
	d.l.title("Property Analysis Report")
	d.l.line(MarginLeft, "Generated "+d.generated.Format("2 Jan 2006 15:04 MST"), StyleRegular, sizeSmall, colorMuted)
	if d.rec.ID != "" {
		d.l.line(MarginLeft, "Report ID: "+d.rec.ID, StyleRegular, sizeSmall, colorMuted)
	}
	d.l.space(2)
	d.l.rule()
}

func (d *document) queryText() string {
	if t := strings.TrimSpace(d.rec.QueryText); t != "" {
		return t
	}
	if d.entry != nil {
		return strings.TrimSpace(d.entry.QueryText)
	}
	return ""
}

func (d *document) queryInfo() {
	d.l.heading("Property Details")
	if q := d.queryText(); q != "" {
		d.l.paragraph(MarginLeft, q, StyleItalic, sizeBody, colorBody)
		d.l.space(1.5)
	}

	f := model.Features{}
	if d.rec.Features != nil {
		f = *d.rec.Features
	}
	city := f.City
	if city == "" && d.entry != nil {
		city = d.entry.City
	}
	if city != "" {
		if f.District != "" && !strings.EqualFold(f.District, city) {
			city += ", " + f.District
		}
		d.l.keyValue("Location", city)
	}
	if lat, lon, ok := d.coordinates(f); ok {
		d.l.keyValue("Coordinates", fmt.Sprintf("%.5f, %.5f", lat, lon))
	}
	if size := propertySize(f); size != "" {
		d.l.keyValue("Property", size)
	}
	if f.YearBuilt != nil {
		d.l.keyValue("Year built", strconv.Itoa(*f.YearBuilt))
	}
	if d.metrics.HasAsking {
		d.l.keyValue("Asking price", Money(d.metrics.Currency, d.metrics.AskingPrice))
	}
	tags := f.Tags
	if len(tags) == 0 && d.entry != nil {
		tags = d.entry.Tags
	}
	if len(tags) > 0 {
		d.l.keyValue("Tags", strings.Join(tags, ", "))
	}
}

func (d *document) coordinates(f model.Features) (float64, float64, bool) {
	if f.HasLocation() {
		return *f.Lat, *f.Lon, true
	}
	if d.entry != nil && d.entry.Lat != nil && d.entry.Lon != nil {
		return *d.entry.Lat, *d.entry.Lon, true
	}
	return 0, 0, false
}

func propertySize(f model.Features) string {
	var parts []string
	if f.Beds != nil {
		parts = append(parts, plural(*f.Beds, "bed"))
	}
	if f.Baths != nil {
		parts = append(parts, plural(*f.Baths, "bath"))
	}
	if f.Area != nil && *f.Area > 0 {
		parts = append(parts, Number(*f.Area)+" sq ft")
	}
	return strings.Join(parts, " | ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func (d *document) keyMetrics() {
	d.l.heading("Key Metrics")
	m := d.metrics
	verdict := string(d.rec.DealVerdict)
	if verdict == "" {
		verdict = "Unknown"
	}
	d.l.blocks([]metric{
		{label: "Estimated price", value: Money(m.Currency, m.EstimatedPrice), tone: ToneSlate},
		{label: "Location score", value: Percent(m.LocationScore), tone: ScoreTone(m.LocationScore)},
		{label: "Deal verdict", value: verdict, tone: VerdictTone(d.rec.DealVerdict)},
		{label: "Confidence", value: Percent(m.Confidence), tone: ScoreTone(m.Confidence)},
	})
}

// pricing is omitted entirely without a positive asking price.
func (d *document) pricing() {
	m := d.metrics
	if !m.HasAsking {
		return
	}
	d.l.heading("Pricing Breakdown")
	d.l.keyValue("Asking price", Money(m.Currency, m.AskingPrice))
	d.l.keyValue("Estimated price", Money(m.Currency, m.EstimatedPrice))

	diff := SignedMoney(m.Currency, m.Delta) + " (" + SignedPercent(m.DeltaPercent) + ")"
	switch {
	case m.Underpriced():
		diff += ", asking is below the estimate"
	case m.Delta < 0:
		diff += ", asking is above the estimate"
	}
	d.l.keyValue("Difference", diff)

	if m.HasPricePerArea {
		d.l.keyValue("Price per sq ft", Money(m.Currency, m.PricePerArea))
	}
	band := Money(m.Currency, m.MarketLow) + " - " + Money(m.Currency, m.MarketHigh)
	if !m.MarketFromBackend {
		band += " (estimate +/-10%)"
	}
	d.l.keyValue("Market range", band)
	if r := strings.TrimSpace(d.rec.MarketRangeRationale); r != "" {
		d.l.space(1)
		d.l.paragraph(MarginLeft, r, StyleRegular, sizeSmall, colorMuted)
	}
}

func (d *document) summary() {
	d.l.heading("Analysis Summary")
	why := strings.TrimSpace(d.rec.Why)
	if why == "" {
		why = "No explanation was provided."
	}
	d.l.paragraph(MarginLeft, why, StyleRegular, sizeBody, colorBody)

	if r := strings.TrimSpace(d.rec.DealRecommendation); r != "" {
		d.l.subheading("Recommendation")
		d.l.paragraph(MarginLeft, r, StyleRegular, sizeBody, colorBody)
	}
	if names := d.rec.KeyMetricNames(); len(names) > 0 {
		d.l.subheading("Deal Key Metrics")
		for _, k := range names {
			d.l.keyValue(Label(k), MetricValue(d.rec.DealKeyMetrics[k]))
		}
	}
	if len(d.rec.DealRiskFlags) > 0 {
		d.l.subheading("Risk Flags")
		for _, f := range d.rec.DealRiskFlags {
			d.l.bullet(f, ToneRed.Text)
		}
	}
	if e := strings.TrimSpace(d.rec.LLMExplanation); e != "" {
		d.l.subheading("Detailed Explanation")
		d.l.paragraph(MarginLeft, e, StyleRegular, sizeBody, colorBody)
	}
	if a := d.rec.LandAnalysis(); a != "" {
		d.l.subheading("Land Analysis")
		d.l.paragraph(MarginLeft, a, StyleRegular, sizeBody, colorBody)
	}
}

// location covers the nested location analysis and the record-level
// location rationale; it is omitted when neither is present.
func (d *document) location() {
	loc := d.rec.Location
	rationale := strings.TrimSpace(d.rec.LocationRationale)
	if loc == nil && rationale == "" && d.rec.LocationFactor == nil {
		return
	}
	d.l.heading("Location Analysis")

	if loc != nil {
		risk := strings.TrimSpace(loc.RiskLevel)
		if risk == "" {
			risk = "unknown"
		}
		d.l.blocks([]metric{
			{label: "Location score", value: Percent(model.NormalizeScore(loc.Score)), tone: ScoreTone(loc.Score)},
			{label: "Risk level", value: Label(risk), tone: RiskTone(loc.RiskLevel)},
		})
		if s := strings.TrimSpace(loc.Summary); s != "" {
			d.l.paragraph(MarginLeft, s, StyleRegular, sizeBody, colorBody)
		}
	}
	if f := d.rec.LocationFactor; f != nil {
		d.l.keyValue("Price factor", Factor(*f))
	}
	if rationale != "" {
		d.l.subheading("Location Rationale")
		d.l.paragraph(MarginLeft, rationale, StyleRegular, sizeBody, colorBody)
	}
	if loc == nil {
		return
	}

	if len(loc.RiskFactors) > 0 {
		d.l.subheading("Risk Factors")
		for _, f := range loc.RiskFactors {
			d.l.bullet(f, colorBody)
		}
	}

	cats := loc.FacilityCategories()
	if len(cats) == 0 {
		return
	}
	d.l.subheading("Nearby Facilities")
	for _, cat := range cats {
		items := loc.Facilities[cat]
		d.l.space(1)
		d.l.ensure(2 * lineHeight(sizeBody))
		d.l.line(MarginLeft, fmt.Sprintf("%s (%d)", Label(cat), len(items)), StyleBold, sizeBody, colorBody)
		for i, f := range items {
			if i == d.facilityCap {
				d.l.line(MarginLeft+2*indent, fmt.Sprintf("+%d more", len(items)-d.facilityCap), StyleItalic, sizeBody, colorMuted)
				break
			}
			d.l.bullet(facilityLine(f), colorBody)
		}
	}
}

func facilityLine(f model.Facility) string {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		name = "Unnamed"
	}
	if f.DistanceKM != nil {
		return fmt.Sprintf("%s (%.1f km)", name, *f.DistanceKM)
	}
	return name
}

func (d *document) provenance() {
	d.l.heading("Sources")
	if len(d.rec.Provenance) == 0 {
		d.l.line(MarginLeft, "No sources provided.", StyleItalic, sizeBody, colorMuted)
		return
	}
	for i, p := range d.rec.Provenance {
		if i > 0 {
			d.l.space(1)
		}
		d.l.paragraph(MarginLeft, fmt.Sprintf("%d. %s", i+1, p.Title), StyleBold, sizeBody, colorBody)
		if s := strings.TrimSpace(p.Snippet); s != "" {
			d.l.paragraph(MarginLeft+indent, s, StyleRegular, sizeSmall, colorMuted)
		}
		if p.Link != "" {
			d.l.link(MarginLeft+indent, p.Link)
		}
	}
}

// footers writes "Page i of N" on every page once the page count is known.
func footers(c Canvas, id string) {
	n := c.PageCount()
	for i := 1; i <= n; i++ {
		c.SetPage(i)
		c.SetFont(StyleRegular, sizeSmall)
		c.SetTextColor(colorMuted)
		if id != "" {
			c.Text(MarginLeft, FooterY, Filename(id))
		}
		label := fmt.Sprintf("Page %d of %d", i, n)
		c.Text(PageWidth-MarginLeft-c.TextWidth(label), FooterY, label)
	}
}
