package report

import (
	"strings"

	"github.com/sells-group/property-cli/internal/model"
)

// Color is an RGB colour.
type Color struct {
	R, G, B int
}

// Tone is the background and text colour pair of a metric block.
type Tone struct {
	Name string
	Bg   Color
	Text Color
}

var (
	ToneGreen = Tone{Name: "green", Bg: Color{220, 252, 231}, Text: Color{22, 101, 52}}
	ToneAmber = Tone{Name: "amber", Bg: Color{254, 243, 199}, Text: Color{146, 64, 14}}
	ToneRed   = Tone{Name: "red", Bg: Color{254, 226, 226}, Text: Color{153, 27, 27}}
	ToneSlate = Tone{Name: "slate", Bg: Color{241, 245, 249}, Text: Color{30, 41, 59}}
)

// Score thresholds on the [0,1] scale.
const (
	GoodScore = 0.70
	FairScore = 0.40
)

// ScoreTone colours a score or confidence. Percent-scale values are
// normalized first.
func ScoreTone(v float64) Tone {
	v = model.NormalizeScore(v)
	switch {
	case v >= GoodScore:
		return ToneGreen
	case v >= FairScore:
		return ToneAmber
	}
	return ToneRed
}

// VerdictTone colours a deal verdict.
func VerdictTone(v model.DealVerdict) Tone {
	switch strings.ToLower(strings.TrimSpace(string(v))) {
	case "good deal":
		return ToneGreen
	case "fair":
		return ToneAmber
	}
	return ToneRed
}

// RiskTone colours a location risk level.
func RiskTone(level string) Tone {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return ToneGreen
	case "medium", "moderate":
		return ToneAmber
	}
	return ToneRed
}
