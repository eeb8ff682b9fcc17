package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/property-cli/internal/model"
)

func TestScoreTone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v    float64
		want Tone
	}{
		{1, ToneGreen},
		{0.70, ToneGreen},
		{0.6999, ToneAmber},
		{0.40, ToneAmber},
		{0.3999, ToneRed},
		{0, ToneRed},
		{85, ToneGreen},
		{55, ToneAmber},
		{12, ToneRed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreTone(tt.v), "%v", tt.v)
	}
}

func TestVerdictTone(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ToneGreen, VerdictTone(model.VerdictGoodDeal))
	assert.Equal(t, ToneGreen, VerdictTone("good deal"))
	assert.Equal(t, ToneAmber, VerdictTone(model.VerdictFair))
	assert.Equal(t, ToneRed, VerdictTone(model.VerdictOverpriced))
	assert.Equal(t, ToneRed, VerdictTone(""))
}

func TestRiskTone(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ToneGreen, RiskTone("low"))
	assert.Equal(t, ToneGreen, RiskTone(" Low "))
	assert.Equal(t, ToneAmber, RiskTone("medium"))
	assert.Equal(t, ToneAmber, RiskTone("Moderate"))
	assert.Equal(t, ToneRed, RiskTone("high"))
	assert.Equal(t, ToneRed, RiskTone(""))
}

func TestToneColours(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Color{220, 252, 231}, ToneGreen.Bg)
	assert.Equal(t, Color{22, 101, 52}, ToneGreen.Text)
	assert.Equal(t, Color{254, 243, 199}, ToneAmber.Bg)
	assert.Equal(t, Color{146, 64, 14}, ToneAmber.Text)
	assert.Equal(t, Color{254, 226, 226}, ToneRed.Bg)
	assert.Equal(t, Color{153, 27, 27}, ToneRed.Text)
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "LKR 25,000,000", Money("LKR", 25_000_000))
	assert.Equal(t, "LKR 1,235", Money("LKR", 1234.6))
	assert.Equal(t, "+LKR 500", SignedMoney("LKR", 500))
	assert.Equal(t, "-LKR 2,000,000", SignedMoney("LKR", -2_000_000))
	assert.Equal(t, "LKR 0", SignedMoney("LKR", 0))
	assert.Equal(t, "72%", Percent(0.72))
	assert.Equal(t, "+8.3%", SignedPercent(8.333))
	assert.Equal(t, "-20.0%", SignedPercent(-20))
	assert.Equal(t, "Schools Nearby", Label("schools_nearby"))
	assert.Equal(t, "Moderate", Label("moderate"))
}

func TestMetricValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{nil, "-"},
		{"", "-"},
		{"strong", "strong"},
		{true, "Yes"},
		{false, "No"},
		{float64(2500000), "2,500,000"},
		{0.126, "0.13"},
		{[]any{"a", float64(2)}, "a, 2"},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MetricValue(tt.in), "%v", tt.in)
	}
	assert.Equal(t, "1.15x", Factor(1.15))
}
