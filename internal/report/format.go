package report

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// Money formats an amount with thousands separators, rounded to whole units.
func Money(currency string, v float64) string {
	return newPrinter().Sprintf("%s %d", currency, int64(math.Round(v)))
}

// SignedMoney is Money with an explicit sign.
func SignedMoney(currency string, v float64) string {
	if v > 0 {
		return "+" + Money(currency, v)
	}
	if v < 0 {
		return "-" + Money(currency, -v)
	}
	return Money(currency, 0)
}

// Percent formats a [0,1] value as a whole percentage.
func Percent(v float64) string {
	return newPrinter().Sprintf("%d%%", int64(math.Round(v*100)))
}

// SignedPercent formats an already-percent value with one decimal and sign.
func SignedPercent(v float64) string {
	if v > 0 {
		return newPrinter().Sprintf("+%.1f%%", v)
	}
	return newPrinter().Sprintf("%.1f%%", v)
}

// Number formats a value with thousands separators and no decimals.
func Number(v float64) string {
	return newPrinter().Sprintf("%d", int64(math.Round(v)))
}

// Label turns a backend key like "schools_nearby" into "Schools Nearby".
func Label(key string) string {
	key = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(key))
	return cases.Title(language.English).String(key)
}

// MetricValue formats a free-form backend metric value.
func MetricValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return orDash(x)
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return Number(x)
		}
		return strconv.FormatFloat(x, 'f', 2, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, MetricValue(e))
		}
		return strings.Join(parts, ", ")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "-"
	}
	return string(b)
}

// Factor formats a price multiplier such as 1.15 as "1.15x".
func Factor(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "x"
}
