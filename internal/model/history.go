package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// timestampLayouts are the formats the backend emits for created_at. Python's
// isoformat omits the zone for naive UTC datetimes.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp is a time that tolerates zone-less ISO-8601 strings (read as UTC).
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses the accepted layouts; null and "" leave the zero time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return eris.Errorf("model: unrecognized timestamp %q", s)
}

// MarshalJSON writes RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

// HistoryEntry is the list projection of an AnalysisRecord.
type HistoryEntry struct {
	ID          string    `json:"id"`
	QueryText   string    `json:"query_text"`
	City        string    `json:"city,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
	HasResponse bool      `json:"has_response"`
}

// DeleteResult is the backend acknowledgement of a history deletion.
type DeleteResult struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}
