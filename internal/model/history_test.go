package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_Layouts(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)
	for _, raw := range []string{
		`"2024-05-01T10:20:30Z"`,
		`"2024-05-01T10:20:30"`,
		`"2024-05-01 10:20:30"`,
		`"2024-05-01T15:50:30+05:30"`,
	} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts), raw)
		assert.True(t, want.Equal(ts.Time), raw)
	}
}

func TestTimestamp_Fractional(t *testing.T) {
	t.Parallel()

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01T10:20:30.123456"`), &ts))
	assert.Equal(t, 123456000, ts.Nanosecond())
}

func TestTimestamp_NullAndInvalid(t *testing.T) {
	t.Parallel()

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())

	err := json.Unmarshal([]byte(`"yesterday"`), &ts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized timestamp")
}

func TestHistoryEntry_Decode(t *testing.T) {
	t.Parallel()

	raw := `[{"id":"a1","query_text":"3 bed house in Kandy","city":"Kandy","tags":["garden"],"lat":7.29,"lon":80.63,"created_at":"2024-06-01T08:00:00.5","has_response":true}]`

	var entries []HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Kandy", entries[0].City)
	assert.True(t, entries[0].HasResponse)
	require.NotNil(t, entries[0].Lat)
	assert.InDelta(t, 7.29, *entries[0].Lat, 0.0001)
	assert.Equal(t, 2024, entries[0].CreatedAt.Year())

	out, err := json.Marshal(entries[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"created_at":"2024-06-01T08:00:00Z"`)
}
