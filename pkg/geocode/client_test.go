package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-cli/internal/resilience"
)

const searchJSON = `[
  {"place_id": 101, "lat": "7.2906", "lon": "80.6337", "category": "boundary", "type": "administrative",
   "importance": 0.61, "name": "Kandy", "display_name": "Kandy, Central Province, Sri Lanka",
   "address": {"city": "Kandy", "state_district": "Kandy District", "state": "Central Province", "country": "Sri Lanka", "postcode": "20000"}},
  {"place_id": 102, "lat": "7.3", "lon": "80.64", "class": "place", "type": "suburb",
   "display_name": "Katugastota, Sri Lanka", "address": {"suburb": "Katugastota", "county": "Kandy"}}
]`

const reverseJSON = `{"place_id": 7, "lat": "6.9271", "lon": "79.8612", "category": "highway", "type": "primary",
  "name": "Galle Road", "display_name": "Galle Road, Colombo 03, Colombo, Western Province, Sri Lanka",
  "address": {"road": "Galle Road", "town": "Colombo", "county": "Colombo", "country": "Sri Lanka"}}`

func newTestGeocoder(t *testing.T, handler http.HandlerFunc, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewClient(append([]Option{WithBaseURL(srv.URL)}, opts...)...).(*geocoder)
	g.limiter = newTestLimiter()
	g.retry = resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	return g
}

func TestSearch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Kandy", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "lk", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(searchJSON))
	}, WithUserAgent("test-agent/1.0"), WithCountryCodes("lk"), WithSearchLimit(3))

	places, err := c.Search(context.Background(), "  Kandy ")
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Equal(t, int64(101), places[0].PlaceID)
	assert.InDelta(t, 7.2906, places[0].Point.Lat, 1e-9)
	assert.InDelta(t, 80.6337, places[0].Point.Lon, 1e-9)
	assert.Equal(t, "Kandy", places[0].City)
	assert.Equal(t, "Kandy", places[0].District)
	assert.Equal(t, "boundary", places[0].Category)
	assert.Equal(t, "20000", places[0].Postcode)

	assert.Equal(t, "Katugastota", places[1].City)
	assert.Equal(t, "place", places[1].Category)

	// Same query (case-insensitive) is served from cache.
	again, err := c.Search(context.Background(), "kandy")
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_EmptyQuery(t *testing.T) {
	t.Parallel()

	c := newTestGeocoder(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	places, err := c.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestSearch_ServerError(t *testing.T) {
	t.Parallel()

	c := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Search(context.Background(), "Galle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSearch_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(searchJSON))
	})
	places, err := c.Search(context.Background(), "Kandy")
	require.NoError(t, err)
	assert.Len(t, places, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_NoRetryOnClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.Search(context.Background(), "Kandy")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReverse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "6.9271", r.URL.Query().Get("lat"))
		assert.Equal(t, "79.8612", r.URL.Query().Get("lon"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(reverseJSON))
	})

	place, err := c.Reverse(context.Background(), Point{Lat: 6.9271, Lon: 79.8612})
	require.NoError(t, err)
	assert.Equal(t, "Galle Road", place.Name)
	assert.Equal(t, "Colombo", place.City)
	assert.Equal(t, "Colombo", place.District)

	_, err = c.Reverse(context.Background(), Point{Lat: 6.9271, Lon: 79.8612})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReverse_NoResult(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	})

	_, err := c.Reverse(context.Background(), Point{Lat: 0, Lon: -150})
	require.ErrorIs(t, err, ErrNoResult)

	_, err = c.Reverse(context.Background(), Point{Lat: 0, Lon: -150})
	require.ErrorIs(t, err, ErrNoResult)
	assert.Equal(t, int32(1), calls.Load(), "misses are cached")
}

func TestReverse_InvalidPoint(t *testing.T) {
	t.Parallel()

	c := NewClient()
	_, err := c.Reverse(context.Background(), Point{Lat: 91, Lon: 0})
	require.Error(t, err)
}

func TestDefaultBaseURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	redirect := newNominatimRedirect(t, srv.URL)
	c := NewClient(
		WithHTTPClient(redirect.client()),
		WithRateLimit(1000),
	)
	places, err := c.Search(context.Background(), "Jaffna")
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.Equal(t, []string{"nominatim.openstreetmap.org"}, redirect.requestedHosts())
}
