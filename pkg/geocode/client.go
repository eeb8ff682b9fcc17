// Package geocode provides place search and reverse lookup against a
// Nominatim server, plus coordinate extraction from map links.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/property-cli/internal/resilience"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "property-cli/1.0 (property analysis location picker)"
	defaultCacheTTL  = time.Hour
)

// ErrNoResult is returned by Reverse when nothing is found at the point.
var ErrNoResult = errors.New("geocode: no result")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether p lies within latitude/longitude bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Orb returns p as an orb point (lon, lat order).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lon)
}

// Place is one geocoding result.
type Place struct {
	PlaceID     int64   `json:"place_id"`
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name,omitempty"`
	Category    string  `json:"category,omitempty"`
	Type        string  `json:"type,omitempty"`
	Importance  float64 `json:"importance,omitempty"`
	Point       Point   `json:"point"`
	City        string  `json:"city,omitempty"`
	District    string  `json:"district,omitempty"`
	Country     string  `json:"country,omitempty"`
	Postcode    string  `json:"postcode,omitempty"`
}

// Client looks up places.
type Client interface {
	// Search finds places matching a free-text query.
	Search(ctx context.Context, query string) ([]Place, error)

	// Reverse returns the place at a point.
	Reverse(ctx context.Context, p Point) (*Place, error)
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL sets the Nominatim server.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires an identifying agent.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithCountryCodes restricts search results to ISO 3166-1 alpha-2 codes.
func WithCountryCodes(codes ...string) Option {
	return func(g *geocoder) {
		g.countryCodes = codes
	}
}

// WithSearchLimit caps the number of search results.
func WithSearchLimit(n int) Option {
	return func(g *geocoder) {
		g.searchLimit = n
	}
}

// WithRetry sets how transient failures (429, 5xx, timeouts) are retried.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *geocoder) {
		g.retry = cfg
	}
}

// WithCache sets the result cache. A nil cache disables caching.
func WithCache(c *Cache) Option {
	return func(g *geocoder) {
		g.cache = c
	}
}

type geocoder struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	limiter      *rate.Limiter
	countryCodes []string
	searchLimit  int
	cache        *Cache
	retry        resilience.RetryConfig
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		userAgent:   defaultUserAgent,
		limiter:     rate.NewLimiter(1, 1), // Nominatim policy: 1 req/s
		searchLimit: 5,
		cache:       NewCache(500, defaultCacheTTL),
		retry:       resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *geocoder) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	key := cacheKey("search", strings.ToLower(query), strings.Join(g.countryCodes, ","), strconv.Itoa(g.searchLimit))
	if places, ok := g.cache.Get(key); ok {
		return places, nil
	}

	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"limit":          {strconv.Itoa(g.searchLimit)},
	}
	if len(g.countryCodes) > 0 {
		params.Set("countrycodes", strings.Join(g.countryCodes, ","))
	}

	body, err := g.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, eris.New("geocode: search: invalid response")
	}

	var places []Place
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		places = append(places, parsePlace(v))
		return true
	})

	g.cache.Put(key, places)
	return places, nil
}

func (g *geocoder) Reverse(ctx context.Context, p Point) (*Place, error) {
	if !p.Valid() {
		return nil, eris.Errorf("geocode: reverse: invalid point %s", p)
	}

	key := cacheKey("reverse", fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lon))
	if places, ok := g.cache.Get(key); ok {
		if len(places) == 0 {
			return nil, ErrNoResult
		}
		place := places[0]
		return &place, nil
	}

	params := url.Values{
		"lat":            {strconv.FormatFloat(p.Lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(p.Lon, 'f', -1, 64)},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
	}
	body, err := g.get(ctx, "/reverse", params)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, eris.New("geocode: reverse: invalid response")
	}

	res := gjson.ParseBytes(body)
	if res.Get("error").Exists() {
		zap.L().Debug("geocode: reverse: no result",
			zap.Float64("lat", p.Lat),
			zap.Float64("lon", p.Lon),
			zap.String("error", res.Get("error").String()),
		)
		g.cache.Put(key, nil)
		return nil, ErrNoResult
	}

	place := parsePlace(res)
	g.cache.Put(key, []Place{place})
	return &place, nil
}

func (g *geocoder) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("nominatim", path)
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return g.getOnce(ctx, path, params)
	})
}

func (g *geocoder) getOnce(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	reqURL := g.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: request %s", path)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.FromResponse(eris.Errorf("geocode: %s returned status %d", path, resp.StatusCode), resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}
	return body, nil
}

// parsePlace reads a jsonv2 place. Nominatim sends coordinates as strings.
func parsePlace(v gjson.Result) Place {
	addr := v.Get("address")
	return Place{
		PlaceID:     v.Get("place_id").Int(),
		DisplayName: v.Get("display_name").String(),
		Name:        v.Get("name").String(),
		Category:    firstNonEmpty(v.Get("category").String(), v.Get("class").String()),
		Type:        v.Get("type").String(),
		Importance:  v.Get("importance").Float(),
		Point:       Point{Lat: v.Get("lat").Float(), Lon: v.Get("lon").Float()},
		City: firstNonEmpty(
			addr.Get("city").String(),
			addr.Get("town").String(),
			addr.Get("village").String(),
			addr.Get("municipality").String(),
			addr.Get("suburb").String(),
		),
		District: strings.TrimSuffix(firstNonEmpty(addr.Get("state_district").String(), addr.Get("county").String()), " District"),
		Country:  addr.Get("country").String(),
		Postcode: addr.Get("postcode").String(),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
