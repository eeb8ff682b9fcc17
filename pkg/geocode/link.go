package geocode

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Google Maps viewport: .../@6.9271,79.8612,15z
	googleAtPattern = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)
	// Google Maps place pin inside the data parameter: !3d6.9271!4d79.8612
	googlePinPattern = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)
	// A bare "lat,lon" pair, as used by q=, query=, ll= and center=.
	pairPattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)
	// OpenStreetMap fragment: #map=16/6.9271/79.8612
	osmMapPattern = regexp.MustCompile(`map=\d+(?:\.\d+)?/(-?\d+(?:\.\d+)?)/(-?\d+(?:\.\d+)?)`)
)

// pairParams are query parameters that carry a "lat,lon" pair.
var pairParams = []string{"q", "query", "ll", "center", "destination"}

// ExtractCoordinates reads a point from a pasted map link or a plain
// "lat, lon" pair. Google Maps (@lat,lon, !3d..!4d.., q=lat,lon) and
// OpenStreetMap (#map=z/lat/lon, mlat/mlon) links are understood. It returns
// false when no coordinates are found or they are out of range.
func ExtractCoordinates(link string) (Point, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return Point{}, false
	}

	if p, ok := matchPair(pairPattern, link); ok {
		return p, true
	}

	decoded := link
	if d, err := url.QueryUnescape(link); err == nil {
		decoded = d
	}

	if p, ok := matchPair(googlePinPattern, decoded); ok {
		return p, true
	}
	if p, ok := matchPair(googleAtPattern, decoded); ok {
		return p, true
	}

	u, err := url.Parse(link)
	if err != nil {
		return Point{}, false
	}

	q := u.Query()
	for _, name := range pairParams {
		if v := q.Get(name); v != "" {
			if p, ok := matchPair(pairPattern, v); ok {
				return p, true
			}
		}
	}
	if lat, lon := q.Get("mlat"), q.Get("mlon"); lat != "" && lon != "" {
		if p, ok := parsePoint(lat, lon); ok {
			return p, true
		}
	}

	if p, ok := matchPair(osmMapPattern, u.Fragment); ok {
		return p, true
	}
	return Point{}, false
}

func matchPair(re *regexp.Regexp, s string) (Point, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return Point{}, false
	}
	return parsePoint(m[1], m[2])
}

func parsePoint(latStr, lonStr string) (Point, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Point{}, false
	}
	p := Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return Point{}, false
	}
	return p, true
}
