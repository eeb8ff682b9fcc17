// Package form validates and assembles property query submissions.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/pkg/geocode"
)

// Field bounds enforced before submission.
const (
	MaxQueryLength = 10000
	MaxRooms       = 20
	MaxArea        = 100000
	MinYearBuilt   = 1800
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every invalid field of a submission.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "form: invalid input: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validator checks query features.
type Validator struct {
	cities  map[string]struct{}
	maxYear int
}

// NewValidator creates a Validator that accepts the built-in Sri Lanka city
// list plus extra.
func NewValidator(extra ...string) *Validator {
	v := &Validator{
		cities:  make(map[string]struct{}, len(sriLankaCities)+len(extra)),
		maxYear: time.Now().Year() + 5,
	}
	for _, c := range sriLankaCities {
		v.cities[c] = struct{}{}
	}
	for _, c := range extra {
		if c = normalizeCity(c); c != "" {
			v.cities[c] = struct{}{}
		}
	}
	return v
}

// KnownCity reports whether name is on the city list, ignoring case and
// surrounding whitespace.
func (v *Validator) KnownCity(name string) bool {
	_, ok := v.cities[normalizeCity(name)]
	return ok
}

// Cities returns the accepted city names in title case, sorted.
func (v *Validator) Cities() []string {
	out := make([]string, 0, len(v.cities))
	for c := range v.cities {
		out = append(out, titleCase(c))
	}
	sort.Strings(out)
	return out
}

// citiesLike returns up to n known cities sharing the first three letters
// of name.
func (v *Validator) citiesLike(name string, n int) []string {
	key := normalizeCity(name)
	if r := []rune(key); len(r) > 3 {
		key = string(r[:3])
	}
	if key == "" {
		return nil
	}
	var out []string
	for _, c := range v.Cities() {
		if strings.HasPrefix(strings.ToLower(c), key) {
			out = append(out, c)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// Validate checks f. City and asking price are required. An unrecognized
// city is accepted when coordinates are supplied, since a reverse-geocoded
// suburb name is rarely on the list. Returns a *ValidationError listing every
// problem, or nil.
func (v *Validator) Validate(f model.Features) error {
	verr := &ValidationError{}

	city := strings.TrimSpace(f.City)
	switch {
	case city == "":
		verr.add("city", "required")
	case !v.KnownCity(city) && !f.HasLocation():
		msg := fmt.Sprintf("%q is not a recognized city; pick a location on the map to use it", city)
		if like := v.citiesLike(city, 5); len(like) > 0 {
			msg += " (did you mean " + strings.Join(like, ", ") + "?)"
		}
		verr.add("city", "%s", msg)
	}

	if f.AskingPrice == nil {
		verr.add("asking_price", "required")
	} else if *f.AskingPrice <= 0 {
		verr.add("asking_price", "must be greater than 0")
	}

	if (f.Lat == nil) != (f.Lon == nil) {
		verr.add("location", "latitude and longitude must be given together")
	}
	if f.Lat != nil && (*f.Lat < -90 || *f.Lat > 90) {
		verr.add("lat", "must be between -90 and 90")
	}
	if f.Lon != nil && (*f.Lon < -180 || *f.Lon > 180) {
		verr.add("lon", "must be between -180 and 180")
	}
	if f.Beds != nil && (*f.Beds < 0 || *f.Beds > MaxRooms) {
		verr.add("beds", "must be between 0 and %d", MaxRooms)
	}
	if f.Baths != nil && (*f.Baths < 0 || *f.Baths > MaxRooms) {
		verr.add("baths", "must be between 0 and %d", MaxRooms)
	}
	if f.Area != nil && (*f.Area <= 0 || *f.Area > MaxArea) {
		verr.add("area", "must be greater than 0 and at most %d", MaxArea)
	}
	if f.YearBuilt != nil && (*f.YearBuilt < MinYearBuilt || *f.YearBuilt > v.maxYear) {
		verr.add("year_built", "must be between %d and %d", MinYearBuilt, v.maxYear)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Normalize returns f with the city title-cased and tags trimmed,
// lower-cased and de-duplicated in first-seen order.
func (v *Validator) Normalize(f model.Features) model.Features {
	if city := strings.TrimSpace(f.City); city != "" {
		f.City = titleCase(city)
	}
	f.District = strings.TrimSpace(f.District)
	f.Tags = ParseTags(strings.Join(f.Tags, ","))
	return f
}

// BuildRequest validates and assembles a query submission.
func (v *Validator) BuildRequest(query string, f model.Features) (model.QueryRequest, error) {
	query = strings.TrimSpace(query)
	verr := &ValidationError{}
	if query == "" {
		verr.add("query", "required")
	} else if len(query) > MaxQueryLength {
		verr.add("query", "must be at most %d characters", MaxQueryLength)
	}
	if err := v.Validate(f); err != nil {
		var fe *ValidationError
		if errors.As(err, &fe) {
			verr.Fields = append(verr.Fields, fe.Fields...)
		}
	}
	if len(verr.Fields) > 0 {
		return model.QueryRequest{}, verr
	}
	return model.QueryRequest{Query: query, Features: v.Normalize(f)}, nil
}

// ApplyLink sets the coordinates in f from a pasted map link.
func ApplyLink(f *model.Features, link string) error {
	p, ok := geocode.ExtractCoordinates(link)
	if !ok {
		return eris.Errorf("form: no coordinates found in %q", link)
	}
	lat, lon := p.Lat, p.Lon
	f.Lat, f.Lon = &lat, &lon
	return nil
}

// ParseTags splits a comma separated tag list.
func ParseTags(s string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(s, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

func normalizeCity(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}
