package model

import (
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultProvenanceTitle is used when a citation carries no usable title.
const DefaultProvenanceTitle = "Source"

var (
	provenanceTitleKeys   = []string{"title", "name", "doc_id", "source"}
	provenanceSnippetKeys = []string{"snippet", "summary", "text", "description"}
	provenanceLinkKeys    = []string{"link", "url", "href"}
)

// ProvenanceItem is the canonical form of a citation attached to an analysis.
type ProvenanceItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// UnmarshalJSON accepts every citation shape the backend has produced and
// never returns an error.
func (p *ProvenanceItem) UnmarshalJSON(data []byte) error {
	*p = NormalizeProvenance(gjson.ParseBytes(data))
	return nil
}

// Provenance is a list of citations decoded from a string, an object, or an
// array of either.
type Provenance []ProvenanceItem

// UnmarshalJSON decodes any provenance payload without failing.
func (ps *Provenance) UnmarshalJSON(data []byte) error {
	*ps = ParseProvenance(data)
	return nil
}

// ParseProvenance normalizes a raw provenance payload into canonical items.
// Null and empty payloads yield nil.
func ParseProvenance(data []byte) Provenance {
	if !gjson.ValidBytes(data) {
		return nil
	}
	raw := gjson.ParseBytes(data)

	switch {
	case raw.IsArray():
		var items Provenance
		raw.ForEach(func(_, v gjson.Result) bool {
			if v.Type == gjson.Null {
				return true
			}
			items = append(items, NormalizeProvenance(v))
			return true
		})
		return items
	case raw.Type == gjson.Null || !raw.Exists():
		return nil
	default:
		return Provenance{NormalizeProvenance(raw)}
	}
}

// NormalizeProvenance converts one citation of any shape to the canonical
// triple. A bare string is treated as a link when it is an http(s) URL and as
// a title otherwise.
func NormalizeProvenance(v gjson.Result) ProvenanceItem {
	var item ProvenanceItem

	switch {
	case v.IsObject():
		item.Title = firstField(v, provenanceTitleKeys)
		item.Snippet = firstField(v, provenanceSnippetKeys)
		item.Link = firstField(v, provenanceLinkKeys)
	case v.Type == gjson.String:
		s := strings.TrimSpace(v.Str)
		if isHTTPURL(s) {
			item.Link = s
		} else {
			item.Title = s
		}
	case v.Type == gjson.Number:
		item.Title = v.Raw
	}

	if item.Title == "" {
		item.Title = hostOf(item.Link)
	}
	if item.Title == "" {
		item.Title = DefaultProvenanceTitle
	}
	return item
}

// firstField returns the first non-empty scalar among keys.
func firstField(v gjson.Result, keys []string) string {
	for _, k := range keys {
		f := v.Get(k)
		switch f.Type {
		case gjson.String:
			if s := strings.TrimSpace(f.Str); s != "" {
				return s
			}
		case gjson.Number:
			return f.Raw
		}
	}
	return ""
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func hostOf(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
