package geocode

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FeatureCollection renders places as a GeoJSON FeatureCollection of points.
func FeatureCollection(places []Place) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(places))}
	for _, p := range places {
		props := map[string]any{
			"display_name": p.DisplayName,
		}
		for k, v := range map[string]string{
			"name":     p.Name,
			"category": p.Category,
			"type":     p.Type,
			"city":     p.City,
			"district": p.District,
			"country":  p.Country,
			"postcode": p.Postcode,
		} {
			if v != "" {
				props[k] = v
			}
		}

		f := &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{p.Point.Lon, p.Point.Lat}),
			Properties: props,
		}
		if p.PlaceID != 0 {
			f.ID = strconv.FormatInt(p.PlaceID, 10)
		}
		fc.Features = append(fc.Features, f)
	}

	out, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: marshal geojson")
	}
	return out, nil
}
