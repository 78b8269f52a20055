package traffic

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"route-traffic-go/pkg/models"
)

// FeatureCollection представляет участки в виде GeoJSON для отрисовки на карте.
// Свойства stroke* следуют соглашению simplestyle.
func FeatureCollection(segments []models.TrafficSegment) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, seg := range segments {
		line := make(orb.LineString, len(seg.Path))
		for i, p := range seg.Path {
			line[i] = orb.Point{p.Lng, p.Lat}
		}

		feature := geojson.NewFeature(line)
		feature.ID = seg.Index
		feature.Properties["congestion"] = string(seg.Level)
		feature.Properties["start_index"] = seg.StartIndex
		feature.Properties["end_index"] = seg.EndIndex
		feature.Properties["stroke"] = seg.Style.Color
		feature.Properties["stroke-width"] = seg.Style.Weight
		feature.Properties["stroke-opacity"] = seg.Style.Opacity
		feature.Properties["z-index"] = seg.Style.ZIndex

		fc.Append(feature)
	}

	return fc
}
