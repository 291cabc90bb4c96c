package wayindex

import (
	"io"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"o5mindex/archive"
	"o5mindex/rtree"
)

// Query returns the ids of every way whose region intersects the given
// region and - when tagKeyFilter is non-empty - that carries a tag with
// that key. The R-tree does the region filtering; the tag filter is
// applied by the visitor as each candidate way is decoded.
func Query(idx *rtree.Index, region rtree.Region, tagKeyFilter string) ([]uint64, error) {
	candidates, err := idx.Search(region)
	if err != nil {
		return nil, errors.Wrap(err, "searching r-tree")
	}

	ids := make([]uint64, 0, len(candidates))
	for _, way := range candidates {
		if tagKeyFilter != "" && !hasKey(way, tagKeyFilter) {
			continue
		}
		ids = append(ids, way.ID)
	}
	return ids, nil
}

func hasKey(way *archive.Way, key string) bool {
	for _, tag := range way.Tags {
		if tag.Key == key {
			return true
		}
	}
	return false
}

// QueryGeoJSON runs Query and writes the matched ways as a GeoJSON
// FeatureCollection, adapting the teacher's WriteFeaturesAsGeoJson.
func QueryGeoJSON(idx *rtree.Index, region rtree.Region, tagKeyFilter string, w io.Writer) error {
	sigolo.Info("Write ways to GeoJSON")
	start := time.Now()

	candidates, err := idx.Search(region)
	if err != nil {
		return errors.Wrap(err, "searching r-tree")
	}

	collection := geojson.NewFeatureCollection()
	for _, way := range candidates {
		if tagKeyFilter != "" && !hasKey(way, tagKeyFilter) {
			continue
		}

		ls := make(orb.LineString, 0, len(way.Vertices))
		for _, v := range way.Vertices {
			ls = append(ls, orb.Point{float64(v.X) / 1e7, float64(v.Y) / 1e7})
		}

		feature := geojson.NewFeature(ls)
		feature.Properties["osm_id"] = way.ID
		for _, tag := range way.Tags {
			feature.Properties[tag.Key] = tag.Value
		}
		collection.Features = append(collection.Features, feature)
	}

	data, err := collection.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "marshalling geojson")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "writing geojson")
	}

	sigolo.Infof("Finished writing %d ways in %s", len(collection.Features), time.Since(start))
	return nil
}
