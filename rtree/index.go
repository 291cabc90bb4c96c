// Package rtree wraps github.com/dhconnelly/rtreego's in-memory R-tree
// with the cached paged storage it's persisted through. The library's
// tree itself is never written to disk directly: entries carry a page
// id pointing at a way record kept in pagestore, and the tree is
// rebuilt from those records every time the index is opened.
package rtree

import (
	"github.com/dhconnelly/rtreego"
	"github.com/pkg/errors"

	"o5mindex/archive"
	"o5mindex/pagestore"
	"o5mindex/util"
)

// Index is the spatial index of ways: an in-memory R-tree of page ids,
// backed by the page store that holds the actual way records.
type Index struct {
	tree  *rtreego.Rtree
	pages pagestore.Pages
}

// entry is the rtreego.Spatial implementation stored in the tree: just
// enough to find the page holding the full way record again.
type entry struct {
	pageID uint64
	region Region
}

func (e *entry) Bounds() rtreego.Rect {
	p := rtreego.Point{e.region.MinLon, e.region.MinLat, e.region.MinSize}
	lengths := []float64{
		nonDegenerate(e.region.MaxLon - e.region.MinLon),
		nonDegenerate(e.region.MaxLat - e.region.MinLat),
		nonDegenerate(e.region.MaxSize - e.region.MinSize),
	}
	rect, err := rtreego.NewRect(p, lengths)
	if err != nil {
		// Bounds are always derived from a Way's own bounding box via
		// nonDegenerate, so a malformed rect here means the caller
		// handed us a Region that was never validated - a programming
		// error, not a runtime condition to recover from.
		util.LogFatalBug("building r-tree bounds from region %+v: %s", e.region, err)
		return rtreego.Rect{}
	}
	return rect
}

// Open rebuilds the in-memory tree from every way record the page store
// already holds.
func Open(pages pagestore.Pages) (*Index, error) {
	idx := &Index{
		tree:  rtreego.NewTree(3, 25, 50),
		pages: pages,
	}

	if err := pages.All(func(id uint64, data []byte) error {
		way, err := archive.DecodeWay(data)
		if err != nil {
			return errors.Wrapf(err, "decoding way record at page %d while rebuilding r-tree", id)
		}
		idx.tree.Insert(&entry{pageID: id, region: regionOf(way)})
		return nil
	}); err != nil {
		return nil, err
	}
	return idx, nil
}

func regionOf(w *archive.Way) Region {
	width := float64(w.MaxX - w.MinX)
	height := float64(w.MaxY - w.MinY)
	size := width
	if height < size {
		size = height
	}
	return Region{
		MinLon: float64(w.MinX), MinLat: float64(w.MinY), MinSize: 0,
		MaxLon: float64(w.MaxX), MaxLat: float64(w.MaxY), MaxSize: size,
	}
}

// Insert encodes way, stores it as a new page, and adds its region to
// the tree.
func (idx *Index) Insert(way *archive.Way) error {
	data, err := archive.EncodeWay(way)
	if err != nil {
		return errors.Wrapf(err, "encoding way %d", way.ID)
	}
	pageID, err := idx.pages.Store(0, true, data)
	if err != nil {
		return errors.Wrapf(err, "storing way %d", way.ID)
	}
	idx.tree.Insert(&entry{pageID: pageID, region: regionOf(way)})
	return nil
}

// Search returns the ways whose region intersects query.
func (idx *Index) Search(query Region) ([]*archive.Way, error) {
	rect, err := rtreego.NewRect(
		rtreego.Point{query.MinLon, query.MinLat, query.MinSize},
		[]float64{
			nonDegenerate(query.MaxLon - query.MinLon),
			nonDegenerate(query.MaxLat - query.MinLat),
			nonDegenerate(query.MaxSize - query.MinSize),
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "building r-tree query bounds")
	}

	hits := idx.tree.SearchIntersect(rect)
	ways := make([]*archive.Way, 0, len(hits))
	for _, hit := range hits {
		e, ok := hit.(*entry)
		if !ok {
			continue
		}
		data, err := idx.pages.Load(e.pageID)
		if err != nil {
			return nil, errors.Wrapf(err, "loading way page %d", e.pageID)
		}
		way, err := archive.DecodeWay(data)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding way page %d", e.pageID)
		}
		ways = append(ways, way)
	}
	return ways, nil
}

// Flush persists every cached page and compacts the underlying store.
func (idx *Index) Flush() error {
	return idx.pages.Flush()
}
