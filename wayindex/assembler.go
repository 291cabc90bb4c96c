// Package wayindex assembles ways from the o5m stream against the node
// store and keeps them queryable through the R-tree: the teacher's
// index.GridIndex writer/reader split, collapsed into one package the
// way the teacher keeps a grid index's write and read halves together.
package wayindex

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"

	"o5mindex/archive"
	"o5mindex/errs"
	"o5mindex/nodestore"
	"o5mindex/o5m"
)

// NodeLookup is the narrow capability the assembler needs from the node
// store: resolve a batch of ids, in the order given, to their coordinates.
type NodeLookup interface {
	Lookup(ids []uint64) ([]nodestore.LookupResult, error)
}

// Assemble drains a way dataset's node-ref and tag sub-blocks from d,
// resolves the referenced node ids through lookup, and returns the
// resulting archive.Way. If one or more referenced nodes could not be
// resolved, the returned diagnostic is non-nil; the way is still built
// from whatever vertices matched and the caller decides what to do with
// the diagnostic (log it, skip the insert, etc).
//
// Missing nodes are handled by truncating the vertex chain to the prefix
// that matched without interruption - the way stops at the first gap -
// while the diagnostic's MissingCount still reflects every unresolved id
// in the full reference list, not just the ones before the first gap.
func Assemble(d *o5m.Decoder, wayID osm.WayID, lookup NodeLookup) (*archive.Way, *errs.BrokenWay, error) {
	var nodeIDs []osm.NodeID
	for {
		id, done, err := d.IterateNds()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading node refs for way %d", wayID)
		}
		if done {
			break
		}
		nodeIDs = append(nodeIDs, osm.NodeID(id))
	}

	ids := make([]uint64, len(nodeIDs))
	for i, id := range nodeIDs {
		ids[i] = uint64(id)
	}

	results, err := lookup.Lookup(ids)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "looking up nodes for way %d", wayID)
	}

	vertices := make([]archive.Vertex, 0, len(results))
	missing := 0
	truncated := false
	for _, r := range results {
		if !r.Found {
			missing++
			truncated = true
			continue
		}
		if truncated {
			continue
		}
		vertices = append(vertices, archive.Vertex{X: r.Value.Lon, Y: r.Value.Lat})
	}

	way := &archive.Way{ID: uint64(wayID), Vertices: vertices}
	if len(vertices) > 0 {
		way.MinX, way.MaxX = vertices[0].X, vertices[0].X
		way.MinY, way.MaxY = vertices[0].Y, vertices[0].Y
		for _, v := range vertices[1:] {
			if v.X < way.MinX {
				way.MinX = v.X
			}
			if v.X > way.MaxX {
				way.MaxX = v.X
			}
			if v.Y < way.MinY {
				way.MinY = v.Y
			}
			if v.Y > way.MaxY {
				way.MaxY = v.Y
			}
		}
	}

	// Tags are collected into osm.Tags - the same in-memory representation
	// the teacher builds from a scanned *osm.Way before archive-encoding -
	// and only converted to the archive's own TagPair form once complete.
	var tags osm.Tags
	for {
		key, val, done, err := d.IterateTags()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading tags for way %d", wayID)
		}
		if done {
			break
		}
		tags = append(tags, osm.Tag{Key: string(key), Value: string(val)})
	}
	for _, tag := range tags {
		way.Tags = append(way.Tags, archive.TagPair{Key: tag.Key, Value: tag.Value})
	}

	var diag *errs.BrokenWay
	if missing > 0 {
		diag = &errs.BrokenWay{
			WayID:        uint64(wayID),
			WantVertices: len(nodeIDs),
			GotVertices:  len(vertices),
			MissingCount: missing,
		}
	}
	return way, diag, nil
}

// LogBrokenWay reports a way assembly diagnostic as a log event rather
// than an error return, per the diagnostic's own contract.
func LogBrokenWay(diag *errs.BrokenWay) {
	if diag == nil {
		return
	}
	sigolo.Warnf("way %d: %d of %d referenced nodes missing, kept %d vertices",
		diag.WayID, diag.MissingCount, diag.WantVertices, diag.GotVertices)
}
