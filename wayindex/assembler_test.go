package wayindex

import (
	"testing"

	"github.com/paulmach/osm"

	"o5mindex/bytesource"
	"o5mindex/nodestore"
	"o5mindex/o5m"
	"o5mindex/util"
	"o5mindex/varint"
)

// fakeLookup answers nodestore.Store.Lookup from a canned id->value map,
// so assembler tests don't need a real on-disk node store.
type fakeLookup struct {
	values map[uint64]nodestore.NodeValue
}

func (f fakeLookup) Lookup(ids []uint64) ([]nodestore.LookupResult, error) {
	results := make([]nodestore.LookupResult, len(ids))
	for i, id := range ids {
		results[i].ID = id
		if v, ok := f.values[id]; ok {
			results[i].Value = v
			results[i].Found = true
		}
	}
	return results, nil
}

// buildWayDataset assembles the body of a single way dataset: a zero
// version block, a length-prefixed node-ref sub-block of svarint deltas,
// and a trailing run of literal (key, value) tag pairs.
func buildWayDataset(wayID int64, nodeIDs []int64, tags [][2]string) []byte {
	var nd []byte
	prev := int64(0)
	for _, id := range nodeIDs {
		nd = varint.AppendSvarint(nd, id-prev)
		prev = id
	}

	var tagBytes []byte
	for _, kv := range tags {
		tagBytes = varint.AppendUvarint(tagBytes, 0) // literal string pair
		tagBytes = append(tagBytes, []byte(kv[0])...)
		tagBytes = append(tagBytes, 0)
		tagBytes = append(tagBytes, []byte(kv[1])...)
		tagBytes = append(tagBytes, 0)
	}

	var body []byte
	body = varint.AppendSvarint(body, wayID) // id delta from 0
	body = varint.AppendUvarint(body, 0)      // version = 0 (no author block)
	body = varint.AppendUvarint(body, uint64(len(nd)))
	body = append(body, nd...)
	body = append(body, tagBytes...)

	var dataset []byte
	dataset = append(dataset, byte(o5m.KindWay))
	dataset = varint.AppendUvarint(dataset, uint64(len(body)))
	dataset = append(dataset, body...)
	return dataset
}

func openWayDecoder(t *testing.T, dataset []byte) (*o5m.Decoder, o5m.Dataset) {
	stream := append([]byte{0xff}, dataset...)
	stream = append(stream, 0xfe)

	src := bytesource.NewFromBytes(stream)
	d, err := o5m.Open(src)
	util.AssertNil(t, err)

	ds, err := d.Next()
	util.AssertNil(t, err)
	util.AssertEqual(t, o5m.KindWay, ds.Kind)
	return d, ds
}

func TestAssemble_allNodesResolved(t *testing.T) {
	// Arrange
	dataset := buildWayDataset(1, []int64{10, 11, 12}, [][2]string{{"highway", "residential"}})
	d, ds := openWayDecoder(t, dataset)
	lookup := fakeLookup{values: map[uint64]nodestore.NodeValue{
		10: {Lon: 0, Lat: 0},
		11: {Lon: 10, Lat: 10},
		12: {Lon: 20, Lat: 0},
	}}

	// Act
	way, diag, err := Assemble(d, osm.WayID(ds.ID), lookup)

	// Assert
	util.AssertNil(t, err)
	util.AssertNil(t, diag)
	util.AssertEqual(t, 3, len(way.Vertices))
	util.AssertEqual(t, int32(0), way.MinX)
	util.AssertEqual(t, int32(20), way.MaxX)
	util.AssertEqual(t, int32(0), way.MinY)
	util.AssertEqual(t, int32(10), way.MaxY)
	util.AssertEqual(t, 1, len(way.Tags))
	util.AssertEqual(t, "highway", way.Tags[0].Key)
	util.AssertEqual(t, "residential", way.Tags[0].Value)
}

func TestAssemble_missingTrailingNodeIsTruncatedAndRecorded(t *testing.T) {
	// Arrange
	dataset := buildWayDataset(2, []int64{10, 11, 999}, nil)
	d, ds := openWayDecoder(t, dataset)
	lookup := fakeLookup{values: map[uint64]nodestore.NodeValue{
		10: {Lon: 0, Lat: 0},
		11: {Lon: 5, Lat: 5},
	}}

	// Act
	way, diag, err := Assemble(d, osm.WayID(ds.ID), lookup)

	// Assert
	util.AssertNil(t, err)
	util.AssertNotNil(t, diag)
	util.AssertEqual(t, 2, len(way.Vertices))
	util.AssertEqual(t, 1, diag.MissingCount)
	util.AssertEqual(t, 3, diag.WantVertices)
	util.AssertEqual(t, 2, diag.GotVertices)
}

func TestAssemble_missingLeadingNodeLeavesNoVertices(t *testing.T) {
	// Arrange
	dataset := buildWayDataset(3, []int64{999, 10, 11}, nil)
	d, ds := openWayDecoder(t, dataset)
	lookup := fakeLookup{values: map[uint64]nodestore.NodeValue{
		10: {Lon: 1, Lat: 1},
		11: {Lon: 2, Lat: 2},
	}}

	// Act
	way, diag, err := Assemble(d, osm.WayID(ds.ID), lookup)

	// Assert
	util.AssertNil(t, err)
	util.AssertNotNil(t, diag)
	util.AssertEqual(t, 0, len(way.Vertices))
	util.AssertEqual(t, 1, diag.MissingCount)
}
