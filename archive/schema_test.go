package archive

import (
	"encoding/binary"
	"testing"

	"o5mindex/util"
)

var simpleSchema = BinarySchema{
	Items: []BinaryItem{
		&BinaryDataItem{FieldName: "A", BinaryType: DatatypeUint64},
		&BinaryDataItem{FieldName: "B", BinaryType: DatatypeInt32},
	},
}

type simpleDao struct {
	A uint64
	B int32
}

func TestBinary_writeReadSimpleSchema(t *testing.T) {
	// Arrange
	dao := simpleDao{A: 123, B: -45}
	data := make([]byte, 12)

	// Act
	index, err := simpleSchema.Write(dao, data, 0)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, len(data), index)
	util.AssertEqual(t, dao.A, binary.LittleEndian.Uint64(data[0:]))

	// ----- read the data -----

	readDao := simpleDao{}
	index, err = simpleSchema.Read(&readDao, data, 0)
	util.AssertNil(t, err)
	util.AssertEqual(t, len(data), index)
	util.AssertEqual(t, dao, readDao)
}

func TestWay_encodeDecodeRoundTrip(t *testing.T) {
	// Arrange
	way := &Way{
		ID:   42,
		MinX: -10, MinY: -20, MaxX: 30, MaxY: 40,
		Vertices: []Vertex{{X: -10, Y: -20}, {X: 0, Y: 0}, {X: 30, Y: 40}},
		Tags:     []TagPair{{Key: "highway", Value: "residential"}, {Key: "name", Value: "Elm Street"}},
	}

	// Act
	data, err := EncodeWay(way)
	util.AssertNil(t, err)

	decoded, err := DecodeWay(data)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, way.ID, decoded.ID)
	util.AssertEqual(t, way.MinX, decoded.MinX)
	util.AssertEqual(t, way.MaxY, decoded.MaxY)
	util.AssertEqual(t, way.Vertices, decoded.Vertices)
	util.AssertEqual(t, way.Tags, decoded.Tags)
}

func TestWay_encodeDecodeEmptyWay(t *testing.T) {
	// Arrange
	way := &Way{ID: 1}

	// Act
	data, err := EncodeWay(way)
	util.AssertNil(t, err)
	decoded, err := DecodeWay(data)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(decoded.Vertices))
	util.AssertEqual(t, 0, len(decoded.Tags))
}
