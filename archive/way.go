package archive

// Vertex is one point of a way's resolved, ordered vertex chain.
type Vertex struct {
	X, Y int32
}

// TagPair is one key/value tag of a way.
type TagPair struct {
	Key, Value string
}

// Way is the frozen, on-disk form of an assembled way: its bounding box,
// its resolved vertex chain and its tags. It is what the paged storage
// keeps as a page's payload and what the query visitor hands back to
// callers.
type Way struct {
	ID                     uint64
	MinX, MinY, MaxX, MaxY int32
	Vertices               []Vertex
	Tags                   []TagPair
}

var waySchema = BinarySchema{
	Items: []BinaryItem{
		&BinaryDataItem{FieldName: "ID", BinaryType: DatatypeUint64},
		&BinaryDataItem{FieldName: "MinX", BinaryType: DatatypeInt32},
		&BinaryDataItem{FieldName: "MinY", BinaryType: DatatypeInt32},
		&BinaryDataItem{FieldName: "MaxX", BinaryType: DatatypeInt32},
		&BinaryDataItem{FieldName: "MaxY", BinaryType: DatatypeInt32},
		&BinaryCollectionItem{
			FieldName: "Vertices",
			ItemSchema: BinarySchema{Items: []BinaryItem{
				&BinaryDataItem{FieldName: "X", BinaryType: DatatypeInt32},
				&BinaryDataItem{FieldName: "Y", BinaryType: DatatypeInt32},
			}},
		},
		&BinaryCollectionItem{
			FieldName: "Tags",
			ItemSchema: BinarySchema{Items: []BinaryItem{
				&BinaryStringItem{FieldName: "Key"},
				&BinaryStringItem{FieldName: "Value"},
			}},
		},
	},
}

// EncodeWay serializes w with the archive's fixed field order.
func EncodeWay(w *Way) ([]byte, error) {
	size := 8 + 4*4 + 8 + 8 // id(8) + bbox(4*int32) + vertex count(8) + tag count(8)
	size += 8 * len(w.Vertices)
	for _, t := range w.Tags {
		size += 16 + len(t.Key) + len(t.Value) // two 8-byte length prefixes
	}
	buf := make([]byte, size)
	n, err := waySchema.Write(w, buf, 0)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// DecodeWay deserializes a Way previously produced by EncodeWay.
func DecodeWay(data []byte) (*Way, error) {
	w := &Way{}
	if _, err := waySchema.Read(w, data, 0); err != nil {
		return nil, err
	}
	return w, nil
}
