package nodestore

import "encoding/binary"

// NodeValue is the persisted payload for one OSM node: its coordinate,
// plus two source-offset fields. The import pipeline stores only the
// coordinate; both offsets are written as zero. Fixed 24 bytes, host
// byte order.
type NodeValue struct {
	Lon, Lat                   int32
	SourceOffset, DecoderOffset int64
}

// NodeRecord pairs a node id with the value to store for it.
type NodeRecord struct {
	ID    uint64
	Value NodeValue
}

const valueSize = 24

func encodeKey(id uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, id)
	return buf
}

func (v NodeValue) encode() []byte {
	buf := make([]byte, valueSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(v.Lon))
	binary.LittleEndian.PutUint32(buf[4:], uint32(v.Lat))
	binary.LittleEndian.PutUint64(buf[8:], uint64(v.SourceOffset))
	binary.LittleEndian.PutUint64(buf[16:], uint64(v.DecoderOffset))
	return buf
}

func decodeValue(buf []byte) NodeValue {
	return NodeValue{
		Lon:           int32(binary.LittleEndian.Uint32(buf[0:])),
		Lat:           int32(binary.LittleEndian.Uint32(buf[4:])),
		SourceOffset:  int64(binary.LittleEndian.Uint64(buf[8:])),
		DecoderOffset: int64(binary.LittleEndian.Uint64(buf[16:])),
	}
}
