package nodestore

import "github.com/syndtr/goleveldb/leveldb/comparer"

// uint64Comparer orders 8-byte keys as unsigned 64-bit integers in host
// byte order, not as raw lexicographic byte strings. Node ids are packed
// little-endian on disk, which disagrees with lexicographic byte order
// for most id magnitudes - a plain leveldb.DefaultComparer would sort the
// store wrong.
type uint64Comparer struct{}

func decodeKey(k []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(k[i])
	}
	return v
}

func (uint64Comparer) Compare(a, b []byte) int {
	av, bv := decodeKey(a), decodeKey(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func (uint64Comparer) Name() string {
	return "o5mindex.nodestore.Uint64Comparer"
}

func (uint64Comparer) Separator(dst, a, b []byte) []byte {
	return nil
}

func (uint64Comparer) Successor(dst, b []byte) []byte {
	return nil
}

var _ comparer.Comparer = uint64Comparer{}
