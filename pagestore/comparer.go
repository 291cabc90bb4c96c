package pagestore

import "github.com/syndtr/goleveldb/leveldb/comparer"

// uint64Comparer orders 8-byte page-id keys as unsigned 64-bit integers in
// host byte order, the same comparator the node store uses for its own
// 8-byte keys.
type uint64Comparer struct{}

func decodePageKey(k []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(k[i])
	}
	return v
}

func (uint64Comparer) Compare(a, b []byte) int {
	av, bv := decodePageKey(a), decodePageKey(b)
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
	return "o5mindex.pagestore.Uint64Comparer"
}

func (uint64Comparer) Separator(dst, a, b []byte) []byte {
	return nil
}

func (uint64Comparer) Successor(dst, b []byte) []byte {
	return nil
}

var _ comparer.Comparer = uint64Comparer{}
