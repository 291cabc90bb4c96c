// Package nodestore adapts an ordered byte-keyed store into the node
// id -> coordinate mapping pass 1 builds and pass 2 joins against. Keys
// are 8-byte node ids compared as unsigned 64-bit integers rather than
// raw bytes; values are fixed 24-byte NodeValue records.
package nodestore

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"o5mindex/config"
)

// Store is the node id -> coordinate mapping built in pass 1 and joined
// against in pass 2.
type Store struct {
	db      *leveldb.DB
	batch   *leveldb.Batch
	pending int
}

// Open creates or reuses the LevelDB database rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{
		Comparer:    uint64Comparer{},
		Filter:      filter.NewBloomFilter(config.BloomFilterBitsPerKey),
		WriteBuffer: config.NodeStoreWriteBufferSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening node store")
	}
	return &Store{db: db, batch: new(leveldb.Batch)}, nil
}

// Close flushes any pending writes and closes the underlying database.
func (s *Store) Close() error {
	if err := s.flush(); err != nil {
		return err
	}
	return s.db.Close()
}

// Put appends one node's coordinate to the pending write batch, flushing
// automatically every config.NodeStoreFlushEvery puts.
func (s *Store) Put(id uint64, value NodeValue) error {
	s.batch.Put(encodeKey(id), value.encode())
	s.pending++
	if s.pending >= config.NodeStoreFlushEvery {
		return s.flush()
	}
	return nil
}

func (s *Store) flush() error {
	if s.pending == 0 {
		return nil
	}
	if err := s.db.Write(s.batch, nil); err != nil {
		return errors.Wrap(err, "flushing node store write batch")
	}
	s.batch.Reset()
	s.pending = 0
	return nil
}

// Seal flushes any pending writes and compacts the whole keyspace. The
// pipeline calls this once, before pass 2 starts, so the ordered join
// reads at near-memory speed.
func (s *Store) Seal() error {
	if err := s.flush(); err != nil {
		return err
	}
	if err := s.db.CompactRange(util.Range{}); err != nil {
		return errors.Wrap(err, "compacting node store before ordered join")
	}
	return nil
}

// LookupResult is one entry of a Lookup call's response, preserving the
// id even when it was not found so callers can tell which vertices a way
// is missing.
type LookupResult struct {
	ID    uint64
	Value NodeValue
	Found bool
}

// Lookup resolves ids, which must be supplied in their original
// (way-specified) order, using a single long-lived forward iterator and
// a step-vs-reseek heuristic: when the requested id is within
// config.OrderedJoinStepThreshold of the iterator's key, single Next/Prev
// steps are tried before falling back to a direct seek, exploiting the
// fact that consecutive way nodes are usually numerically close.
func (s *Store) Lookup(ids []uint64) ([]LookupResult, error) {
	results := make([]LookupResult, len(ids))
	for i, id := range ids {
		results[i].ID = id
	}
	if len(ids) == 0 {
		return results, nil
	}

	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	valid := iter.Seek(encodeKey(ids[0]))
	for i, id := range ids {
		valid = advanceTo(iter, valid, id, &results[i])
	}
	return results, iter.Error()
}

func advanceTo(iter iterator.Iterator, valid bool, id uint64, result *LookupResult) bool {
	for attempt := 0; attempt <= config.OrderedJoinStepThreshold; attempt++ {
		if !valid {
			return false
		}
		delta := int64(id) - int64(decodeKey(iter.Key()))
		switch {
		case delta == 0:
			result.Value = decodeValue(iter.Value())
			result.Found = true
			return iter.Next()
		case delta > 0 && delta <= config.OrderedJoinStepThreshold:
			valid = iter.Next()
		case delta < 0 && delta >= -config.OrderedJoinStepThreshold:
			valid = iter.Prev()
		default:
			valid = iter.Seek(encodeKey(id))
			if valid && decodeKey(iter.Key()) == id {
				result.Value = decodeValue(iter.Value())
				result.Found = true
				return iter.Next()
			}
			return valid
		}
	}
	return valid
}
