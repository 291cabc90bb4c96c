// Package pagestore implements the cached paged storage the R-tree
// adapter treats as its backing store: an in-memory map of page id to
// bytes, bounded to config.PageCacheCapacity entries by evicting the
// least-recently-used half, backed by a LevelDB database that only ever
// sees whole-page writes.
package pagestore

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"o5mindex/config"
	"o5mindex/errs"
)

// Pages is the narrow capability the R-tree adapter needs from a page
// store: load, store (new or existing id), delete, flush everything to
// stable storage, and walk every page that's ever been stored (used once,
// at startup, to rebuild the in-memory tree).
type Pages interface {
	Load(id uint64) ([]byte, error)
	Store(id uint64, isNew bool, data []byte) (uint64, error)
	Delete(id uint64) error
	Flush() error
	All(visit func(id uint64, data []byte) error) error
}

type pageEntry struct {
	bytes    []byte
	useIndex uint64
	dirty    bool
}

// Store is the concrete, LevelDB-backed Pages implementation.
type Store struct {
	db *leveldb.DB

	mu         sync.Mutex
	pages      map[uint64]*pageEntry
	useCounter uint64
	nextPage   uint64
	everDirty  bool
}

// Open creates or reuses the LevelDB database rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{
		Comparer:    uint64Comparer{},
		Filter:      filter.NewBloomFilter(config.BloomFilterBitsPerKey),
		WriteBuffer: config.WayStoreWriteBufferSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening page store")
	}
	s := &Store{
		db:    db,
		pages: make(map[uint64]*pageEntry),
	}
	iter := db.NewIterator(nil, nil)
	if iter.Last() {
		s.nextPage = decodePageKey(iter.Key()) + 1
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "finding the last stored page id")
	}
	return s, nil
}

var _ Pages = (*Store)(nil)

// encodePageKey packs id in host byte order, matching the node store's
// key layout and the custom comparator both stores use to order 8-byte
// keys as unsigned 64-bit integers rather than raw bytes.
func encodePageKey(id uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(id)
		id >>= 8
	}
	return buf
}

// Load returns the bytes stored for id, checking the in-memory cache
// first and falling back to the underlying database on a miss.
func (s *Store) Load(id uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.useCounter++
	if e, ok := s.pages[id]; ok {
		e.useIndex = s.useCounter
		out := make([]byte, len(e.bytes))
		copy(out, e.bytes)
		return out, nil
	}

	data, err := s.db.Get(encodePageKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, errors.Wrapf(errs.ErrInvalidPage, "page %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading page %d", id)
	}

	cached := make([]byte, len(data))
	copy(cached, data)
	s.pages[id] = &pageEntry{bytes: cached, useIndex: s.useCounter}
	s.evictIfOverCapacity()
	return data, nil
}

// Store writes data for id, or - when isNew is true - allocates a fresh
// id first. The returned id is the one the caller should remember.
func (s *Store) Store(id uint64, isNew bool, data []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.useCounter++
	if isNew {
		id = s.nextPage
		s.nextPage++
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	if e, ok := s.pages[id]; ok {
		e.bytes = buf
		e.dirty = true
		e.useIndex = s.useCounter
	} else {
		s.pages[id] = &pageEntry{bytes: buf, dirty: true, useIndex: s.useCounter}
	}
	s.everDirty = true

	s.evictIfOverCapacity()
	return id, nil
}

// Delete removes a page from both the cache and the underlying database.
func (s *Store) Delete(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pages, id)
	batch := new(leveldb.Batch)
	batch.Delete(encodePageKey(id))
	if err := s.db.Write(batch, nil); err != nil {
		return errors.Wrapf(err, "deleting page %d", id)
	}
	s.everDirty = true
	return nil
}

// Flush evicts every cached page to the underlying database and, if any
// writes ever happened during this store's lifetime, compacts the whole
// keyspace.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.evictMatching(func(uint64, *pageEntry) bool { return true }); err != nil {
		return err
	}
	if s.everDirty {
		if err := s.db.CompactRange(util.Range{}); err != nil {
			return errors.Wrap(err, "compacting page store")
		}
	}
	return nil
}

// All visits every page ever stored, in key order, flushing the
// in-memory cache first so the underlying database reflects the latest
// writes.
func (s *Store) All(visit func(id uint64, data []byte) error) error {
	if err := s.Flush(); err != nil {
		return err
	}

	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		if err := visit(decodePageKey(iter.Key()), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.db.Close()
}

func (s *Store) evictIfOverCapacity() {
	if len(s.pages) <= config.PageCacheCapacity {
		return
	}
	useIndices := make([]uint64, 0, len(s.pages))
	for _, e := range s.pages {
		useIndices = append(useIndices, e.useIndex)
	}
	sort.Slice(useIndices, func(i, j int) bool { return useIndices[i] < useIndices[j] })
	threshold := useIndices[len(useIndices)/2]

	_ = s.evictMatching(func(_ uint64, e *pageEntry) bool { return e.useIndex <= threshold })
}

// evictMatching removes every cached page for which selected returns true, pushing
// dirty evictees into a single write batch before dropping them; clean
// evictees are just dropped.
func (s *Store) evictMatching(selected func(uint64, *pageEntry) bool) error {
	batch := new(leveldb.Batch)
	anyDirty := false

	for id, e := range s.pages {
		if !selected(id, e) {
			continue
		}
		if e.dirty {
			batch.Put(encodePageKey(id), e.bytes)
			anyDirty = true
		}
		delete(s.pages, id)
	}

	if anyDirty {
		if err := s.db.Write(batch, nil); err != nil {
			return errors.Wrap(err, "writing evicted pages")
		}
	}
	return nil
}
