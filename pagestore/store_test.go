package pagestore

import (
	"os"
	"testing"

	"o5mindex/config"
	"o5mindex/util"
)

func openTestStore(t *testing.T) *Store {
	dir, err := os.MkdirTemp("", "pagestore-test-*")
	util.AssertNil(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := Open(dir)
	util.AssertNil(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_storeNewThenLoad(t *testing.T) {
	// Arrange
	store := openTestStore(t)

	// Act
	id, err := store.Store(0, true, []byte("hello"))
	util.AssertNil(t, err)
	loaded, err := store.Load(id)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, []byte("hello"), loaded)
}

func TestStore_storeExistingIdOverwrites(t *testing.T) {
	// Arrange
	store := openTestStore(t)
	id, err := store.Store(0, true, []byte("first"))
	util.AssertNil(t, err)

	// Act
	_, err = store.Store(id, false, []byte("second, and longer"))
	util.AssertNil(t, err)
	loaded, err := store.Load(id)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, []byte("second, and longer"), loaded)
}

func TestStore_loadUnknownPageIsInvalidPage(t *testing.T) {
	// Arrange
	store := openTestStore(t)

	// Act
	_, err := store.Load(999)

	// Assert
	util.AssertNotNil(t, err)
}

func TestStore_flushPersistsAcrossReopen(t *testing.T) {
	// Arrange
	dir, err := os.MkdirTemp("", "pagestore-test-*")
	util.AssertNil(t, err)
	defer os.RemoveAll(dir)

	store, err := Open(dir)
	util.AssertNil(t, err)
	id, err := store.Store(0, true, []byte("persisted"))
	util.AssertNil(t, err)
	util.AssertNil(t, store.Flush())
	util.AssertNil(t, store.db.Close())

	// Act
	reopened, err := Open(dir)
	util.AssertNil(t, err)
	defer reopened.Close()
	loaded, err := reopened.Load(id)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, []byte("persisted"), loaded)
}

func TestStore_allVisitsEveryStoredPage(t *testing.T) {
	// Arrange
	store := openTestStore(t)
	ids := make(map[uint64]bool)
	for i := 0; i < 5; i++ {
		id, err := store.Store(0, true, []byte{byte(i)})
		util.AssertNil(t, err)
		ids[id] = true
	}

	// Act
	seen := make(map[uint64]bool)
	err := store.All(func(id uint64, data []byte) error {
		seen[id] = true
		return nil
	})

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, len(ids), len(seen))
}

func TestStore_evictsLeastRecentlyUsedHalfOverCapacity(t *testing.T) {
	// Arrange
	store := openTestStore(t)

	var ids []uint64
	for i := 0; i < 10001; i++ {
		id, err := store.Store(0, true, []byte{byte(i)})
		util.AssertNil(t, err)
		ids = append(ids, id)
	}

	// Act: the map was pushed over capacity during the loop above, so
	// the oldest half should already have been evicted from memory (but
	// still retrievable from the underlying database).
	loaded, err := store.Load(ids[0])

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, []byte{0}, loaded)
	util.AssertTrue(t, len(store.pages) <= config.PageCacheCapacity+1)
}
