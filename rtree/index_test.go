package rtree

import (
	"testing"

	"o5mindex/archive"
	"o5mindex/util"
)

// memPages is an in-memory stand-in for pagestore.Pages, used so rtree's
// tests don't need a real LevelDB directory.
type memPages struct {
	pages map[uint64][]byte
	next  uint64
}

func newMemPages() *memPages {
	return &memPages{pages: map[uint64][]byte{}}
}

func (m *memPages) Load(id uint64) ([]byte, error) {
	data, ok := m.pages[id]
	if !ok {
		return nil, errNotFound
	}
	return data, nil
}

func (m *memPages) Store(id uint64, isNew bool, data []byte) (uint64, error) {
	if isNew {
		id = m.next
		m.next++
	}
	m.pages[id] = append([]byte{}, data...)
	return id, nil
}

func (m *memPages) Delete(id uint64) error {
	delete(m.pages, id)
	return nil
}

func (m *memPages) Flush() error { return nil }

func (m *memPages) All(visit func(id uint64, data []byte) error) error {
	for id, data := range m.pages {
		if err := visit(id, data); err != nil {
			return err
		}
	}
	return nil
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "page not found" }

var errNotFound = notFoundErr{}

func TestIndex_insertAndSearchFindsOverlappingWay(t *testing.T) {
	// Arrange
	idx, err := Open(newMemPages())
	util.AssertNil(t, err)

	way := &archive.Way{
		ID:       1,
		MinX:     10, MinY: 10, MaxX: 20, MaxY: 20,
		Vertices: []archive.Vertex{{X: 10, Y: 10}, {X: 20, Y: 20}},
	}
	util.AssertNil(t, idx.Insert(way))

	// Act
	hits, err := idx.Search(Region{MinLon: 0, MinLat: 0, MaxLon: 30, MaxLat: 30, MaxSize: 100})

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(hits))
	util.AssertEqual(t, way.ID, hits[0].ID)
}

func TestIndex_searchExcludesNonOverlappingWay(t *testing.T) {
	// Arrange
	idx, err := Open(newMemPages())
	util.AssertNil(t, err)

	way := &archive.Way{ID: 1, MinX: 1000, MinY: 1000, MaxX: 1010, MaxY: 1010}
	util.AssertNil(t, idx.Insert(way))

	// Act
	hits, err := idx.Search(Region{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10, MaxSize: 100})

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(hits))
}

func TestIndex_openRebuildsFromExistingPages(t *testing.T) {
	// Arrange
	pages := newMemPages()
	data, err := archive.EncodeWay(&archive.Way{ID: 7, MinX: 0, MinY: 0, MaxX: 5, MaxY: 5})
	util.AssertNil(t, err)
	_, err = pages.Store(0, true, data)
	util.AssertNil(t, err)

	// Act
	idx, err := Open(pages)
	util.AssertNil(t, err)
	hits, err := idx.Search(Region{MinLon: -1, MinLat: -1, MaxLon: 6, MaxLat: 6, MaxSize: 100})

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(hits))
	util.AssertEqual(t, uint64(7), hits[0].ID)
}
