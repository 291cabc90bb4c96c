package stringring

import (
	"testing"

	"o5mindex/config"
	"o5mindex/util"
)

func TestRing_lookupImmediatelyAfterInternResolvesRecency(t *testing.T) {
	// Arrange
	r := New()
	pairs := [][]byte{[]byte("a\x00A\x00"), []byte("b\x00B\x00"), []byte("c\x00C\x00")}
	for _, p := range pairs {
		util.AssertTrue(t, r.Intern(p))
	}

	// Act + Assert: k=1 is the most recently interned pair, k=3 the oldest.
	borrow, err := r.Lookup(1)
	util.AssertNil(t, err)
	util.AssertEqual(t, string(pairs[2]), string(borrow))

	borrow, err = r.Lookup(2)
	util.AssertNil(t, err)
	util.AssertEqual(t, string(pairs[1]), string(borrow))

	borrow, err = r.Lookup(3)
	util.AssertNil(t, err)
	util.AssertEqual(t, string(pairs[0]), string(borrow))
}

func TestRing_lookupOutOfRangeIsError(t *testing.T) {
	// Arrange
	r := New()
	util.AssertTrue(t, r.Intern([]byte("a\x00A\x00")))

	// Act
	_, err := r.Lookup(0)
	util.AssertNotNil(t, err)

	_, err = r.Lookup(config.StringRingCapacity + 1)

	// Assert
	util.AssertNotNil(t, err)
}

func TestRing_resetRewindsWritePointerWithoutClearingSlots(t *testing.T) {
	// Arrange
	r := New()
	util.AssertTrue(t, r.Intern([]byte("a\x00A\x00")))
	util.AssertTrue(t, r.Intern([]byte("b\x00B\x00")))

	// Act
	r.Reset()
	borrow, err := r.Lookup(config.StringRingCapacity - 1)

	// Assert: slot contents survive a reset, even though the write
	// pointer has rewound and the format guarantees no reference will
	// ever ask for them again until they're overwritten. With the write
	// pointer back at slot 0, reference capacity-1 addresses slot 1,
	// which still holds the second pair interned before the reset.
	util.AssertNil(t, err)
	util.AssertEqual(t, "b\x00B\x00", string(borrow))
}

func TestRing_internRejectsOversizedLiteralWithoutAdvancing(t *testing.T) {
	// Arrange
	r := New()
	util.AssertTrue(t, r.Intern([]byte("first\x00F\x00")))

	oversized := make([]byte, config.StringRingEligibilityCap+1)

	// Act
	ok := r.Intern(oversized)

	// Assert: the write pointer did not move, so the most recent
	// reference still resolves to the pair interned before the rejected
	// literal.
	util.AssertFalse(t, ok)
	borrow, err := r.Lookup(1)
	util.AssertNil(t, err)
	util.AssertEqual(t, "first\x00F\x00", string(borrow))
}

func TestRing_wrapsAroundAtCapacity(t *testing.T) {
	// Arrange
	r := New()
	for i := 0; i < config.StringRingCapacity+1; i++ {
		util.AssertTrue(t, r.Intern([]byte{byte(i % 256)}))
	}

	// Act
	borrow, err := r.Lookup(1)

	// Assert: after wrapping once, the most recent entry is the
	// (capacity+1)-th intern, which landed back in slot 0.
	util.AssertNil(t, err)
	util.AssertEqual(t, []byte{byte(config.StringRingCapacity % 256)}, []byte(borrow))
}
