// Package stringring implements the o5m format's string-pair back
// reference table: a fixed-capacity ring of the most recently seen literal
// strings (or key/value pairs), addressed by the decoder with "the k-th
// most recently interned entry" references instead of repeating the bytes.
package stringring

import (
	"github.com/pkg/errors"

	"o5mindex/config"
)

// Borrow is a byte slice owned by the Ring. It is valid only until the
// next call to Intern; callers that need to keep the bytes past that
// point must copy them first.
type Borrow []byte

// Ring is the string-pair back-reference table. The zero value is not
// usable; construct with New.
type Ring struct {
	slots [][]byte
	write int
}

// New allocates a ring with the capacity the o5m format assumes.
func New() *Ring {
	slots := make([][]byte, config.StringRingCapacity)
	for i := range slots {
		slots[i] = make([]byte, 0, config.StringRingSlotSize)
	}
	return &Ring{slots: slots}
}

// Reset rewinds the ring's write pointer to the start, as required at
// every o5m reset marker. Slot contents are left untouched; the format
// guarantees references never reach past the reset.
func (r *Ring) Reset() {
	r.write = 0
}

// Intern stores raw - a literal string or NUL-joined key/value pair,
// including terminator(s) - as the next ring entry and advances the write
// pointer. Literals longer than the ring's eligibility cap are rejected
// and left out of the ring entirely; reportedly ineligible does not affect
// the value the caller already has in hand.
func (r *Ring) Intern(raw []byte) bool {
	if len(raw) > config.StringRingEligibilityCap {
		return false
	}
	idx := r.write % len(r.slots)
	r.slots[idx] = append(r.slots[idx][:0], raw...)
	r.write++
	return true
}

// Lookup resolves a 1-based "k-th most recently interned" reference, as
// used by the o5m wire format's string-pair reference field.
func (r *Ring) Lookup(k int) (Borrow, error) {
	capacity := len(r.slots)
	if k <= 0 || k > capacity {
		return nil, errors.Errorf("string-pair ring reference %d out of range [1,%d]", k, capacity)
	}
	idx := ((r.write-k)%capacity + capacity) % capacity
	return Borrow(r.slots[idx]), nil
}
