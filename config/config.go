// Package config holds the compile-time constants that size the buffers,
// caches and progress reporting of the import pipeline. None of these are
// meant to be runtime-tunable; they encode the sizes the format and the
// storage engines were measured against.
package config

const (
	// SourceBufferSize is the size of the staging buffer the o5m decoder's
	// byte source keeps in front of the underlying file.
	SourceBufferSize = 10 * 1024 * 1024

	// StringRingCapacity is the number of slots in the string-pair ring
	// the o5m format's back-reference scheme assumes.
	StringRingCapacity = 15000

	// StringRingSlotSize is the scratch capacity reserved per ring slot.
	StringRingSlotSize = 256

	// StringRingEligibilityCap is the maximum byte length (including the
	// NUL terminator(s)) a literal string-pair may have to be interned.
	// Longer literals are still emitted to the caller but never stored in
	// the ring.
	StringRingEligibilityCap = 252

	// NodeStoreWriteBufferSize is the write buffer handed to the node
	// store's LevelDB instance during the bulk-load pass.
	NodeStoreWriteBufferSize = 100 * 1024 * 1024

	// WayStoreWriteBufferSize is the write buffer handed to the paged
	// storage's LevelDB instance.
	WayStoreWriteBufferSize = 10 * 1024 * 1024

	// BloomFilterBitsPerKey sizes the bloom filter both LevelDB-backed
	// stores attach to their table options.
	BloomFilterBitsPerKey = 32

	// PageCacheCapacity is the number of pages the cached paged storage
	// keeps resident before evicting the least recently used half.
	PageCacheCapacity = 10000

	// OrderedJoinStepThreshold bounds how many id steps the node store's
	// ordered-join reader will advance its iterator by Next() calls
	// before falling back to a fresh Seek.
	OrderedJoinStepThreshold = 5

	// NodeStoreFlushEvery is the number of Put calls the node store
	// batches before writing them out during the pass-1 bulk load.
	NodeStoreFlushEvery = 524288

	// ProgressPrintEveryNodes/Ways controls how often the import pass
	// logs a progress line while consuming datasets.
	ProgressPrintEveryNodes = 524288
	ProgressPrintEveryWays  = 32768
)
