package o5m

// Kind identifies what a Dataset is. The numeric values match the o5m
// wire format's type byte so they can be compared directly while
// debugging a dump.
type Kind byte

const (
	KindNode     Kind = 0x10
	KindWay      Kind = 0x11
	KindRelation Kind = 0x12
	KindBBox     Kind = 0xdb
	KindTime     Kind = 0xdc
	KindHeader   Kind = 0xe0
	KindSync     Kind = 0xee
	KindJump     Kind = 0xef
	KindReset    Kind = 0xff
)

// Dataset is the header the decoder hands back for every node, way and
// relation it reaches. Tags, node references and relation members are not
// part of this struct; they're pulled separately through the gated
// sub-iterators below, matching the wire format's own layout.
type Dataset struct {
	Kind Kind
	ID   uint64

	// IsEmpty is set when the dataset's version block consumed the whole
	// record, i.e. there is no coordinate (node) or reference sub-block
	// (way/relation) to read.
	IsEmpty bool

	// Lon/Lat are populated only for KindNode datasets that are not
	// IsEmpty.
	Lon, Lat int32
}

// RefType identifies the kind of member a relation reference points at.
type RefType byte

const (
	RefNode RefType = '0'
	RefWay  RefType = '1'
	RefRel  RefType = '2'
)
