// Package o5m decodes the o5m binary OSM exchange format: a sequence of
// length-framed, delta-encoded node/way/relation datasets interned through
// a sliding string-pair back-reference ring. Nodes, ways and relations
// carry sub-blocks (tags; node references; relation members) that are not
// materialized up front - callers pull them through gated sub-iterators,
// one sub-block at a time, in the order the format lays them out.
package o5m

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"o5mindex/bytesource"
	"o5mindex/config"
	"o5mindex/errs"
	"o5mindex/stringring"
	"o5mindex/varint"
)

// subIter names which sub-block, if any, a dataset has left open for the
// caller to iterate.
type subIter int

const (
	subNone subIter = iota
	subTags
	subNds
	subRefs
)

// Decoder reads successive Datasets from a buffered byte source. It owns
// the string-pair ring and the running delta accumulators the format
// requires; none of that state is safe to share across decoders.
type Decoder struct {
	src *bytesource.Source
	ring *stringring.Ring

	nodeID, wayID, relID   int64
	lon, lat               int64
	wayNodeID              int64
	nodeRefID, wayRefID, relRefID int64

	state    subIter
	pendingEnd int64 // absolute offset where the current dataset's body ends
	offsetNd   int64 // absolute offset where the node-ref sub-block ends
	offsetRf   int64 // absolute offset where the member-ref sub-block ends

	litBuf []byte
}

// Open validates the stream's reset marker and returns a ready-to-use
// Decoder over src.
func Open(src *bytesource.Source) (*Decoder, error) {
	b, err := src.ReadByte()
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnexpectedEOF, "reading o5m start marker")
	}
	if Kind(b) != KindReset {
		return nil, errors.Wrapf(errs.ErrWrongStart, "first byte was 0x%02x, want 0x%02x", b, KindReset)
	}
	d := &Decoder{
		src:  src,
		ring: stringring.New(),
	}
	d.resetDeltas()
	return d, nil
}

// Close releases the decoder's in-memory state. It does not close the
// underlying source; callers that opened a file own its lifecycle.
func (d *Decoder) Close() error {
	d.ring = nil
	return nil
}

func (d *Decoder) resetDeltas() {
	d.nodeID, d.wayID, d.relID = 0, 0, 0
	d.lon, d.lat = 0, 0
	d.wayNodeID = 0
	d.nodeRefID, d.wayRefID, d.relRefID = 0, 0, 0
	d.state = subNone
	d.ring.Reset()
}

func (d *Decoder) atEnd() bool {
	return d.src.Tell() >= d.pendingEnd
}

// Next advances to the next dataset. It returns io.EOF once the stream's
// end marker has been reached; any other error leaves the decoder unusable.
func (d *Decoder) Next() (Dataset, error) {
	for {
		if d.state != subNone || d.pendingEnd > d.src.Tell() {
			if err := d.skipRemaining(); err != nil {
				return Dataset{}, err
			}
			if _, err := d.src.Seek(d.pendingEnd, io.SeekStart); err != nil {
				return Dataset{}, err
			}
			d.state = subNone
		}

		kindByte, err := d.src.ReadByte()
		if err != nil {
			return Dataset{}, errors.Wrap(errs.ErrUnexpectedEOF, "reading dataset type byte")
		}
		kind := Kind(kindByte)

		switch kind {
		case 0xfe: // end-of-file marker
			return Dataset{}, io.EOF
		case KindReset:
			d.resetDeltas()
			continue
		case 0xf0: // unused/header-sync byte with no length field
			continue
		}

		length, err := varint.ReadUvarint(d.src)
		if err != nil {
			return Dataset{}, err
		}
		d.pendingEnd = d.src.Tell() + int64(length)

		switch kind {
		case KindNode:
			return d.readNode(kind)
		case KindWay:
			return d.readWay(kind)
		case KindRelation:
			return d.readRelation(kind)
		default:
			// bbox/timestamp/header/sync/jump: not materialized, just
			// parked for the skip-forward at the top of the next call.
			d.state = subNone
			continue
		}
	}
}

func (d *Decoder) readVersion() (done bool, err error) {
	v, err := varint.ReadUvarint(d.src)
	if err != nil {
		return false, err
	}
	if v != 0 {
		if _, err = varint.ReadUvarint(d.src); err != nil { // timestamp delta, unused
			return false, err
		}
		if _, err = varint.ReadSvarint(d.src); err != nil { // changeset delta, unused
			return false, err
		}
		if d.atEnd() {
			return true, nil
		}
		if _, err = d.readStrPair(false); err != nil { // uid/user, unused
			return false, err
		}
	}
	return d.atEnd(), nil
}

func (d *Decoder) readNode(kind Kind) (Dataset, error) {
	delta, err := varint.ReadSvarint(d.src)
	if err != nil {
		return Dataset{}, err
	}
	d.nodeID += delta
	ds := Dataset{Kind: kind, ID: uint64(d.nodeID)}

	d.state = subTags
	done, err := d.readVersion()
	if err != nil {
		return Dataset{}, err
	}
	if done {
		ds.IsEmpty = true
		return ds, nil
	}

	lonDelta, err := varint.ReadSvarint(d.src)
	if err != nil {
		return Dataset{}, err
	}
	d.lon += lonDelta
	latDelta, err := varint.ReadSvarint(d.src)
	if err != nil {
		return Dataset{}, err
	}
	d.lat += latDelta
	ds.Lon = int32(d.lon)
	ds.Lat = int32(d.lat)
	return ds, nil
}

func (d *Decoder) readWay(kind Kind) (Dataset, error) {
	delta, err := varint.ReadSvarint(d.src)
	if err != nil {
		return Dataset{}, err
	}
	d.wayID += delta
	ds := Dataset{Kind: kind, ID: uint64(d.wayID)}

	d.state = subNone
	done, err := d.readVersion()
	if err != nil {
		return Dataset{}, err
	}
	if done {
		ds.IsEmpty = true
		d.state = subTags
		return ds, nil
	}

	ndLen, err := varint.ReadUvarint(d.src)
	if err != nil {
		return Dataset{}, err
	}
	d.offsetNd = d.src.Tell() + int64(ndLen)
	d.state = subNds
	return ds, nil
}

func (d *Decoder) readRelation(kind Kind) (Dataset, error) {
	delta, err := varint.ReadSvarint(d.src)
	if err != nil {
		return Dataset{}, err
	}
	d.relID += delta
	ds := Dataset{Kind: kind, ID: uint64(d.relID)}

	d.state = subNone
	done, err := d.readVersion()
	if err != nil {
		return Dataset{}, err
	}
	if done {
		ds.IsEmpty = true
		d.state = subTags
		return ds, nil
	}

	rfLen, err := varint.ReadUvarint(d.src)
	if err != nil {
		return Dataset{}, err
	}
	d.offsetRf = d.src.Tell() + int64(rfLen)
	d.state = subRefs
	return ds, nil
}

// IterateTags yields the dataset's (key, value) tag pairs, in order. The
// returned slices are borrowed and only valid until the next Iterate*
// call; copy them if they need to outlive that. Calling IterateTags while
// the node-ref or member-ref sub-block is still open first skips that
// sub-block, matching the wire format's fixed sub-block order.
func (d *Decoder) IterateTags() (key, val []byte, done bool, err error) {
	if d.state == subRefs {
		if err = d.skipRefs(); err != nil {
			return nil, nil, false, err
		}
	}
	if d.state == subNds {
		if err = d.skipNds(); err != nil {
			return nil, nil, false, err
		}
	}
	if d.state != subTags {
		return nil, nil, false, errs.ErrIllegalSubIteration
	}
	if d.atEnd() {
		d.state = subNone
		return nil, nil, true, nil
	}
	raw, err := d.readStrPair(false)
	if err != nil {
		return nil, nil, false, err
	}
	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return nil, nil, false, errors.New("malformed tag string pair: no NUL separator")
	}
	return raw[:nul], raw[nul+1 : len(raw)-1], false, nil
}

// IterateNds yields a way's referenced node ids, in order.
func (d *Decoder) IterateNds() (nodeID uint64, done bool, err error) {
	if d.state != subNds {
		return 0, false, errs.ErrIllegalSubIteration
	}
	if d.src.Tell() >= d.offsetNd {
		d.state = subTags
		return 0, true, nil
	}
	delta, err := varint.ReadSvarint(d.src)
	if err != nil {
		return 0, false, err
	}
	d.wayNodeID += delta
	return uint64(d.wayNodeID), false, nil
}

// IterateRefs yields a relation's (member id, member type, role) triples,
// in order. role is a borrowed slice, valid only until the next Iterate*
// call.
func (d *Decoder) IterateRefs() (refID uint64, refType RefType, role []byte, done bool, err error) {
	if d.state != subRefs {
		return 0, 0, nil, false, errs.ErrIllegalSubIteration
	}
	if d.src.Tell() >= d.offsetRf {
		d.state = subTags
		return 0, 0, nil, true, nil
	}
	delta, err := varint.ReadSvarint(d.src)
	if err != nil {
		return 0, 0, nil, false, err
	}
	raw, err := d.readStrPair(true)
	if err != nil {
		return 0, 0, nil, false, err
	}
	if len(raw) == 0 {
		return 0, 0, nil, false, errors.New("malformed relation reference: empty type/role string")
	}
	switch RefType(raw[0]) {
	case RefNode:
		d.nodeRefID += delta
		refID = uint64(d.nodeRefID)
	case RefWay:
		d.wayRefID += delta
		refID = uint64(d.wayRefID)
	case RefRel:
		d.relRefID += delta
		refID = uint64(d.relRefID)
	default:
		return 0, 0, nil, false, errors.Errorf("malformed relation reference: unknown type %q", raw[0])
	}
	return refID, RefType(raw[0]), raw[1 : len(raw)-1], false, nil
}

func (d *Decoder) skipNds() error {
	for d.state == subNds {
		if _, done, err := d.IterateNds(); err != nil {
			return err
		} else if done {
			return nil
		}
	}
	return nil
}

func (d *Decoder) skipRefs() error {
	for d.state == subRefs {
		if _, _, _, done, err := d.IterateRefs(); err != nil {
			return err
		} else if done {
			return nil
		}
	}
	return nil
}

func (d *Decoder) skipRemaining() error {
	switch d.state {
	case subNone:
		return nil
	case subNds:
		if err := d.skipNds(); err != nil {
			return err
		}
	case subRefs:
		if err := d.skipRefs(); err != nil {
			return err
		}
	}
	for d.state == subTags {
		if _, _, done, err := d.IterateTags(); err != nil {
			return err
		} else if done {
			return nil
		}
	}
	return nil
}

// readStrPair resolves the next string-pair field: either a back
// reference into the ring, or a freshly read literal that gets interned
// (when eligible) for future back references. single controls whether one
// or two NUL-terminated strings are read for a literal.
func (d *Decoder) readStrPair(single bool) ([]byte, error) {
	k, err := varint.ReadUvarint(d.src)
	if err != nil {
		return nil, err
	}
	if k != 0 {
		borrow, err := d.ring.Lookup(int(k))
		if err != nil {
			return nil, err
		}
		return []byte(borrow), nil
	}

	count := 2
	if single {
		count = 1
	}
	buf := d.litBuf[:0]
	for i := 0; i < count; i++ {
		for {
			b, err := d.src.ReadByte()
			if err != nil {
				return nil, errors.Wrap(errs.ErrUnexpectedEOF, "reading literal string-pair")
			}
			buf = append(buf, b)
			if b == 0 {
				break
			}
		}
	}
	d.litBuf = buf
	if len(buf) <= config.StringRingEligibilityCap {
		d.ring.Intern(buf)
	}
	return buf, nil
}
