// Package candidate implements the transport record and multi-keyed
// container of proposed pair reactions exchanged between ranks (C2).
package candidate

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
)

// Side selects which endpoint of a Record a Map should be indexed by.
type Side int

const (
	Low Side = iota
	High
)

// Record is one proposed pair reaction in transit between ranks.
// IDLow is always strictly less than IDHigh (invariant I1); Order records
// which of the reaction's {A,B} slots the lower id filled, so association
// can restore the original A/B assignment after re-sorting by id.
type Record struct {
	IDLow       int64
	IDHigh      int64
	ReactionIdx int
	Rate        float64
	RSq         float64
	Order       int // 1: IDLow held type A; 2: IDLow held type B
}

// NewRecord builds a Record from an unordered pair, enforcing I1 and
// computing Order the way the original implementation's tie-break branch
// intends: order is derived from the *pre-swap* assignment, i.e. it always
// reflects which raw id (pidA or pidB) ended up as IDLow, decided once,
// after any swap, never read before it is written.
func NewRecord(pidA, pidB int64, reactionIdx int, rate, rSq float64) Record {
	order := 1
	idLow, idHigh := pidA, pidB
	if idLow > idHigh {
		idLow, idHigh = idHigh, idLow
		order = 2
	}
	return Record{
		IDLow:       idLow,
		IDHigh:      idHigh,
		ReactionIdx: reactionIdx,
		Rate:        rate,
		RSq:         rSq,
		Order:       order,
	}
}

// Map is a multi-map from one endpoint id to the tuple carried by Record.
// Iteration and Range preserve insertion order, which is the only
// ordering assumption the conflict resolver's tie-breaking relies on.
type Map struct {
	records []Record
}

// NewMap creates an empty candidate map.
func NewMap() *Map {
	return &Map{}
}

// Insert appends r to the map, preserving insertion order.
func (m *Map) Insert(r Record) {
	m.records = append(m.records, r)
}

// Len returns the number of records currently held.
func (m *Map) Len() int {
	return len(m.records)
}

// Clear empties the map without releasing its backing storage.
func (m *Map) Clear() {
	m.records = m.records[:0]
}

// All returns every record in insertion order. The returned slice is a
// direct view into the map's storage and must not be mutated.
func (m *Map) All() []Record {
	return m.records
}

// key extracts the id a record is keyed by for the given side.
func key(r Record, side Side) int64 {
	if side == Low {
		return r.IDLow
	}
	return r.IDHigh
}

// Range returns every record keyed by id on the given side, in the
// insertion order they were added.
func (m *Map) Range(id int64, side Side) []Record {
	var out []Record
	for _, r := range m.records {
		if key(r, side) == id {
			out = append(out, r)
		}
	}
	return out
}

// Keys returns the distinct ids present on the given side, in first-seen
// insertion order.
func (m *Map) Keys(side Side) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, r := range m.records {
		k := key(r, side)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Merge appends every record from other onto m, preserving other's
// internal order after m's existing records.
func (m *Map) Merge(other *Map) {
	m.records = append(m.records, other.records...)
}

// EncodeTo serializes the map as a count-prefixed record stream (spec.md
// §4.3's payload format) using encoding/gob, the standard library's own
// binary RPC codec and the natural fit for a same-process transport with
// no external wire-format requirement.
func (m *Map) EncodeTo(w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(int64(len(m.records))); err != nil {
		return fmt.Errorf("candidate: encode count: %w", err)
	}
	for _, r := range m.records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("candidate: encode record: %w", err)
		}
	}
	return nil
}

// DecodeFrom reads a count-prefixed record stream produced by EncodeTo and
// appends the decoded records to m.
func (m *Map) DecodeFrom(r io.Reader) error {
	dec := gob.NewDecoder(r)
	var count int64
	if err := dec.Decode(&count); err != nil {
		return fmt.Errorf("candidate: decode count: %w", err)
	}
	for i := int64(0); i < count; i++ {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("candidate: decode record %d: %w", i, err)
		}
		m.records = append(m.records, rec)
	}
	return nil
}

// Bytes serializes the map to a byte slice; a convenience wrapper around
// EncodeTo for callers that need an in-memory payload (e.g. Comm.Gather).
func (m *Map) Bytes() []byte {
	var buf bytes.Buffer
	// EncodeTo over a bytes.Buffer never fails.
	_ = m.EncodeTo(&buf)
	return buf.Bytes()
}

// FromBytes decodes a Map previously produced by Bytes/EncodeTo.
func FromBytes(b []byte) (*Map, error) {
	m := NewMap()
	if err := m.DecodeFrom(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return m, nil
}

// DebugDump writes a human-readable line per record, gated by the caller
// behind trace-level logging; recovered from the original's
// printMultiMap debug helper.
func (m *Map) DebugDump(w io.Writer, comment string) {
	for _, r := range m.records {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%g\t%g\t%d\n",
			comment, r.IDLow, r.IDHigh, r.ReactionIdx, r.Rate, r.RSq, r.Order)
	}
}
