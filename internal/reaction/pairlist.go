package reaction

// FixedPairList is a simple owner-partitioned bond list keyed by the lower
// particle id of each pair. It is the reference PairList implementation;
// hosts embedding DCRE in a real spatial decomposition are expected to
// back PairList with their own storage but the semantics (IAdd is
// insert-or-ignore, Remove is a no-op on a missing pair) must match this
// one exactly.
type FixedPairList struct {
	pairs map[int64]map[int64]struct{}
	dirty bool
}

// NewFixedPairList creates an empty bond list.
func NewFixedPairList() *FixedPairList {
	return &FixedPairList{pairs: make(map[int64]map[int64]struct{})}
}

// Add inserts (idLow, idHigh) unconditionally, overwriting nothing since the
// set semantics make a duplicate insert a no-op.
func (l *FixedPairList) Add(idLow, idHigh int64) {
	l.IAdd(idLow, idHigh)
}

// IAdd inserts (idLow, idHigh) if absent and reports whether it inserted.
func (l *FixedPairList) IAdd(idLow, idHigh int64) bool {
	set, ok := l.pairs[idLow]
	if !ok {
		set = make(map[int64]struct{})
		l.pairs[idLow] = set
	}
	if _, exists := set[idHigh]; exists {
		return false
	}
	set[idHigh] = struct{}{}
	l.dirty = true
	return true
}

// Remove deletes (idLow, idHigh) if present; otherwise it is a no-op.
func (l *FixedPairList) Remove(idLow, idHigh int64) {
	set, ok := l.pairs[idLow]
	if !ok {
		return
	}
	delete(set, idHigh)
	if len(set) == 0 {
		delete(l.pairs, idLow)
	}
	l.dirty = true
}

// UpdateParticlesStorage acknowledges a mutation round. FixedPairList has
// no backing particle storage of its own to refresh, so this only clears
// the dirty flag other components may poll.
func (l *FixedPairList) UpdateParticlesStorage() {
	l.dirty = false
}

// Dirty reports whether the list has been touched since the last
// UpdateParticlesStorage: an insert of a new pair, or a Remove whose idLow
// has entries, sets it. Re-inserting a present pair, or a Remove whose
// idLow has no entries, leaves it unchanged.
func (l *FixedPairList) Dirty() bool {
	return l.dirty
}

// Iterate walks every (idLow, idHigh) pair. Iteration order over idLow is
// unspecified (Go map order); callers that need determinism must sort.
func (l *FixedPairList) Iterate(fn func(idLow, idHigh int64)) {
	for lo, set := range l.pairs {
		for hi := range set {
			fn(lo, hi)
		}
	}
}

// Len returns the number of stored pairs.
func (l *FixedPairList) Len() int {
	n := 0
	for _, set := range l.pairs {
		n += len(set)
	}
	return n
}

// Has reports whether (idLow, idHigh) is present.
func (l *FixedPairList) Has(idLow, idHigh int64) bool {
	set, ok := l.pairs[idLow]
	if !ok {
		return false
	}
	_, ok = set[idHigh]
	return ok
}
