// Package resolver reduces a local-plus-halo candidate map to a
// conflict-free matching under the exclusion rules in spec.md §4.4 (C4).
package resolver

import (
	"github.com/example/dcre/internal/candidate"
	"github.com/example/dcre/internal/dcrerand"
	"github.com/example/dcre/internal/host"
	"github.com/example/dcre/internal/reaction"
	"github.com/example/dcre/internal/transport"
)

// Config selects the tunables spec.md §6 lists for the engine as a whole
// but that only the resolver consults.
type Config struct {
	NearestMode    bool // true: pick the nearest partner; false: pick uniformly at random
	MaxPerInterval int  // <= 0 means unbounded
}

// Resolver runs passes A, B, and C of the conflict-resolution pipeline.
type Resolver struct {
	cfg       Config
	storage   host.Storage
	topology  host.TopologyManager
	reactions []*reaction.Descriptor // indexed by Record.ReactionIdx
}

// New creates a Resolver. reactions must be indexed identically to the
// ReactionIdx values that appear in candidate records (i.e. the same
// slice the engine registered forward reactions into).
func New(cfg Config, storage host.Storage, topology host.TopologyManager, reactions []*reaction.Descriptor) *Resolver {
	return &Resolver{cfg: cfg, storage: storage, topology: topology, reactions: reactions}
}

// bucketPick selects one record among candidates sharing a key, per
// spec.md §4.4 Pass A/B: nearest mode selects uniformly among every
// record tying the minimum r² (bucket membership and indexing follow
// insertion order, the only ordering assumption determinism requires);
// random mode selects uniformly among all of them.
func bucketPick(candidates []candidate.Record, nearest bool, rng dcrerand.Source) candidate.Record {
	if !nearest {
		return candidates[rng.Intn(len(candidates))]
	}

	minRSq := candidates[0].RSq
	for _, c := range candidates[1:] {
		if c.RSq < minRSq {
			minRSq = c.RSq
		}
	}

	var bucket []candidate.Record
	for _, c := range candidates {
		if c.RSq == minRSq {
			bucket = append(bucket, c)
		}
	}

	if len(bucket) == 1 {
		return bucket[0]
	}
	return bucket[rng.Intn(len(bucket))]
}

// UniqueA implements Pass A: for every key id owned (non-ghost) on this
// rank, keep exactly one candidate sharing that key.
func (r *Resolver) UniqueA(in *candidate.Map, rng dcrerand.Source) *candidate.Map {
	out := candidate.NewMap()
	for _, id := range in.Keys(candidate.Low) {
		if r.storage.LookupReal(id) == nil {
			continue // not owned by this rank; only the owner can decide for it
		}
		bucket := in.Range(id, candidate.Low)
		if len(bucket) == 0 {
			continue
		}
		out.Insert(bucketPick(bucket, r.cfg.NearestMode, rng))
	}
	return out
}

// UniqueB implements Pass B: re-key the survivors by the B-side id,
// restrict to B-ids owned on this rank, and repeat the selection.
func (r *Resolver) UniqueB(in *candidate.Map, rng dcrerand.Source) *candidate.Map {
	out := candidate.NewMap()
	for _, id := range in.Keys(candidate.High) {
		if r.storage.LookupReal(id) == nil {
			continue
		}
		bucket := in.Range(id, candidate.High)
		if len(bucket) == 0 {
			continue
		}
		out.Insert(bucketPick(bucket, r.cfg.NearestMode, rng))
	}
	return out
}

// pairSet tracks, per step, which ids of one kind (particle/residue/
// molecule) have already been claimed by an accepted edge.
type pairSet struct {
	used     map[int64]bool
	adjacent map[int64]map[int64]bool
}

func newPairSet() *pairSet {
	return &pairSet{used: make(map[int64]bool), adjacent: make(map[int64]map[int64]bool)}
}

func (s *pairSet) isAdjacent(a, b int64) bool {
	return s.adjacent[a][b]
}

func (s *pairSet) claim(a, b int64) {
	s.used[a] = true
	s.used[b] = true
	if s.adjacent[a] == nil {
		s.adjacent[a] = make(map[int64]bool)
	}
	if s.adjacent[b] == nil {
		s.adjacent[b] = make(map[int64]bool)
	}
	s.adjacent[a][b] = true
	s.adjacent[b][a] = true
}

// GlobalSerialize implements Pass C: every rank ships its post-B map to
// root; root iterates ranks in rank order and candidates in insertion
// order within each rank's map, applying the exclusion rules of spec.md
// §4.4 item 1-4, then broadcasts the accepted matching to every rank.
// Non-root ranks discard their own map in favor of the broadcast result.
func (r *Resolver) GlobalSerialize(comm transport.Comm, root transport.RankID, local *candidate.Map) (*candidate.Map, error) {
	gathered, err := comm.Gather(local.Bytes(), root)
	if err != nil {
		return nil, err
	}

	var resultBytes []byte
	if comm.Rank() == root {
		result := r.serializeAtRoot(gathered)
		resultBytes = result.Bytes()
	}

	broadcastBytes, err := comm.Broadcast(resultBytes, root)
	if err != nil {
		return nil, err
	}

	out, err := candidate.FromBytes(broadcastBytes)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) serializeAtRoot(gathered [][]byte) *candidate.Map {
	out := candidate.NewMap()

	particles := newPairSet()
	residues := newPairSet()
	molecules := newPairSet()

	accepted := 0
	unbounded := r.cfg.MaxPerInterval <= 0

	for _, buf := range gathered {
		m, err := candidate.FromBytes(buf)
		if err != nil {
			continue // a corrupt per-rank payload contributes nothing; not a fatal transport error
		}
		for _, rec := range m.All() {
			if !unbounded && accepted >= r.cfg.MaxPerInterval {
				break
			}

			def := r.reactions[rec.ReactionIdx]
			a, b := rec.IDLow, rec.IDHigh

			if particles.used[a] || particles.used[b] {
				continue
			}

			resA, resB := r.topology.ResID(a), r.topology.ResID(b)
			if !def.IntraResidual && (residues.isAdjacent(resA, resB) || residues.used[resA] || residues.used[resB]) {
				continue
			}

			molA, molB := r.topology.MoleculeID(a), r.topology.MoleculeID(b)
			if !def.IntraMolecular {
				if molecules.isAdjacent(molA, molB) || r.topology.SameMolecule(a, b) {
					continue
				}
			}

			particles.claim(a, b)
			residues.claim(resA, resB)
			molecules.claim(molA, molB)
			out.Insert(rec)
			accepted++
		}
	}

	return out
}
