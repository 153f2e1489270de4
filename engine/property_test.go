package engine

// This file pins the quantified properties and literal seed scenarios down
// to concrete tests, one per property/scenario not already exercised
// end-to-end elsewhere (P1 lives in candidate/map_test.go, P5/P6 in
// resolver_test.go and ghostsync_test.go, seed scenario 1 and the zero-rate
// half of P9 in engine_test.go).

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dcre/internal/particle"
	"github.com/example/dcre/internal/reaction"
	"github.com/example/dcre/internal/stats"
	"github.com/example/dcre/internal/transport"
)

// P2: after resolution, no particle id appears as an endpoint of two
// accepted edges in the same step. Two candidate pairs sharing particle 2
// compete; only one may survive.
func TestProperty_P2_NoParticleAppearsInTwoAcceptedEdges(t *testing.T) {
	p1 := &particle.Particle{PID: 1, Type: 0, Pos: vec(0, 0, 0)}
	p2 := &particle.Particle{PID: 2, Type: 1, Pos: vec(0.1, 0, 0)}
	p3 := &particle.Particle{PID: 3, Type: 0, Pos: vec(0.2, 0, 0)}
	storage := &memStorage{byID: map[int64]*particle.Particle{1: p1, 2: p2, 3: p3}}
	neighbors := &staticNeighbors{pairs: [][2]*particle.Particle{{p1, p2}, {p3, p2}}}

	comms := transport.NewLocalCommGroup(1)
	grids := transport.NewLinearGridAlongX(1)

	bondList := reaction.NewFixedPairList()
	e := New(Config{Interval: 1}, Deps{
		Storage: storage, Topology: memTopology{}, Neighbor: neighbors,
		Comm: comms[0], Grid: grids[0], Recorder: stats.NewRecorder(nil), Log: newQuietLogger(),
	})
	e.Register(&reaction.Descriptor{
		Rate: 1e9, Cutoff: 1.0,
		TypeA: 0, TypeB: 1, StateMaxA: 10, StateMaxB: 10, BondList: bondList,
	})

	require.NoError(t, e.React(1.0))
	assert.Equal(t, 1, bondList.Len(), "particle 2 can close only one of the two competing edges")
}

// residueTopology assigns a fixed residue and molecule id per particle,
// letting property tests exercise the resolver's cross-rank exclusion
// checks without a real host topology.
type residueTopology struct {
	res map[int64]int64
	mol map[int64]int64
}

func (r residueTopology) ResID(pid int64) int64      { return r.res[pid] }
func (r residueTopology) MoleculeID(pid int64) int64 { return r.mol[pid] }
func (r residueTopology) SameMolecule(a, b int64) bool {
	return r.mol[a] == r.mol[b]
}

// P3: with intraMolecular=false, no accepted edge has equal moleculeId
// endpoints.
func TestProperty_P3_RejectsSameMoleculeWhenIntraMolecularDisabled(t *testing.T) {
	p1 := &particle.Particle{PID: 1, Type: 0, MoleculeID: 5, Pos: vec(0, 0, 0)}
	p2 := &particle.Particle{PID: 2, Type: 1, MoleculeID: 5, Pos: vec(0.1, 0, 0)}
	storage := &memStorage{byID: map[int64]*particle.Particle{1: p1, 2: p2}}
	neighbors := &staticNeighbors{pairs: [][2]*particle.Particle{{p1, p2}}}

	comms := transport.NewLocalCommGroup(1)
	grids := transport.NewLinearGridAlongX(1)

	bondList := reaction.NewFixedPairList()
	e := New(Config{Interval: 1}, Deps{
		Storage: storage, Topology: residueTopology{res: map[int64]int64{1: 1, 2: 2}, mol: map[int64]int64{1: 5, 2: 5}},
		Neighbor: neighbors, Comm: comms[0], Grid: grids[0], Recorder: stats.NewRecorder(nil), Log: newQuietLogger(),
	})
	e.Register(&reaction.Descriptor{
		Rate: 1e9, Cutoff: 1.0, IntraMolecular: false,
		TypeA: 0, TypeB: 1, StateMaxA: 10, StateMaxB: 10, BondList: bondList,
	})

	require.NoError(t, e.React(1.0))
	assert.False(t, bondList.Has(1, 2), "same-molecule endpoints must be rejected by C4's global serialization")
}

// P4: with intraResidual=false, at most one accepted edge touches a given
// residue in a step. Two disjoint candidate pairs (no shared particle id)
// each have one endpoint in residue 7; only the first proposed may be
// accepted.
func TestProperty_P4_AtMostOneAcceptedEdgePerResidue(t *testing.T) {
	pA := &particle.Particle{PID: 1, Type: 0, ResID: 7, Pos: vec(0, 0, 0)}
	pB1 := &particle.Particle{PID: 2, Type: 1, ResID: 70, Pos: vec(0.1, 0, 0)}
	pA2 := &particle.Particle{PID: 3, Type: 0, ResID: 7, Pos: vec(0.2, 0, 0)}
	pB2 := &particle.Particle{PID: 4, Type: 1, ResID: 80, Pos: vec(0.3, 0, 0)}
	storage := &memStorage{byID: map[int64]*particle.Particle{1: pA, 2: pB1, 3: pA2, 4: pB2}}
	neighbors := &staticNeighbors{pairs: [][2]*particle.Particle{{pA, pB1}, {pA2, pB2}}}

	comms := transport.NewLocalCommGroup(1)
	grids := transport.NewLinearGridAlongX(1)

	bondList := reaction.NewFixedPairList()
	e := New(Config{Interval: 1}, Deps{
		Storage: storage,
		Topology: residueTopology{
			res: map[int64]int64{1: 7, 2: 70, 3: 7, 4: 80},
			mol: map[int64]int64{1: 1, 2: 2, 3: 3, 4: 4},
		},
		Neighbor: neighbors, Comm: comms[0], Grid: grids[0], Recorder: stats.NewRecorder(nil), Log: newQuietLogger(),
	})
	e.Register(&reaction.Descriptor{
		Rate: 1e9, Cutoff: 1.0, IntraResidual: false,
		TypeA: 0, TypeB: 1, StateMaxA: 10, StateMaxB: 10, BondList: bondList,
	})

	require.NoError(t, e.React(1.0))
	assert.Equal(t, 1, bondList.Len(), "residue 7 is claimed by the (1,2) edge; (3,4) touches residue 7 too and must be rejected even though it shares no particle with (1,2)")
	assert.True(t, bondList.Has(1, 2))
}

// P7: determinism. Identical initial conditions, rank layout, and seed
// produce the identical accepted edge across repeated runs.
func TestProperty_P7_DeterministicAcrossRepeatedRuns(t *testing.T) {
	run := func() bool {
		p1 := &particle.Particle{PID: 1, Type: 0, Pos: vec(0, 0, 0)}
		p2 := &particle.Particle{PID: 2, Type: 1, Pos: vec(0.5, 0, 0)}
		p3 := &particle.Particle{PID: 3, Type: 0, Pos: vec(1.0, 0, 0)}
		storage := &memStorage{byID: map[int64]*particle.Particle{1: p1, 2: p2, 3: p3}}
		neighbors := &staticNeighbors{pairs: [][2]*particle.Particle{{p1, p2}, {p3, p2}}}

		comms := transport.NewLocalCommGroup(1)
		grids := transport.NewLinearGridAlongX(1)

		bondList := reaction.NewFixedPairList()
		e := New(Config{Interval: 1, Seed: 42, NearestMode: false}, Deps{
			Storage: storage, Topology: memTopology{}, Neighbor: neighbors,
			Comm: comms[0], Grid: grids[0], Recorder: stats.NewRecorder(nil), Log: newQuietLogger(),
		})
		e.Register(&reaction.Descriptor{
			Rate: 0.5, Cutoff: 2.0,
			TypeA: 0, TypeB: 1, StateMaxA: 10, StateMaxB: 10, BondList: bondList,
		})
		require.NoError(t, e.React(1.0))
		return bondList.Has(1, 2)
	}

	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run(), "identical seed and layout must reproduce the identical accepted-edge outcome")
	}
}

// P8: round trip. Applying a reverse reaction with the negated deltas
// immediately after the forward reaction that formed a bond restores state
// and removes the bond.
func TestProperty_P8_ForwardThenReverseRoundTrips(t *testing.T) {
	p1 := &particle.Particle{PID: 1, Type: 0, State: 0, Pos: vec(0, 0, 0)}
	p2 := &particle.Particle{PID: 2, Type: 1, State: 0, Pos: vec(0.1, 0, 0)}
	storage := &memStorage{byID: map[int64]*particle.Particle{1: p1, 2: p2}}

	bondList := reaction.NewFixedPairList()
	comms := transport.NewLocalCommGroup(1)
	grids := transport.NewLinearGridAlongX(1)

	e := New(Config{Interval: 1}, Deps{
		Storage: storage, Topology: memTopology{}, Neighbor: &staticNeighbors{pairs: [][2]*particle.Particle{{p1, p2}}},
		Comm: comms[0], Grid: grids[0], Recorder: stats.NewRecorder(nil), Log: newQuietLogger(),
	})
	e.Register(&reaction.Descriptor{
		Rate: 1e9, Cutoff: 1.0,
		TypeA: 0, TypeB: 1, StateMinA: 0, StateMaxA: 1, StateMinB: 0, StateMaxB: 1,
		DeltaA: 1, DeltaB: 1, BondList: bondList,
	})
	require.NoError(t, e.React(1.0))
	require.True(t, bondList.Has(1, 2))
	require.Equal(t, 1, p1.State)
	require.Equal(t, 1, p2.State)

	e.RegisterReverse(&reaction.Descriptor{
		Reverse: true, Rate: 1e9,
		TypeA: 0, TypeB: 1, StateMinA: 1, StateMaxA: 2, StateMinB: 1, StateMaxB: 2,
		DeltaA: -1, DeltaB: -1, BondList: bondList,
	})
	// Reverse-only round: the forward reaction has no remaining eligible
	// pair since both endpoints already left [0,1), so React only exercises
	// ApplyDR against the preloaded bond.
	e.forward[0].Disabled = true
	require.NoError(t, e.React(1.0))

	assert.False(t, bondList.Has(1, 2))
	assert.Equal(t, 0, p1.State)
	assert.Equal(t, 0, p2.State)
}

// P9 (second half): with rate*dt*interval >= 1, every geometrically
// eligible pair is proposed and, absent any conflict between them,
// accepted.
func TestProperty_P9_SaturatedRateAcceptsEveryDisjointEligiblePair(t *testing.T) {
	p1 := &particle.Particle{PID: 1, Type: 0, Pos: vec(0, 0, 0)}
	p2 := &particle.Particle{PID: 2, Type: 1, Pos: vec(0.1, 0, 0)}
	p3 := &particle.Particle{PID: 3, Type: 0, Pos: vec(10, 0, 0)}
	p4 := &particle.Particle{PID: 4, Type: 1, Pos: vec(10.1, 0, 0)}
	storage := &memStorage{byID: map[int64]*particle.Particle{1: p1, 2: p2, 3: p3, 4: p4}}
	neighbors := &staticNeighbors{pairs: [][2]*particle.Particle{{p1, p2}, {p3, p4}}}

	comms := transport.NewLocalCommGroup(1)
	grids := transport.NewLinearGridAlongX(1)

	bondList := reaction.NewFixedPairList()
	e := New(Config{Interval: 1}, Deps{
		Storage: storage, Topology: memTopology{}, Neighbor: neighbors,
		Comm: comms[0], Grid: grids[0], Recorder: stats.NewRecorder(nil), Log: newQuietLogger(),
	})
	e.Register(&reaction.Descriptor{
		Rate: 1e9, Cutoff: 1.0,
		TypeA: 0, TypeB: 1, StateMaxA: 10, StateMaxB: 10, BondList: bondList,
	})

	require.NoError(t, e.React(1.0))
	assert.True(t, bondList.Has(1, 2))
	assert.True(t, bondList.Has(3, 4))
	assert.Equal(t, 2, bondList.Len())
}

// Seed Scenario 4: maxPerInterval=1 with three independent eligible pairs
// globally; exactly one accepted edge survives, and it is the first one
// proposed in the (single, root) rank's gather order.
func TestSeedScenario4_MaxPerIntervalCapsToFirstInGatherOrder(t *testing.T) {
	p1 := &particle.Particle{PID: 1, Type: 0, Pos: vec(0, 0, 0)}
	p2 := &particle.Particle{PID: 2, Type: 1, Pos: vec(0.1, 0, 0)}
	p3 := &particle.Particle{PID: 3, Type: 0, Pos: vec(10, 0, 0)}
	p4 := &particle.Particle{PID: 4, Type: 1, Pos: vec(10.1, 0, 0)}
	p5 := &particle.Particle{PID: 5, Type: 0, Pos: vec(20, 0, 0)}
	p6 := &particle.Particle{PID: 6, Type: 1, Pos: vec(20.1, 0, 0)}
	storage := &memStorage{byID: map[int64]*particle.Particle{1: p1, 2: p2, 3: p3, 4: p4, 5: p5, 6: p6}}
	neighbors := &staticNeighbors{pairs: [][2]*particle.Particle{{p1, p2}, {p3, p4}, {p5, p6}}}

	comms := transport.NewLocalCommGroup(1)
	grids := transport.NewLinearGridAlongX(1)

	bondList := reaction.NewFixedPairList()
	e := New(Config{Interval: 1, MaxPerInterval: 1}, Deps{
		Storage: storage, Topology: memTopology{}, Neighbor: neighbors,
		Comm: comms[0], Grid: grids[0], Recorder: stats.NewRecorder(nil), Log: newQuietLogger(),
	})
	e.Register(&reaction.Descriptor{
		Rate: 1e9, Cutoff: 1.0,
		TypeA: 0, TypeB: 1, StateMaxA: 10, StateMaxB: 10, BondList: bondList,
	})

	require.NoError(t, e.React(1.0))
	assert.Equal(t, 1, bondList.Len())
	assert.True(t, bondList.Has(1, 2), "the pair proposed first, in neighbor-list order, wins the cap")
}

// Seed Scenario 5: a reverse reaction over a preloaded bond list of two
// independent bonds, both endpoints in the acceptance window and no
// geometric filter (cutoff defaults to +Inf for reverse reactions);
// expected: both bonds removed, states decremented, modified touches all
// four particles.
func TestSeedScenario5_ReverseReactionDissolvesBothPreloadedBonds(t *testing.T) {
	p1 := &particle.Particle{PID: 1, Type: 0, State: 1}
	p2 := &particle.Particle{PID: 2, Type: 1, State: 1}
	p3 := &particle.Particle{PID: 3, Type: 0, State: 1}
	p4 := &particle.Particle{PID: 4, Type: 1, State: 1}
	storage := &memStorage{byID: map[int64]*particle.Particle{1: p1, 2: p2, 3: p3, 4: p4}}

	bondList := reaction.NewFixedPairList()
	bondList.Add(1, 2)
	bondList.Add(3, 4)

	comms := transport.NewLocalCommGroup(1)
	grids := transport.NewLinearGridAlongX(1)

	e := New(Config{Interval: 1}, Deps{
		Storage: storage, Topology: memTopology{}, Neighbor: &staticNeighbors{},
		Comm: comms[0], Grid: grids[0], Recorder: stats.NewRecorder(nil), Log: newQuietLogger(),
	})
	e.RegisterReverse(&reaction.Descriptor{
		Reverse: true, Rate: 1e9,
		TypeA: 0, TypeB: 1, StateMinA: 0, StateMaxA: 10, StateMinB: 0, StateMaxB: 10,
		DeltaA: -1, DeltaB: -1, BondList: bondList,
	})

	require.NoError(t, e.React(1.0))

	assert.False(t, bondList.Has(1, 2))
	assert.False(t, bondList.Has(3, 4))
	assert.Equal(t, 0, p1.State)
	assert.Equal(t, 0, p2.State)
	assert.Equal(t, 0, p3.State)
	assert.Equal(t, 0, p4.State)
}
