package cmd

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/example/dcre/internal/host"
	"github.com/example/dcre/internal/particle"
)

// memStorage is the CLI's own tiny host.Storage: a per-rank map of owned
// and ghost particles. Real hosts back this with their own spatial
// decomposition; this exists only so `dcre-sim run` has something to
// drive the engine against.
type memStorage struct {
	byID map[int64]*particle.Particle
}

func newMemStorage() *memStorage {
	return &memStorage{byID: make(map[int64]*particle.Particle)}
}

func (s *memStorage) LookupReal(pid int64) *particle.Particle {
	p, ok := s.byID[pid]
	if !ok || p.Ghost {
		return nil
	}
	return p
}

func (s *memStorage) LookupLocal(pid int64) *particle.Particle {
	return s.byID[pid]
}

// flatTopology treats every particle as its own residue and molecule,
// the simplest topology that still exercises the intra-residual and
// intra-molecular exclusion predicates (they simply never fire).
type flatTopology struct{}

func (flatTopology) ResID(pid int64) int64        { return pid }
func (flatTopology) MoleculeID(pid int64) int64   { return pid }
func (flatTopology) SameMolecule(a, b int64) bool { return a == b }

// allPairs offers every distinct pair among a rank's locally-held
// particles (owned and ghost) as a reaction candidate. A real host
// filters this to the neighbor list within RequiredNeighborCutoff; this
// demo relies on Descriptor.IsValidPair's own cutoff test instead.
type allPairs struct {
	particles []*particle.Particle
}

func (n *allPairs) Pairs() [][2]*particle.Particle {
	out := make([][2]*particle.Particle, 0, len(n.particles)*(len(n.particles)-1)/2)
	for i := 0; i < len(n.particles); i++ {
		for j := i + 1; j < len(n.particles); j++ {
			out = append(out, [2]*particle.Particle{n.particles[i], n.particles[j]})
		}
	}
	return out
}

var _ host.NeighborList = (*allPairs)(nil)
var _ host.Storage = (*memStorage)(nil)
var _ host.TopologyManager = flatTopology{}

// buildRankScenario lays particlesPerRank particles per rank along the x
// axis (spacing apart), alternating Type 0/1 so a TypeA=0,TypeB=1
// reaction has candidates to find, and replicates each rank's first
// particle to its left ring neighbor and its last particle to its right
// ring neighbor as ghosts.
func buildRankScenario(rankCount, particlesPerRank int, spacing float64) ([]*memStorage, []*allPairs) {
	storages := make([]*memStorage, rankCount)
	neighbors := make([]*allPairs, rankCount)
	for r := 0; r < rankCount; r++ {
		storages[r] = newMemStorage()
	}

	nextID := int64(1)
	rankFirstID := make([]int64, rankCount)
	rankLastID := make([]int64, rankCount)
	for r := 0; r < rankCount; r++ {
		rankFirstID[r] = nextID
		for i := 0; i < particlesPerRank; i++ {
			pid := nextID
			nextID++
			p := &particle.Particle{
				PID:   pid,
				Type:  i % 2,
				State: 0,
				Pos:   r3.Vec{X: float64(pid) * spacing},
			}
			storages[r].byID[pid] = p
		}
		rankLastID[r] = nextID - 1
	}

	for r := 0; r < rankCount; r++ {
		if rankCount > 1 {
			left := (r - 1 + rankCount) % rankCount
			right := (r + 1) % rankCount
			ghostFrom := func(srcRank int, pid int64) {
				src := storages[srcRank].byID[pid]
				if src == nil {
					return
				}
				ghost := *src
				ghost.Ghost = true
				storages[r].byID[pid] = &ghost
			}
			ghostFrom(left, rankLastID[left])
			ghostFrom(right, rankFirstID[right])
		}

		all := make([]*particle.Particle, 0, len(storages[r].byID))
		for _, p := range storages[r].byID {
			all = append(all, p)
		}
		neighbors[r] = &allPairs{particles: all}
	}

	return storages, neighbors
}
