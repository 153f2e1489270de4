// Package mutation applies the two kinds of accepted reaction outcomes —
// dissociation (DR) and association (AR) — to particle state and bond
// lists (spec.md §4.5, C5).
package mutation

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/example/dcre/internal/candidate"
	"github.com/example/dcre/internal/dcrerand"
	"github.com/example/dcre/internal/host"
	"github.com/example/dcre/internal/particle"
	"github.com/example/dcre/internal/reaction"
	"github.com/example/dcre/internal/stats"
)

// Engine applies mutations for one engine step. It carries the same
// per-rank RNG stream the candidate-proposal phase uses, so a reverse
// reaction's own dissociation rate is subject to the same
// deterministic-per-rank stochastic test forward reactions use.
//
// Topology and Recorder are both optional: a caller that never sets them
// gets bond mutation with no molecular-topology tally or telemetry, which
// is what the package's own tests exercise.
type Engine struct {
	Storage  host.Storage
	Forward  []*reaction.Descriptor
	Reverse  []*reaction.Descriptor
	RNG      dcrerand.Source
	Log      *logrus.Logger
	Topology host.TopologyManager
	Recorder *stats.Recorder
}

func runPostProcess(fn reaction.PostProcess, self, partner *particle.Particle, modified *[]*particle.Particle) {
	if fn == nil {
		return
	}
	if extra := fn(self, partner); len(extra) > 0 {
		*modified = append(*modified, extra...)
	}
}

// ApplyDR walks every reverse reaction's bond list and dissolves any bond
// whose endpoints still satisfy that reaction's type/state/cutoff
// predicates and pass its own dissociation-rate stochastic test, per
// spec.md §4.5's dissociation rules. dt and interval scale the rate test
// exactly as they do for forward candidate proposal. step identifies the
// engine round for the reverse-reaction counter. It returns every particle
// whose attributes changed, for the caller to hand to ghost-sync.
func (e *Engine) ApplyDR(dt float64, interval int, step int64) []*particle.Particle {
	var modified []*particle.Particle

	for _, def := range e.Reverse {
		if def.Disabled {
			continue
		}

		// Walk bonds in (idLow, idHigh) order so each RNG draw lands on the
		// same bond run over run; Iterate itself has no fixed order.
		var bonds [][2]int64
		def.BondList.Iterate(func(idLow, idHigh int64) {
			bonds = append(bonds, [2]int64{idLow, idHigh})
		})
		sort.Slice(bonds, func(i, j int) bool {
			if bonds[i][0] != bonds[j][0] {
				return bonds[i][0] < bonds[j][0]
			}
			return bonds[i][1] < bonds[j][1]
		})

		var toRemove [][2]int64
		for _, bond := range bonds {
			idLow, idHigh := bond[0], bond[1]
			p1 := e.Storage.LookupLocal(idLow)
			p2 := e.Storage.LookupLocal(idHigh)
			if p1 == nil || p2 == nil {
				continue // a partner has migrated or been removed since bonding; skip silently
			}

			ok, ordered, _ := def.IsValidPair(p1, p2, dt, interval, e.RNG)
			if !ok {
				continue
			}
			a, b := ordered[0], ordered[1]

			a.State += def.DeltaA
			b.State += def.DeltaB
			modified = append(modified, a, b)

			runPostProcess(def.PostProcessA, a, b, &modified)
			runPostProcess(def.PostProcessB, b, a, &modified)

			toRemove = append(toRemove, [2]int64{idLow, idHigh})
			if e.Recorder != nil {
				e.Recorder.RecordReverse(step, def.Index)
			}
		}

		if len(toRemove) > 0 {
			for _, pair := range toRemove {
				def.BondList.Remove(pair[0], pair[1])
			}
			def.BondList.UpdateParticlesStorage()
		}
	}

	return modified
}

// ApplyAR applies the globally-resolved candidate matching: for each
// surviving record, look up both endpoints by the Order the record was
// created with, re-check type/state eligibility (an endpoint may have
// changed between proposal and application), apply state deltas, run
// post-processes, and insert the new bond unless the reaction is virtual
// or both endpoints are ghosts on this rank. step identifies the engine
// round the counters and pair-distance sample are recorded against.
//
// Every accepted-association side effect on stats.Recorder — the forward
// counter, the intra/inter tally, the pair-distance sample — is recorded
// here and only here, gated on BondList.IAdd actually inserting the pair.
// A record that reaches ApplyAR but whose endpoint migrated away, fails
// StaticEligible on re-check, or belongs to a virtual or both-ghost
// reaction never reaches IAdd and is correctly never counted.
func (e *Engine) ApplyAR(resolved *candidate.Map, step int64) []*particle.Particle {
	var modified []*particle.Particle

	for _, rec := range resolved.All() {
		def := e.Forward[rec.ReactionIdx]
		if def.Disabled {
			continue
		}

		var p1, p2 *particle.Particle
		switch rec.Order {
		case 1:
			p1, p2 = e.Storage.LookupLocal(rec.IDLow), e.Storage.LookupLocal(rec.IDHigh)
		case 2:
			p1, p2 = e.Storage.LookupLocal(rec.IDHigh), e.Storage.LookupLocal(rec.IDLow)
		default:
			panic(fmt.Sprintf("mutation: candidate (%d,%d) has order %d, want 1 or 2", rec.IDLow, rec.IDHigh, rec.Order))
		}

		if p1 == nil || p2 == nil {
			// Neither endpoint is accessed below this point: the order in
			// which a nil check happens relative to any diagnostic logging
			// matters, since logging p1's fields on a nil p1 panics.
			if e.Log != nil {
				e.Log.WithFields(logrus.Fields{"idLow": rec.IDLow, "idHigh": rec.IDHigh}).
					Debug("mutation: candidate endpoint no longer local, dropping")
			}
			continue
		}

		if p1.Type != def.TypeA || p2.Type != def.TypeB {
			if e.Log != nil {
				e.Log.WithFields(logrus.Fields{"idLow": rec.IDLow, "idHigh": rec.IDHigh, "order": rec.Order}).
					Warn("mutation: candidate order does not match reaction types, dropping")
			}
			continue
		}

		if !def.StaticEligible(p1, p2) {
			continue
		}

		p1.State += def.DeltaA
		p2.State += def.DeltaB
		modified = append(modified, p1, p2)

		runPostProcess(def.PostProcessA, p1, p2, &modified)
		runPostProcess(def.PostProcessB, p2, p1, &modified)

		// The original's iadd only ever runs on the rank owning the lower
		// id (FixedPairList is owner-partitioned); mirror that here so a
		// boundary bond is inserted, and counted, on exactly one rank
		// instead of once per rank holding a ghost copy of idLow.
		if !def.Virtual && !(p1.Ghost && p2.Ghost) && e.Storage.LookupReal(rec.IDLow) != nil {
			if def.BondList.IAdd(rec.IDLow, rec.IDHigh) && e.Recorder != nil {
				intra := e.Topology != nil && e.Topology.SameMolecule(rec.IDLow, rec.IDHigh)
				e.Recorder.RecordForward(step, rec.ReactionIdx, intra)
				e.Recorder.RecordPairDistance(rec.RSq)
			}
		}
	}

	return modified
}
