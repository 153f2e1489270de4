// Package engine wires the seven reaction-engine components (C1-C7) into
// the single per-step operation a host particle simulation drives:
// React(). It owns configuration, registration, and the collaborator
// contracts the host must satisfy (spec.md §6).
package engine

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/example/dcre/internal/candidate"
	"github.com/example/dcre/internal/dcrerand"
	"github.com/example/dcre/internal/ghostsync"
	"github.com/example/dcre/internal/host"
	"github.com/example/dcre/internal/mutation"
	"github.com/example/dcre/internal/particle"
	"github.com/example/dcre/internal/reaction"
	"github.com/example/dcre/internal/resolver"
	"github.com/example/dcre/internal/stats"
	"github.com/example/dcre/internal/transport"
)

// Config is the tunable surface spec.md §6 exposes to registration and
// per-step behavior. The CLI (see cmd package) fills it from flags and,
// when given a YAML file, from the decoded config.EngineConfig.
type Config struct {
	Interval             int    `yaml:"interval"`
	NearestMode          bool   `yaml:"nearestMode"`
	MaxPerInterval       int    `yaml:"maxPerInterval"`
	PairDistanceFileName string `yaml:"pairDistanceFilename"`
	Seed                 int64  `yaml:"seed"`
	HaloTag              int    `yaml:"-"`
	GhostSyncTag         int    `yaml:"-"`
}

const (
	defaultHaloTag      = 100
	defaultGhostSyncTag = 200
)

// Engine ties the host collaborators to the seven internal components and
// runs one full React() round on demand.
type Engine struct {
	cfg Config
	log *logrus.Logger

	storage  host.Storage
	topology host.TopologyManager
	neighbor host.NeighborList
	comm     transport.Comm
	grid     transport.Grid

	forward []*reaction.Descriptor
	reverse []*reaction.Descriptor

	rng       *dcrerand.PartitionedRNG
	resolver  *resolver.Resolver
	mutEngine *mutation.Engine
	recorder  *stats.Recorder

	step int64
}

// Deps bundles the host-provided collaborators an Engine needs. Storage,
// Topology, Neighbor, Comm, and Grid are required; New panics if any is
// nil, matching the original's "wrong construction is a programmer error"
// convention. Recorder and Log are optional: a nil Recorder is replaced by
// a fresh stats.Recorder and a nil Log by logrus's standard logger.
type Deps struct {
	Storage  host.Storage
	Topology host.TopologyManager
	Neighbor host.NeighborList
	Comm     transport.Comm
	Grid     transport.Grid
	Recorder *stats.Recorder
	Log      *logrus.Logger
}

// New constructs an Engine bound to one rank's collaborators. Reactions
// must be registered afterward via Register/RegisterReverse before the
// first React call.
func New(cfg Config, deps Deps) *Engine {
	if deps.Storage == nil || deps.Topology == nil || deps.Neighbor == nil || deps.Comm == nil || deps.Grid == nil {
		panic("engine: New requires non-nil Storage, Topology, Neighbor, Comm, and Grid")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 1
	}
	if cfg.HaloTag == 0 {
		cfg.HaloTag = defaultHaloTag
	}
	if cfg.GhostSyncTag == 0 {
		cfg.GhostSyncTag = defaultGhostSyncTag
	}
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = stats.NewRecorder(nil)
	}

	e := &Engine{
		cfg:      cfg,
		log:      log,
		storage:  deps.Storage,
		topology: deps.Topology,
		neighbor: deps.Neighbor,
		comm:     deps.Comm,
		grid:     deps.Grid,
		rng:      dcrerand.NewPartitionedRNG(cfg.Seed),
		recorder: recorder,
	}
	return e
}

// Register adds a forward reaction and assigns its Index. def.Validate is
// called immediately, panicking on misconfiguration per spec.md §7.
func (e *Engine) Register(def *reaction.Descriptor) {
	def.Validate()
	def.Index = len(e.forward)
	e.forward = append(e.forward, def)
	e.rebuild()
}

// RegisterReverse adds a reverse (dissociation) reaction.
func (e *Engine) RegisterReverse(def *reaction.Descriptor) {
	def.Validate()
	def.Index = len(e.reverse)
	e.reverse = append(e.reverse, def)
	e.rebuild()
}

func (e *Engine) rebuild() {
	e.resolver = resolver.New(
		resolver.Config{NearestMode: e.cfg.NearestMode, MaxPerInterval: e.cfg.MaxPerInterval},
		e.storage, e.topology, e.forward,
	)
	e.mutEngine = &mutation.Engine{
		Storage:  e.storage,
		Forward:  e.forward,
		Reverse:  e.reverse,
		RNG:      e.rng.ForRank(int(e.comm.Rank())),
		Log:      e.log,
		Topology: e.topology,
		Recorder: e.recorder,
	}
}

// RequiredNeighborCutoff returns the largest finite cutoff among
// registered forward reactions, i.e. the neighbor-list cutoff the host
// simulation must maintain for DCRE's candidate search to see every
// eligible pair. Reverse reactions never constrain the neighbor list
// since dissociation only inspects already-bonded pairs.
func (e *Engine) RequiredNeighborCutoff() float64 {
	max := 0.0
	for _, def := range e.forward {
		if math.IsInf(def.Cutoff, 1) {
			continue
		}
		if def.Cutoff > max {
			max = def.Cutoff
		}
	}
	return max
}

// OnAfterIntegrate implements the AfterIntegrateObserver contract: it
// runs one React round every Interval integration steps.
func (e *Engine) OnAfterIntegrate(step int64) error {
	e.step = step
	if step%int64(e.cfg.Interval) != 0 {
		return nil
	}
	return e.React(1.0)
}

// React runs one full candidate-proposal, resolution, mutation, and
// ghost-sync round, per spec.md §2's pipeline. dt is the elapsed
// simulation time since the previous React call, in the same units Rate
// is expressed in.
//
// Each of the five phases is wrapped in a named recorder.Time call, mapped
// from the original's timeLoopPair/timeComm/timeApplyDR/timeApplyAR/
// timeUpdateGhost fields (ChemicalReactionExt.hpp's resetTimers): loopPair
// covers candidate proposal, comm covers the three halo exchanges plus
// global serialization, and applyDR/applyAR/updateGhost cover their
// like-named phase.
func (e *Engine) React(dt float64) error {
	rng := e.rng.ForRank(int(e.comm.Rank()))

	var local *candidate.Map
	e.recorder.Time("loopPair", func() {
		local = e.proposeLocal(dt, rng)
	})

	var resolved *candidate.Map
	var resolveErr error
	e.recorder.Time("comm", func() {
		merged, err := e.exchangeAndMerge(local, e.cfg.HaloTag)
		if err != nil {
			resolveErr = fmt.Errorf("engine: exchanging local candidates: %w", err)
			return
		}

		afterA := e.resolver.UniqueA(merged, rng)
		mergedA, err := e.exchangeAndMerge(afterA, e.cfg.HaloTag+1)
		if err != nil {
			resolveErr = fmt.Errorf("engine: exchanging pass-A candidates: %w", err)
			return
		}

		afterB := e.resolver.UniqueB(mergedA, rng)
		mergedB, err := e.exchangeAndMerge(afterB, e.cfg.HaloTag+2)
		if err != nil {
			resolveErr = fmt.Errorf("engine: exchanging pass-B candidates: %w", err)
			return
		}

		resolved, err = e.resolver.GlobalSerialize(e.comm, 0, mergedB)
		if err != nil {
			resolveErr = fmt.Errorf("engine: global serialization: %w", err)
		}
	})
	if resolveErr != nil {
		return resolveErr
	}

	var dissolved []*particle.Particle
	e.recorder.Time("applyDR", func() {
		dissolved = e.mutEngine.ApplyDR(dt, e.cfg.Interval, e.step)
	})
	e.comm.Barrier()

	var associated []*particle.Particle
	e.recorder.Time("applyAR", func() {
		associated = e.mutEngine.ApplyAR(resolved, e.step)
	})
	e.comm.Barrier()

	modified := append(dissolved, associated...)
	var syncErr error
	e.recorder.Time("updateGhost", func() {
		syncErr = ghostsync.Sync(e.comm, e.grid, e.storage, e.cfg.GhostSyncTag, modified)
	})
	if syncErr != nil {
		return fmt.Errorf("engine: ghost sync: %w", syncErr)
	}

	if e.cfg.PairDistanceFileName != "" {
		if err := e.recorder.FlushPairDistances(e.comm, 0, e.step); err != nil {
			e.log.WithError(err).Warn("engine: failed flushing pair-distance log")
		}
	}

	e.log.WithFields(logrus.Fields{
		"step":      e.step,
		"resolved":  resolved.Len(),
		"dissolved": len(dissolved) / 2,
	}).Debug("engine: React round complete")

	return nil
}

// proposeLocal walks every local candidate pair the neighbor list offers
// against every active forward reaction, keeping every one that passes
// IsValidPair. The r² each candidate carries is only ever recorded to the
// pair-distance log once it accepts (mutation.Engine.ApplyAR), since most
// proposals here are later pruned by conflict resolution or fail their
// re-check at association time.
func (e *Engine) proposeLocal(dt float64, rng dcrerand.Source) *candidate.Map {
	out := candidate.NewMap()
	for _, pair := range e.neighbor.Pairs() {
		p1, p2 := pair[0], pair[1]
		for _, def := range e.forward {
			ok, ordered, rSq := def.IsValidPair(p1, p2, dt, e.cfg.Interval, rng)
			if !ok {
				continue
			}
			out.Insert(candidate.NewRecord(ordered[0].PID, ordered[1].PID, def.Index, def.Rate, rSq))
		}
	}
	return out
}

// exchangeAndMerge halo-exchanges m's serialized form and folds every
// received map, plus m itself, into one merged result.
func (e *Engine) exchangeAndMerge(m *candidate.Map, tag int) (*candidate.Map, error) {
	received, err := transport.ExchangeHalo(e.comm, e.grid, tag, m.Bytes())
	if err != nil {
		return nil, err
	}
	merged := candidate.NewMap()
	merged.Merge(m)
	for _, buf := range received {
		other, err := candidate.FromBytes(buf)
		if err != nil {
			e.log.WithError(err).Warn("engine: dropping malformed candidate payload")
			continue
		}
		merged.Merge(other)
	}
	return merged, nil
}

// Ensure Engine satisfies the observer contract host simulations expect.
var _ interface{ OnAfterIntegrate(int64) error } = (*Engine)(nil)
