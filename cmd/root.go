// Package cmd implements the dcre-sim command line, a synthetic
// multi-rank scenario runner that exercises the reaction engine end to
// end without requiring a real host particle simulation.
package cmd

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	dcreconfig "github.com/example/dcre/internal/config"
	"github.com/example/dcre/internal/reaction"
	"github.com/example/dcre/internal/stats"
	"github.com/example/dcre/internal/transport"
	"github.com/example/dcre/engine"
)

var (
	rankCount        int
	particlesPerRank int
	spacing          float64
	steps            int
	interval         int
	nearestMode      bool
	maxPerInterval   int
	seed             int64
	logLevel         string
	reactionFile     string
	pairDistanceFile string
)

var rootCmd = &cobra.Command{
	Use:   "dcre-sim",
	Short: "Distributed chemical reaction engine scenario runner",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic multi-rank reaction scenario",
	RunE:  runScenario,
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().IntVar(&rankCount, "ranks", 2, "Number of simulated ranks")
	runCmd.Flags().IntVar(&particlesPerRank, "particles-per-rank", 8, "Particles seeded per rank")
	runCmd.Flags().Float64Var(&spacing, "spacing", 0.5, "Distance between adjacent particles along x")
	runCmd.Flags().IntVar(&steps, "steps", 10, "Number of React rounds to run")
	runCmd.Flags().IntVar(&interval, "interval", 1, "Reaction interval, in React rounds")
	runCmd.Flags().BoolVar(&nearestMode, "nearest", true, "Prefer the nearest candidate over a uniform random pick")
	runCmd.Flags().IntVar(&maxPerInterval, "max-per-interval", 0, "Cap on accepted reactions per round (0 = unbounded)")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "Master RNG seed")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&reactionFile, "reaction-config", "", "YAML file describing engine tunables and reactions (optional)")
	runCmd.Flags().StringVar(&pairDistanceFile, "pair-distance-file", "", "File to append pair-distance samples to (optional)")

	rootCmd.AddCommand(runCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	log.SetLevel(level)

	cfg := engine.Config{
		Interval:       interval,
		NearestMode:    nearestMode,
		MaxPerInterval: maxPerInterval,
		Seed:           seed,
	}

	var reactions []dcreconfig.ReactionConfig
	if reactionFile != "" {
		f, err := dcreconfig.Load(reactionFile)
		if err != nil {
			return err
		}
		if f.Engine.Interval > 0 {
			cfg.Interval = f.Engine.Interval
		}
		cfg.NearestMode = f.Engine.NearestMode
		cfg.MaxPerInterval = f.Engine.MaxPerInterval
		if f.Engine.Seed != 0 {
			cfg.Seed = f.Engine.Seed
		}
		reactions = f.Reactions
	} else {
		reactions = defaultReactions()
	}

	storages, neighbors := buildRankScenario(rankCount, particlesPerRank, spacing)
	comms := transport.NewLocalCommGroup(rankCount)
	grids := transport.NewLinearGridAlongX(rankCount)

	var pairDistWriter *os.File
	if pairDistanceFile != "" {
		pairDistWriter, err = os.Create(pairDistanceFile)
		if err != nil {
			return fmt.Errorf("creating pair distance file: %w", err)
		}
		defer pairDistWriter.Close()
		cfg.PairDistanceFileName = pairDistanceFile
	}

	recorder := stats.NewRecorder(pairDistWriter)
	engines := make([]*engine.Engine, rankCount)
	for r := 0; r < rankCount; r++ {
		e := engine.New(cfg, engine.Deps{
			Storage:  storages[r],
			Topology: flatTopology{},
			Neighbor: neighbors[r],
			Comm:     comms[r],
			Grid:     grids[r],
			Recorder: recorder,
			Log:      log,
		})
		// A reverse reaction only ever dissolves bonds formed by its own
		// forward counterpart, so both share one PairList keyed on the
		// unordered (typeA, typeB) pair rather than each registration
		// getting its own empty list.
		bondLists := make(map[[2]int]reaction.PairList)
		for _, rc := range reactions {
			def := rc.ToDescriptor()
			def.BondList = bondListFor(bondLists, rc.TypeA, rc.TypeB)
			if def.Reverse {
				e.RegisterReverse(def)
			} else {
				e.Register(def)
			}
		}
		engines[r] = e
	}

	for step := 0; step < steps; step++ {
		var wg sync.WaitGroup
		wg.Add(rankCount)
		errs := make([]error, rankCount)
		for r := 0; r < rankCount; r++ {
			r := r
			go func() {
				defer wg.Done()
				errs[r] = engines[r].OnAfterIntegrate(int64(step))
			}()
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}

	fmt.Printf("dcre-sim: %d ranks, %d steps complete\n", rankCount, steps)
	// Forward reactions are indexed in registration order among forward
	// reactions only (engine.Register), so reverse entries are skipped.
	forwardIdx := 0
	for idx, rc := range reactions {
		if rc.Reverse {
			continue
		}
		total := 0
		for step := 0; step < steps; step++ {
			total += recorder.ForwardCount(int64(step), forwardIdx)
		}
		fmt.Printf("  reaction[%d]: %d accepted associations\n", idx, total)
		forwardIdx++
	}
	return nil
}

// bondListFor returns the PairList shared by every reaction registered for
// the unordered (typeA, typeB) pair, creating one on first use. A reverse
// reaction config typically swaps typeA/typeB relative to its forward
// counterpart, so keying on the unordered pair lets them share a bond list
// without requiring an explicit link in the YAML schema.
func bondListFor(lists map[[2]int]reaction.PairList, typeA, typeB int) reaction.PairList {
	key := [2]int{typeA, typeB}
	if key[0] > key[1] {
		key[0], key[1] = key[1], key[0]
	}
	bl, ok := lists[key]
	if !ok {
		bl = reaction.NewFixedPairList()
		lists[key] = bl
	}
	return bl
}

// defaultReactions gives the scenario something to demonstrate when no
// --reaction-config is supplied: a forward bond between type 0 and type
// 1 particles and its exact reverse.
func defaultReactions() []dcreconfig.ReactionConfig {
	return []dcreconfig.ReactionConfig{
		{TypeA: 0, TypeB: 1, StateMaxA: 5, StateMaxB: 5, DeltaA: 1, DeltaB: 1, Rate: 0.5, Cutoff: 1.0},
		{TypeA: 1, TypeB: 0, StateMaxA: 5, StateMaxB: 5, DeltaA: -1, DeltaB: -1, Rate: 0.1, Reverse: true},
	}
}
