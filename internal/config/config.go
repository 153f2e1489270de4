// Package config decodes the YAML files that describe an engine's
// tunables and its registered reactions (spec.md §6), the way the
// teacher decodes its own scenario configuration.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/dcre/internal/reaction"
)

// EngineConfig groups the per-step tunables an engine.Config is built
// from. It is the on-disk shape; engine.Config carries a couple of
// runtime-only fields (transport tags) this type has no business naming.
type EngineConfig struct {
	Interval             int    `yaml:"interval"`
	NearestMode          bool   `yaml:"nearestMode"`
	MaxPerInterval       int    `yaml:"maxPerInterval"`
	PairDistanceFileName string `yaml:"pairDistanceFilename"`
	Seed                 int64  `yaml:"seed"`
}

// ReactionConfig is the YAML shape of one registered reaction. PostProcess
// hooks and the backing PairList are Go-only concerns and are attached by
// the caller after decoding, never expressed in YAML.
type ReactionConfig struct {
	TypeA          int     `yaml:"typeA"`
	TypeB          int     `yaml:"typeB"`
	StateMinA      int     `yaml:"stateMinA"`
	StateMaxA      int     `yaml:"stateMaxA"`
	StateMinB      int     `yaml:"stateMinB"`
	StateMaxB      int     `yaml:"stateMaxB"`
	DeltaA         int     `yaml:"deltaA"`
	DeltaB         int     `yaml:"deltaB"`
	Rate           float64 `yaml:"rate"`
	Cutoff         float64 `yaml:"cutoff"`
	Reverse        bool    `yaml:"reverse"`
	IntraResidual  bool    `yaml:"intraResidual"`
	IntraMolecular bool    `yaml:"intraMolecular"`
	Virtual        bool    `yaml:"virtual"`
	// Disabled turns the reaction off. Omitting it in YAML decodes to
	// false, so a reaction is active by default, matching the original's
	// active()-defaults-true semantics.
	Disabled bool `yaml:"disabled"`
}

// ToDescriptor builds a *reaction.Descriptor from the decoded config. The
// caller is responsible for attaching BondList (and any PostProcess
// hooks) before calling Validate/Register.
func (c ReactionConfig) ToDescriptor() *reaction.Descriptor {
	cutoff := c.Cutoff
	if c.Reverse && cutoff <= 0 {
		cutoff = math.Inf(1)
	}
	return &reaction.Descriptor{
		TypeA: c.TypeA, TypeB: c.TypeB,
		StateMinA: c.StateMinA, StateMaxA: c.StateMaxA,
		StateMinB: c.StateMinB, StateMaxB: c.StateMaxB,
		DeltaA: c.DeltaA, DeltaB: c.DeltaB,
		Rate: c.Rate, Cutoff: cutoff,
		Reverse: c.Reverse, IntraResidual: c.IntraResidual, IntraMolecular: c.IntraMolecular,
		Virtual: c.Virtual, Disabled: c.Disabled,
	}
}

// File is the top-level document a reaction YAML file decodes into.
type File struct {
	Engine    EngineConfig     `yaml:"engine"`
	Reactions []ReactionConfig `yaml:"reactions"`
}

// Load reads and decodes a File from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &f, nil
}
