// Package dcrerand provides deterministic, order-independent random number
// streams for the reaction engine. Randomness must be an injected
// capability rather than global state, and the same rank must draw the
// same sequence run over run given the same seed (spec.md P7).
package dcrerand

import (
	"hash/fnv"
	"math/rand"
)

// Source is the RNG capability a reaction descriptor and conflict resolver
// consume. It deliberately exposes only the two primitives spec.md needs:
// a uniform real in [0,1) and a uniform int in [0,N).
type Source interface {
	Float64() float64
	Intn(n int) int
}

// PartitionedRNG hands out one independent, deterministically derived
// *rand.Rand per named subsystem from a single master seed. Two
// PartitionedRNG values built from the same seed produce identical
// per-subsystem sequences regardless of the order in which subsystems are
// first touched, because each subsystem's seed is derived from the master
// seed XORed with a hash of its name rather than from call order.
type PartitionedRNG struct {
	masterSeed int64
	streams    map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG rooted at masterSeed.
func NewPartitionedRNG(masterSeed int64) *PartitionedRNG {
	return &PartitionedRNG{
		masterSeed: masterSeed,
		streams:    make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the RNG stream for name, creating it on first use.
// Repeated calls with the same name return the same *rand.Rand instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.deriveSeed(name)))
	p.streams[name] = rng
	return rng
}

// ForRank returns the RNG stream reserved for one rank's candidate
// proposal and conflict-resolution draws. Each rank's stream is isolated
// from every other rank's, so acceptance decisions on rank i never
// perturb the sequence seen by rank j.
func (p *PartitionedRNG) ForRank(rank int) *rand.Rand {
	return p.ForSubsystem(subsystemName("rank", rank))
}

func (p *PartitionedRNG) deriveSeed(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	nameHash := int64(h.Sum64())
	return p.masterSeed ^ nameHash
}

func subsystemName(prefix string, n int) string {
	buf := make([]byte, 0, len(prefix)+8)
	buf = append(buf, prefix...)
	buf = append(buf, '_')
	buf = appendInt(buf, n)
	return string(buf)
}

func appendInt(buf []byte, n int) []byte {
	if n < 0 {
		buf = append(buf, '-')
		n = -n
	}
	if n == 0 {
		return append(buf, '0')
	}
	start := len(buf)
	for n > 0 {
		buf = append(buf, byte('0'+n%10))
		n /= 10
	}
	// reverse the digits just appended
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}
