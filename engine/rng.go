package engine

import (
	"hash/fnv"
	"math/rand"
)

// Subsystem name constants for RNG streams commonly requested by kernel
// components. Models may request arbitrary additional subsystem names.
const (
	SubsystemBitError = "bit-error"
	SubsystemRouting  = "routing"
)

// RNGBank provides deterministic, isolated PRNG streams per named
// subsystem, derived from a single master seed. Two runs with the same
// master seed and the same sequence of ForSubsystem calls produce bit-for-
// bit identical streams, which is what makes the "seed-N" configuration
// option (spec §6) reproducible.
//
// Grounded on the teacher's PartitionedRNG (sim/rng.go, sim/cluster/rng.go):
// same derivation formula (masterSeed XOR fnv1a64(subsystemName)), same
// lazy-create-and-cache-by-name behavior. Not safe for concurrent use,
// matching the teacher's documented contract — the kernel's own execution
// model guarantees single-threaded access anyway (spec §5).
type RNGBank struct {
	masterSeed int64
	streams    map[string]*rand.Rand
}

// NewRNGBank creates an RNGBank seeded from masterSeed.
func NewRNGBank(masterSeed int64) *RNGBank {
	return &RNGBank{masterSeed: masterSeed, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the (lazily created, cached) RNG stream for name.
func (b *RNGBank) ForSubsystem(name string) *rand.Rand {
	if r, ok := b.streams[name]; ok {
		return r
	}
	seed := b.masterSeed ^ fnv1a64(name)
	r := rand.New(rand.NewSource(seed))
	b.streams[name] = r
	return r
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
