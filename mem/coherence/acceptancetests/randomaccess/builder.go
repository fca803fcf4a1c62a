package randomaccess

import (
	"math/rand"

	"github.com/sarchlab/msisim/mem/coherence/hierarchy"
)

// A Builder can build agents.
type Builder struct {
	seed           int64
	maxAddress     uint64
	accessesPerCPU int
	storeRatio     float64
	maxGap         int
	maxPending     int
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		seed:           1,
		maxAddress:     64 * 1024,
		accessesPerCPU: 1000,
		storeRatio:     0.5,
		maxGap:         8,
		maxPending:     4,
	}
}

// WithSeed sets the random seed.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithMaxAddress sets the size of the address range the agent touches.
func (b Builder) WithMaxAddress(addr uint64) Builder {
	b.maxAddress = addr
	return b
}

// WithAccessesPerCore sets how many accesses every core issues.
func (b Builder) WithAccessesPerCore(n int) Builder {
	b.accessesPerCPU = n
	return b
}

// WithStoreRatio sets the probability that an access is a store.
func (b Builder) WithStoreRatio(r float64) Builder {
	b.storeRatio = r
	return b
}

// WithMaxGap sets the maximum number of cycles between two accesses of a
// core.
func (b Builder) WithMaxGap(cycles int) Builder {
	b.maxGap = cycles
	return b
}

// WithMaxPending sets how many accesses a core can wait for.
func (b Builder) WithMaxPending(n int) Builder {
	b.maxPending = n
	return b
}

// Build creates an agent that drives the system.
func (b Builder) Build(sys *hierarchy.System) *Agent {
	if b.maxAddress < 8 || b.maxGap <= 0 || b.maxPending <= 0 {
		panic("invalid agent parameters")
	}

	n := len(sys.L1s)

	a := &Agent{
		sys:          sys,
		rng:          rand.New(rand.NewSource(b.seed)),
		MaxAddress:   b.maxAddress,
		StoreRatio:   b.storeRatio,
		MaxGap:       b.maxGap,
		MaxPending:   b.maxPending,
		AccessesLeft: make([]int, n),
		Pending:      make([]int, n),
		KnownValues:  make(map[uint64]uint64),
	}

	for i := range a.AccessesLeft {
		a.AccessesLeft[i] = b.accessesPerCPU
	}

	return a
}
