package latencynet

import (
	"math/rand"

	"github.com/sarchlab/msisim/sim"
)

// A Builder can build latency networks.
type Builder struct {
	engine        sim.Engine
	baseLatency   int
	bytesPerCycle int
	maxJitter     int
	seed          int64
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		baseLatency:   4,
		bytesPerCycle: 16,
		seed:          1,
	}
}

// WithEngine sets the engine that the network schedules deliveries on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithBaseLatency sets the number of cycles every transfer takes regardless of
// its size.
func (b Builder) WithBaseLatency(cycles int) Builder {
	b.baseLatency = cycles
	return b
}

// WithBytesPerCycle sets the link bandwidth.
func (b Builder) WithBytesPerCycle(n int) Builder {
	b.bytesPerCycle = n
	return b
}

// WithJitter adds a random latency between 0 and maxCycles (inclusive) to
// every transfer. The random sequence is determined by the seed.
func (b Builder) WithJitter(maxCycles int, seed int64) Builder {
	b.maxJitter = maxCycles
	b.seed = seed

	return b
}

// Build creates a network.
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		panic("engine is not set")
	}

	if b.bytesPerCycle <= 0 {
		panic("bytes per cycle must be positive")
	}

	if b.baseLatency < 0 || b.maxJitter < 0 {
		panic("latency cannot be negative")
	}

	return &Comp{
		name:          name,
		engine:        b.engine,
		baseLatency:   b.baseLatency,
		bytesPerCycle: b.bytesPerCycle,
		maxJitter:     b.maxJitter,
		rng:           rand.New(rand.NewSource(b.seed)),
	}
}
