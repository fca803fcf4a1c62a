package hierarchy

import (
	"fmt"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/mem/coherence/directory"
	"github.com/sarchlab/msisim/mem/coherence/l1"
	"github.com/sarchlab/msisim/mem/coherence/p2p"
	"github.com/sarchlab/msisim/mem/idealmemory"
	"github.com/sarchlab/msisim/noc/latencynet"
	"github.com/sarchlab/msisim/sim"
)

// A Builder can build memory hierarchies. Cores get controller IDs from 0 to
// NumCores-1 and the directory gets NumCores.
type Builder struct {
	engine   *sim.SerialEngine
	numCores int
	lineSize int

	l1Sets        int
	l1Ways        int
	l1HitLatency  int
	l1MaxInFlight int

	dirSets    int
	dirWays    int
	dirLatency int
	policy     directory.FirstTouchPolicy

	memLatency  int
	memCapacity uint64

	netBaseLatency   int
	netBytesPerCycle int
	netMaxJitter     int
	netSeed          int64
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		numCores:         2,
		lineSize:         64,
		l1Sets:           64,
		l1Ways:           4,
		l1HitLatency:     2,
		l1MaxInFlight:    8,
		dirSets:          256,
		dirWays:          8,
		dirLatency:       10,
		policy:           directory.FirstTouchShared,
		memLatency:       100,
		memCapacity:      4 << 30,
		netBaseLatency:   4,
		netBytesPerCycle: 16,
		netSeed:          1,
	}
}

// WithEngine sets the engine. A new serial engine is created if it is not
// set.
func (b Builder) WithEngine(engine *sim.SerialEngine) Builder {
	b.engine = engine
	return b
}

// WithNumCores sets the number of private caches.
func (b Builder) WithNumCores(n int) Builder {
	b.numCores = n
	return b
}

// WithLineSize sets the line size shared by every level.
func (b Builder) WithLineSize(n int) Builder {
	b.lineSize = n
	return b
}

// WithL1Geometry sets the number of sets and ways of each private cache.
func (b Builder) WithL1Geometry(numSets, numWays int) Builder {
	b.l1Sets = numSets
	b.l1Ways = numWays

	return b
}

// WithL1HitLatency sets the hit latency of the private caches.
func (b Builder) WithL1HitLatency(cycles int) Builder {
	b.l1HitLatency = cycles
	return b
}

// WithL1MaxInFlight sets how many tags a private cache serves at the same
// time.
func (b Builder) WithL1MaxInFlight(n int) Builder {
	b.l1MaxInFlight = n
	return b
}

// WithDirectoryGeometry sets the number of sets and ways of the directory.
func (b Builder) WithDirectoryGeometry(numSets, numWays int) Builder {
	b.dirSets = numSets
	b.dirWays = numWays

	return b
}

// WithDirectoryLatency sets the directory latency.
func (b Builder) WithDirectoryLatency(cycles int) Builder {
	b.dirLatency = cycles
	return b
}

// WithFirstTouchPolicy sets what a GetS to an unheld line grants.
func (b Builder) WithFirstTouchPolicy(p directory.FirstTouchPolicy) Builder {
	b.policy = p
	return b
}

// WithMemoryLatency sets the backing memory latency.
func (b Builder) WithMemoryLatency(cycles int) Builder {
	b.memLatency = cycles
	return b
}

// WithMemoryCapacity sets the size of the backing memory.
func (b Builder) WithMemoryCapacity(capacity uint64) Builder {
	b.memCapacity = capacity
	return b
}

// WithNetworkLatency sets the base latency and the bandwidth of the network.
func (b Builder) WithNetworkLatency(baseCycles, bytesPerCycle int) Builder {
	b.netBaseLatency = baseCycles
	b.netBytesPerCycle = bytesPerCycle

	return b
}

// WithNetworkJitter makes the network reorder messages with a random extra
// latency of at most maxCycles.
func (b Builder) WithNetworkJitter(maxCycles int, seed int64) Builder {
	b.netMaxJitter = maxCycles
	b.netSeed = seed

	return b
}

// Build creates a memory hierarchy.
func (b Builder) Build(name string) *System {
	if b.numCores <= 0 {
		panic("a hierarchy needs at least one core")
	}

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	ctx := coherence.NewContext(engine)

	network := latencynet.MakeBuilder().
		WithEngine(engine).
		WithBaseLatency(b.netBaseLatency).
		WithBytesPerCycle(b.netBytesPerCycle).
		WithJitter(b.netMaxJitter, b.netSeed).
		Build(name + ".Network")

	router := p2p.NewRouter(name+".Router", ctx, network)

	memory := idealmemory.MakeBuilder().
		WithEngine(engine).
		WithLatency(b.memLatency).
		WithNewStorage(b.memCapacity).
		Build(name + ".Memory")

	dirID := coherence.ControllerID(b.numCores)

	dir := directory.MakeBuilder().
		WithContext(ctx).
		WithID(dirID).
		WithSender(router).
		WithMemory(memory).
		WithNumSets(b.dirSets).
		WithNumWays(b.dirWays).
		WithLineSize(b.lineSize).
		WithLatency(b.dirLatency).
		WithFirstTouchPolicy(b.policy).
		Build(name + ".Directory")
	router.Register(dirID, dir)

	s := &System{
		Engine:    engine,
		Context:   ctx,
		Network:   network,
		Router:    router,
		Directory: dir,
		Memory:    memory,
	}

	l1Builder := l1.MakeBuilder().
		WithContext(ctx).
		WithDirectory(dirID).
		WithSender(router).
		WithNumSets(b.l1Sets).
		WithNumWays(b.l1Ways).
		WithLineSize(b.lineSize).
		WithHitLatency(b.l1HitLatency).
		WithMaxInFlight(b.l1MaxInFlight)

	for i := 0; i < b.numCores; i++ {
		id := coherence.ControllerID(i)
		cache := l1Builder.WithID(id).Build(fmt.Sprintf("%s.L1[%d]", name, i))
		router.Register(id, cache)
		s.L1s = append(s.L1s, cache)
	}

	return s
}
