package idealmemory

import (
	"github.com/sarchlab/msisim/mem"
	"github.com/sarchlab/msisim/sim"
)

// A Builder can build ideal memories.
type Builder struct {
	engine   sim.Engine
	latency  int
	capacity uint64
	storage  *mem.Storage
}

// MakeBuilder returns a new Builder
func MakeBuilder() Builder {
	return Builder{
		latency:  100,
		capacity: 4 << 30,
	}
}

// WithEngine sets the engine of the memory
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithLatency sets the number of cycles before a request completes.
func (b Builder) WithLatency(latency int) Builder {
	b.latency = latency
	return b
}

// WithNewStorage lets the memory create a storage with the given capacity.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithStorage sets the storage of the memory. It takes precedence over
// WithNewStorage.
func (b Builder) WithStorage(storage *mem.Storage) Builder {
	b.storage = storage
	return b
}

// Build creates a new memory.
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		panic("engine is not set")
	}

	if b.latency < 0 {
		panic("latency cannot be negative")
	}

	storage := b.storage
	if storage == nil {
		storage = mem.NewStorage(b.capacity)
	}

	return &Comp{
		name:    name,
		engine:  b.engine,
		storage: storage,
		latency: b.latency,
	}
}
