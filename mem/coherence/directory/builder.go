package directory

import (
	"github.com/sarchlab/msisim/mem/coherence"
)

// A Builder can build directories.
type Builder struct {
	ctx      *coherence.Context
	id       coherence.ControllerID
	sender   coherence.Sender
	memory   Memory
	numSets  int
	numWays  int
	lineSize int
	latency  int
	policy   FirstTouchPolicy
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		numSets:  256,
		numWays:  8,
		lineSize: 64,
		latency:  10,
		policy:   FirstTouchShared,
	}
}

// WithContext sets the simulation context.
func (b Builder) WithContext(ctx *coherence.Context) Builder {
	b.ctx = ctx
	return b
}

// WithID sets the network identity of the directory.
func (b Builder) WithID(id coherence.ControllerID) Builder {
	b.id = id
	return b
}

// WithSender sets how the directory sends messages.
func (b Builder) WithSender(s coherence.Sender) Builder {
	b.sender = s
	return b
}

// WithMemory sets the memory below the directory.
func (b Builder) WithMemory(m Memory) Builder {
	b.memory = m
	return b
}

// WithNumSets sets the number of sets.
func (b Builder) WithNumSets(n int) Builder {
	b.numSets = n
	return b
}

// WithNumWays sets the associativity.
func (b Builder) WithNumWays(n int) Builder {
	b.numWays = n
	return b
}

// WithLineSize sets the number of bytes in a line.
func (b Builder) WithLineSize(n int) Builder {
	b.lineSize = n
	return b
}

// WithLatency sets the number of cycles between receiving a message and
// processing it.
func (b Builder) WithLatency(cycles int) Builder {
	b.latency = cycles
	return b
}

// WithFirstTouchPolicy sets what a GetS to an unheld line grants.
func (b Builder) WithFirstTouchPolicy(p FirstTouchPolicy) Builder {
	b.policy = p
	return b
}

// Build creates a directory.
func (b Builder) Build(name string) *Comp {
	if b.ctx == nil {
		panic("context is not set")
	}

	if b.sender == nil {
		panic("sender is not set")
	}

	if b.memory == nil {
		panic("memory is not set")
	}

	if b.latency < 0 {
		panic("invalid directory latency")
	}

	c := &Comp{
		name:       name,
		id:         b.id,
		ctx:        b.ctx,
		sender:     b.sender,
		memory:     b.memory,
		latency:    b.latency,
		policy:     b.policy,
		tags:       coherence.NewTagArray(b.numSets, b.numWays, b.lineSize, coherence.DirI),
		entries:    make([]entry, b.numSets*b.numWays),
		flows:      make(map[uint64]*flow),
		downward:   make(map[uint64]*flow),
		reserved:   make(map[uint64]*line),
		setWaiters: make([][]*coherence.Msg, b.numSets),
	}

	for i := range c.entries {
		c.entries[i].owner = coherence.NoController
	}

	return c
}
