package l1

import (
	"github.com/sarchlab/msisim/mem/coherence"
)

// A Builder can build private cache controllers.
type Builder struct {
	ctx         *coherence.Context
	id          coherence.ControllerID
	dirID       coherence.ControllerID
	sender      coherence.Sender
	numSets     int
	numWays     int
	lineSize    int
	hitLatency  int
	maxInFlight int
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		dirID:       coherence.NoController,
		numSets:     64,
		numWays:     4,
		lineSize:    64,
		hitLatency:  2,
		maxInFlight: 8,
	}
}

// WithContext sets the simulation context.
func (b Builder) WithContext(ctx *coherence.Context) Builder {
	b.ctx = ctx
	return b
}

// WithID sets the network identity of the controller.
func (b Builder) WithID(id coherence.ControllerID) Builder {
	b.id = id
	return b
}

// WithDirectory sets the directory that the controller talks to.
func (b Builder) WithDirectory(id coherence.ControllerID) Builder {
	b.dirID = id
	return b
}

// WithSender sets how the controller sends messages.
func (b Builder) WithSender(s coherence.Sender) Builder {
	b.sender = s
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

// WithHitLatency sets the number of cycles a hit takes.
func (b Builder) WithHitLatency(cycles int) Builder {
	b.hitLatency = cycles
	return b
}

// WithMaxInFlight sets how many accesses to different tags can be in flight
// at the same time.
func (b Builder) WithMaxInFlight(n int) Builder {
	b.maxInFlight = n
	return b
}

// Build creates a private cache controller.
func (b Builder) Build(name string) *Comp {
	if b.ctx == nil {
		panic("context is not set")
	}

	if b.sender == nil {
		panic("sender is not set")
	}

	if b.dirID == coherence.NoController {
		panic("directory is not set")
	}

	if b.maxInFlight <= 0 || b.hitLatency < 0 {
		panic("invalid cache parameters")
	}

	return &Comp{
		name:        name,
		id:          b.id,
		dirID:       b.dirID,
		ctx:         b.ctx,
		sender:      b.sender,
		tags:        coherence.NewTagArray(b.numSets, b.numWays, b.lineSize, coherence.L1I),
		hitLatency:  b.hitLatency,
		maxInFlight: b.maxInFlight,
		inFlight:    make(map[uint64]*coherence.Access),
		flows:       make(map[uint64]*flow),
		setWaiters:  make([][]*coherence.Access, b.numSets),
	}
}
