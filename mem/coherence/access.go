package coherence

import (
	"fmt"

	"github.com/sarchlab/msisim/sim"
)

// AccessType is the kind of a memory reference issued by a core.
type AccessType uint8

// The access types.
const (
	AccessIFetch AccessType = iota
	AccessLoad
	AccessStore
)

func (t AccessType) String() string {
	switch t {
	case AccessIFetch:
		return "IFetch"
	case AccessLoad:
		return "Load"
	case AccessStore:
		return "Store"
	default:
		return fmt.Sprintf("AccessType(%d)", t)
	}
}

// IsRead tells if the access does not modify memory.
func (t AccessType) IsRead() bool {
	return t == AccessIFetch || t == AccessLoad
}

// Event returns the line event the access triggers.
func (t AccessType) Event() Event {
	switch t {
	case AccessIFetch:
		return EventIFetch
	case AccessLoad:
		return EventLoad
	default:
		return EventStore
	}
}

// An Access is a memory reference that is in flight in a cache controller.
type Access struct {
	ID              uint64
	Thread          int
	Type            AccessType
	VirtualPC       uint64
	PhysicalAddress uint64
	PhysicalTag     uint64

	// Value is written by a store.
	Value uint64

	// Result is the value returned to a load or an instruction fetch.
	Result uint64

	// OnCompleted is invoked once the access finishes.
	OnCompleted func(a *Access)

	// Aliases are the later accesses to the same tag that complete together
	// with this access.
	Aliases []*Access

	IssueTime    sim.VTimeInCycle
	CompleteTime sim.VTimeInCycle
	Completed    bool

	// Hit is set if the access did not need any network message.
	Hit bool
}

func (a *Access) String() string {
	return fmt.Sprintf("access#%d %s thread %d addr 0x%x",
		a.ID, a.Type, a.Thread, a.PhysicalAddress)
}

// Complete marks the access and its aliases as completed and invokes their
// continuations, the access first and then the aliases in issue order.
func (a *Access) Complete(now sim.VTimeInCycle) {
	all := append([]*Access{a}, a.Aliases...)

	for _, x := range all {
		x.Completed = true
		x.CompleteTime = now
	}

	for _, x := range all {
		if x.OnCompleted != nil {
			x.OnCompleted(x)
		}
	}
}
