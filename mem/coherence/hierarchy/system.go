// Package hierarchy assembles a coherent memory hierarchy: a private cache
// per core, a shared directory, the backing memory, and the network between
// them.
package hierarchy

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/mem/coherence/directory"
	"github.com/sarchlab/msisim/mem/coherence/l1"
	"github.com/sarchlab/msisim/mem/coherence/p2p"
	"github.com/sarchlab/msisim/mem/idealmemory"
	"github.com/sarchlab/msisim/noc/latencynet"
	"github.com/sarchlab/msisim/sim"
)

// System is an assembled memory hierarchy.
type System struct {
	Engine    *sim.SerialEngine
	Context   *coherence.Context
	Network   *latencynet.Comp
	Router    *p2p.Router
	L1s       []*l1.Comp
	Directory *directory.Comp
	Memory    *idealmemory.Comp
}

// Run runs the simulation until no event is left.
func (s *System) Run() error {
	return s.Engine.Run()
}

// Controllers returns every controller, private caches first.
func (s *System) Controllers() []coherence.Controller {
	ctrls := make([]coherence.Controller, 0, len(s.L1s)+1)

	for _, c := range s.L1s {
		ctrls = append(ctrls, c)
	}

	return append(ctrls, s.Directory)
}

// AcceptHook registers the hook on every controller.
func (s *System) AcceptHook(hook sim.Hook) {
	for _, c := range s.Controllers() {
		c.AcceptHook(hook)
	}
}

// Load starts a load on a core. The callback may be nil.
func (s *System) Load(
	core int,
	addr uint64,
	onCompleted func(*coherence.Access),
) *coherence.Access {
	return s.L1s[core].BeginAccess(&coherence.Access{
		Thread:          core,
		Type:            coherence.AccessLoad,
		PhysicalAddress: addr,
		OnCompleted:     onCompleted,
	})
}

// Store starts a store on a core. The callback may be nil.
func (s *System) Store(
	core int,
	addr, value uint64,
	onCompleted func(*coherence.Access),
) *coherence.Access {
	return s.L1s[core].BeginAccess(&coherence.Access{
		Thread:          core,
		Type:            coherence.AccessStore,
		PhysicalAddress: addr,
		Value:           value,
		OnCompleted:     onCompleted,
	})
}

// IsQuiescent tells if no message, access, or request is in progress.
func (s *System) IsQuiescent() bool {
	if s.Router.NumInFlight() > 0 || !s.Directory.IsIdle() {
		return false
	}

	for _, c := range s.L1s {
		if !c.IsIdle() {
			return false
		}
	}

	return true
}

// CheckInvariants verifies the bookkeeping of the directory. It can be
// called at any time.
func (s *System) CheckInvariants() error {
	return s.Directory.CheckInvariants()
}

// CheckCoherence compares the directory with every private cache. It must
// only be called when the system is quiescent.
func (s *System) CheckCoherence() error {
	if !s.IsQuiescent() {
		return fmt.Errorf("system is not quiescent")
	}

	if err := s.Directory.CheckInvariants(); err != nil {
		return err
	}

	for _, info := range s.Directory.Entries() {
		if err := s.checkEntry(info); err != nil {
			return err
		}
	}

	for _, c := range s.L1s {
		if err := s.checkTracked(c); err != nil {
			return err
		}
	}

	return nil
}

func (s *System) checkEntry(info directory.EntryInfo) error {
	for _, c := range s.L1s {
		state := c.LineState(info.Tag)
		want := s.expectedState(info, c.ID())

		if !want(state) {
			return fmt.Errorf("%s holds 0x%x in %s while the directory is %s",
				c.Name(), info.Tag, state, info.State)
		}

		if state == coherence.L1S {
			data := c.Tags().Lookup(info.Tag).Data
			if !bytes.Equal(data, info.Data) {
				return fmt.Errorf("%s shares 0x%x with stale data",
					c.Name(), info.Tag)
			}
		}
	}

	return nil
}

func (s *System) expectedState(
	info directory.EntryInfo,
	id coherence.ControllerID,
) func(coherence.L1State) bool {
	switch {
	case info.State == coherence.DirM && info.Owner == id:
		return func(st coherence.L1State) bool {
			return st == coherence.L1E || st == coherence.L1M
		}
	case info.State == coherence.DirS && slices.Contains(info.Sharers, id):
		return func(st coherence.L1State) bool { return st == coherence.L1S }
	default:
		return func(st coherence.L1State) bool { return st == coherence.L1I }
	}
}

func (s *System) checkTracked(c *l1.Comp) error {
	var err error

	c.Tags().ForEach(func(l *coherence.Line[coherence.L1State]) {
		if err != nil || l.State == coherence.L1I {
			return
		}

		if _, ok := s.Directory.Lookup(l.Tag); !ok {
			err = fmt.Errorf("%s holds 0x%x that the directory does not track",
				c.Name(), l.Tag)
		}
	})

	return err
}

// ReadWord returns the latest committed value of the word at the address,
// searching the owner cache, then the directory, then the memory. The system
// must be quiescent.
func (s *System) ReadWord(addr uint64) (uint64, error) {
	tag := s.L1s[0].TagOf(addr)

	info, tracked := s.Directory.Lookup(tag)
	if tracked && info.State == coherence.DirM {
		owner := s.L1s[info.Owner]
		return owner.Tags().Lookup(tag).ReadWord(addr), nil
	}

	if tracked {
		l := &coherence.Line[coherence.DirState]{Data: info.Data}
		return l.ReadWord(addr), nil
	}

	lineSize := uint64(s.L1s[0].Tags().LineSize())

	data, err := s.Memory.Storage().Read(tag, lineSize)
	if err != nil {
		return 0, fmt.Errorf("reading 0x%x: %w", addr, err)
	}

	l := &coherence.Line[coherence.DirState]{Data: data}

	return l.ReadWord(addr), nil
}
