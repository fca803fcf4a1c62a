// Package randomaccess provides an agent that drives a coherent memory
// hierarchy with random loads and stores from every core and checks that
// every load returns the value of the last committed store.
package randomaccess

import (
	"fmt"
	"log"
	"math/rand"
	"reflect"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/mem/coherence/hierarchy"
	"github.com/sarchlab/msisim/sim"
)

var dumpLog = false

type issueEvent struct {
	*sim.EventBase
	core int
}

// An Agent issues random accesses to a memory hierarchy.
type Agent struct {
	sys *hierarchy.System
	rng *rand.Rand

	MaxAddress uint64
	StoreRatio float64
	MaxGap     int
	MaxPending int

	AccessesLeft []int
	Pending      []int
	KnownValues  map[uint64]uint64

	NumLoads  uint64
	NumStores uint64
	NumHits   uint64

	nextValue uint64
	err       error
}

// Start schedules the first access of every core.
func (a *Agent) Start() {
	for core := range a.sys.L1s {
		a.issueLater(core, 0)
	}
}

// Err returns the first wrong load value the agent observed.
func (a *Agent) Err() error {
	return a.err
}

// Done tells if every access has been issued and completed.
func (a *Agent) Done() bool {
	for core := range a.AccessesLeft {
		if a.AccessesLeft[core] > 0 || a.Pending[core] > 0 {
			return false
		}
	}

	return true
}

// Handle issues accesses.
func (a *Agent) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *issueEvent:
		a.issue(e.core)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (a *Agent) issueLater(core, cycles int) {
	a.sys.Engine.Schedule(&issueEvent{
		EventBase: sim.NewEventBase(sim.CyclesLater(a.sys.Engine, cycles), a),
		core:      core,
	})
}

func (a *Agent) issue(core int) {
	if a.AccessesLeft[core] == 0 {
		return
	}

	if a.Pending[core] >= a.MaxPending {
		a.issueLater(core, 1)
		return
	}

	addr := a.randomAddress()
	t := coherence.AccessLoad

	if a.rng.Float64() < a.StoreRatio {
		t = coherence.AccessStore
	}

	cache := a.sys.L1s[core]
	if !cache.CanAccess(t, cache.TagOf(addr)) {
		a.issueLater(core, 1)
		return
	}

	access := &coherence.Access{
		Thread:          core,
		Type:            t,
		PhysicalAddress: addr,
		OnCompleted:     a.complete,
	}

	if t == coherence.AccessStore {
		a.nextValue++
		access.Value = a.nextValue
	}

	if dumpLog {
		log.Printf("%d, agent, core %d, %s 0x%x\n",
			a.sys.Engine.CurrentTime(), core, t, addr)
	}

	a.AccessesLeft[core]--
	a.Pending[core]++
	cache.BeginAccess(access)

	a.issueLater(core, 1+a.rng.Intn(a.MaxGap))
}

func (a *Agent) randomAddress() uint64 {
	return a.rng.Uint64() % (a.MaxAddress / 8) * 8
}

func (a *Agent) complete(access *coherence.Access) {
	a.Pending[access.Thread]--

	if access.Hit {
		a.NumHits++
	}

	if access.Type == coherence.AccessStore {
		a.NumStores++
		a.KnownValues[access.PhysicalAddress] = access.Value

		return
	}

	a.NumLoads++

	want := a.KnownValues[access.PhysicalAddress]
	if access.Result != want && a.err == nil {
		a.err = fmt.Errorf("core %d loaded %d from 0x%x at %d, expected %d",
			access.Thread, access.Result, access.PhysicalAddress,
			access.CompleteTime, want)
	}
}
