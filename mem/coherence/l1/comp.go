// Package l1 implements the private cache controller of the coherence
// protocol.
package l1

import (
	"log"
	"reflect"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/sim"
)

type line = coherence.Line[coherence.L1State]

type hitDoneEvent struct {
	*sim.EventBase
	flow *flow
}

type retryEvent struct {
	*sim.EventBase
	access *coherence.Access
}

// Stats counts what happened in a cache controller.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
	Retries    uint64
	Deferrals  uint64
}

// Comp is a private cache controller. It serves the loads and stores of one
// core and keeps its lines coherent with the directory.
type Comp struct {
	sim.HookableBase

	name        string
	id          coherence.ControllerID
	dirID       coherence.ControllerID
	ctx         *coherence.Context
	sender      coherence.Sender
	tags        *coherence.TagArray[coherence.L1State]
	hitLatency  int
	maxInFlight int

	inFlight   map[uint64]*coherence.Access
	flows      map[uint64]*flow
	setWaiters [][]*coherence.Access

	stats Stats
}

// Name returns the name of the controller.
func (c *Comp) Name() string {
	return c.name
}

// ID returns the network identity of the controller.
func (c *Comp) ID() coherence.ControllerID {
	return c.id
}

// Tags returns the lines of the controller.
func (c *Comp) Tags() *coherence.TagArray[coherence.L1State] {
	return c.tags
}

// Lines returns a snapshot of every line.
func (c *Comp) Lines() []coherence.LineInfo {
	return c.tags.Snapshot()
}

// Stats returns the counters of the controller.
func (c *Comp) Stats() Stats {
	return c.stats
}

// TagOf returns the physical tag of an address.
func (c *Comp) TagOf(addr uint64) uint64 {
	return c.tags.TagOf(addr)
}

// LineState returns the state of the line that holds the tag. It returns I
// if the tag is not cached.
func (c *Comp) LineState(tag uint64) coherence.L1State {
	l := c.tags.Lookup(tag)
	if l == nil {
		return coherence.L1I
	}

	return l.State
}

// NumInFlight returns the number of accesses that are not completed, not
// counting aliases.
func (c *Comp) NumInFlight() int {
	return len(c.inFlight)
}

// IsIdle tells if the controller has no access, flow, or deferred request.
func (c *Comp) IsIdle() bool {
	if len(c.inFlight) > 0 || len(c.flows) > 0 {
		return false
	}

	idle := true
	c.tags.ForEach(func(l *line) {
		if l.IsLocked() || len(l.Deferred) > 0 {
			idle = false
		}
	})

	return idle
}

// CanAccess tells if an access of the type to the tag can begin now. An
// access can join an in-flight access to the same tag if both read or both
// write.
func (c *Comp) CanAccess(t coherence.AccessType, tag uint64) bool {
	if a, ok := c.inFlight[tag]; ok {
		return a.Type.IsRead() == t.IsRead()
	}

	return len(c.inFlight) < c.maxInFlight
}

// BeginAccess starts an access. The caller sets the thread, the type, the
// addresses, the value of a store, and the continuation. The controller
// assigns the ID and the physical tag. The same access is returned as the
// handle. CanAccess must be checked first.
func (c *Comp) BeginAccess(a *coherence.Access) *coherence.Access {
	a.PhysicalTag = c.tags.TagOf(a.PhysicalAddress)

	if !c.CanAccess(a.Type, a.PhysicalTag) {
		log.Panicf("%s: cannot begin %s", c.name, a)
	}

	a.ID = c.ctx.NextAccessID()
	a.IssueTime = c.ctx.Now()

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    a.IssueTime,
		Pos:    coherence.HookPosAccessBegin,
		Item:   a,
	})

	if primary, ok := c.inFlight[a.PhysicalTag]; ok {
		primary.Aliases = append(primary.Aliases, a)
		return a
	}

	c.inFlight[a.PhysicalTag] = a
	c.start(a)

	return a
}

// EndAccess completes the in-flight access to the tag together with its
// aliases, and removes it from the in-flight table.
func (c *Comp) EndAccess(tag uint64) {
	a, ok := c.inFlight[tag]
	if !ok {
		log.Panicf("%s: no in-flight access to 0x%x", c.name, tag)
	}

	delete(c.inFlight, tag)

	now := c.ctx.Now()
	a.Complete(now)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    now,
		Pos:    coherence.HookPosAccessDone,
		Item:   a,
	})
}

// Handle processes the internal events of the controller.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *hitDoneEvent:
		e.flow.hitDone = true
		c.step(e.flow)
	case *retryEvent:
		c.stats.Retries++
		c.start(e.access)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

// Receive handles a message from the network.
func (c *Comp) Receive(msg *coherence.Msg) {
	switch msg.Type {
	case coherence.MsgData:
		c.handleData(msg)
	case coherence.MsgPutAck:
		c.handlePutAck(msg)
	case coherence.MsgFwdGetS, coherence.MsgFwdGetM,
		coherence.MsgInv, coherence.MsgRecall:
		c.handleRequest(msg)
	default:
		log.Panicf("%s: cannot receive %s", c.name, msg)
	}
}

func (c *Comp) transit(l *line, event coherence.Event, to coherence.L1State) {
	coherence.Transit(c, c.ctx.Now(), l, event, to)
	l.IsValid = to != coherence.L1I
}

func (c *Comp) send(b coherence.MsgBuilder) {
	c.sender.Send(b.WithSender(c.id).Build())
}

func (c *Comp) fatal(
	l *line,
	msg *coherence.Msg,
	format string,
	args ...any,
) {
	coherence.Panic(coherence.NewLineError(c.name, l, msg, format, args...))
}

func (c *Comp) mustFindLine(msg *coherence.Msg) *line {
	l := c.tags.Lookup(msg.Tag)
	if l == nil {
		coherence.Panic(&coherence.ProtocolError{
			Controller: c.name,
			Tag:        msg.Tag,
			SetID:      c.tags.SetIndex(msg.Tag),
			WayID:      -1,
			State:      coherence.L1I.String(),
			Msg:        msg,
			Reason:     "message for a line that is not cached",
		})
	}

	return l
}
