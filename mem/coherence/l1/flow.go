package l1

import (
	"log"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/sim"
)

// A flow serves one access. A load flow serves loads and instruction
// fetches, and a store flow serves stores.
type flow struct {
	id      uint64
	access  *coherence.Access
	state   coherence.FlowState
	find    coherence.FindAndLockState
	line    *line
	setID   int
	hit     bool
	hitDone bool

	// failure is the state that made the flow fail.
	failure coherence.FlowState
}

func (c *Comp) start(a *coherence.Access) {
	f := &flow{
		id:     c.ctx.NextFlowID(),
		access: a,
		setID:  c.tags.SetIndex(a.PhysicalTag),
	}
	c.flows[f.id] = f

	c.step(f)
}

func (c *Comp) moveFlow(f *flow, s coherence.FlowState) {
	if !f.state.CanMoveTo(s) {
		log.Panicf("%s: flow %d cannot move from %s to %s",
			c.name, f.id, f.state, s)
	}

	f.state = s
}

// step advances the flow until it has to wait for an event or it finishes.
func (c *Comp) step(f *flow) {
	for {
		switch f.state {
		case coherence.FlowIdle:
			f.find = coherence.FindFinding
			c.moveFlow(f, coherence.FlowLocking)
		case coherence.FlowLocking:
			if !c.findAndLock(f) {
				return
			}
		case coherence.FlowLocked:
			if !c.accessLine(f) {
				return
			}
		case coherence.FlowDownwardTransfer:
			return
		case coherence.FlowFailedToLock, coherence.FlowFailedToEvict:
			f.failure = f.state
			c.moveFlow(f, coherence.FlowUnlockedError)
		case coherence.FlowUnlockedSuccess:
			c.finishSuccess(f)
			return
		case coherence.FlowUnlockedError:
			c.finishError(f)
			return
		}
	}
}

// findAndLock returns false if the flow has to wait for an eviction.
func (c *Comp) findAndLock(f *flow) bool {
	tag := f.access.PhysicalTag

	switch f.find {
	case coherence.FindFinding:
		if l := c.tags.Lookup(tag); l != nil {
			if l.IsLocked() {
				f.line = l
				f.find = coherence.FindFailed
				c.moveFlow(f, coherence.FlowFailedToLock)

				return true
			}

			l.Lock(f.id)
			f.line = l
			f.find = coherence.FindLocked
			c.moveFlow(f, coherence.FlowLocked)

			return true
		}

		victim := c.tags.FindVictim(tag)
		if victim == nil {
			f.find = coherence.FindFailed
			c.moveFlow(f, coherence.FlowFailedToEvict)

			return true
		}

		victim.Lock(f.id)
		f.line = victim

		if victim.IsValid {
			f.find = coherence.FindEvicting
			c.evict(victim)

			return false
		}

		c.retag(f)

		return true
	case coherence.FindEvicting:
		c.retag(f)
		return true
	default:
		log.Panicf("%s: flow %d cannot find a line in step %s",
			c.name, f.id, f.find)
	}

	return false
}

func (c *Comp) retag(f *flow) {
	l := f.line
	l.Tag = f.access.PhysicalTag
	l.IsValid = false
	l.Dirty = false
	clear(l.Data)

	f.find = coherence.FindLocked
	c.moveFlow(f, coherence.FlowLocked)
}

func (c *Comp) evict(l *line) {
	c.stats.Evictions++

	switch l.State {
	case coherence.L1S:
		c.send(coherence.MakeMsgBuilder().
			WithType(coherence.MsgPutS).
			WithTag(l.Tag).
			WithReceiver(c.dirID).
			WithRequester(c.id))
		c.transit(l, coherence.EventReplacement, coherence.L1SI_A)
	case coherence.L1E, coherence.L1M:
		l.Dirty = l.State == coherence.L1M
		if l.Dirty {
			c.stats.WriteBacks++
		}

		c.send(coherence.MakeMsgBuilder().
			WithType(coherence.MsgPutM).
			WithTag(l.Tag).
			WithReceiver(c.dirID).
			WithRequester(c.id).
			WithDirty(l.Dirty).
			WithData(l.Data))
		c.transit(l, coherence.EventReplacement, coherence.L1MI_A)
	default:
		c.fatal(l, nil, "cannot replace a line in a transient state")
	}
}

// accessLine returns false if the flow has to wait for the hit latency or
// for the directory.
func (c *Comp) accessLine(f *flow) bool {
	l := f.line
	event := f.access.Type.Event()

	if f.hitDone {
		c.perform(f)
		c.moveFlow(f, coherence.FlowUnlockedSuccess)

		return true
	}

	if f.access.Type.IsRead() {
		switch l.State {
		case coherence.L1S, coherence.L1E, coherence.L1M:
			c.transit(l, event, l.State)
			return c.waitHit(f)
		case coherence.L1I:
			c.request(f, coherence.MsgGetS, coherence.L1IS_D)
			return false
		}
	} else {
		switch l.State {
		case coherence.L1M:
			c.transit(l, event, l.State)
			return c.waitHit(f)
		case coherence.L1E:
			c.transit(l, event, coherence.L1M)
			return c.waitHit(f)
		case coherence.L1S:
			c.request(f, coherence.MsgGetM, coherence.L1SM_D)
			return false
		case coherence.L1I:
			c.request(f, coherence.MsgGetM, coherence.L1IM_D)
			return false
		}
	}

	c.fatal(l, nil, "%s on a locked line", event)

	return false
}

func (c *Comp) waitHit(f *flow) bool {
	f.hit = true
	c.stats.Hits++

	evt := &hitDoneEvent{
		EventBase: sim.NewEventBase(sim.CyclesLater(c.ctx.Engine, c.hitLatency), c),
		flow:      f,
	}
	c.ctx.Engine.Schedule(evt)

	return false
}

func (c *Comp) request(
	f *flow,
	t coherence.MsgType,
	next coherence.L1State,
) {
	c.stats.Misses++

	c.send(coherence.MakeMsgBuilder().
		WithType(t).
		WithTag(f.line.Tag).
		WithReceiver(c.dirID).
		WithRequester(c.id))
	c.transit(f.line, f.access.Type.Event(), next)
	c.moveFlow(f, coherence.FlowDownwardTransfer)
}

// perform reads or writes the line for the access and its aliases.
func (c *Comp) perform(f *flow) {
	l := f.line
	all := append([]*coherence.Access{f.access}, f.access.Aliases...)

	for _, a := range all {
		a.Hit = f.hit

		if a.Type.IsRead() {
			a.Result = l.ReadWord(a.PhysicalAddress)
			continue
		}

		if l.State != coherence.L1M {
			c.fatal(l, nil, "storing %s without write permission", a)
		}

		l.WriteWord(a.PhysicalAddress, a.Value)
		l.Dirty = true
	}

	c.tags.Visit(l)
}

func (c *Comp) finishSuccess(f *flow) {
	delete(c.flows, f.id)

	l := f.line
	l.Unlock(f.id)

	c.replayDeferred(l)
	c.wakeSet(f.setID)
	c.EndAccess(f.access.PhysicalTag)
}

func (c *Comp) finishError(f *flow) {
	delete(c.flows, f.id)

	c.setWaiters[f.setID] = append(c.setWaiters[f.setID], f.access)
	c.stats.Deferrals++

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    c.ctx.Now(),
		Pos:    coherence.HookPosRequestDeferred,
		Item:   f.access,
		Detail: f.failure,
	})
}

// wakeSet retries, one cycle later, the accesses that could not lock a line
// of the set.
func (c *Comp) wakeSet(setID int) {
	waiters := c.setWaiters[setID]
	c.setWaiters[setID] = nil

	for _, a := range waiters {
		evt := &retryEvent{
			EventBase: sim.NewEventBase(sim.CyclesLater(c.ctx.Engine, 1), c),
			access:    a,
		}
		c.ctx.Engine.Schedule(evt)
	}
}
