package directory

import (
	"log"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/sim"
)

// A flow serves one request from a private cache.
type flow struct {
	id      uint64
	msg     *coherence.Msg
	state   coherence.FlowState
	find    coherence.FindAndLockState
	line    *line
	setID   int
	numAcks int
	failure coherence.FlowState
}

func (f *flow) requester() coherence.ControllerID {
	return f.msg.Sender
}

func (c *Comp) startFlow(msg *coherence.Msg) {
	c.stats.Requests++

	f := &flow{
		id:    c.ctx.NextFlowID(),
		msg:   msg,
		setID: c.tags.SetIndex(msg.Tag),
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

// step advances the flow until it has to wait or it finishes.
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
			if !c.serve(f) {
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

// findAndLock returns false if the flow waits for an eviction or a fill.
func (c *Comp) findAndLock(f *flow) bool {
	if f.find != coherence.FindFinding {
		log.Panicf("%s: flow %d resumed finding in step %s",
			c.name, f.id, f.find)
	}

	tag := f.msg.Tag

	l := c.tags.Lookup(tag)
	if l == nil {
		l = c.reserved[tag]
	}

	if l != nil {
		f.line = l

		if l.IsLocked() {
			f.find = coherence.FindFailed
			c.moveFlow(f, coherence.FlowFailedToLock)

			return true
		}

		l.Lock(f.id)
		c.tags.Visit(l)
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
	c.tags.Visit(victim)
	f.line = victim
	c.reserved[tag] = victim
	f.find = coherence.FindEvicting
	c.evict(f)

	return false
}

// evict empties the victim line of the flow: holders give up their copies,
// then dirty data is written to memory, and then the line is filled with the
// requested tag.
func (c *Comp) evict(f *flow) {
	l := f.line

	if !l.IsValid {
		c.fill(f)
		return
	}

	c.stats.Evictions++

	e := c.entryOf(l)
	holders := e.sharers.Members()

	if e.owner != coherence.NoController {
		holders = append(holders, e.owner)
	}

	if len(holders) > 0 {
		for _, h := range holders {
			c.stats.Recalls++
			c.send(coherence.MakeMsgBuilder().
				WithType(coherence.MsgRecall).
				WithTag(l.Tag).
				WithReceiver(h))
		}

		l.PendingAcks = len(holders)
		c.transit(l, coherence.EventReplacement, coherence.DirXI_R)

		return
	}

	c.writeBackOrFill(f, coherence.EventReplacement)
}

func (c *Comp) writeBackOrFill(f *flow, event coherence.Event) {
	l := f.line

	if l.Dirty {
		c.transit(l, event, coherence.DirXI_W)
		c.downwardWrite(f)

		return
	}

	if l.State != coherence.DirI {
		c.transit(l, event, coherence.DirI)
	}

	c.fill(f)
}

// fill retags the line of the flow and reads the line from memory.
func (c *Comp) fill(f *flow) {
	l := f.line
	tag := f.msg.Tag

	delete(c.reserved, tag)

	e := c.entryOf(l)
	e.owner = coherence.NoController
	e.sharers.Clear()

	l.Tag = tag
	l.IsValid = true
	l.Dirty = false
	l.PendingAcks = 0
	clear(l.Data)

	f.find = coherence.FindFilling
	c.transit(l, coherence.EventOf(f.msg.Type), coherence.DirI_D)
	c.downwardRead(f)
}

func (c *Comp) finishSuccess(f *flow) {
	delete(c.flows, f.id)

	l := f.line
	l.Unlock(f.id)

	for _, msg := range l.TakeDeferred() {
		c.dispatch(msg)
	}

	c.wakeSet(f.setID)
}

func (c *Comp) finishError(f *flow) {
	delete(c.flows, f.id)
	c.stats.Deferrals++

	if f.failure == coherence.FlowFailedToLock {
		f.line.Defer(f.msg)
	} else {
		c.setWaiters[f.setID] = append(c.setWaiters[f.setID], f.msg)
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    c.ctx.Now(),
		Pos:    coherence.HookPosRequestDeferred,
		Item:   f.msg,
		Detail: f.failure,
	})
}

// wakeSet redispatches, in arrival order, the requests that found every way
// of the set locked.
func (c *Comp) wakeSet(setID int) {
	msgs := c.setWaiters[setID]
	c.setWaiters[setID] = nil

	for _, msg := range msgs {
		c.dispatch(msg)
	}
}
