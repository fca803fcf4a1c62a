package l1

import (
	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/sim"
)

func (c *Comp) holderOf(l *line, msg *coherence.Msg) *flow {
	f, ok := c.flows[l.LockHolder()]
	if !ok {
		c.fatal(l, msg, "no flow is waiting for the message")
	}

	return f
}

func (c *Comp) handleData(msg *coherence.Msg) {
	l := c.mustFindLine(msg)

	switch l.State {
	case coherence.L1IS_D:
		copy(l.Data, msg.Data)
		if msg.Shared {
			c.transit(l, coherence.EventData, coherence.L1S)
		} else {
			c.transit(l, coherence.EventData, coherence.L1E)
		}
	case coherence.L1IM_D, coherence.L1SM_D:
		copy(l.Data, msg.Data)
		c.transit(l, coherence.EventData, coherence.L1M)
	default:
		c.fatal(l, msg, "unexpected data")
	}

	f := c.holderOf(l, msg)
	if f.state != coherence.FlowDownwardTransfer {
		c.fatal(l, msg, "flow %d is %s when data arrives", f.id, f.state)
	}

	c.perform(f)
	c.moveFlow(f, coherence.FlowUnlockedSuccess)
	c.step(f)
}

func (c *Comp) handlePutAck(msg *coherence.Msg) {
	l := c.mustFindLine(msg)

	switch l.State {
	case coherence.L1MI_A, coherence.L1SI_A, coherence.L1II_A:
		c.transit(l, coherence.EventPutAck, coherence.L1I)
		l.Dirty = false
	default:
		c.fatal(l, msg, "unexpected put ack")
	}

	f := c.holderOf(l, msg)
	if f.find != coherence.FindEvicting {
		c.fatal(l, msg, "flow %d is not evicting", f.id)
	}

	c.step(f)
}

func (c *Comp) handleRequest(msg *coherence.Msg) {
	l := c.mustFindLine(msg)

	if c.mustDefer(l, msg) {
		l.Defer(msg)
		c.stats.Deferrals++

		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Now:    c.ctx.Now(),
			Pos:    coherence.HookPosRequestDeferred,
			Item:   msg,
			Detail: l.State,
		})

		return
	}

	c.serve(l, msg)
}

// mustDefer tells if a request cannot be served in the current state of the
// line. Requests are served in the eviction and upgrade states even though
// the line is locked.
func (c *Comp) mustDefer(l *line, msg *coherence.Msg) bool {
	locked := l.IsLocked()

	switch msg.Type {
	case coherence.MsgFwdGetS, coherence.MsgFwdGetM:
		return l.State == coherence.L1IM_D ||
			(locked && (l.State == coherence.L1E || l.State == coherence.L1M))
	case coherence.MsgInv:
		return l.State == coherence.L1IS_D ||
			(locked && l.State == coherence.L1S)
	case coherence.MsgRecall:
		return l.State == coherence.L1IS_D ||
			l.State == coherence.L1IM_D ||
			(locked && l.State.IsStable())
	}

	return false
}

func (c *Comp) serve(l *line, msg *coherence.Msg) {
	switch msg.Type {
	case coherence.MsgFwdGetS:
		c.serveFwdGetS(l, msg)
	case coherence.MsgFwdGetM:
		c.serveFwdGetM(l, msg)
	case coherence.MsgInv:
		c.serveInv(l, msg)
	case coherence.MsgRecall:
		c.serveRecall(l, msg)
	}
}

func (c *Comp) serveFwdGetS(l *line, msg *coherence.Msg) {
	var next coherence.L1State

	switch l.State {
	case coherence.L1E, coherence.L1M:
		next = coherence.L1S
	case coherence.L1MI_A:
		next = coherence.L1SI_A
	default:
		c.fatal(l, msg, "unexpected forwarded GetS")
	}

	dirty := l.State == coherence.L1M || (l.State == coherence.L1MI_A && l.Dirty)

	c.send(coherence.MakeMsgBuilder().
		WithType(coherence.MsgData).
		WithTag(l.Tag).
		WithReceiver(msg.Requester).
		WithRequester(msg.Requester).
		WithShared(true).
		WithDirty(dirty).
		WithData(l.Data))
	c.send(coherence.MakeMsgBuilder().
		WithType(coherence.MsgData).
		WithTag(l.Tag).
		WithReceiver(msg.Sender).
		WithRequester(msg.Requester).
		WithShared(true).
		WithDirty(dirty).
		WithData(l.Data))

	l.Dirty = false
	c.transit(l, coherence.EventFwdGetS, next)
}

func (c *Comp) serveFwdGetM(l *line, msg *coherence.Msg) {
	var next coherence.L1State

	switch l.State {
	case coherence.L1E, coherence.L1M:
		next = coherence.L1I
	case coherence.L1MI_A:
		next = coherence.L1II_A
	default:
		c.fatal(l, msg, "unexpected forwarded GetM")
	}

	c.send(coherence.MakeMsgBuilder().
		WithType(coherence.MsgData).
		WithTag(l.Tag).
		WithReceiver(msg.Requester).
		WithRequester(msg.Requester).
		WithDirty(l.State == coherence.L1M || l.Dirty).
		WithData(l.Data))

	l.Dirty = false
	c.transit(l, coherence.EventFwdGetM, next)
}

func (c *Comp) serveInv(l *line, msg *coherence.Msg) {
	var next coherence.L1State

	switch l.State {
	case coherence.L1S:
		next = coherence.L1I
	case coherence.L1SM_D:
		next = coherence.L1IM_D
	case coherence.L1SI_A:
		next = coherence.L1II_A
	default:
		c.fatal(l, msg, "unexpected invalidation")
	}

	c.send(coherence.MakeMsgBuilder().
		WithType(coherence.MsgInvAck).
		WithTag(l.Tag).
		WithReceiver(msg.Sender).
		WithRequester(msg.Requester))

	c.transit(l, coherence.EventInv, next)
}

func (c *Comp) serveRecall(l *line, msg *coherence.Msg) {
	var next coherence.L1State

	withData := false

	switch l.State {
	case coherence.L1S, coherence.L1E:
		next = coherence.L1I
	case coherence.L1M:
		next = coherence.L1I
		withData = true
	case coherence.L1SM_D:
		next = coherence.L1IM_D
	case coherence.L1MI_A:
		next = coherence.L1II_A
		withData = l.Dirty
	case coherence.L1SI_A:
		next = coherence.L1II_A
	default:
		c.fatal(l, msg, "unexpected recall")
	}

	b := coherence.MakeMsgBuilder().
		WithType(coherence.MsgRecallAck).
		WithTag(l.Tag).
		WithReceiver(msg.Sender)

	if withData {
		c.stats.WriteBacks++
		b = b.WithDirty(true).WithData(l.Data)
	}

	c.send(b)

	l.Dirty = false
	c.transit(l, coherence.EventRecall, next)
}

// replayDeferred serves, in arrival order, the requests that waited for the
// line to be unlocked.
func (c *Comp) replayDeferred(l *line) {
	for _, msg := range l.TakeDeferred() {
		c.handleRequest(msg)
	}
}
