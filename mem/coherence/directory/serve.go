package directory

import (
	"github.com/sarchlab/msisim/mem/coherence"
)

// serve performs the request of a flow that holds its line. It returns
// false if the flow waits for responses from private caches.
func (c *Comp) serve(f *flow) bool {
	switch f.msg.Type {
	case coherence.MsgGetS:
		return c.serveGetS(f)
	case coherence.MsgGetM:
		return c.serveGetM(f)
	default:
		c.servePut(f)
		return true
	}
}

func (c *Comp) serveGetS(f *flow) bool {
	l := f.line
	e := c.entryOf(l)
	req := f.requester()

	switch l.State {
	case coherence.DirI:
		if c.policy == FirstTouchExclusive {
			c.sendData(l, req, false, 0)
			e.owner = req
			c.transit(l, coherence.EventGetS, coherence.DirM)
		} else {
			c.sendData(l, req, true, 0)
			e.sharers.Add(req)
			c.transit(l, coherence.EventGetS, coherence.DirS)
		}
	case coherence.DirS:
		if e.sharers.Contains(req) {
			c.fatal(l, f.msg, "GetS from a sharer")
		}

		c.sendData(l, req, true, 0)
		e.sharers.Add(req)
		c.transit(l, coherence.EventGetS, coherence.DirS)
	case coherence.DirM:
		if e.owner == req {
			c.fatal(l, f.msg, "GetS from the owner")
		}

		c.stats.Forwards++
		c.send(coherence.MakeMsgBuilder().
			WithType(coherence.MsgFwdGetS).
			WithTag(l.Tag).
			WithReceiver(e.owner).
			WithRequester(req))
		c.transit(l, coherence.EventGetS, coherence.DirS_D)
		c.moveFlow(f, coherence.FlowDownwardTransfer)

		return false
	default:
		c.fatal(l, f.msg, "GetS on a locked line in a transient state")
	}

	c.moveFlow(f, coherence.FlowUnlockedSuccess)

	return true
}

func (c *Comp) serveGetM(f *flow) bool {
	l := f.line
	e := c.entryOf(l)
	req := f.requester()

	switch l.State {
	case coherence.DirI:
		c.sendData(l, req, false, 0)
		e.owner = req
		c.transit(l, coherence.EventGetM, coherence.DirM)
	case coherence.DirS:
		others := 0

		for _, s := range e.sharers.Members() {
			if s == req {
				continue
			}

			others++
			c.stats.Invs++
			c.send(coherence.MakeMsgBuilder().
				WithType(coherence.MsgInv).
				WithTag(l.Tag).
				WithReceiver(s).
				WithRequester(req))
		}

		if others > 0 {
			f.numAcks = others
			l.PendingAcks = others
			c.transit(l, coherence.EventGetM, coherence.DirSM_A)
			c.moveFlow(f, coherence.FlowDownwardTransfer)

			return false
		}

		c.sendData(l, req, false, 0)
		e.sharers.Clear()
		e.owner = req
		c.transit(l, coherence.EventGetM, coherence.DirM)
	case coherence.DirM:
		if e.owner == req {
			c.fatal(l, f.msg, "GetM from the owner")
		}

		c.stats.Forwards++
		c.send(coherence.MakeMsgBuilder().
			WithType(coherence.MsgFwdGetM).
			WithTag(l.Tag).
			WithReceiver(e.owner).
			WithRequester(req))
		e.owner = req
		c.transit(l, coherence.EventGetM, coherence.DirM)
	default:
		c.fatal(l, f.msg, "GetM on a locked line in a transient state")
	}

	c.moveFlow(f, coherence.FlowUnlockedSuccess)

	return true
}

func (c *Comp) servePut(f *flow) {
	l := f.line
	e := c.entryOf(l)
	msg := f.msg
	sender := msg.Sender
	event := coherence.EventOf(msg.Type)

	if !l.State.IsStable() {
		c.fatal(l, msg, "put on a locked line in a transient state")
	}

	switch {
	case e.owner == sender:
		if msg.Type != coherence.MsgPutM {
			c.fatal(l, msg, "PutS from the owner")
		}

		if msg.Dirty {
			copy(l.Data, msg.Data)
			l.Dirty = true
		}

		e.owner = coherence.NoController
		c.transit(l, event, coherence.DirI)
	case e.sharers.Remove(sender):
		if e.sharers.IsEmpty() {
			c.transit(l, event, coherence.DirI)
		} else {
			c.transit(l, event, coherence.DirS)
		}
	default:
		c.transit(l, event, l.State)
	}

	c.ackPut(msg)
	c.moveFlow(f, coherence.FlowUnlockedSuccess)
}

func (c *Comp) handleResponse(msg *coherence.Msg) {
	l := c.tags.Lookup(msg.Tag)
	if l == nil {
		coherence.Panic(&coherence.ProtocolError{
			Controller: c.name,
			Tag:        msg.Tag,
			SetID:      c.tags.SetIndex(msg.Tag),
			WayID:      -1,
			State:      "absent",
			Msg:        msg,
			Reason:     "response for a line the directory does not track",
		})
	}

	f, ok := c.flows[l.LockHolder()]
	if !ok {
		c.fatal(l, msg, "no flow waits for the response")
	}

	switch msg.Type {
	case coherence.MsgInvAck:
		c.handleInvAck(f, msg)
	case coherence.MsgRecallAck:
		c.handleRecallAck(f, msg)
	case coherence.MsgData:
		c.handleOwnerData(f, msg)
	}
}

func (c *Comp) handleInvAck(f *flow, msg *coherence.Msg) {
	l := f.line
	e := c.entryOf(l)

	if l.State != coherence.DirSM_A || l.PendingAcks <= 0 {
		c.fatal(l, msg, "unexpected invalidation ack")
	}

	if !e.sharers.Remove(msg.Sender) {
		c.fatal(l, msg, "invalidation ack from a non-sharer")
	}

	l.PendingAcks--
	if l.PendingAcks > 0 {
		c.transit(l, coherence.EventInvAck, coherence.DirSM_A)
		return
	}

	req := f.requester()
	c.sendData(l, req, false, f.numAcks)
	e.sharers.Clear()
	e.owner = req
	c.transit(l, coherence.EventLastInvAck, coherence.DirM)

	c.moveFlow(f, coherence.FlowUnlockedSuccess)
	c.step(f)
}

func (c *Comp) handleRecallAck(f *flow, msg *coherence.Msg) {
	l := f.line
	e := c.entryOf(l)

	if l.State != coherence.DirXI_R || l.PendingAcks <= 0 {
		c.fatal(l, msg, "unexpected recall ack")
	}

	switch {
	case e.owner == msg.Sender:
		e.owner = coherence.NoController
	case e.sharers.Remove(msg.Sender):
	default:
		c.fatal(l, msg, "recall ack from a non-holder")
	}

	if msg.HasData() && msg.Dirty {
		copy(l.Data, msg.Data)
		l.Dirty = true
	}

	l.PendingAcks--
	if l.PendingAcks > 0 {
		c.transit(l, coherence.EventRecallAck, coherence.DirXI_R)
		return
	}

	c.writeBackOrFill(f, coherence.EventLastRecallAck)
}

func (c *Comp) handleOwnerData(f *flow, msg *coherence.Msg) {
	l := f.line
	e := c.entryOf(l)

	if l.State != coherence.DirS_D || e.owner != msg.Sender {
		c.fatal(l, msg, "unexpected data")
	}

	if msg.Dirty {
		copy(l.Data, msg.Data)
		l.Dirty = true
	}

	e.owner = coherence.NoController
	e.sharers.Add(msg.Sender)
	e.sharers.Add(f.requester())
	c.transit(l, coherence.EventData, coherence.DirS)

	c.moveFlow(f, coherence.FlowUnlockedSuccess)
	c.step(f)
}
