// Package p2p delivers coherence messages between controllers so that, for
// every pair of sender and receiver, messages are handed to the receiver in
// the order they were sent. The underlying transport may reorder them.
package p2p

import (
	"fmt"
	"log"

	"github.com/google/btree"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/noc"
	"github.com/sarchlab/msisim/sim"
)

type linkKey struct {
	src, dst coherence.ControllerID
}

type pending struct {
	msg     *coherence.Msg
	arrived bool
}

func lessPending(a, b *pending) bool {
	return a.msg.ID < b.msg.ID
}

// A link is the reorder buffer of one sender-receiver pair.
type link struct {
	queue         *btree.BTreeG[*pending]
	lastCompleted uint64
	numCompleted  uint64
}

// Router sends coherence messages over a transport and restores the send
// order of every link before handing messages to receivers.
type Router struct {
	sim.HookableBase

	name      string
	ctx       *coherence.Context
	transport noc.Transport
	receivers map[coherence.ControllerID]coherence.Receiver
	links     map[linkKey]*link
}

// NewRouter creates a Router.
func NewRouter(
	name string,
	ctx *coherence.Context,
	transport noc.Transport,
) *Router {
	return &Router{
		name:      name,
		ctx:       ctx,
		transport: transport,
		receivers: make(map[coherence.ControllerID]coherence.Receiver),
		links:     make(map[linkKey]*link),
	}
}

// Name returns the name of the router.
func (r *Router) Name() string {
	return r.name
}

// Register lets the router deliver the messages sent to the id to the
// receiver.
func (r *Router) Register(id coherence.ControllerID, receiver coherence.Receiver) {
	if _, ok := r.receivers[id]; ok {
		log.Panicf("controller %s is already registered", id)
	}

	r.receivers[id] = receiver
}

// Send assigns an ID to the message and sends it to its receiver.
func (r *Router) Send(msg *coherence.Msg) {
	if _, ok := r.receivers[msg.Receiver]; !ok {
		log.Panicf("sending %s to unregistered controller", msg)
	}

	if msg.ID != 0 {
		log.Panicf("message %s is sent twice", msg)
	}

	msg.ID = r.ctx.NextMsgID()

	l := r.linkOf(msg.Sender, msg.Receiver)
	l.queue.ReplaceOrInsert(&pending{msg: msg})

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Now:    r.ctx.Now(),
		Pos:    coherence.HookPosMsgSend,
		Item:   msg,
	})

	r.transport.Transfer(
		noc.EndpointID(msg.Sender),
		noc.EndpointID(msg.Receiver),
		msg.TrafficBytes(),
		msg,
		r,
	)
}

func (r *Router) linkOf(src, dst coherence.ControllerID) *link {
	key := linkKey{src, dst}

	l, ok := r.links[key]
	if !ok {
		l = &link{queue: btree.NewG(8, lessPending)}
		r.links[key] = l
	}

	return l
}

// Delivered is called by the transport when a message arrives. The message
// is handed to the receiver once all the earlier messages of the same link
// are handed over.
func (r *Router) Delivered(payload any) {
	msg, ok := payload.(*coherence.Msg)
	if !ok {
		log.Panicf("router %s cannot deliver %T", r.name, payload)
	}

	l := r.linkOf(msg.Sender, msg.Receiver)

	p, found := l.queue.Get(&pending{msg: msg})
	if !found || p.msg != msg || p.arrived {
		r.regression(l, msg)
	}

	p.arrived = true

	r.drain(l)
}

func (r *Router) drain(l *link) {
	for {
		head, ok := l.queue.Min()
		if !ok || !head.arrived {
			return
		}

		l.queue.DeleteMin()

		if head.msg.ID <= l.lastCompleted {
			r.regression(l, head.msg)
		}

		l.lastCompleted = head.msg.ID
		l.numCompleted++

		r.InvokeHook(sim.HookCtx{
			Domain: r,
			Now:    r.ctx.Now(),
			Pos:    coherence.HookPosMsgDeliver,
			Item:   head.msg,
		})

		r.receivers[head.msg.Receiver].Receive(head.msg)
	}
}

func (r *Router) regression(l *link, msg *coherence.Msg) {
	coherence.Panic(&coherence.ProtocolError{
		Controller: r.name,
		Tag:        msg.Tag,
		State:      fmt.Sprintf("last completed %d", l.lastCompleted),
		Msg:        msg,
		Reason:     "message completion out of send order",
	})
}

// NumPending returns the number of messages sent from src to dst that are
// not handed to dst yet.
func (r *Router) NumPending(src, dst coherence.ControllerID) int {
	l, ok := r.links[linkKey{src, dst}]
	if !ok {
		return 0
	}

	return l.queue.Len()
}

// NumInFlight returns the number of messages that are not handed to their
// receivers yet.
func (r *Router) NumInFlight() int {
	n := 0
	for _, l := range r.links {
		n += l.queue.Len()
	}

	return n
}

// LastCompleted returns the ID of the last message handed over on the link.
func (r *Router) LastCompleted(src, dst coherence.ControllerID) uint64 {
	l, ok := r.links[linkKey{src, dst}]
	if !ok {
		return 0
	}

	return l.lastCompleted
}
