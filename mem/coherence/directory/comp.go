// Package directory implements the shared directory controller of the
// coherence protocol. The directory keeps an L2 copy of every line it tracks
// and records, per line, the owner and the sharers among the private caches.
package directory

import (
	"log"
	"reflect"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/mem/idealmemory"
	"github.com/sarchlab/msisim/sim"
)

type line = coherence.Line[coherence.DirState]

// FirstTouchPolicy decides what a GetS to a line that no cache holds grants.
type FirstTouchPolicy int

const (
	// FirstTouchShared grants a shared copy.
	FirstTouchShared FirstTouchPolicy = iota

	// FirstTouchExclusive grants an exclusive copy that the cache can
	// modify without asking the directory again.
	FirstTouchExclusive
)

// Memory is the backing memory below the directory.
type Memory interface {
	Read(req *idealmemory.ReadReq, client idealmemory.Client)
	Write(req *idealmemory.WriteReq, client idealmemory.Client)
}

// entry is the directory information of a line.
type entry struct {
	owner   coherence.ControllerID
	sharers coherence.SharerSet
}

type processEvent struct {
	*sim.EventBase
	msg *coherence.Msg
}

// Stats counts what happened in the directory.
type Stats struct {
	Requests   uint64
	Forwards   uint64
	Invs       uint64
	Recalls    uint64
	MemReads   uint64
	MemWrites  uint64
	Deferrals  uint64
	Evictions  uint64
	PutsAbsent uint64
}

// Comp is a directory controller.
type Comp struct {
	sim.HookableBase

	name    string
	id      coherence.ControllerID
	ctx     *coherence.Context
	sender  coherence.Sender
	memory  Memory
	latency int
	policy  FirstTouchPolicy

	tags    *coherence.TagArray[coherence.DirState]
	entries []entry

	flows      map[uint64]*flow
	downward   map[uint64]*flow
	reserved   map[uint64]*line
	setWaiters [][]*coherence.Msg

	stats Stats
}

// Name returns the name of the directory.
func (c *Comp) Name() string {
	return c.name
}

// ID returns the network identity of the directory.
func (c *Comp) ID() coherence.ControllerID {
	return c.id
}

// Tags returns the lines of the directory.
func (c *Comp) Tags() *coherence.TagArray[coherence.DirState] {
	return c.tags
}

// Lines returns a snapshot of every line.
func (c *Comp) Lines() []coherence.LineInfo {
	return c.tags.Snapshot()
}

// Stats returns the counters of the directory.
func (c *Comp) Stats() Stats {
	return c.stats
}

// Policy returns the first touch policy of the directory.
func (c *Comp) Policy() FirstTouchPolicy {
	return c.policy
}

func (c *Comp) entryOf(l *line) *entry {
	return &c.entries[l.SetID*c.tags.NumWays()+l.WayID]
}

// Receive accepts a message from the network. The message is processed
// after the directory latency.
func (c *Comp) Receive(msg *coherence.Msg) {
	evt := &processEvent{
		EventBase: sim.NewEventBase(sim.CyclesLater(c.ctx.Engine, c.latency), c),
		msg:       msg,
	}
	c.ctx.Engine.Schedule(evt)
}

// Handle processes the internal events of the directory.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *processEvent:
		c.dispatch(e.msg)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (c *Comp) dispatch(msg *coherence.Msg) {
	switch msg.Type {
	case coherence.MsgGetS, coherence.MsgGetM:
		c.startFlow(msg)
	case coherence.MsgPutS, coherence.MsgPutM:
		if c.tags.Lookup(msg.Tag) == nil && c.reserved[msg.Tag] == nil {
			c.stats.PutsAbsent++
			c.ackPut(msg)

			return
		}

		c.startFlow(msg)
	case coherence.MsgInvAck, coherence.MsgRecallAck, coherence.MsgData:
		c.handleResponse(msg)
	default:
		log.Panicf("%s: cannot receive %s", c.name, msg)
	}
}

func (c *Comp) transit(l *line, event coherence.Event, to coherence.DirState) {
	coherence.Transit(c, c.ctx.Now(), l, event, to)
}

func (c *Comp) send(b coherence.MsgBuilder) {
	c.sender.Send(b.WithSender(c.id).Build())
}

func (c *Comp) ackPut(msg *coherence.Msg) {
	c.send(coherence.MakeMsgBuilder().
		WithType(coherence.MsgPutAck).
		WithTag(msg.Tag).
		WithReceiver(msg.Sender))
}

func (c *Comp) sendData(
	l *line,
	to coherence.ControllerID,
	shared bool,
	numAcks int,
) {
	c.send(coherence.MakeMsgBuilder().
		WithType(coherence.MsgData).
		WithTag(l.Tag).
		WithReceiver(to).
		WithRequester(to).
		WithShared(shared).
		WithNumAcks(numAcks).
		WithData(l.Data))
}

func (c *Comp) fatal(l *line, msg *coherence.Msg, format string, args ...any) {
	coherence.Panic(coherence.NewLineError(c.name, l, msg, format, args...))
}

// ReadDone is called by the memory when a DownwardRead completes.
func (c *Comp) ReadDone(req *idealmemory.ReadReq, data []byte) {
	f := c.takeDownward(req.ID)
	l := f.line

	if l.State != coherence.DirI_D {
		c.fatal(l, nil, "memory data arrives in a wrong state")
	}

	copy(l.Data, data)
	l.Dirty = false
	c.transit(l, coherence.EventMemData, coherence.DirI)

	f.find = coherence.FindLocked
	c.moveFlow(f, coherence.FlowLocked)
	c.step(f)
}

// WriteDone is called by the memory when a DownwardWrite completes.
func (c *Comp) WriteDone(req *idealmemory.WriteReq) {
	f := c.takeDownward(req.ID)
	l := f.line

	if l.State != coherence.DirXI_W {
		c.fatal(l, nil, "memory write ack arrives in a wrong state")
	}

	l.Dirty = false
	c.transit(l, coherence.EventMemWriteDone, coherence.DirI)
	c.fill(f)
}

func (c *Comp) takeDownward(id uint64) *flow {
	f, ok := c.downward[id]
	if !ok {
		log.Panicf("%s: no flow waits for memory request %d", c.name, id)
	}

	delete(c.downward, id)

	return f
}

func (c *Comp) downwardRead(f *flow) {
	c.stats.MemReads++
	c.downward[f.id] = f

	c.memory.Read(&idealmemory.ReadReq{
		ID:             f.id,
		Address:        f.line.Tag,
		AccessByteSize: uint64(c.tags.LineSize()),
	}, c)
}

func (c *Comp) downwardWrite(f *flow) {
	c.stats.MemWrites++
	c.downward[f.id] = f

	c.memory.Write(&idealmemory.WriteReq{
		ID:      f.id,
		Address: f.line.Tag,
		Data:    f.line.Data,
	}, c)
}
