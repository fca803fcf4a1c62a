// Package idealmemory provides a backing memory that responds to every
// request after a fixed number of cycles.
package idealmemory

import (
	"log"
	"reflect"

	"github.com/sarchlab/msisim/mem"
	"github.com/sarchlab/msisim/sim"
)

// HookPosReadDone marks the completion of a read.
var HookPosReadDone = &sim.HookPos{Name: "Mem Read Done"}

// HookPosWriteDone marks the completion of a write.
var HookPosWriteDone = &sim.HookPos{Name: "Mem Write Done"}

// A ReadReq asks the memory for AccessByteSize bytes starting at Address.
type ReadReq struct {
	ID             uint64
	Address        uint64
	AccessByteSize uint64
}

// A WriteReq asks the memory to store Data starting at Address.
type WriteReq struct {
	ID      uint64
	Address uint64
	Data    []byte
}

// A Client receives the completion of memory requests.
type Client interface {
	ReadDone(req *ReadReq, data []byte)
	WriteDone(req *WriteReq)
}

type readRespondEvent struct {
	*sim.EventBase
	req    *ReadReq
	client Client
}

type writeRespondEvent struct {
	*sim.EventBase
	req    *WriteReq
	client Client
}

// An Comp is an ideal memory controller. It has no limitation on concurrency
// and requests issued at the same cycle complete in issue order.
type Comp struct {
	sim.HookableBase

	name    string
	engine  sim.Engine
	storage *mem.Storage
	latency int

	numReads  uint64
	numWrites uint64
}

// Name returns the name of the memory.
func (c *Comp) Name() string {
	return c.name
}

// Storage returns the storage that keeps the memory content.
func (c *Comp) Storage() *mem.Storage {
	return c.storage
}

// NumReads returns the number of completed reads.
func (c *Comp) NumReads() uint64 {
	return c.numReads
}

// NumWrites returns the number of completed writes.
func (c *Comp) NumWrites() uint64 {
	return c.numWrites
}

// Read issues a read request. The client is notified after the latency.
func (c *Comp) Read(req *ReadReq, client Client) {
	evt := &readRespondEvent{
		EventBase: sim.NewEventBase(sim.CyclesLater(c.engine, c.latency), c),
		req:       req,
		client:    client,
	}
	c.engine.Schedule(evt)
}

// Write issues a write request. The data becomes visible when the client is
// notified.
func (c *Comp) Write(req *WriteReq, client Client) {
	data := make([]byte, len(req.Data))
	copy(data, req.Data)
	req.Data = data

	evt := &writeRespondEvent{
		EventBase: sim.NewEventBase(sim.CyclesLater(c.engine, c.latency), c),
		req:       req,
		client:    client,
	}
	c.engine.Schedule(evt)
}

// Handle defines how the Comp handles event
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *readRespondEvent:
		c.handleReadRespondEvent(e)
	case *writeRespondEvent:
		c.handleWriteRespondEvent(e)
	default:
		log.Panicf("cannot handle event of %s", reflect.TypeOf(e))
	}

	return nil
}

func (c *Comp) handleReadRespondEvent(e *readRespondEvent) {
	data, err := c.storage.Read(e.req.Address, e.req.AccessByteSize)
	if err != nil {
		log.Panic(err)
	}

	c.numReads++

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    e.Time(),
		Pos:    HookPosReadDone,
		Item:   e.req,
	})

	e.client.ReadDone(e.req, data)
}

func (c *Comp) handleWriteRespondEvent(e *writeRespondEvent) {
	err := c.storage.Write(e.req.Address, e.req.Data)
	if err != nil {
		log.Panic(err)
	}

	c.numWrites++

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    e.Time(),
		Pos:    HookPosWriteDone,
		Item:   e.req,
	})

	e.client.WriteDone(e.req)
}
