// Package latencynet provides a network that delivers each transfer after a
// latency that depends on the transfer size, plus an optional random jitter.
package latencynet

import (
	"log"
	"math/rand"
	"reflect"

	"github.com/sarchlab/msisim/noc"
	"github.com/sarchlab/msisim/sim"
)

// HookPosTransferStart marks when the network accepts a transfer.
var HookPosTransferStart = &sim.HookPos{Name: "Transfer Start"}

// HookPosTransferDone marks when the network delivers a transfer.
var HookPosTransferDone = &sim.HookPos{Name: "Transfer Done"}

// A Transfer is a payload that is moving in the network.
type Transfer struct {
	Src, Dst  noc.EndpointID
	SizeBytes int
	Payload   any
	StartTime sim.VTimeInCycle

	client noc.DeliveryClient
}

type deliveryEvent struct {
	*sim.EventBase
	transfer *Transfer
}

// Comp is a network that applies a size-dependent latency to every transfer.
type Comp struct {
	sim.HookableBase

	name          string
	engine        sim.Engine
	baseLatency   int
	bytesPerCycle int
	maxJitter     int
	rng           *rand.Rand

	numInFlight int
}

// Name returns the name of the network.
func (c *Comp) Name() string {
	return c.name
}

// NumInFlight returns the number of transfers that are not delivered yet.
func (c *Comp) NumInFlight() int {
	return c.numInFlight
}

// Transfer moves a payload from src to dst.
func (c *Comp) Transfer(
	src, dst noc.EndpointID,
	sizeBytes int,
	payload any,
	client noc.DeliveryClient,
) {
	if src == dst {
		log.Panicf("%s: transferring from endpoint %d to itself", c.name, src)
	}

	if sizeBytes <= 0 {
		log.Panicf("%s: transfer size must be positive, got %d",
			c.name, sizeBytes)
	}

	t := &Transfer{
		Src:       src,
		Dst:       dst,
		SizeBytes: sizeBytes,
		Payload:   payload,
		StartTime: c.engine.CurrentTime(),
		client:    client,
	}

	latency := c.latency(sizeBytes)
	evt := &deliveryEvent{
		EventBase: sim.NewEventBase(sim.CyclesLater(c.engine, latency), c),
		transfer:  t,
	}
	c.engine.Schedule(evt)
	c.numInFlight++

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    t.StartTime,
		Pos:    HookPosTransferStart,
		Item:   t,
	})
}

func (c *Comp) latency(sizeBytes int) int {
	serialization := (sizeBytes + c.bytesPerCycle - 1) / c.bytesPerCycle
	latency := c.baseLatency + serialization

	if c.maxJitter > 0 {
		latency += c.rng.Intn(c.maxJitter + 1)
	}

	return latency
}

// Handle delivers transfers.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *deliveryEvent:
		c.deliver(e)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (c *Comp) deliver(e *deliveryEvent) {
	c.numInFlight--

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    e.Time(),
		Pos:    HookPosTransferDone,
		Item:   e.transfer,
	})

	e.transfer.client.Delivered(e.transfer.Payload)
}
