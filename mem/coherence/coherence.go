// Package coherence defines the building blocks shared by the controllers of
// a directory-based MSI coherence protocol: the message set, the protocol
// states, the line arena, in-flight accesses, and fatal protocol errors.
package coherence

import (
	"fmt"

	"github.com/sarchlab/msisim/sim"
)

// ControllerID identifies a cache controller or a directory on the network.
type ControllerID int

// NoController is used when a field does not refer to any controller.
const NoController ControllerID = -1

func (id ControllerID) String() string {
	if id == NoController {
		return "none"
	}

	return fmt.Sprintf("ctrl-%d", int(id))
}

// A Sender can send coherence messages to other controllers.
type Sender interface {
	Send(msg *Msg)
}

// A Receiver is a controller that can receive coherence messages.
type Receiver interface {
	Receive(msg *Msg)
}

// Context is shared by all the components of one simulation. It owns the
// monotonic counters used to name messages, flows, and accesses.
type Context struct {
	Engine sim.Engine

	nextMsgID    uint64
	nextFlowID   uint64
	nextAccessID uint64
}

// NewContext creates a Context that schedules events on the given engine.
func NewContext(engine sim.Engine) *Context {
	return &Context{Engine: engine}
}

// NextMsgID returns a message ID that is larger than all the previous ones.
func (c *Context) NextMsgID() uint64 {
	c.nextMsgID++
	return c.nextMsgID
}

// NextFlowID returns a new flow ID. Flow ID 0 is never used, so that it can
// mark an unlocked line.
func (c *Context) NextFlowID() uint64 {
	c.nextFlowID++
	return c.nextFlowID
}

// NextAccessID returns a new access ID.
func (c *Context) NextAccessID() uint64 {
	c.nextAccessID++
	return c.nextAccessID
}

// Now returns the current simulation time.
func (c *Context) Now() sim.VTimeInCycle {
	return c.Engine.CurrentTime()
}
