package coherence

import (
	"log"

	"github.com/sarchlab/msisim/sim"
)

// HookPosMsgSend marks a message being handed to the network. The item is
// the message.
var HookPosMsgSend = &sim.HookPos{Name: "Msg Send"}

// HookPosMsgDeliver marks a message being handed to its receiver. The item is
// the message.
var HookPosMsgDeliver = &sim.HookPos{Name: "Msg Deliver"}

// HookPosLineTransition marks a line changing its state. The item is a
// Transition.
var HookPosLineTransition = &sim.HookPos{Name: "Line Transition"}

// HookPosRequestDeferred marks a message or an access waiting for a line to
// be unlocked. The item is the message or the access.
var HookPosRequestDeferred = &sim.HookPos{Name: "Request Deferred"}

// HookPosAccessBegin marks an access entering a private cache. The item is
// the access.
var HookPosAccessBegin = &sim.HookPos{Name: "Access Begin"}

// HookPosAccessDone marks the completion of an access. The item is the
// access.
var HookPosAccessDone = &sim.HookPos{Name: "Access Done"}

// MsgLogger is a hook that prints messages as they are sent and delivered.
type MsgLogger struct {
	logger *log.Logger
}

// NewMsgLogger creates a MsgLogger that writes into the logger.
func NewMsgLogger(logger *log.Logger) *MsgLogger {
	return &MsgLogger{logger: logger}
}

// Func writes the message information into the logger.
func (h *MsgLogger) Func(ctx sim.HookCtx) {
	msg, ok := ctx.Item.(*Msg)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosMsgSend:
		h.logger.Printf("%d, send, %s", ctx.Now, msg)
	case HookPosMsgDeliver:
		h.logger.Printf("%d, deliver, %s", ctx.Now, msg)
	}
}
