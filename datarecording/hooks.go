package datarecording

import (
	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/sim"
)

// TransitionEntry is a row of the line transition table.
type TransitionEntry struct {
	Time       uint64
	Controller string
	Tag        uint64
	SetID      int
	WayID      int
	FromState  string
	Event      string
	ToState    string
}

// MsgEntry is a row of the message table.
type MsgEntry struct {
	Time      uint64
	Phase     string
	ID        uint64
	Type      string
	Tag       uint64
	Sender    int
	Receiver  int
	Requester int
	NumAcks   int
	Shared    bool
	Dirty     bool
}

// TransitionTable is the name of the table that TransitionRecorder writes.
const TransitionTable = "line_transitions"

// MsgTable is the name of the table that MsgRecorder writes.
const MsgTable = "messages"

// TransitionRecorder is a hook that records every line transition.
type TransitionRecorder struct {
	recorder DataRecorder
}

// NewTransitionRecorder creates the transition table and returns a hook that
// fills it.
func NewTransitionRecorder(recorder DataRecorder) *TransitionRecorder {
	recorder.CreateTable(TransitionTable, TransitionEntry{})

	return &TransitionRecorder{recorder: recorder}
}

// Func records a transition.
func (h *TransitionRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != coherence.HookPosLineTransition {
		return
	}

	t := ctx.Item.(coherence.Transition)

	h.recorder.InsertData(TransitionTable, TransitionEntry{
		Time:       uint64(t.Time),
		Controller: t.Controller,
		Tag:        t.Tag,
		SetID:      t.SetID,
		WayID:      t.WayID,
		FromState:  t.From,
		Event:      t.Event.String(),
		ToState:    t.To,
	})
}

// MsgRecorder is a hook that records messages as they are sent and
// delivered.
type MsgRecorder struct {
	recorder DataRecorder
}

// NewMsgRecorder creates the message table and returns a hook that fills it.
func NewMsgRecorder(recorder DataRecorder) *MsgRecorder {
	recorder.CreateTable(MsgTable, MsgEntry{})

	return &MsgRecorder{recorder: recorder}
}

// Func records a message.
func (h *MsgRecorder) Func(ctx sim.HookCtx) {
	var phase string

	switch ctx.Pos {
	case coherence.HookPosMsgSend:
		phase = "send"
	case coherence.HookPosMsgDeliver:
		phase = "deliver"
	default:
		return
	}

	msg := ctx.Item.(*coherence.Msg)

	h.recorder.InsertData(MsgTable, MsgEntry{
		Time:      uint64(ctx.Now),
		Phase:     phase,
		ID:        msg.ID,
		Type:      msg.Type.String(),
		Tag:       msg.Tag,
		Sender:    int(msg.Sender),
		Receiver:  int(msg.Receiver),
		Requester: int(msg.Requester),
		NumAcks:   msg.NumAcks,
		Shared:    msg.Shared,
		Dirty:     msg.Dirty,
	})
}
