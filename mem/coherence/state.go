package coherence

import "fmt"

// State is implemented by the line states of every controller.
type State interface {
	comparable
	fmt.Stringer
}

// L1State is the state of a line in a private cache.
type L1State uint8

// The states of a private cache line. The names of the transient states
// follow the XY_Z convention: moving from X to Y, waiting for Z.
const (
	L1I L1State = iota
	L1S
	L1E
	L1M
	L1IS_D
	L1IM_D
	L1SM_D
	L1MI_A
	L1SI_A
	L1II_A
)

var l1StateNames = [...]string{
	L1I:    "I",
	L1S:    "S",
	L1E:    "E",
	L1M:    "M",
	L1IS_D: "IS_D",
	L1IM_D: "IM_D",
	L1SM_D: "SM_D",
	L1MI_A: "MI_A",
	L1SI_A: "SI_A",
	L1II_A: "II_A",
}

func (s L1State) String() string {
	if int(s) < len(l1StateNames) {
		return l1StateNames[s]
	}

	return fmt.Sprintf("L1State(%d)", s)
}

// IsStable tells if no request is outstanding in the state.
func (s L1State) IsStable() bool {
	return s <= L1M
}

// DirState is the state of a line in the directory.
type DirState uint8

// The states of a directory line.
const (
	DirI DirState = iota
	DirS
	DirM
	DirI_D
	DirS_D
	DirSM_A
	DirXI_R
	DirXI_W
)

var dirStateNames = [...]string{
	DirI:    "I",
	DirS:    "S",
	DirM:    "M",
	DirI_D:  "I_D",
	DirS_D:  "S_D",
	DirSM_A: "SM_A",
	DirXI_R: "XI_R",
	DirXI_W: "XI_W",
}

func (s DirState) String() string {
	if int(s) < len(dirStateNames) {
		return dirStateNames[s]
	}

	return fmt.Sprintf("DirState(%d)", s)
}

// IsStable tells if no request is outstanding in the state.
func (s DirState) IsStable() bool {
	return s <= DirM
}

// Event is what triggers a line transition.
type Event uint8

// The events of the protocol.
const (
	EventIFetch Event = iota
	EventLoad
	EventStore
	EventReplacement
	EventGetS
	EventGetM
	EventPutS
	EventPutM
	EventFwdGetS
	EventFwdGetM
	EventInv
	EventRecall
	EventData
	EventInvAck
	EventLastInvAck
	EventRecallAck
	EventLastRecallAck
	EventPutAck
	EventMemData
	EventMemWriteDone
)

var eventNames = [...]string{
	EventIFetch:        "IFetch",
	EventLoad:          "Load",
	EventStore:         "Store",
	EventReplacement:   "Replacement",
	EventGetS:          "GetS",
	EventGetM:          "GetM",
	EventPutS:          "PutS",
	EventPutM:          "PutM",
	EventFwdGetS:       "FwdGetS",
	EventFwdGetM:       "FwdGetM",
	EventInv:           "Inv",
	EventRecall:        "Recall",
	EventData:          "Data",
	EventInvAck:        "InvAck",
	EventLastInvAck:    "LastInvAck",
	EventRecallAck:     "RecallAck",
	EventLastRecallAck: "LastRecallAck",
	EventPutAck:        "PutAck",
	EventMemData:       "MemData",
	EventMemWriteDone:  "MemWriteDone",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}

	return fmt.Sprintf("Event(%d)", e)
}

// EventOf returns the event that receiving a message of the given type
// triggers.
func EventOf(t MsgType) Event {
	switch t {
	case MsgGetS:
		return EventGetS
	case MsgGetM:
		return EventGetM
	case MsgPutS:
		return EventPutS
	case MsgPutM:
		return EventPutM
	case MsgFwdGetS:
		return EventFwdGetS
	case MsgFwdGetM:
		return EventFwdGetM
	case MsgInv:
		return EventInv
	case MsgRecall:
		return EventRecall
	case MsgData:
		return EventData
	case MsgInvAck:
		return EventInvAck
	case MsgRecallAck:
		return EventRecallAck
	case MsgPutAck:
		return EventPutAck
	default:
		panic(fmt.Sprintf("no event for message type %s", t))
	}
}

// FlowState is the state of a flow that serves one access or one request.
type FlowState uint8

// A flow moves from Idle to Locking, then to one of Locked, FailedToLock, and
// FailedToEvict. A locked flow may go through DownwardTransfer. Every flow
// ends in UnlockedSuccess or UnlockedError.
const (
	FlowIdle FlowState = iota
	FlowLocking
	FlowLocked
	FlowFailedToLock
	FlowFailedToEvict
	FlowDownwardTransfer
	FlowUnlockedSuccess
	FlowUnlockedError
)

var flowStateNames = [...]string{
	FlowIdle:             "Idle",
	FlowLocking:          "Locking",
	FlowLocked:           "Locked",
	FlowFailedToLock:     "FailedToLock",
	FlowFailedToEvict:    "FailedToEvict",
	FlowDownwardTransfer: "DownwardTransfer",
	FlowUnlockedSuccess:  "Unlocked(Success)",
	FlowUnlockedError:    "Unlocked(Error)",
}

func (s FlowState) String() string {
	if int(s) < len(flowStateNames) {
		return flowStateNames[s]
	}

	return fmt.Sprintf("FlowState(%d)", s)
}

// IsTerminal tells if the flow has finished.
func (s FlowState) IsTerminal() bool {
	return s == FlowUnlockedSuccess || s == FlowUnlockedError
}

// CanMoveTo tells if a flow can move from s to next.
func (s FlowState) CanMoveTo(next FlowState) bool {
	switch s {
	case FlowIdle:
		return next == FlowLocking
	case FlowLocking:
		return next == FlowLocked ||
			next == FlowFailedToLock ||
			next == FlowFailedToEvict
	case FlowLocked:
		return next == FlowDownwardTransfer || next == FlowUnlockedSuccess
	case FlowDownwardTransfer:
		return next == FlowUnlockedSuccess
	case FlowFailedToLock, FlowFailedToEvict:
		return next == FlowUnlockedError
	default:
		return false
	}
}

// FindAndLockState is the progress of finding and locking a line.
type FindAndLockState uint8

// The steps of finding and locking a line.
const (
	FindFinding FindAndLockState = iota
	FindEvicting
	FindFilling
	FindLocked
	FindFailed
)

var findStateNames = [...]string{
	FindFinding:  "Finding",
	FindEvicting: "Evicting",
	FindFilling:  "Filling",
	FindLocked:   "Locked",
	FindFailed:   "Failed",
}

func (s FindAndLockState) String() string {
	if int(s) < len(findStateNames) {
		return findStateNames[s]
	}

	return fmt.Sprintf("FindAndLockState(%d)", s)
}
