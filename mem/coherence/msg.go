package coherence

import "fmt"

// MsgType is the type of a coherence message.
type MsgType uint8

// The message types of the protocol.
const (
	MsgGetS MsgType = iota
	MsgGetM
	MsgFwdGetS
	MsgFwdGetM
	MsgInv
	MsgRecall
	MsgPutS
	MsgPutM
	MsgData
	MsgInvAck
	MsgRecallAck
	MsgPutAck
)

var msgTypeNames = [...]string{
	MsgGetS:      "GetS",
	MsgGetM:      "GetM",
	MsgFwdGetS:   "FwdGetS",
	MsgFwdGetM:   "FwdGetM",
	MsgInv:       "Inv",
	MsgRecall:    "Recall",
	MsgPutS:      "PutS",
	MsgPutM:      "PutM",
	MsgData:      "Data",
	MsgInvAck:    "InvAck",
	MsgRecallAck: "RecallAck",
	MsgPutAck:    "PutAck",
}

func (t MsgType) String() string {
	if int(t) < len(msgTypeNames) {
		return msgTypeNames[t]
	}

	return fmt.Sprintf("MsgType(%d)", t)
}

// ControlMsgBytes is the size of a message that does not carry data.
const ControlMsgBytes = 8

// Msg is a coherence message. A message is not modified after it is sent.
type Msg struct {
	ID        uint64
	Type      MsgType
	Tag       uint64
	Sender    ControllerID
	Receiver  ControllerID
	Requester ControllerID

	// NumAcks is the number of invalidation acks that were collected before
	// the Data is sent.
	NumAcks int

	// Shared is set on Data messages that only grant a read-only copy.
	Shared bool

	// Dirty is set when Data carries a line that differs from the copy at
	// the directory.
	Dirty bool

	Data []byte
}

// HasData tells if the message carries a cache line.
func (m *Msg) HasData() bool {
	return m.Data != nil
}

// TrafficBytes returns the number of bytes the message occupies on the
// network.
func (m *Msg) TrafficBytes() int {
	if m.HasData() {
		return len(m.Data) + ControlMsgBytes
	}

	return ControlMsgBytes
}

func (m *Msg) String() string {
	s := fmt.Sprintf("%s#%d %s->%s tag 0x%x",
		m.Type, m.ID, m.Sender, m.Receiver, m.Tag)

	if m.Requester != NoController {
		s += fmt.Sprintf(" req %s", m.Requester)
	}

	if m.Type == MsgData {
		s += fmt.Sprintf(" acks %d shared %t dirty %t",
			m.NumAcks, m.Shared, m.Dirty)
	}

	return s
}

// MsgBuilder can build coherence messages. The message ID is assigned when
// the message is sent.
type MsgBuilder struct {
	msgType   MsgType
	tag       uint64
	sender    ControllerID
	receiver  ControllerID
	requester ControllerID
	numAcks   int
	shared    bool
	dirty     bool
	data      []byte
}

// MakeMsgBuilder creates a MsgBuilder with no requester.
func MakeMsgBuilder() MsgBuilder {
	return MsgBuilder{requester: NoController}
}

// WithType sets the type of the message.
func (b MsgBuilder) WithType(t MsgType) MsgBuilder {
	b.msgType = t
	return b
}

// WithTag sets the line tag that the message is about.
func (b MsgBuilder) WithTag(tag uint64) MsgBuilder {
	b.tag = tag
	return b
}

// WithSender sets the source of the message.
func (b MsgBuilder) WithSender(id ControllerID) MsgBuilder {
	b.sender = id
	return b
}

// WithReceiver sets the destination of the message.
func (b MsgBuilder) WithReceiver(id ControllerID) MsgBuilder {
	b.receiver = id
	return b
}

// WithRequester sets the controller that originally requested the line.
func (b MsgBuilder) WithRequester(id ControllerID) MsgBuilder {
	b.requester = id
	return b
}

// WithNumAcks sets the ack count carried by a Data message.
func (b MsgBuilder) WithNumAcks(n int) MsgBuilder {
	b.numAcks = n
	return b
}

// WithShared marks a Data message as granting a shared copy.
func (b MsgBuilder) WithShared(shared bool) MsgBuilder {
	b.shared = shared
	return b
}

// WithDirty marks the carried line as dirty.
func (b MsgBuilder) WithDirty(dirty bool) MsgBuilder {
	b.dirty = dirty
	return b
}

// WithData attaches a copy of the line to the message.
func (b MsgBuilder) WithData(data []byte) MsgBuilder {
	b.data = make([]byte, len(data))
	copy(b.data, data)

	return b
}

// Build creates the message.
func (b MsgBuilder) Build() *Msg {
	return &Msg{
		Type:      b.msgType,
		Tag:       b.tag,
		Sender:    b.sender,
		Receiver:  b.receiver,
		Requester: b.requester,
		NumAcks:   b.numAcks,
		Shared:    b.shared,
		Dirty:     b.dirty,
		Data:      b.data,
	}
}
