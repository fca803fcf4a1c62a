package coherence

import (
	"fmt"

	"github.com/sarchlab/msisim/sim"
)

// A Transition records one state change of one line.
type Transition struct {
	Time       sim.VTimeInCycle
	Controller string
	Tag        uint64
	SetID      int
	WayID      int
	From       string
	Event      Event
	To         string
}

func (t Transition) String() string {
	return fmt.Sprintf("%d %s [%d,%d] 0x%x: %s --%s--> %s",
		t.Time, t.Controller, t.SetID, t.WayID, t.Tag, t.From, t.Event, t.To)
}

// HistoryLength is the number of transitions each line remembers.
const HistoryLength = 16

// History keeps the most recent transitions of a line.
type History struct {
	entries [HistoryLength]Transition
	next    int
	count   int
}

// Add records a transition, dropping the oldest one if the history is full.
func (h *History) Add(t Transition) {
	h.entries[h.next] = t
	h.next = (h.next + 1) % HistoryLength

	if h.count < HistoryLength {
		h.count++
	}
}

// Entries returns the remembered transitions, oldest first.
func (h *History) Entries() []Transition {
	res := make([]Transition, 0, h.count)
	start := (h.next - h.count + HistoryLength) % HistoryLength

	for i := 0; i < h.count; i++ {
		res = append(res, h.entries[(start+i)%HistoryLength])
	}

	return res
}

// A Line is one way of one set of a controller.
type Line[S State] struct {
	SetID   int
	WayID   int
	Tag     uint64
	IsValid bool
	State   S
	Dirty   bool
	Data    []byte

	// PendingAcks counts the acks the lock holder still waits for.
	PendingAcks int

	// Deferred holds the network requests that must wait until the line is
	// unlocked.
	Deferred []*Msg

	lockHolder uint64
	history    History
}

// IsLocked tells if a flow holds the line.
func (l *Line[S]) IsLocked() bool {
	return l.lockHolder != 0
}

// LockHolder returns the ID of the flow that holds the line, or 0.
func (l *Line[S]) LockHolder() uint64 {
	return l.lockHolder
}

// Lock lets a flow hold the line. It panics if the line is already locked.
func (l *Line[S]) Lock(flowID uint64) {
	if flowID == 0 {
		panic("flow ID 0 cannot lock a line")
	}

	if l.lockHolder != 0 {
		panic(fmt.Sprintf("line [%d,%d] locked by flow %d, flow %d cannot lock",
			l.SetID, l.WayID, l.lockHolder, flowID))
	}

	l.lockHolder = flowID
}

// Unlock releases the line. Only the holder can unlock the line.
func (l *Line[S]) Unlock(flowID uint64) {
	if l.lockHolder != flowID {
		panic(fmt.Sprintf("line [%d,%d] locked by flow %d, flow %d cannot unlock",
			l.SetID, l.WayID, l.lockHolder, flowID))
	}

	l.lockHolder = 0
}

// Record adds a transition to the history of the line.
func (l *Line[S]) Record(t Transition) {
	l.history.Add(t)
}

// History returns the recent transitions of the line, oldest first.
func (l *Line[S]) History() []Transition {
	return l.history.Entries()
}

// Defer queues a network request until the line is unlocked.
func (l *Line[S]) Defer(msg *Msg) {
	l.Deferred = append(l.Deferred, msg)
}

// TakeDeferred removes and returns the deferred requests in arrival order.
func (l *Line[S]) TakeDeferred() []*Msg {
	msgs := l.Deferred
	l.Deferred = nil

	return msgs
}

// WriteWord stores a 64-bit little-endian value at the word that contains
// the address.
func (l *Line[S]) WriteWord(addr uint64, value uint64) {
	offset := wordOffset(addr, len(l.Data))

	for i := 0; i < 8; i++ {
		l.Data[offset+i] = byte(value >> (8 * i))
	}
}

// ReadWord reads the 64-bit little-endian value at the word that contains
// the address.
func (l *Line[S]) ReadWord(addr uint64) uint64 {
	offset := wordOffset(addr, len(l.Data))
	value := uint64(0)

	for i := 0; i < 8; i++ {
		value |= uint64(l.Data[offset+i]) << (8 * i)
	}

	return value
}

func wordOffset(addr uint64, lineSize int) int {
	return int(addr%uint64(lineSize)) &^ 7
}
