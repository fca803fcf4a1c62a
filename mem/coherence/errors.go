package coherence

import (
	"fmt"
	"log"
	"strings"
)

// A ProtocolError describes a situation that the protocol does not allow.
// It always indicates a modeling bug, so it stops the simulation.
type ProtocolError struct {
	Controller string
	Tag        uint64
	SetID      int
	WayID      int
	State      string
	Msg        *Msg
	Reason     string
	History    []Transition
}

func (e *ProtocolError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s, line 0x%x [%d,%d] in state %s",
		e.Controller, e.Reason, e.Tag, e.SetID, e.WayID, e.State)

	if e.Msg != nil {
		fmt.Fprintf(&b, ", msg %s", e.Msg)
	}

	for _, t := range e.History {
		fmt.Fprintf(&b, "\n\t%s", t)
	}

	return b.String()
}

// NewLineError creates a ProtocolError about a line.
func NewLineError[S State](
	controller string,
	line *Line[S],
	msg *Msg,
	format string, args ...any,
) *ProtocolError {
	return &ProtocolError{
		Controller: controller,
		Tag:        line.Tag,
		SetID:      line.SetID,
		WayID:      line.WayID,
		State:      line.State.String(),
		Msg:        msg,
		Reason:     fmt.Sprintf(format, args...),
		History:    line.History(),
	}
}

// Panic logs the error and stops the simulation. The panic value is the
// error itself.
func Panic(err *ProtocolError) {
	log.Print(err)
	panic(err)
}
