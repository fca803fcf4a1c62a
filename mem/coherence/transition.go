package coherence

import "github.com/sarchlab/msisim/sim"

// A Controller is a named component that reports line transitions through
// hooks.
type Controller interface {
	sim.Named
	sim.Hookable
	InvokeHook(ctx sim.HookCtx)
}

// Transit moves the line to a new state, records the transition in the line
// history, and reports it to the hooks of the controller.
func Transit[S State](
	c Controller,
	now sim.VTimeInCycle,
	line *Line[S],
	event Event,
	to S,
) {
	t := Transition{
		Time:       now,
		Controller: c.Name(),
		Tag:        line.Tag,
		SetID:      line.SetID,
		WayID:      line.WayID,
		From:       line.State.String(),
		Event:      event,
		To:         to.String(),
	}

	line.State = to
	line.Record(t)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    now,
		Pos:    HookPosLineTransition,
		Item:   t,
	})
}
