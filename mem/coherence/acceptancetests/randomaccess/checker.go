package randomaccess

import (
	"github.com/sarchlab/msisim/mem/coherence/hierarchy"
	"github.com/sarchlab/msisim/sim"
)

// An InvariantChecker is an engine hook that checks the directory after
// every event and keeps the first violation.
type InvariantChecker struct {
	sys *hierarchy.System
	err error

	NumChecks uint64
}

// NewInvariantChecker creates an InvariantChecker for the system.
func NewInvariantChecker(sys *hierarchy.System) *InvariantChecker {
	return &InvariantChecker{sys: sys}
}

// Func checks the invariants after an event.
func (c *InvariantChecker) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterEvent || c.err != nil {
		return
	}

	c.NumChecks++
	c.err = c.sys.CheckInvariants()
}

// Err returns the first violation.
func (c *InvariantChecker) Err() error {
	return c.err
}
