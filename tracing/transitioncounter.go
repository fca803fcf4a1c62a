// Package tracing provides hooks that collect statistics from the coherence
// controllers.
package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/sim"
)

// A TransitionKey identifies one edge of a line state machine.
type TransitionKey struct {
	From  string
	Event coherence.Event
	To    string
}

// A TransitionCount is the number of times an edge is taken.
type TransitionCount struct {
	Controller string
	TransitionKey
	Count uint64
}

// TransitionCounter counts the line transitions of every controller it is
// attached to.
type TransitionCounter struct {
	lock        sync.Mutex
	controllers []string
	counts      map[string]map[TransitionKey]uint64
}

// NewTransitionCounter creates a new TransitionCounter.
func NewTransitionCounter() *TransitionCounter {
	return &TransitionCounter{
		counts: make(map[string]map[TransitionKey]uint64),
	}
}

// Func counts a transition.
func (c *TransitionCounter) Func(ctx sim.HookCtx) {
	if ctx.Pos != coherence.HookPosLineTransition {
		return
	}

	t := ctx.Item.(coherence.Transition)
	key := TransitionKey{From: t.From, Event: t.Event, To: t.To}

	c.lock.Lock()
	defer c.lock.Unlock()

	perCtrl, ok := c.counts[t.Controller]
	if !ok {
		perCtrl = make(map[TransitionKey]uint64)
		c.counts[t.Controller] = perCtrl
		c.controllers = append(c.controllers, t.Controller)
	}

	perCtrl[key]++
}

// Controllers returns the names of the controllers that reported a
// transition, in the order they first did.
func (c *TransitionCounter) Controllers() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]string(nil), c.controllers...)
}

// Count returns how many times a controller took an edge.
func (c *TransitionCounter) Count(controller string, key TransitionKey) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[controller][key]
}

// Total returns the number of transitions of a controller.
func (c *TransitionCounter) Total(controller string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	total := uint64(0)
	for _, n := range c.counts[controller] {
		total += n
	}

	return total
}

// Counts returns the counts of a controller, sorted by source state, event,
// and destination state.
func (c *TransitionCounter) Counts(controller string) []TransitionCount {
	c.lock.Lock()
	defer c.lock.Unlock()

	rows := make([]TransitionCount, 0, len(c.counts[controller]))
	for key, n := range c.counts[controller] {
		rows = append(rows, TransitionCount{
			Controller:    controller,
			TransitionKey: key,
			Count:         n,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.From != b.From {
			return a.From < b.From
		}

		if a.Event != b.Event {
			return a.Event < b.Event
		}

		return a.To < b.To
	})

	return rows
}

// AllCounts returns the counts of every controller.
func (c *TransitionCounter) AllCounts() []TransitionCount {
	var rows []TransitionCount

	for _, ctrl := range c.Controllers() {
		rows = append(rows, c.Counts(ctrl)...)
	}

	return rows
}
