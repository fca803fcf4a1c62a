package directory

import (
	"fmt"

	"github.com/sarchlab/msisim/mem/coherence"
)

// EntryInfo is a snapshot of what the directory knows about a line.
type EntryInfo struct {
	Tag     uint64
	State   coherence.DirState
	Owner   coherence.ControllerID
	Sharers []coherence.ControllerID
	Dirty   bool
	Locked  bool
	Data    []byte
}

// Lookup returns the directory information of a tag. The second return value
// is false if the directory does not track the tag.
func (c *Comp) Lookup(tag uint64) (EntryInfo, bool) {
	l := c.tags.Lookup(tag)
	if l == nil {
		return EntryInfo{}, false
	}

	return c.infoOf(l), true
}

// Entries returns the information of every tracked line.
func (c *Comp) Entries() []EntryInfo {
	var infos []EntryInfo

	c.tags.ForEach(func(l *line) {
		if l.IsValid {
			infos = append(infos, c.infoOf(l))
		}
	})

	return infos
}

func (c *Comp) infoOf(l *line) EntryInfo {
	e := c.entryOf(l)

	return EntryInfo{
		Tag:     l.Tag,
		State:   l.State,
		Owner:   e.owner,
		Sharers: e.sharers.Members(),
		Dirty:   l.Dirty,
		Locked:  l.IsLocked(),
		Data:    append([]byte(nil), l.Data...),
	}
}

// IsIdle tells if the directory has no request in progress or waiting.
func (c *Comp) IsIdle() bool {
	if len(c.flows) > 0 || len(c.downward) > 0 || len(c.reserved) > 0 {
		return false
	}

	for _, w := range c.setWaiters {
		if len(w) > 0 {
			return false
		}
	}

	return true
}

// CheckInvariants verifies that the bookkeeping of every line agrees with its
// state.
func (c *Comp) CheckInvariants() error {
	var err error

	c.tags.ForEach(func(l *line) {
		if err != nil {
			return
		}

		err = c.checkLine(l)
	})

	return err
}

func (c *Comp) checkLine(l *line) error {
	e := c.entryOf(l)
	hasOwner := e.owner != coherence.NoController

	if hasOwner && !e.sharers.IsEmpty() {
		return c.invariantError(l, "owner %s coexists with sharers %s",
			e.owner, &e.sharers)
	}

	if hasOwner && e.sharers.Contains(e.owner) {
		return c.invariantError(l, "owner %s is also a sharer", e.owner)
	}

	if l.IsLocked() {
		if _, ok := c.flows[l.LockHolder()]; !ok {
			return c.invariantError(l, "locked by unknown flow %d",
				l.LockHolder())
		}
	} else if !l.State.IsStable() {
		return c.invariantError(l, "unlocked in a transient state")
	}

	switch l.State {
	case coherence.DirI:
		if hasOwner || !e.sharers.IsEmpty() {
			return c.invariantError(l, "state I with holders")
		}
	case coherence.DirS:
		if hasOwner || e.sharers.IsEmpty() {
			return c.invariantError(l, "state S needs sharers and no owner")
		}
	case coherence.DirM:
		if !hasOwner {
			return c.invariantError(l, "state M without an owner")
		}
	}

	return nil
}

func (c *Comp) invariantError(l *line, format string, args ...any) error {
	return fmt.Errorf("%s: line 0x%x in %s: %s",
		c.name, l.Tag, l.State, fmt.Sprintf(format, args...))
}
