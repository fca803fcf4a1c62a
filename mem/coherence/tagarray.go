package coherence

import "fmt"

type set[S State] struct {
	lines []*Line[S]

	// lru keeps the lines of the set, least recently used first.
	lru []*Line[S]
}

// A TagArray is the arena that owns all the lines of one controller. Lines
// are addressed by set and way.
type TagArray[S State] struct {
	numSets  int
	numWays  int
	lineSize int
	sets     []set[S]
}

// NewTagArray creates a TagArray with all lines invalid and in the initial
// state.
func NewTagArray[S State](
	numSets, numWays, lineSize int,
	initial S,
) *TagArray[S] {
	if numSets <= 0 || numWays <= 0 {
		panic("a tag array needs at least one set and one way")
	}

	if lineSize < 8 || lineSize&(lineSize-1) != 0 {
		panic(fmt.Sprintf("line size %d is not a power of two no less than 8",
			lineSize))
	}

	t := &TagArray[S]{
		numSets:  numSets,
		numWays:  numWays,
		lineSize: lineSize,
		sets:     make([]set[S], numSets),
	}

	for i := range t.sets {
		for j := 0; j < numWays; j++ {
			l := &Line[S]{
				SetID: i,
				WayID: j,
				State: initial,
				Data:  make([]byte, lineSize),
			}
			t.sets[i].lines = append(t.sets[i].lines, l)
			t.sets[i].lru = append(t.sets[i].lru, l)
		}
	}

	return t
}

// NumSets returns the number of sets.
func (t *TagArray[S]) NumSets() int {
	return t.numSets
}

// NumWays returns the associativity.
func (t *TagArray[S]) NumWays() int {
	return t.numWays
}

// LineSize returns the number of bytes in a line.
func (t *TagArray[S]) LineSize() int {
	return t.lineSize
}

// TagOf returns the tag of the line that contains the address.
func (t *TagArray[S]) TagOf(addr uint64) uint64 {
	return addr &^ uint64(t.lineSize-1)
}

// SetIndex returns the set that a tag maps to.
func (t *TagArray[S]) SetIndex(tag uint64) int {
	return int((tag / uint64(t.lineSize)) % uint64(t.numSets))
}

// Line returns the line at the given set and way.
func (t *TagArray[S]) Line(setID, wayID int) *Line[S] {
	return t.sets[setID].lines[wayID]
}

// Lookup returns the valid line that holds the tag, or nil.
func (t *TagArray[S]) Lookup(tag uint64) *Line[S] {
	for _, l := range t.sets[t.SetIndex(tag)].lines {
		if l.IsValid && l.Tag == tag {
			return l
		}
	}

	return nil
}

// Visit marks the line as the most recently used one in its set.
func (t *TagArray[S]) Visit(line *Line[S]) {
	s := &t.sets[line.SetID]

	for i, l := range s.lru {
		if l == line {
			s.lru = append(s.lru[:i], s.lru[i+1:]...)
			break
		}
	}

	s.lru = append(s.lru, line)
}

// FindVictim selects a line that can be replaced to hold the tag. Invalid
// lines are preferred over valid ones, and lines are otherwise picked in LRU
// order. Locked lines are never picked. It returns nil if every line of the
// set is locked.
func (t *TagArray[S]) FindVictim(tag uint64) *Line[S] {
	s := &t.sets[t.SetIndex(tag)]

	for _, l := range s.lru {
		if !l.IsValid && !l.IsLocked() {
			return l
		}
	}

	for _, l := range s.lru {
		if !l.IsLocked() {
			return l
		}
	}

	return nil
}

// ForEach visits every line, set by set and way by way.
func (t *TagArray[S]) ForEach(f func(l *Line[S])) {
	for i := range t.sets {
		for _, l := range t.sets[i].lines {
			f(l)
		}
	}
}

// SetLines returns the lines of a set ordered by way.
func (t *TagArray[S]) SetLines(setID int) []*Line[S] {
	return t.sets[setID].lines
}

// LineInfo is a snapshot of a line for reporting.
type LineInfo struct {
	SetID       int    `json:"set"`
	WayID       int    `json:"way"`
	Tag         uint64 `json:"tag"`
	Valid       bool   `json:"valid"`
	State       string `json:"state"`
	Dirty       bool   `json:"dirty"`
	Locked      bool   `json:"locked"`
	NumDeferred int    `json:"num_deferred"`
}

// Snapshot returns the information of every line, set by set and way by
// way.
func (t *TagArray[S]) Snapshot() []LineInfo {
	infos := make([]LineInfo, 0, t.numSets*t.numWays)

	t.ForEach(func(l *Line[S]) {
		infos = append(infos, LineInfo{
			SetID:       l.SetID,
			WayID:       l.WayID,
			Tag:         l.Tag,
			Valid:       l.IsValid,
			State:       l.State.String(),
			Dirty:       l.Dirty,
			Locked:      l.IsLocked(),
			NumDeferred: len(l.Deferred),
		})
	})

	return infos
}
