package coherence

import (
	"slices"
	"strings"
)

// A SharerSet is a set of controllers, kept in ascending order.
type SharerSet struct {
	ids []ControllerID
}

// Add inserts a controller. Adding an existing member has no effect.
func (s *SharerSet) Add(id ControllerID) {
	i, found := slices.BinarySearch(s.ids, id)
	if found {
		return
	}

	s.ids = slices.Insert(s.ids, i, id)
}

// Remove deletes a controller and tells if it was a member.
func (s *SharerSet) Remove(id ControllerID) bool {
	i, found := slices.BinarySearch(s.ids, id)
	if !found {
		return false
	}

	s.ids = slices.Delete(s.ids, i, i+1)

	return true
}

// Contains tells if the controller is a member.
func (s *SharerSet) Contains(id ControllerID) bool {
	_, found := slices.BinarySearch(s.ids, id)
	return found
}

// Len returns the number of members.
func (s *SharerSet) Len() int {
	return len(s.ids)
}

// IsEmpty tells if there is no member.
func (s *SharerSet) IsEmpty() bool {
	return len(s.ids) == 0
}

// Clear removes all the members.
func (s *SharerSet) Clear() {
	s.ids = nil
}

// Members returns a copy of the members in ascending order.
func (s *SharerSet) Members() []ControllerID {
	return slices.Clone(s.ids)
}

func (s *SharerSet) String() string {
	names := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		names = append(names, id.String())
	}

	return "{" + strings.Join(names, ", ") + "}"
}
