// Package mem provides the backing storage used by the memory hierarchy.
package mem

import (
	"errors"
	"fmt"
)

// ErrOutOfCapacity is returned when an access goes beyond the capacity of a
// storage.
var ErrOutOfCapacity = errors.New("access beyond storage capacity")

// A Storage keeps the data of the simulated main memory.
//
// Data is kept in units. A unit is only allocated when it is touched for the
// first time. Untouched memory reads as zero.
type Storage struct {
	unitSize uint64
	capacity uint64
	units    map[uint64][]byte
}

// NewStorage creates a storage with the given capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		unitSize: 4096,
		capacity: capacity,
		units:    make(map[uint64][]byte),
	}
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// NumAllocatedUnits returns how many units have been touched.
func (s *Storage) NumAllocatedUnits() int {
	return len(s.units)
}

func (s *Storage) unit(addr uint64) []byte {
	base := addr - addr%s.unitSize

	u, ok := s.units[base]
	if !ok {
		u = make([]byte, s.unitSize)
		s.units[base] = u
	}

	return u
}

func (s *Storage) mustBeInRange(addr, length uint64) error {
	if addr+length > s.capacity || addr+length < addr {
		return fmt.Errorf("%w: [0x%x, 0x%x) with capacity 0x%x",
			ErrOutOfCapacity, addr, addr+length, s.capacity)
	}

	return nil
}

// Read returns a copy of length bytes starting at addr.
func (s *Storage) Read(addr, length uint64) ([]byte, error) {
	if err := s.mustBeInRange(addr, length); err != nil {
		return nil, err
	}

	res := make([]byte, length)
	done := uint64(0)

	for done < length {
		curr := addr + done
		offset := curr % s.unitSize
		n := min(s.unitSize-offset, length-done)

		copy(res[done:done+n], s.unit(curr)[offset:offset+n])
		done += n
	}

	return res, nil
}

// Write stores data starting at addr.
func (s *Storage) Write(addr uint64, data []byte) error {
	length := uint64(len(data))
	if err := s.mustBeInRange(addr, length); err != nil {
		return err
	}

	done := uint64(0)

	for done < length {
		curr := addr + done
		offset := curr % s.unitSize
		n := min(s.unitSize-offset, length-done)

		copy(s.unit(curr)[offset:offset+n], data[done:done+n])
		done += n
	}

	return nil
}
