package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrInstanceSetFull is returned when adding to a set that already holds its capacity.
	ErrInstanceSetFull = errors.New("instance set is full")

	// ErrUnknownInstance is returned when a handle does not belong to the set.
	ErrUnknownInstance = errors.New("unknown instance handle")
)

// instanceSet is the implementation of the InstanceSet interface.
type instanceSet struct {
	mu *sync.Mutex

	capacity int
	table    GPUInstanceTable
	slots    map[InstanceHandle]int
	owners   []InstanceHandle // owners[slot] is the handle stored in that slot
	next     InstanceHandle
	dirty    bool
}

// InstanceSet packs the model matrices of every instance in one draw batch into the leading
// slots of a GPUInstanceTable, so a batch is always drawn with instance range [0, Len()).
// Removal moves the last live instance into the freed slot.
type InstanceSet interface {
	// Add stores a new instance at the end of the table.
	//
	// Parameters:
	//   - m: the instance's model matrix
	//
	// Returns:
	//   - InstanceHandle: a stable handle for later updates and removal
	//   - error: ErrInstanceSetFull when the set is at capacity
	Add(m mgl32.Mat4) (InstanceHandle, error)

	// Update overwrites the model matrix of an existing instance.
	//
	// Parameters:
	//   - h: the instance handle
	//   - m: the new model matrix
	//
	// Returns:
	//   - error: ErrUnknownInstance if h is not in the set
	Update(h InstanceHandle, m mgl32.Mat4) error

	// Remove deletes an instance, keeping the live slots contiguous.
	//
	// Parameters:
	//   - h: the instance handle
	//
	// Returns:
	//   - error: ErrUnknownInstance if h is not in the set
	Remove(h InstanceHandle) error

	// Slot returns the table index currently holding an instance.
	//
	// Parameters:
	//   - h: the instance handle
	//
	// Returns:
	//   - int: the slot index
	//   - bool: false if h is not in the set
	Slot(h InstanceHandle) (int, bool)

	// Len returns the number of live instances.
	Len() int

	// Capacity returns the maximum number of instances.
	Capacity() int

	// Snapshot copies the current table.
	//
	// Returns:
	//   - GPUInstanceTable: a copy of the table
	//   - int: the number of live instances at the front of the table
	Snapshot() (GPUInstanceTable, int)

	// Table returns a copy of the table. Only the first Len() slots are meaningful.
	//
	// Returns:
	//   - *GPUInstanceTable: a copy the caller may mutate freely
	Table() *GPUInstanceTable

	// Dirty reports whether the table changed since the last ClearDirty.
	Dirty() bool

	// ClearDirty marks the table as uploaded.
	ClearDirty()
}

var _ InstanceSet = &instanceSet{}

// NewInstanceSet creates an empty InstanceSet. A capacity outside (0, MaxInstances] is
// clamped to MaxInstances.
//
// Parameters:
//   - capacity: the maximum number of instances
//
// Returns:
//   - InstanceSet: the new set
func NewInstanceSet(capacity int) InstanceSet {
	if capacity <= 0 || capacity > MaxInstances {
		capacity = MaxInstances
	}
	return &instanceSet{
		mu:       &sync.Mutex{},
		capacity: capacity,
		slots:    make(map[InstanceHandle]int),
		owners:   make([]InstanceHandle, 0, capacity),
		next:     1,
	}
}

func (s *instanceSet) Add(m mgl32.Mat4) (InstanceHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := len(s.owners)
	if slot >= s.capacity {
		return 0, fmt.Errorf("%w: capacity %d", ErrInstanceSetFull, s.capacity)
	}
	if err := s.table.Set(slot, m); err != nil {
		return 0, err
	}

	h := s.next
	s.next++
	s.slots[h] = slot
	s.owners = append(s.owners, h)
	s.dirty = true
	return h, nil
}

func (s *instanceSet) Update(h InstanceHandle, m mgl32.Mat4) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownInstance, h)
	}
	s.table.Models[slot] = m
	s.dirty = true
	return nil
}

func (s *instanceSet) Remove(h InstanceHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownInstance, h)
	}
	delete(s.slots, h)

	last := len(s.owners) - 1
	if slot != last {
		moved := s.owners[last]
		s.table.Models[slot] = s.table.Models[last]
		s.owners[slot] = moved
		s.slots[moved] = slot
	}
	s.table.Models[last] = [16]float32{}
	s.owners = s.owners[:last]
	s.dirty = true
	return nil
}

func (s *instanceSet) Slot(h InstanceHandle) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[h]
	return slot, ok
}

func (s *instanceSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owners)
}

func (s *instanceSet) Capacity() int {
	return s.capacity
}

func (s *instanceSet) Snapshot() (GPUInstanceTable, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table, len(s.owners)
}

func (s *instanceSet) Table() *GPUInstanceTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table
	return &t
}

func (s *instanceSet) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *instanceSet) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}
