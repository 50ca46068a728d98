package resource

import (
	"sync"

	"github.com/google/uuid"
)

// InitialCapacity is the number of records a table preallocates before its first growth.
const InitialCapacity = 16

// Table is a dense, handle-addressed record table. Records occupy indices [0, Len) with no
// holes: removal moves the last record into the freed slot. Capacity starts at
// InitialCapacity and doubles whenever an insert would exceed it, which tells the renderer
// when the backing device buffer must be recreated.
type Table[T any] struct {
	mu *sync.Mutex

	name     string
	index    map[uuid.UUID]int
	handles  []uuid.UUID
	items    []T
	capacity int
	revision uint64
}

// NewTable creates an empty table.
//
// Parameters:
//   - name: table name used in errors and logs
//
// Returns:
//   - *Table[T]: the new table
func NewTable[T any](name string) *Table[T] {
	return &Table[T]{
		mu:       &sync.Mutex{},
		name:     name,
		index:    make(map[uuid.UUID]int, InitialCapacity),
		handles:  make([]uuid.UUID, 0, InitialCapacity),
		items:    make([]T, 0, InitialCapacity),
		capacity: InitialCapacity,
	}
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.name
}

// Insert adds a record under id, or replaces the record already stored there.
//
// Parameters:
//   - id: the record handle
//   - v: the record
//
// Returns:
//   - int: the dense index of the record
//   - bool: true if the insert doubled the capacity
func (t *Table[T]) Insert(id uuid.UUID, v T) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revision++
	if i, ok := t.index[id]; ok {
		t.items[i] = v
		return i, false
	}

	grew := false
	for len(t.items)+1 > t.capacity {
		t.capacity *= 2
		grew = true
	}
	i := len(t.items)
	t.items = append(t.items, v)
	t.handles = append(t.handles, id)
	t.index[id] = i
	return i, grew
}

// Update replaces the record stored under id.
//
// Returns:
//   - error: a BindingError wrapping ErrMissingResource if id is not in the table
func (t *Table[T]) Update(id uuid.UUID, v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return &BindingError{Kind: ErrMissingResource, Table: t.name, Index: -1, Len: len(t.items)}
	}
	t.items[i] = v
	t.revision++
	return nil
}

// Remove deletes the record under id. The last record moves into the freed index.
//
// Parameters:
//   - id: the record handle
//
// Returns:
//   - uuid.UUID: the handle of the record that moved, uuid.Nil if none moved
//   - bool: false if id was not in the table
func (t *Table[T]) Remove(id uuid.UUID) (uuid.UUID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return uuid.Nil, false
	}
	t.revision++
	last := len(t.items) - 1
	delete(t.index, id)

	moved := uuid.Nil
	if i != last {
		moved = t.handles[last]
		t.items[i] = t.items[last]
		t.handles[i] = moved
		t.index[moved] = i
	}
	var zero T
	t.items[last] = zero
	t.items = t.items[:last]
	t.handles = t.handles[:last]
	return moved, true
}

// Index returns the dense index of id.
func (t *Table[T]) Index(id uuid.UUID) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	return i, ok
}

// Get returns the record stored under id.
func (t *Table[T]) Get(id uuid.UUID) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return t.items[i], true
}

// At returns the record at a dense index.
//
// Returns:
//   - T: the record
//   - error: a BindingError wrapping ErrIndexOutOfRange if i is not in [0, Len)
func (t *Table[T]) At(i int) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := CheckIndex(t.name, "", i, len(t.items)); err != nil {
		var zero T
		return zero, err
	}
	return t.items[i], nil
}

// Len returns the number of records.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Capacity returns the preallocated record count the device buffer is sized for.
func (t *Table[T]) Capacity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.capacity
}

// Revision returns a counter that increases on every mutation.
func (t *Table[T]) Revision() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revision
}

// Snapshot returns a copy of the records in index order.
func (t *Table[T]) Snapshot() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, len(t.items))
	copy(out, t.items)
	return out
}

// Handles returns a copy of the handles in index order.
func (t *Table[T]) Handles() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uuid.UUID, len(t.handles))
	copy(out, t.handles)
	return out
}
