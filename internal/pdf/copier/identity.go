package copier

import (
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// State is the lifecycle position of one copy record
type State int

const (
	// StatePending means a destination slot is reserved and the copy is in progress
	StatePending State = iota
	// StateCopied means the destination slot holds the finished copy
	StateCopied
	// StateNotCopied means the slot is kept but the content must be copied again
	StateNotCopied
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCopied:
		return "copied"
	case StateNotCopied:
		return "not_copied"
	default:
		return "unknown"
	}
}

// Record maps one source object to its destination reference
type Record struct {
	Dest  *object.IndirectRef
	State State
}

// IdentityMap tracks the copies made from a single source document.
// Object numbers are only unique inside one document, so every source
// gets its own map.
type IdentityMap struct {
	records  map[object.ObjectID]*Record
	allocate func() *object.IndirectRef
}

// NewIdentityMap creates a map that takes fresh destination numbers from allocate
func NewIdentityMap(allocate func() *object.IndirectRef) *IdentityMap {
	return &IdentityMap{
		records:  make(map[object.ObjectID]*Record),
		allocate: allocate,
	}
}

// Lookup returns the record for id, if any
func (m *IdentityMap) Lookup(id object.ObjectID) (*Record, bool) {
	r, ok := m.records[id]
	return r, ok
}

// Reserve creates a pending record with a fresh destination reference.
// An existing record is returned unchanged.
func (m *IdentityMap) Reserve(id object.ObjectID) *object.IndirectRef {
	if r, ok := m.records[id]; ok {
		return r.Dest
	}
	r := &Record{Dest: m.allocate(), State: StatePending}
	m.records[id] = r
	return r.Dest
}

// Begin moves a not-copied record back to pending for another copy attempt
func (m *IdentityMap) Begin(id object.ObjectID) {
	if r, ok := m.records[id]; ok && r.State == StateNotCopied {
		r.State = StatePending
	}
}

// Commit marks a pending record as copied
func (m *IdentityMap) Commit(id object.ObjectID) {
	if r, ok := m.records[id]; ok && r.State == StatePending {
		r.State = StateCopied
	}
}

// Rollback forgets a pending or not-copied record so a later attempt starts clean
func (m *IdentityMap) Rollback(id object.ObjectID) {
	if r, ok := m.records[id]; ok && r.State != StateCopied {
		delete(m.records, id)
	}
}

// Disable keeps the destination slot of id but marks its content as not copied
func (m *IdentityMap) Disable(id object.ObjectID) {
	if r, ok := m.records[id]; ok {
		r.State = StateNotCopied
	}
}

// Alias records dest as the finished copy of id without copying anything
func (m *IdentityMap) Alias(id object.ObjectID, dest *object.IndirectRef) {
	m.records[id] = &Record{Dest: dest, State: StateCopied}
}

// Len returns the number of records
func (m *IdentityMap) Len() int {
	return len(m.records)
}
