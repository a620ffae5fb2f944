package metrics

import (
	"maps"
	"sync"
)

// Snapshot captures current in-memory counters keyed by label value.
type Snapshot struct {
	RecordsCreated  map[string]uint64
	RecordsUpdated  map[string]uint64
	RecordsDeleted  map[string]uint64
	OwnershipDenied map[string]uint64
	AuthFailures    map[string]uint64
	RateLimited     map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu              sync.Mutex
	recordsCreated  map[string]uint64
	recordsUpdated  map[string]uint64
	recordsDeleted  map[string]uint64
	ownershipDenied map[string]uint64
	authFailures    map[string]uint64
	rateLimited     map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		recordsCreated:  make(map[string]uint64),
		recordsUpdated:  make(map[string]uint64),
		recordsDeleted:  make(map[string]uint64),
		ownershipDenied: make(map[string]uint64),
		authFailures:    make(map[string]uint64),
		rateLimited:     make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		RecordsCreated:  maps.Clone(m.recordsCreated),
		RecordsUpdated:  maps.Clone(m.recordsUpdated),
		RecordsDeleted:  maps.Clone(m.recordsDeleted),
		OwnershipDenied: maps.Clone(m.ownershipDenied),
		AuthFailures:    maps.Clone(m.authFailures),
		RateLimited:     maps.Clone(m.rateLimited),
	}
}

// IncRecordCreated increments the created counter for kind.
func (m *InMemoryRecorder) IncRecordCreated(kind string) {
	m.inc(m.recordsCreated, kind)
}

// IncRecordUpdated increments the updated counter for kind.
func (m *InMemoryRecorder) IncRecordUpdated(kind string) {
	m.inc(m.recordsUpdated, kind)
}

// IncRecordDeleted increments the deleted counter for kind.
func (m *InMemoryRecorder) IncRecordDeleted(kind string) {
	m.inc(m.recordsDeleted, kind)
}

// IncOwnershipDenied increments the ownership denial counter for kind.
func (m *InMemoryRecorder) IncOwnershipDenied(kind string) {
	m.inc(m.ownershipDenied, kind)
}

// IncAuthFailure increments the auth failure counter for reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.inc(m.authFailures, reason)
}

func (m *InMemoryRecorder) IncRateLimited(bucket string) {
	m.inc(m.rateLimited, bucket)
}

func (m *InMemoryRecorder) inc(counter map[string]uint64, label string) {
	m.mu.Lock()
	counter[label]++
	m.mu.Unlock()
}
