package docstore

import (
	"context"
	"sync"

	"github.com/juju/mgo/v3/bson"

	"github.com/snerberd/snerberd/internal/model"
)

// Memory is an in-process record store with the same semantics as Store.
// It backs handler and service tests and can stand in for MongoDB locally.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]*model.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]*model.Record)}
}

// ListRecords returns copies of every record of kind in creation-time order.
func (m *Memory) ListRecords(ctx context.Context, kind model.Kind) ([]*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.collections[kind.Collection]
	records := make([]*model.Record, 0, len(stored))
	for _, rec := range stored {
		cp := *rec
		records = append(records, &cp)
	}
	return records, nil
}

// GetRecord returns a copy of the record with id.
func (m *Memory) GetRecord(ctx context.Context, kind model.Kind, id string) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.index(kind, id)
	if i < 0 {
		return nil, ErrRecordNotFound
	}
	cp := *m.collections[kind.Collection][i]
	return &cp, nil
}

// CreateRecord stores a copy of rec and fills in its id and timestamps.
func (m *Memory) CreateRecord(ctx context.Context, kind model.Kind, rec *model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := storedNow()
	rec.ID = bson.NewObjectId().Hex()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	cp := *rec

	m.mu.Lock()
	m.collections[kind.Collection] = append(m.collections[kind.Collection], &cp)
	m.mu.Unlock()

	return nil
}

// UpdateRecord applies patch and bumps updatedAt.
func (m *Memory) UpdateRecord(ctx context.Context, kind model.Kind, id string, patch model.RecordPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(kind, id)
	if i < 0 {
		return ErrRecordNotFound
	}
	rec := m.collections[kind.Collection][i]
	patch.Apply(rec)
	rec.UpdatedAt = storedNow()
	return nil
}

// DeleteRecord removes the record with id.
func (m *Memory) DeleteRecord(ctx context.Context, kind model.Kind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(kind, id)
	if i < 0 {
		return ErrRecordNotFound
	}
	stored := m.collections[kind.Collection]
	m.collections[kind.Collection] = append(stored[:i:i], stored[i+1:]...)
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (m *Memory) Close() {}

// index returns the position of id in kind's collection or -1. Ids are
// matched as ObjectIds, like Store does, so hex case does not matter.
// Callers hold mu.
func (m *Memory) index(kind model.Kind, id string) int {
	oid, ok := objectID(id)
	if !ok {
		return -1
	}
	for i, rec := range m.collections[kind.Collection] {
		if rec.ID == oid.Hex() {
			return i
		}
	}
	return -1
}
