package docstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/juju/mgo/v3/bson"

	"github.com/snerberd/snerberd/internal/model"
)

func TestMemory_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	rec := &model.Record{Name: "Jones Flagship", Length: 162, ChannelBindings: false, Owner: "user-a"}
	if err := m.CreateRecord(ctx, model.KindSnowboard, rec); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if !bson.IsObjectIdHex(rec.ID) {
		t.Fatalf("ID should be ObjectId hex, got %q", rec.ID)
	}

	name := "Jones Flagship Pro"
	if err := m.UpdateRecord(ctx, model.KindSnowboard, rec.ID, model.RecordPatch{Name: &name}); err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}

	got, err := m.GetRecord(ctx, model.KindSnowboard, rec.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.Name != name || got.Length != 162 || got.Owner != "user-a" {
		t.Errorf("unexpected record after update: %+v", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.Owner = "user-b"
	again, _ := m.GetRecord(ctx, model.KindSnowboard, rec.ID)
	if again.Owner != "user-a" {
		t.Errorf("store mutated through returned copy: owner=%s", again.Owner)
	}

	if err := m.DeleteRecord(ctx, model.KindSnowboard, rec.ID); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}
	if _, err := m.GetRecord(ctx, model.KindSnowboard, rec.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound after delete, got %v", err)
	}
	if err := m.DeleteRecord(ctx, model.KindSnowboard, rec.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
	}
}

func TestMemory_KindsAndOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		rec := &model.Record{Name: name, Owner: "user-a"}
		if err := m.CreateRecord(ctx, model.KindSnerberd, rec); err != nil {
			t.Fatalf("CreateRecord failed: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	if err := m.DeleteRecord(ctx, model.KindSnerberd, ids[1]); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}

	list, err := m.ListRecords(ctx, model.KindSnerberd)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != ids[0] || list[1].ID != ids[2] {
		t.Errorf("unexpected list order: %+v", list)
	}

	other, err := m.ListRecords(ctx, model.KindSnowboard)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected empty snowboards, got %d", len(other))
	}
}

func TestMemory_IDCaseInsensitive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	rec := &model.Record{Name: "Burton Custom", Length: 158, ChannelBindings: true, Owner: "user-a"}
	if err := m.CreateRecord(ctx, model.KindSnerberd, rec); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	upper := strings.ToUpper(rec.ID)

	got, err := m.GetRecord(ctx, model.KindSnerberd, upper)
	if err != nil {
		t.Fatalf("GetRecord(%s) failed: %v", upper, err)
	}
	if got.ID != rec.ID {
		t.Errorf("ID = %s, want %s", got.ID, rec.ID)
	}

	if _, err := m.GetRecord(ctx, model.KindSnerberd, "not-an-id"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound for malformed id, got %v", err)
	}
	if err := m.DeleteRecord(ctx, model.KindSnerberd, upper); err != nil {
		t.Fatalf("DeleteRecord(%s) failed: %v", upper, err)
	}
}
