package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/mgo/v3"
	"github.com/juju/mgo/v3/bson"

	"github.com/snerberd/snerberd/internal/model"
)

// recordDoc is the stored shape of a record.
type recordDoc struct {
	ID              bson.ObjectId `bson:"_id"`
	Name            string        `bson:"name"`
	Length          float64       `bson:"length"`
	ChannelBindings bool          `bson:"channelBindings"`
	Owner           string        `bson:"owner"`
	CreatedAt       time.Time     `bson:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt"`
}

func (d *recordDoc) record() *model.Record {
	return &model.Record{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Length:          d.Length,
		ChannelBindings: d.ChannelBindings,
		Owner:           d.Owner,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

// ListRecords returns every record of kind in creation-time order.
func (s *Store) ListRecords(ctx context.Context, kind model.Kind) ([]*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session, c := s.collection(kind.Collection)
	defer session.Close()

	var docs []recordDoc
	// ObjectIds start with their creation second, so _id order is creation-time
	// order. Ids made in the same second by different processes may interleave.
	if err := c.Find(nil).Sort("_id").All(&docs); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind.Plural, err)
	}

	records := make([]*model.Record, 0, len(docs))
	for i := range docs {
		records = append(records, docs[i].record())
	}

	return records, nil
}

// GetRecord retrieves a record by id.
// Ids that are not valid ObjectIds cannot exist and yield ErrRecordNotFound.
func (s *Store) GetRecord(ctx context.Context, kind model.Kind, id string) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	oid, ok := objectID(id)
	if !ok {
		return nil, ErrRecordNotFound
	}

	session, c := s.collection(kind.Collection)
	defer session.Close()

	var doc recordDoc
	if err := c.FindId(oid).One(&doc); err != nil {
		if errors.Is(err, mgo.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get %s by ID: %w", kind.Singular, err)
	}

	return doc.record(), nil
}

// CreateRecord inserts rec and fills in its id and timestamps.
func (s *Store) CreateRecord(ctx context.Context, kind model.Kind, rec *model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.now()
	doc := recordDoc{
		ID:              bson.NewObjectId(),
		Name:            rec.Name,
		Length:          rec.Length,
		ChannelBindings: rec.ChannelBindings,
		Owner:           rec.Owner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	session, c := s.collection(kind.Collection)
	defer session.Close()

	if err := c.Insert(&doc); err != nil {
		return fmt.Errorf("failed to create %s: %w", kind.Singular, err)
	}

	rec.ID = doc.ID.Hex()
	rec.CreatedAt = doc.CreatedAt
	rec.UpdatedAt = doc.UpdatedAt

	return nil
}

// UpdateRecord sets the fields present in patch and bumps updatedAt.
func (s *Store) UpdateRecord(ctx context.Context, kind model.Kind, id string, patch model.RecordPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	oid, ok := objectID(id)
	if !ok {
		return ErrRecordNotFound
	}

	set := bson.M{"updatedAt": s.now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Length != nil {
		set["length"] = *patch.Length
	}
	if patch.ChannelBindings != nil {
		set["channelBindings"] = *patch.ChannelBindings
	}

	session, c := s.collection(kind.Collection)
	defer session.Close()

	if err := c.UpdateId(oid, bson.M{"$set": set}); err != nil {
		if errors.Is(err, mgo.ErrNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("failed to update %s: %w", kind.Singular, err)
	}

	return nil
}

// DeleteRecord removes a record permanently.
func (s *Store) DeleteRecord(ctx context.Context, kind model.Kind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	oid, ok := objectID(id)
	if !ok {
		return ErrRecordNotFound
	}

	session, c := s.collection(kind.Collection)
	defer session.Close()

	if err := c.RemoveId(oid); err != nil {
		if errors.Is(err, mgo.ErrNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("failed to delete %s: %w", kind.Singular, err)
	}

	return nil
}

func objectID(id string) (bson.ObjectId, bool) {
	if !bson.IsObjectIdHex(id) {
		return "", false
	}
	return bson.ObjectIdHex(id), true
}
