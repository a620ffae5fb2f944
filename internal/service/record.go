// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/snerberd/snerberd/internal/docstore"
	"github.com/snerberd/snerberd/internal/metrics"
	"github.com/snerberd/snerberd/internal/model"
)

// Service errors.
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrNotOwner        = errors.New("requester does not own the record")
	ErrUnauthenticated = errors.New("authentication required")
)

// RecordStore is the persistence contract for records.
type RecordStore interface {
	ListRecords(ctx context.Context, kind model.Kind) ([]*model.Record, error)
	GetRecord(ctx context.Context, kind model.Kind, id string) (*model.Record, error)
	CreateRecord(ctx context.Context, kind model.Kind, rec *model.Record) error
	UpdateRecord(ctx context.Context, kind model.Kind, id string, patch model.RecordPatch) error
	DeleteRecord(ctx context.Context, kind model.Kind, id string) error
	Ping(ctx context.Context) error
	Close()
}

// RecordService handles record business logic for every kind.
type RecordService struct {
	store     RecordStore
	metrics   metrics.Recorder
	validator *Validator
}

// NewRecordService creates a new RecordService.
func NewRecordService(store RecordStore, recorder metrics.Recorder) *RecordService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RecordService{
		store:     store,
		metrics:   recorder,
		validator: NewValidator(),
	}
}

// CreateRecordInput defines input for creating a record.
// Pointers distinguish a missing field from its zero value.
type CreateRecordInput struct {
	Name            *string  `json:"name" validate:"required,min=1"`
	Length          *float64 `json:"length" validate:"required"`
	ChannelBindings *bool    `json:"channelBindings" validate:"required"`
}

// updateRules constrains the fields present in a patch.
type updateRules struct {
	Name *string `json:"name" validate:"omitnil,min=1"`
}

// List returns every record of kind.
func (s *RecordService) List(ctx context.Context, kind model.Kind) ([]*model.Record, error) {
	records, err := s.store.ListRecords(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind.Plural, err)
	}
	return records, nil
}

// Get returns a single record.
func (s *RecordService) Get(ctx context.Context, kind model.Kind, id string) (*model.Record, error) {
	rec, err := s.store.GetRecord(ctx, kind, id)
	if err != nil {
		if errors.Is(err, docstore.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", kind.Singular, err)
	}
	return rec, nil
}

// Create validates input and stores a record owned by requester.
// Any owner supplied by the client never reaches this point.
func (s *RecordService) Create(ctx context.Context, kind model.Kind, requester string, input CreateRecordInput) (*model.Record, error) {
	if requester == "" {
		return nil, ErrUnauthenticated
	}

	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	rec := &model.Record{
		Name:            *input.Name,
		Length:          *input.Length,
		ChannelBindings: *input.ChannelBindings,
		Owner:           requester,
	}

	if err := s.store.CreateRecord(ctx, kind, rec); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", kind.Singular, err)
	}

	s.metrics.IncRecordCreated(kind.Plural)

	return rec, nil
}

// PatchFunc yields the patch for Update. Update calls it only once the
// record is known to exist and belong to the requester, so request body
// errors never mask a 404 or an ownership failure.
type PatchFunc func() (model.RecordPatch, error)

// StaticPatch wraps an already decoded patch.
func StaticPatch(p model.RecordPatch) PatchFunc {
	return func() (model.RecordPatch, error) { return p, nil }
}

// Update applies the patch to the record if requester owns it.
// The checks run in order: authenticated, exists, owned, valid patch.
func (s *RecordService) Update(ctx context.Context, kind model.Kind, requester, id string, next PatchFunc) error {
	if requester == "" {
		return ErrUnauthenticated
	}

	if _, err := s.ownedRecord(ctx, kind, requester, id); err != nil {
		return err
	}

	patch, err := next()
	if err != nil {
		return err
	}
	if err := s.validator.Validate(updateRules{Name: patch.Name}); err != nil {
		return err
	}

	if err := s.store.UpdateRecord(ctx, kind, id, patch); err != nil {
		if errors.Is(err, docstore.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("failed to update %s: %w", kind.Singular, err)
	}

	s.metrics.IncRecordUpdated(kind.Plural)

	return nil
}

// Delete removes the record if requester owns it.
func (s *RecordService) Delete(ctx context.Context, kind model.Kind, requester, id string) error {
	if requester == "" {
		return ErrUnauthenticated
	}

	if _, err := s.ownedRecord(ctx, kind, requester, id); err != nil {
		return err
	}

	if err := s.store.DeleteRecord(ctx, kind, id); err != nil {
		if errors.Is(err, docstore.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("failed to delete %s: %w", kind.Singular, err)
	}

	s.metrics.IncRecordDeleted(kind.Plural)

	return nil
}

// ownedRecord loads the record and checks that requester owns it.
func (s *RecordService) ownedRecord(ctx context.Context, kind model.Kind, requester, id string) (*model.Record, error) {
	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if !rec.IsOwnedBy(requester) {
		s.metrics.IncOwnershipDenied(kind.Plural)
		return nil, ErrNotOwner
	}

	return rec, nil
}
