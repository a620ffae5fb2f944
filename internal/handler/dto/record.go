// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/snerberd/snerberd/internal/model"
)

// RecordBody is the object inside the request envelope.
// Owner is accepted on the wire but never read.
type RecordBody struct {
	Name            *string  `json:"name"`
	Length          *float64 `json:"length"`
	ChannelBindings *bool    `json:"channelBindings"`
	Owner           any      `json:"owner,omitempty"`
}

// Patch converts the body into a store patch, dropping the owner.
func (b *RecordBody) Patch() model.RecordPatch {
	return model.RecordPatch{
		Name:            b.Name,
		Length:          b.Length,
		ChannelBindings: b.ChannelBindings,
	}
}

// RecordResponse represents a record in API responses.
type RecordResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Length          float64   `json:"length"`
	ChannelBindings bool      `json:"channelBindings"`
	Owner           string    `json:"owner"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ToRecordResponse converts a record to its response form.
func ToRecordResponse(rec *model.Record) RecordResponse {
	return RecordResponse{
		ID:              rec.ID,
		Name:            rec.Name,
		Length:          rec.Length,
		ChannelBindings: rec.ChannelBindings,
		Owner:           rec.Owner,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

// ToRecordResponses converts records, returning an empty slice rather than nil.
func ToRecordResponses(records []*model.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, ToRecordResponse(rec))
	}
	return out
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields,omitempty"`
}
