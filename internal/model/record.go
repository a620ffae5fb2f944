package model

import "time"

// Kind describes one resource type served by the generic record handlers.
type Kind struct {
	// Singular is the JSON envelope key for a single record.
	Singular string
	// Plural is the URL segment and the JSON envelope key for lists.
	Plural string
	// Collection is the document collection holding records of this kind.
	Collection string
}

// Resource kinds.
var (
	KindSnerberd = Kind{
		Singular:   "snerberd",
		Plural:     "snerberds",
		Collection: "snerberds",
	}
	KindSnowboard = Kind{
		Singular:   "snowboard",
		Plural:     "snowboards",
		Collection: "snowboards",
	}
)

// Kinds lists every kind mounted by the router.
var Kinds = []Kind{KindSnerberd, KindSnowboard}

// Record is a board owned by the user who created it.
type Record struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Length          float64   `json:"length"`
	ChannelBindings bool      `json:"channelBindings"`
	Owner           string    `json:"owner"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// IsOwnedBy reports whether userID owns the record.
func (r *Record) IsOwnedBy(userID string) bool {
	return userID != "" && r.Owner == userID
}

// RecordPatch holds the mutable fields of a record.
// Nil fields are left untouched. Ownership cannot be patched.
type RecordPatch struct {
	Name            *string
	Length          *float64
	ChannelBindings *bool
}

// IsEmpty returns true if the patch changes no field.
func (p RecordPatch) IsEmpty() bool {
	return p.Name == nil && p.Length == nil && p.ChannelBindings == nil
}

// Apply copies the present patch fields onto rec.
func (p RecordPatch) Apply(rec *Record) {
	if p.Name != nil {
		rec.Name = *p.Name
	}
	if p.Length != nil {
		rec.Length = *p.Length
	}
	if p.ChannelBindings != nil {
		rec.ChannelBindings = *p.ChannelBindings
	}
}
