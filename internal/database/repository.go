package database

import (
	"context"
)

// PersonReader provides read-only access to person records.
type PersonReader interface {
	// GetPerson retrieves a person by id, returns nil if not found.
	GetPerson(ctx context.Context, id string) (*Person, error)
	// GetPeopleBatch retrieves multiple people in a single call.
	// Missing ids are silently omitted from the result.
	GetPeopleBatch(ctx context.Context, ids []string) ([]Person, error)
	// ListPeople returns all enrolled people.
	ListPeople(ctx context.Context) ([]Person, error)
	// SearchPeople returns people whose display name contains the query
	// substring. Names are normalized before comparison (lowercase, no
	// diacritics, dashes to spaces).
	SearchPeople(ctx context.Context, query string) ([]Person, error)
	// CountPeople returns the number of enrolled people.
	CountPeople(ctx context.Context) (int, error)
}

// PersonWriter provides write access to person records.
type PersonWriter interface {
	PersonReader

	// CreatePerson stores a new person record.
	CreatePerson(ctx context.Context, p *Person) error
	// UpdatePerson updates mutable fields (display name, attributes).
	UpdatePerson(ctx context.Context, p *Person) error
	// DeletePerson removes a person and cascades to its face records.
	DeletePerson(ctx context.Context, id string) error
}

// FaceRecordStore provides access to face records.
type FaceRecordStore interface {
	// AddFaceRecord appends a face record and bumps the owner's
	// embedding count.
	AddFaceRecord(ctx context.Context, rec *FaceRecord) error
	// GetFaceRecords returns all face records for a person.
	GetFaceRecords(ctx context.Context, personID string) ([]FaceRecord, error)
	// CountFaceRecords returns the total number of face records.
	CountFaceRecords(ctx context.Context) (int, error)
}

// AuditWriter appends match audit entries.
type AuditWriter interface {
	AppendMatchRecord(ctx context.Context, rec *MatchRecord) error
}

// Repository is the full identity store consumed by the orchestrators.
// Implementations must be safe for concurrent use.
type Repository interface {
	PersonWriter
	FaceRecordStore
	AuditWriter

	// Health checks store connectivity.
	Health(ctx context.Context) error
}
