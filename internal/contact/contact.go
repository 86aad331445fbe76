// Package contact defines the contact domain model and the store
// interfaces the rest of the application programs against. Two store
// implementations exist: PostgresStore for production and MemoryStore
// for tests and ephemeral use.
package contact

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by store lookups when no contact has the
// requested ID.
var ErrNotFound = errors.New("contact not found")

// Contact is a stored contact record. ID is the store's own key; UID
// is the stable identifier embedded in the contact's serialized vCard
// and preserved across updates. Etag changes on every write.
type Contact struct {
	ID           string    `json:"id"`
	UID          string    `json:"uid"`
	FullName     string    `json:"fullName"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Organization string    `json:"organization,omitempty"`
	JobTitle     string    `json:"jobTitle,omitempty"`
	Address      string    `json:"address,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CardData     string    `json:"cardData,omitempty"`
	Etag         string    `json:"etag"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Fields is the writable subset of a contact. Create and Update take
// Fields and return the stored Contact; the store owns ID, Etag, and
// the timestamps.
type Fields struct {
	FullName     string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Organization string
	JobTitle     string
	Address      string
	Notes        string
	UID          string
	CardData     string
}

// Store is the contact persistence contract.
//
// ListAll returns every contact ordered by ID so callers iterating the
// result see a stable order. Begin opens a transaction; all writes
// inside it are invisible to other callers until Commit.
type Store interface {
	ListAll(ctx context.Context) ([]Contact, error)
	GetByID(ctx context.Context, id string) (Contact, error)
	Create(ctx context.Context, fields Fields) (Contact, error)
	Update(ctx context.Context, id string, fields Fields) (Contact, error)
	Delete(ctx context.Context, id string) error
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a store transaction. Savepoint, RollbackTo, and Release follow
// SQL savepoint semantics: RollbackTo undoes writes made after the
// named savepoint while keeping the transaction alive, and Release
// discards the savepoint. Callers must finish with Commit or Rollback.
type Tx interface {
	GetByID(ctx context.Context, id string) (Contact, error)
	Create(ctx context.Context, fields Fields) (Contact, error)
	Update(ctx context.Context, id string, fields Fields) (Contact, error)
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
