package models

import (
	"time"
)

// Model is a row the HTTP host persists. Plex data is never stored, so [Session] is the only one.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Expiring is a [Model] with a hard lifetime. Once Expired reports true the row must not be served.
type Expiring interface {
	Model
	ExpiresAt() time.Time
	Expired(now time.Time) bool
}

// Repository is the CRUD surface shared by stores.
//
// Get, Update and Delete report a missing or already deleted row as an error.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error) // criteria keys are store-specific
}

// ExpiringRepository is a [Repository] that can purge rows past their lifetime.
type ExpiringRepository[T Expiring] interface {
	Repository[T]
	DeleteExpired(now time.Time) (int64, error) // returns the number of rows removed
}

var _ Expiring = (*Session)(nil)
