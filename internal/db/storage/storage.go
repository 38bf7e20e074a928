// Package storage declares the persistence contract shared by the
// JSON-file, in-memory and PostgreSQL backends, plus the sentinel
// errors the services match on.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/agenda/internal/models"
)

// ErrUserNotFound is returned when an operation references a user id
// that is not in the store.
var ErrUserNotFound = errors.New("user not found")

// ErrContactNotFound is returned when an update references a contact
// id the owner does not have. Contact deletion never returns it.
var ErrContactNotFound = errors.New("contact not found")

// Storage is the persistence gateway. Implementations must treat every
// mutation as whole-record replace-on-write: callers follow a
// read-modify-write discipline and the last writer wins.
type Storage interface {
	CreateUser(ctx context.Context, usr *models.User) error

	// GetUserByID returns a copy of the stored user, contacts included.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByEmail matches the email case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateUser replaces the stored record with the same id. CreatedAt
	// and the contact collection of the stored record are preserved.
	UpdateUser(ctx context.Context, usr *models.User) error

	// DeleteUser removes the user and, by construction, every contact
	// it owns.
	DeleteUser(ctx context.Context, userID string) error

	GetContacts(ctx context.Context, userID string) ([]models.Contact, error)

	AddContact(ctx context.Context, userID string, contact *models.Contact) error

	// UpdateContact replaces the owner's contact with the same id.
	UpdateContact(ctx context.Context, userID string, contact *models.Contact) error

	// RemoveContact is idempotent: removing an absent contact of an
	// existing user is a no-op.
	RemoveContact(ctx context.Context, userID, contactID string) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfContacts(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
