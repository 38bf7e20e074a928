// Package models defines the domain model of the address book — users,
// contacts, addresses, coordinates — together with the request and
// response shapes of the HTTP API.
package models

import "time"

// Coordinates is a WGS84 coordinate pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Address is a Brazilian postal address. Every field except Complement
// is required whenever a contact is created or its address replaced.
type Address struct {
	CEP          string `json:"cep" validate:"required"`
	Street       string `json:"street" validate:"required"`
	Number       string `json:"number" validate:"required"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood" validate:"required"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required,len=2"`
}

// Contact is a single address-book entry. It is owned by exactly one
// user; UserID is a back-reference, not an ownership pointer.
type Contact struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	CPF       string      `json:"cpf"`
	Phone     string      `json:"phone"`
	Address   Address     `json:"address"`
	Location  Coordinates `json:"location"`
	CreatedAt time.Time   `json:"createdAt"`
}

// User owns an ordered collection of contacts. The password is an
// opaque secret compared verbatim; it never leaves the server.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	Contacts  []Contact `json:"contacts"`
}

// ContactData is the caller-supplied part of a contact; the store
// assigns ID, UserID and CreatedAt itself.
type ContactData struct {
	Name     string      `json:"name" validate:"required,min=3"`
	Email    string      `json:"email" validate:"required,email"`
	CPF      string      `json:"cpf" validate:"required"`
	Phone    string      `json:"phone" validate:"required,len=11,numeric"`
	Address  Address     `json:"address" validate:"required"`
	Location Coordinates `json:"location"`
}

// ContactPatch is a partial contact update. Nil fields are left as is;
// ID, UserID and CreatedAt can never be patched.
type ContactPatch struct {
	Name     *string      `json:"name,omitempty"`
	Email    *string      `json:"email,omitempty" validate:"omitempty,email"`
	CPF      *string      `json:"cpf,omitempty"`
	Phone    *string      `json:"phone,omitempty" validate:"omitempty,len=11,numeric"`
	Address  *Address     `json:"address,omitempty"`
	Location *Coordinates `json:"location,omitempty"`
}

// UserPatch is a partial profile update; identity, password, createdAt
// and the contact collection are out of its reach.
type UserPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// ResolutionResponse is the two-outcome form of a geocoding request:
// Defaulted tells fallback coordinates and a real provider hit apart.
type ResolutionResponse struct {
	Location  Coordinates `json:"location"`
	Defaulted bool        `json:"defaulted"`
	Reason    string      `json:"reason,omitempty"`
}

// InternalStatsResponse carries service-wide counters for the
// trusted-subnet stats endpoint.
type InternalStatsResponse struct {
	Users    int64 `json:"users"`
	Contacts int64 `json:"contacts"`
}

// Storage backend kinds, selected from configuration.
const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
