// Package contacts implements CRUD over a user's address-book entries,
// enforcing the CPF check-digit rule and per-owner CPF uniqueness.
package contacts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/patric-chuzhbe/agenda/internal/cpf"
	"github.com/patric-chuzhbe/agenda/internal/db/storage"
	"github.com/patric-chuzhbe/agenda/internal/models"
)

// ErrInvalidCPF is returned when a contact's CPF fails the check-digit
// validation.
var ErrInvalidCPF = errors.New("invalid CPF")

// ErrDuplicateCPF is returned when the same owner already has a
// contact with the same cleaned CPF. Uniqueness is per owner only: two
// different users may both register the same CPF.
var ErrDuplicateCPF = errors.New("CPF already registered for this user")

type contactsKeeper interface {
	GetContacts(ctx context.Context, userID string) ([]models.Contact, error)
	AddContact(ctx context.Context, userID string, contact *models.Contact) error
	UpdateContact(ctx context.Context, userID string, contact *models.Contact) error
	RemoveContact(ctx context.Context, userID, contactID string) error
}

// Service is the contact store.
type Service struct {
	db contactsKeeper
}

func New(db contactsKeeper) *Service {
	return &Service{db: db}
}

// List returns the owner's contacts sorted ascending by name with a
// Brazilian-Portuguese collator, regardless of insertion order.
func (s *Service) List(ctx context.Context, userID string) ([]models.Contact, error) {
	contacts, err := s.db.GetContacts(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A collator is not safe for concurrent use, so each call gets its own.
	collator := collate.New(language.BrazilianPortuguese)
	sort.SliceStable(contacts, func(i, j int) bool {
		return collator.CompareString(contacts[i].Name, contacts[j].Name) < 0
	})

	return contacts, nil
}

func ownerHasCPF(contacts []models.Contact, cleanedCPF, excludeContactID string) bool {
	for i := range contacts {
		if contacts[i].ID == excludeContactID {
			continue
		}
		if cpf.Clean(contacts[i].CPF) == cleanedCPF {
			return true
		}
	}

	return false
}

// Get returns a single contact of the owner by id.
func (s *Service) Get(ctx context.Context, userID, contactID string) (*models.Contact, error) {
	contacts, err := s.db.GetContacts(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range contacts {
		if contacts[i].ID == contactID {
			return &contacts[i], nil
		}
	}

	return nil, storage.ErrContactNotFound
}

// Add validates the CPF, checks per-owner uniqueness and appends the
// contact with a generated id and the current timestamp. The CPF is
// stored in cleaned (digits-only) form.
func (s *Service) Add(ctx context.Context, userID string, data models.ContactData) (*models.Contact, error) {
	if !cpf.Validate(data.CPF) {
		return nil, ErrInvalidCPF
	}
	cleanedCPF := cpf.Clean(data.CPF)

	existing, err := s.db.GetContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ownerHasCPF(existing, cleanedCPF, "") {
		return nil, ErrDuplicateCPF
	}

	contact := &models.Contact{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      data.Name,
		Email:     data.Email,
		CPF:       cleanedCPF,
		Phone:     data.Phone,
		Address:   data.Address,
		Location:  data.Location,
		CreatedAt: time.Now().Truncate(time.Second),
	}

	if err := s.db.AddContact(ctx, userID, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

// Update merges the patch by value into the stored contact, preserving
// id, owner and createdAt. A CPF that is present and actually changed
// is re-validated and re-checked for uniqueness, excluding the
// contact's own prior value.
func (s *Service) Update(ctx context.Context, userID, contactID string, patch models.ContactPatch) (*models.Contact, error) {
	existing, err := s.db.GetContacts(ctx, userID)
	if err != nil {
		return nil, err
	}

	var contact *models.Contact
	for i := range existing {
		if existing[i].ID == contactID {
			contact = &existing[i]
			break
		}
	}
	if contact == nil {
		return nil, storage.ErrContactNotFound
	}

	if patch.CPF != nil {
		cleanedCPF := cpf.Clean(*patch.CPF)
		if cleanedCPF != cpf.Clean(contact.CPF) {
			if !cpf.Validate(*patch.CPF) {
				return nil, ErrInvalidCPF
			}
			if ownerHasCPF(existing, cleanedCPF, contactID) {
				return nil, ErrDuplicateCPF
			}
			contact.CPF = cleanedCPF
		}
	}
	if patch.Name != nil {
		contact.Name = *patch.Name
	}
	if patch.Email != nil {
		contact.Email = *patch.Email
	}
	if patch.Phone != nil {
		contact.Phone = *patch.Phone
	}
	if patch.Address != nil {
		contact.Address = *patch.Address
	}
	if patch.Location != nil {
		contact.Location = *patch.Location
	}

	if err := s.db.UpdateContact(ctx, userID, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

// Delete removes the contact if present. Deleting an already-absent
// contact of an existing user is a successful no-op, so the operation
// is safe to retry.
func (s *Service) Delete(ctx context.Context, userID, contactID string) error {
	return s.db.RemoveContact(ctx, userID, contactID)
}

// Search filters the owner's contacts with a case-insensitive
// substring match on the name or a digits-only substring match on the
// CPF. The natural (unsorted) order is preserved; an empty term
// returns the whole collection.
func (s *Service) Search(ctx context.Context, userID, term string) ([]models.Contact, error) {
	contacts, err := s.db.GetContacts(ctx, userID)
	if err != nil {
		return nil, err
	}

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return contacts, nil
	}

	return funk.Filter(contacts, func(contact models.Contact) bool {
		return strings.Contains(strings.ToLower(contact.Name), term) ||
			strings.Contains(cpf.Clean(contact.CPF), term)
	}).([]models.Contact), nil
}
