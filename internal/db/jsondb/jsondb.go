// Package jsondb is the file-backed persistence gateway. The whole
// user/contact collection lives in one versioned JSON snapshot that is
// read fully on startup and replaced atomically on every mutation.
//
// The on-disk representation is distinct from the domain model: dates
// are ISO-8601 strings and records pass through an explicit versioned
// decode that rejects malformed entries instead of coercing them. A
// payload that fails to decode is recovered as an empty collection —
// a deliberate lossy-recovery policy, logged loudly.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patric-chuzhbe/agenda/internal/db/storage"
	"github.com/patric-chuzhbe/agenda/internal/logger"
	"github.com/patric-chuzhbe/agenda/internal/models"
)

// snapshotVersion is the only schema version this decoder accepts.
const snapshotVersion = 1

type storageContact struct {
	ID           string  `json:"id"`
	UserID       string  `json:"userId"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	CPF          string  `json:"cpf"`
	Phone        string  `json:"phone"`
	CEP          string  `json:"cep"`
	Street       string  `json:"street"`
	Number       string  `json:"number"`
	Complement   string  `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	CreatedAt    string  `json:"createdAt"`
}

type storageUser struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Password  string           `json:"password"`
	CreatedAt string           `json:"createdAt"`
	Contacts  []storageContact `json:"contacts"`
}

type snapshot struct {
	Version int           `json:"version"`
	Users   []storageUser `json:"users"`
}

// JSONDB keeps the decoded collection in memory and funnels every
// mutation through a mutex, so reads-modify-writes never interleave
// within the process. There is no cross-process conflict detection.
type JSONDB struct {
	fileName string
	mu       sync.Mutex
	users    []models.User
}

// New loads the snapshot from fileName, creating an empty one when the
// file does not exist. A corrupt or unsupported payload does not fail
// construction: the store starts empty and the data loss is logged.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{fileName: fileName}

	data, err := os.ReadFile(fileName)
	if os.IsNotExist(err) {
		if err := db.flushLocked(); err != nil {
			return nil, err
		}
		return db, nil
	}
	if err != nil {
		return nil, err
	}

	users, decodeErr := decodeSnapshot(data)
	if decodeErr != nil {
		logger.Log.Errorw(
			"address book snapshot is corrupt, starting with an empty collection; previous data will be lost on the next save",
			"file", fileName,
			"error", decodeErr,
		)
		return db, nil
	}

	db.users = users

	return db, nil
}

func decodeSnapshot(data []byte) ([]models.User, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	users := make([]models.User, 0, len(snap.Users))
	for _, su := range snap.Users {
		usr, err := decodeUser(su)
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}

	return users, nil
}

func decodeUser(su storageUser) (models.User, error) {
	if su.ID == "" {
		return models.User{}, fmt.Errorf("user record without an id")
	}
	createdAt, err := time.Parse(time.RFC3339, su.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("user %s: bad createdAt: %w", su.ID, err)
	}

	usr := models.User{
		ID:        su.ID,
		Name:      su.Name,
		Email:     su.Email,
		Password:  su.Password,
		CreatedAt: createdAt,
		Contacts:  make([]models.Contact, 0, len(su.Contacts)),
	}
	for _, sc := range su.Contacts {
		contact, err := decodeContact(sc)
		if err != nil {
			return models.User{}, fmt.Errorf("user %s: %w", su.ID, err)
		}
		usr.Contacts = append(usr.Contacts, contact)
	}

	return usr, nil
}

func decodeContact(sc storageContact) (models.Contact, error) {
	if sc.ID == "" {
		return models.Contact{}, fmt.Errorf("contact record without an id")
	}
	createdAt, err := time.Parse(time.RFC3339, sc.CreatedAt)
	if err != nil {
		return models.Contact{}, fmt.Errorf("contact %s: bad createdAt: %w", sc.ID, err)
	}

	return models.Contact{
		ID:     sc.ID,
		UserID: sc.UserID,
		Name:   sc.Name,
		Email:  sc.Email,
		CPF:    sc.CPF,
		Phone:  sc.Phone,
		Address: models.Address{
			CEP:          sc.CEP,
			Street:       sc.Street,
			Number:       sc.Number,
			Complement:   sc.Complement,
			Neighborhood: sc.Neighborhood,
			City:         sc.City,
			State:        sc.State,
		},
		Location: models.Coordinates{
			Latitude:  sc.Latitude,
			Longitude: sc.Longitude,
		},
		CreatedAt: createdAt,
	}, nil
}

func encodeSnapshot(users []models.User) snapshot {
	snap := snapshot{
		Version: snapshotVersion,
		Users:   make([]storageUser, 0, len(users)),
	}
	for _, usr := range users {
		su := storageUser{
			ID:        usr.ID,
			Name:      usr.Name,
			Email:     usr.Email,
			Password:  usr.Password,
			CreatedAt: usr.CreatedAt.Format(time.RFC3339),
			Contacts:  make([]storageContact, 0, len(usr.Contacts)),
		}
		for _, contact := range usr.Contacts {
			su.Contacts = append(su.Contacts, storageContact{
				ID:           contact.ID,
				UserID:       contact.UserID,
				Name:         contact.Name,
				Email:        contact.Email,
				CPF:          contact.CPF,
				Phone:        contact.Phone,
				CEP:          contact.Address.CEP,
				Street:       contact.Address.Street,
				Number:       contact.Address.Number,
				Complement:   contact.Address.Complement,
				Neighborhood: contact.Address.Neighborhood,
				City:         contact.Address.City,
				State:        contact.Address.State,
				Latitude:     contact.Location.Latitude,
				Longitude:    contact.Location.Longitude,
				CreatedAt:    contact.CreatedAt.Format(time.RFC3339),
			})
		}
		snap.Users = append(snap.Users, su)
	}

	return snap
}

// NewDetached returns a JSONDB with no backing file; mutations stay in
// memory. The memorystorage backend is built on it.
func NewDetached() *JSONDB {
	return &JSONDB{}
}

// flushLocked rewrites the whole snapshot. The temp-file-then-rename
// dance keeps readers from ever observing a partial write. Callers
// must hold the mutex (or, in New, be the only reference).
func (db *JSONDB) flushLocked() error {
	if db.fileName == "" {
		return nil
	}

	jsonData, err := json.MarshalIndent(encodeSnapshot(db.users), "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	dir := filepath.Dir(db.fileName)
	tmp, err := os.CreateTemp(dir, ".agenda-*.json")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}

	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), db.fileName)
}

func cloneContacts(contacts []models.Contact) []models.Contact {
	cloned := make([]models.Contact, len(contacts))
	copy(cloned, contacts)

	return cloned
}

func cloneUser(usr models.User) *models.User {
	cloned := usr
	cloned.Contacts = cloneContacts(usr.Contacts)

	return &cloned
}

func (db *JSONDB) findUserIndex(userID string) int {
	for i := range db.users {
		if db.users[i].ID == userID {
			return i
		}
	}

	return -1
}

// CreateUser appends the user and persists the collection.
func (db *JSONDB) CreateUser(ctx context.Context, usr *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = append(db.users, *cloneUser(*usr))

	return db.flushLocked()
}

// GetUserByID returns a copy of the stored user or storage.ErrUserNotFound.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.findUserIndex(userID)
	if i < 0 {
		return nil, storage.ErrUserNotFound
	}

	return cloneUser(db.users[i]), nil
}

// GetUserByEmail matches case-insensitively.
func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.users {
		if strings.EqualFold(db.users[i].Email, email) {
			return cloneUser(db.users[i]), nil
		}
	}

	return nil, storage.ErrUserNotFound
}

// UpdateUser replaces name, email and password of the stored record;
// id, createdAt and contacts stay as stored.
func (db *JSONDB) UpdateUser(ctx context.Context, usr *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.findUserIndex(usr.ID)
	if i < 0 {
		return storage.ErrUserNotFound
	}

	db.users[i].Name = usr.Name
	db.users[i].Email = usr.Email
	db.users[i].Password = usr.Password

	return db.flushLocked()
}

// DeleteUser removes the user and all owned contacts.
func (db *JSONDB) DeleteUser(ctx context.Context, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.findUserIndex(userID)
	if i < 0 {
		return storage.ErrUserNotFound
	}

	db.users = append(db.users[:i], db.users[i+1:]...)

	return db.flushLocked()
}

// GetContacts returns the owner's contacts in natural (insertion) order.
func (db *JSONDB) GetContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.findUserIndex(userID)
	if i < 0 {
		return nil, storage.ErrUserNotFound
	}

	return cloneContacts(db.users[i].Contacts), nil
}

// AddContact appends the contact to the owner's collection.
func (db *JSONDB) AddContact(ctx context.Context, userID string, contact *models.Contact) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.findUserIndex(userID)
	if i < 0 {
		return storage.ErrUserNotFound
	}

	db.users[i].Contacts = append(db.users[i].Contacts, *contact)

	return db.flushLocked()
}

// UpdateContact replaces the owner's contact with the same id.
func (db *JSONDB) UpdateContact(ctx context.Context, userID string, contact *models.Contact) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.findUserIndex(userID)
	if i < 0 {
		return storage.ErrUserNotFound
	}

	for j := range db.users[i].Contacts {
		if db.users[i].Contacts[j].ID == contact.ID {
			db.users[i].Contacts[j] = *contact

			return db.flushLocked()
		}
	}

	return storage.ErrContactNotFound
}

// RemoveContact deletes the contact when present; an absent contact of
// an existing user is a successful no-op, so deletes are retry-safe.
func (db *JSONDB) RemoveContact(ctx context.Context, userID, contactID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.findUserIndex(userID)
	if i < 0 {
		return storage.ErrUserNotFound
	}

	contacts := db.users[i].Contacts
	for j := range contacts {
		if contacts[j].ID == contactID {
			db.users[i].Contacts = append(contacts[:j], contacts[j+1:]...)

			return db.flushLocked()
		}
	}

	return nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return int64(len(db.users)), nil
}

func (db *JSONDB) GetNumberOfContacts(ctx context.Context) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var total int64
	for i := range db.users {
		total += int64(len(db.users[i].Contacts))
	}

	return total, nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close persists the collection one final time.
func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.flushLocked()
}
