// Package mockstorage provides a testify-based mock of the storage
// interface for handler and service tests.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/agenda/internal/models"
)

// MockStorage implements storage.Storage on top of mock.Mock.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateUser(ctx context.Context, usr *models.User) error {
	args := m.Called(ctx, usr)

	return args.Error(0)
}

func (m *MockStorage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*models.User)

	return usr, args.Error(1)
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*models.User)

	return usr, args.Error(1)
}

func (m *MockStorage) UpdateUser(ctx context.Context, usr *models.User) error {
	args := m.Called(ctx, usr)

	return args.Error(0)
}

func (m *MockStorage) DeleteUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)

	return args.Error(0)
}

func (m *MockStorage) GetContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	args := m.Called(ctx, userID)
	contacts, _ := args.Get(0).([]models.Contact)

	return contacts, args.Error(1)
}

func (m *MockStorage) AddContact(ctx context.Context, userID string, contact *models.Contact) error {
	args := m.Called(ctx, userID, contact)

	return args.Error(0)
}

func (m *MockStorage) UpdateContact(ctx context.Context, userID string, contact *models.Contact) error {
	args := m.Called(ctx, userID, contact)

	return args.Error(0)
}

func (m *MockStorage) RemoveContact(ctx context.Context, userID, contactID string) error {
	args := m.Called(ctx, userID, contactID)

	return args.Error(0)
}

func (m *MockStorage) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) GetNumberOfContacts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()

	return args.Error(0)
}
