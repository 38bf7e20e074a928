package jsondb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/agenda/internal/db/storage"
	"github.com/patric-chuzhbe/agenda/internal/models"
)

func testUser(id, email string) *models.User {
	return &models.User{
		ID:        id,
		Name:      "Maria Silva",
		Email:     email,
		Password:  "secret",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Contacts:  []models.Contact{},
	}
}

func testContact(id, userID, name string) *models.Contact {
	return &models.Contact{
		ID:     id,
		UserID: userID,
		Name:   name,
		Email:  "contato@example.com",
		CPF:    "52998224725",
		Phone:  "11987654321",
		Address: models.Address{
			CEP:          "01310100",
			Street:       "Avenida Paulista",
			Number:       "1000",
			Neighborhood: "Bela Vista",
			City:         "São Paulo",
			State:        "SP",
		},
		Location: models.Coordinates{
			Latitude:  -23.561414,
			Longitude: -46.655881,
		},
		CreatedAt: time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestRoundTrip(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "db_test.json")

	theStorage, err := New(fileName)
	require.NoError(t, err)
	require.NotNil(t, theStorage)

	ctx := context.Background()

	usr := testUser("user-1", "maria@example.com")
	require.NoError(t, theStorage.CreateUser(ctx, usr))

	contact := testContact("contact-1", "user-1", "João Pereira")
	require.NoError(t, theStorage.AddContact(ctx, "user-1", contact))

	require.NoError(t, theStorage.Close())

	// Reopen and verify everything survived the snapshot cycle.
	reopened, err := New(fileName)
	require.NoError(t, err)

	gotUser, err := reopened.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, usr.Name, gotUser.Name)
	assert.Equal(t, usr.Email, gotUser.Email)
	assert.Equal(t, usr.Password, gotUser.Password)
	assert.True(t, usr.CreatedAt.Equal(gotUser.CreatedAt))

	gotContacts, err := reopened.GetContacts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, gotContacts, 1)
	assert.Equal(t, contact.Name, gotContacts[0].Name)
	assert.Equal(t, contact.Address, gotContacts[0].Address)
	assert.Equal(t, contact.Location, gotContacts[0].Location)
	assert.True(t, contact.CreatedAt.Equal(gotContacts[0].CreatedAt))
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "db_test.json")

	testCases := []struct {
		name    string
		payload string
	}{
		{"not JSON at all", `{"version": 1, "users": [`},
		{"unsupported version", `{"version": 2, "users": []}`},
		{"user without id", `{"version": 1, "users": [{"name": "x", "createdAt": "2024-05-01T12:00:00Z"}]}`},
		{"bad createdAt", `{"version": 1, "users": [{"id": "u1", "createdAt": "yesterday"}]}`},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(fileName, []byte(testCase.payload), 0644))

			theStorage, err := New(fileName)
			require.NoError(t, err)

			amount, err := theStorage.GetNumberOfUsers(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int64(0), amount)
		})
	}
}

func TestUserLifecycle(t *testing.T) {
	theStorage := NewDetached()
	ctx := context.Background()

	_, err := theStorage.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	require.NoError(t, theStorage.CreateUser(ctx, testUser("user-1", "maria@example.com")))

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		usr, err := theStorage.GetUserByEmail(ctx, "MARIA@Example.COM")
		require.NoError(t, err)
		assert.Equal(t, "user-1", usr.ID)

		_, err = theStorage.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("update preserves createdAt and contacts", func(t *testing.T) {
		require.NoError(t, theStorage.AddContact(ctx, "user-1", testContact("contact-1", "user-1", "João Pereira")))

		updated := testUser("user-1", "maria.silva@example.com")
		updated.Name = "Maria S. Silva"
		updated.CreatedAt = time.Now()
		updated.Contacts = nil
		require.NoError(t, theStorage.UpdateUser(ctx, updated))

		usr, err := theStorage.GetUserByID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Maria S. Silva", usr.Name)
		assert.Equal(t, "maria.silva@example.com", usr.Email)
		assert.True(t, usr.CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
		assert.Len(t, usr.Contacts, 1)
	})

	t.Run("delete cascades to contacts", func(t *testing.T) {
		require.NoError(t, theStorage.DeleteUser(ctx, "user-1"))

		_, err := theStorage.GetUserByID(ctx, "user-1")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)

		amount, err := theStorage.GetNumberOfContacts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), amount)

		assert.ErrorIs(t, theStorage.DeleteUser(ctx, "user-1"), storage.ErrUserNotFound)
	})
}

func TestContactLifecycle(t *testing.T) {
	theStorage := NewDetached()
	ctx := context.Background()

	require.NoError(t, theStorage.CreateUser(ctx, testUser("user-1", "maria@example.com")))
	require.NoError(t, theStorage.AddContact(ctx, "user-1", testContact("contact-1", "user-1", "João Pereira")))
	require.NoError(t, theStorage.AddContact(ctx, "user-1", testContact("contact-2", "user-1", "Ana Souza")))

	t.Run("contacts keep insertion order", func(t *testing.T) {
		contacts, err := theStorage.GetContacts(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, contacts, 2)
		assert.Equal(t, "João Pereira", contacts[0].Name)
		assert.Equal(t, "Ana Souza", contacts[1].Name)
	})

	t.Run("update replaces the matching contact", func(t *testing.T) {
		updated := testContact("contact-2", "user-1", "Ana Souza Pereira")
		require.NoError(t, theStorage.UpdateContact(ctx, "user-1", updated))

		contacts, err := theStorage.GetContacts(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Ana Souza Pereira", contacts[1].Name)

		err = theStorage.UpdateContact(ctx, "user-1", testContact("missing", "user-1", "x"))
		assert.ErrorIs(t, err, storage.ErrContactNotFound)
	})

	t.Run("remove is idempotent for existing users", func(t *testing.T) {
		require.NoError(t, theStorage.RemoveContact(ctx, "user-1", "contact-1"))
		require.NoError(t, theStorage.RemoveContact(ctx, "user-1", "contact-1"))

		assert.ErrorIs(t, theStorage.RemoveContact(ctx, "missing", "contact-1"), storage.ErrUserNotFound)

		amount, err := theStorage.GetNumberOfContacts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), amount)
	})

	t.Run("counters", func(t *testing.T) {
		amount, err := theStorage.GetNumberOfUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), amount)
	})

	assert.NoError(t, theStorage.Ping(ctx))
	assert.NoError(t, theStorage.Close())
}
