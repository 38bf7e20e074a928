package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/agenda/internal/auth"
	"github.com/patric-chuzhbe/agenda/internal/db/memorystorage"
	"github.com/patric-chuzhbe/agenda/internal/models"
)

func patchOf(name, email *string) models.UserPatch {
	return models.UserPatch{Name: name, Email: email}
}

func newTestService(t *testing.T) (*Service, *memorystorage.MemoryStorage) {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	tokens := auth.New(db, "agenda_auth", []byte("test-signing-key"))

	return New(db, tokens), db
}

func TestSignUp(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	usr, token, err := service.SignUp(ctx, "Maria Silva", "Maria@Example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, usr)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "maria@example.com", usr.Email, "the email should be stored lowercased")
	assert.Empty(t, usr.Contacts)

	t.Run("the session is established", func(t *testing.T) {
		current := service.CurrentUser()
		require.NotNil(t, current)
		assert.Equal(t, usr.ID, current.ID)
	})

	t.Run("a duplicate email is rejected case-insensitively", func(t *testing.T) {
		_, _, err := service.SignUp(ctx, "Other", "MARIA@EXAMPLE.COM", "other")
		assert.ErrorIs(t, err, ErrEmailInUse)
	})
}

func TestSignInAndOut(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	registered, _, err := service.SignUp(ctx, "Maria Silva", "maria@example.com", "secret")
	require.NoError(t, err)
	service.SignOut()
	assert.Nil(t, service.CurrentUser())

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := service.SignIn(ctx, "maria@example.com", "SECRET")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "passwords are compared verbatim")
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := service.SignIn(ctx, "nobody@example.com", "secret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("successful sign-in", func(t *testing.T) {
		usr, token, err := service.SignIn(ctx, "MARIA@example.com", "secret")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, registered.ID, usr.ID)

		current := service.CurrentUser()
		require.NotNil(t, current)
		assert.Equal(t, registered.ID, current.ID)
	})

	t.Run("sign-out is idempotent", func(t *testing.T) {
		service.SignOut()
		service.SignOut()
		assert.Nil(t, service.CurrentUser())
	})
}

func TestUpdatePassword(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	usr, _, err := service.SignUp(ctx, "Maria Silva", "maria@example.com", "secret")
	require.NoError(t, err)

	assert.ErrorIs(t,
		service.UpdatePassword(ctx, usr.ID, "wrong", "newsecret"),
		ErrInvalidCredentials,
	)
	assert.ErrorIs(t,
		service.UpdatePassword(ctx, "missing-user", "secret", "newsecret"),
		ErrInvalidCredentials,
	)

	require.NoError(t, service.UpdatePassword(ctx, usr.ID, "secret", "newsecret"))

	_, _, err = service.SignIn(ctx, "maria@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = service.SignIn(ctx, "maria@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	first, _, err := service.SignUp(ctx, "Maria Silva", "maria@example.com", "secret")
	require.NoError(t, err)
	_, _, err = service.SignUp(ctx, "Ana Souza", "ana@example.com", "secret")
	require.NoError(t, err)

	newName := "Maria S. Silva"
	updated, err := service.UpdateProfile(ctx, first.ID, patchOf(&newName, nil))
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, "maria@example.com", updated.Email)

	t.Run("email collision with another user", func(t *testing.T) {
		takenEmail := "ANA@example.com"
		_, err := service.UpdateProfile(ctx, first.ID, patchOf(nil, &takenEmail))
		assert.ErrorIs(t, err, ErrEmailInUse)
	})

	t.Run("re-casing your own email is allowed", func(t *testing.T) {
		ownEmail := "Maria@Example.com"
		updated, err := service.UpdateProfile(ctx, first.ID, patchOf(nil, &ownEmail))
		require.NoError(t, err)
		assert.Equal(t, "maria@example.com", updated.Email)
	})

	t.Run("email change lands lowercased", func(t *testing.T) {
		freshEmail := "Maria.Silva@Example.com"
		updated, err := service.UpdateProfile(ctx, first.ID, patchOf(nil, &freshEmail))
		require.NoError(t, err)
		assert.Equal(t, "maria.silva@example.com", updated.Email)
	})
}

func TestDeleteAccount(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	usr, _, err := service.SignUp(ctx, "Maria Silva", "maria@example.com", "secret")
	require.NoError(t, err)

	assert.ErrorIs(t, service.DeleteAccount(ctx, usr.ID, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, service.DeleteAccount(ctx, "missing-user", "secret"), ErrInvalidCredentials)

	require.NoError(t, service.DeleteAccount(ctx, usr.ID, "secret"))
	assert.Nil(t, service.CurrentUser())

	amount, err := db.GetNumberOfUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), amount)
}
