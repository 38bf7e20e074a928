package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/agenda/internal/models"
)

func Test(t *testing.T) {
	t.Run("The base memorystorage package test", func(t *testing.T) {
		theStorage, err := New()
		assert.NoError(t, err, "The memorystorage.New() should not return error")

		err = theStorage.CreateUser(context.Background(), &models.User{
			ID:    "user-1",
			Email: "maria@example.com",
		})
		assert.NoError(t, err, "The `theStorage.CreateUser()` should not return error")

		usr, err := theStorage.GetUserByEmail(context.Background(), "maria@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-1", usr.ID)

		err = theStorage.Ping(context.Background())
		assert.NoError(t, err, "The memorystorage.Ping() should not return error")

		err = theStorage.Close()
		assert.NoError(t, err, "The memorystorage.Close() should not return error")
	})
}
