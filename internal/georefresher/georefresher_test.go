package georefresher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/agenda/internal/db/memorystorage"
	"github.com/patric-chuzhbe/agenda/internal/enrichment"
	"github.com/patric-chuzhbe/agenda/internal/models"
)

type stubResolver struct {
	resolution enrichment.Resolution
}

func (s *stubResolver) ResolveCoordinates(ctx context.Context, address string) enrichment.Resolution {
	return s.resolution
}

func newTestDB(t *testing.T) *memorystorage.MemoryStorage {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, db.CreateUser(ctx, &models.User{
		ID:       "user-1",
		Email:    "maria@example.com",
		Contacts: []models.Contact{},
	}))
	require.NoError(t, db.AddContact(ctx, "user-1", &models.Contact{
		ID:     "contact-1",
		UserID: "user-1",
		Name:   "João Pereira",
		Location: models.Coordinates{
			Latitude:  enrichment.DefaultLatitude,
			Longitude: enrichment.DefaultLongitude,
		},
	}))

	return db
}

func TestProcessJob(t *testing.T) {
	ctx := context.Background()
	resolved := models.Coordinates{Latitude: -23.561414, Longitude: -46.655881}

	t.Run("a recovered provider updates the contact", func(t *testing.T) {
		db := newTestDB(t)
		refresher := New(db, &stubResolver{resolution: enrichment.Resolution{Location: resolved}}, 4, time.Minute)

		err := refresher.processJob(ctx, &Job{
			UserID:    "user-1",
			ContactID: "contact-1",
			Address:   "Avenida Paulista, 1000 - São Paulo, SP",
		})
		require.NoError(t, err)

		contacts, err := db.GetContacts(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, resolved, contacts[0].Location)
	})

	t.Run("a still-degraded provider leaves the contact alone", func(t *testing.T) {
		db := newTestDB(t)
		refresher := New(db, &stubResolver{resolution: enrichment.Resolution{
			Location:  models.Coordinates{Latitude: enrichment.DefaultLatitude, Longitude: enrichment.DefaultLongitude},
			Defaulted: true,
			Reason:    "connection refused",
		}}, 4, time.Minute)

		err := refresher.processJob(ctx, &Job{UserID: "user-1", ContactID: "contact-1", Address: "x"})
		require.NoError(t, err)

		contacts, err := db.GetContacts(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, enrichment.DefaultLatitude, contacts[0].Location.Latitude)
	})

	t.Run("a contact deleted in the meantime is skipped", func(t *testing.T) {
		db := newTestDB(t)
		refresher := New(db, &stubResolver{resolution: enrichment.Resolution{Location: resolved}}, 4, time.Minute)

		err := refresher.processJob(ctx, &Job{UserID: "user-1", ContactID: "missing", Address: "x"})
		assert.NoError(t, err)
	})
}

func TestEnqueueJobDropsWhenFull(t *testing.T) {
	db := newTestDB(t)
	refresher := New(db, &stubResolver{}, 1, time.Minute)

	refresher.EnqueueJob(&Job{ContactID: "contact-1"})
	refresher.EnqueueJob(&Job{ContactID: "contact-2"})

	assert.Len(t, refresher.queue, 1, "the second job should be dropped, not block")
}

func TestRun(t *testing.T) {
	db := newTestDB(t)
	resolved := models.Coordinates{Latitude: -23.561414, Longitude: -46.655881}
	refresher := New(db, &stubResolver{resolution: enrichment.Resolution{Location: resolved}}, 4, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher.Run(ctx)
	refresher.EnqueueJob(&Job{
		UserID:    "user-1",
		ContactID: "contact-1",
		Address:   "Avenida Paulista, 1000 - São Paulo, SP",
	})

	require.Eventually(t, func() bool {
		contacts, err := db.GetContacts(context.Background(), "user-1")
		if err != nil {
			return false
		}

		return contacts[0].Location == resolved
	}, time.Second, 10*time.Millisecond)
}
