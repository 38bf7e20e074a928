// Package memorystorage provides a purely in-memory storage backend.
// It reuses the jsondb cache without a backing file and is the default
// when neither a database DSN nor a storage file is configured; tests
// use it heavily.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/agenda/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: jsondb.NewDetached(),
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
