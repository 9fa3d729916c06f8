package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/jmhayes/tally/internal/config"
	"github.com/jmhayes/tally/internal/money"
	"github.com/jmhayes/tally/internal/service"
	"github.com/jmhayes/tally/internal/storage"
)

// initStorage initializes the storage service with proper path expansion
// and auto-migration.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newConverter builds the rate converter over the storage-backed snapshots.
func newConverter(store service.Storage) money.Converter {
	return money.NewRateConverter(store)
}

// requireOwner resolves the owner ID from flag/config. The CLI stands in
// for the session layer here; the engine trusts whatever owner it is given.
func requireOwner() (string, error) {
	owner := viper.GetString("owner")
	if owner == "" {
		return "", fmt.Errorf("owner ID required (use --owner or set TALLY_OWNER)")
	}
	return owner, nil
}
