package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorequest/internal/config"
	"github.com/dukerupert/chorequest/internal/database"
	"github.com/dukerupert/chorequest/internal/gateway"
	"github.com/dukerupert/chorequest/internal/store"
)

// openDocumentStore returns the key-value store the document lives in, as
// selected by CHOREQUEST_STORE. The local sqlite db is used by default; the
// returned func releases whatever else was opened.
func openDocumentStore(ctx context.Context, cfg *config.Config, local *sql.DB) (gateway.Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		db, err := database.OpenPostgres(cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresKVStore(db), func() { db.Close() }, nil

	case config.StoreRedis:
		kv, err := store.NewRedisKVStore(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := kv.Ping(pingCtx); err != nil {
			kv.Close()
			return nil, nil, err
		}
		return kv, func() { kv.Close() }, nil

	case config.StoreSQLite:
		return store.NewKVStore(local), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}
