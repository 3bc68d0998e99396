package core

import (
	"fmt"
	"os"
	"path/filepath"

	"opschart/internal/persistence/sqlite"
	"opschart/internal/store"
	"opschart/pkg/domain"
)

// Storage driver selection environment variables.
const (
	// EnvStorageDriver selects the persistent store backend (memory|sqlite).
	EnvStorageDriver = "OPSCHART_STORAGE_DRIVER"
	// EnvSQLitePath overrides the sqlite database location.
	EnvSQLitePath = "OPSCHART_SQLITE_PATH"
)

// Storage driver values accepted by OpenPersistentStore.
const (
	StorageDriverMemory = "memory"
	StorageDriverSQLite = "sqlite"
)

// OpenPersistentStore builds a store from environment configuration. The
// default is sqlite so a plain start is durable out of the box; tests and
// ephemeral tooling opt into memory explicitly.
func OpenPersistentStore(engine *domain.RulesEngine) (domain.PersistentStore, error) {
	driver := os.Getenv(EnvStorageDriver)
	if driver == "" {
		driver = StorageDriverSQLite
	}
	switch driver {
	case StorageDriverMemory:
		return store.NewStore(engine), nil
	case StorageDriverSQLite:
		return sqlite.NewStore(os.Getenv(EnvSQLitePath), engine)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// NewStoreFactory returns a StoreFactory that provisions one store per
// workspace using the configured driver. SQLite workspaces each get their
// own database file under the base path's directory.
func NewStoreFactory(engineFn func() *domain.RulesEngine) StoreFactory {
	if engineFn == nil {
		engineFn = NewDefaultRulesEngine
	}
	return func(workspaceID string) (domain.PersistentStore, error) {
		driver := os.Getenv(EnvStorageDriver)
		if driver == "" {
			driver = StorageDriverSQLite
		}
		switch driver {
		case StorageDriverMemory:
			return store.NewStore(engineFn()), nil
		case StorageDriverSQLite:
			base := os.Getenv(EnvSQLitePath)
			if base == "" {
				base = "opschart.db"
			}
			dir := filepath.Dir(base)
			path := filepath.Join(dir, fmt.Sprintf("workspace-%s.db", workspaceID))
			return sqlite.NewStore(path, engineFn())
		default:
			return nil, fmt.Errorf("unsupported storage driver %q", driver)
		}
	}
}
