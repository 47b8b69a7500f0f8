package backend

import (
	"context"

	"agrotrack/internal/store"
)

// Store is everything a backend provides: the ledger, its export tracking,
// shipments and a health check.
type Store interface {
	store.LedgerStore
	store.ExportTracker
	store.ShipmentStore
	store.Health
}

// CleanupFunc releases backend resources.
type CleanupFunc func(ctx context.Context) error

// BackendResult contains the store instance and optional cleanup function
type BackendResult struct {
	Type    BackendType
	Store   Store
	Cleanup CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *BackendResult) Close(ctx context.Context) error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup(ctx)
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MongoDB specific
	MongoURI    string
	MongoDBName string

	// Memory backend specific; empty starts with no data
	SeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}
