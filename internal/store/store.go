// Package store persists local client state: the bearer token and a cache
// of analysis records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/property-cli/internal/model"
)

// State keys.
const (
	// KeyToken holds the bearer token.
	KeyToken = "token"
	// KeyOwner holds the id of the account the record cache belongs to.
	KeyOwner = "owner"
)

// ErrNotFound is returned when a key or cached record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store defines local persistence for the CLI.
type Store interface {
	// State
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Record cache, scoped by the owning account
	GetCachedRecord(ctx context.Context, owner, id string) (*model.AnalysisRecord, error)
	SetCachedRecord(ctx context.Context, owner string, rec *model.AnalysisRecord, ttl time.Duration) error
	DeleteCachedRecord(ctx context.Context, owner, id string) error
	DeleteExpiredRecords(ctx context.Context) (int, error)
	ClearCachedRecords(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
