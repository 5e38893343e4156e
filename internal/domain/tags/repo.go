package tags

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no tag exists under the requested key.
var ErrNotFound = errors.New("tag not found")

// Repository persists tag definitions, one entry per sanitized tag name,
// plus the single legacy entry left behind by old installations.
type Repository interface {
	Upsert(ctx context.Context, key string, def *TagDefinition) error
	Get(ctx context.Context, key string) (*TagDefinition, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, limit, offset int) ([]*TagDefinition, int, error)
	// ListAll returns every definition, ordered by key. Used by the
	// evaluation pipeline, which reads but never mutates.
	ListAll(ctx context.Context) ([]*TagDefinition, error)

	// LoadLegacy returns the legacy-format records, or nil when none remain.
	LoadLegacy(ctx context.Context) ([]*LegacyTag, error)
	// ClearLegacy removes the legacy entry after a successful migration.
	ClearLegacy(ctx context.Context) error
}
