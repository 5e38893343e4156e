package tags

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ShadyBS/mvRegulador/internal/domain/terminology"
)

// Service owns the tag-authoring operations and the legacy-format migration.
// The evaluation pipeline reads definitions through ListAll and never writes.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new tags service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Save validates and persists a definition under its sanitized key.
func (s *Service) Save(ctx context.Context, def *TagDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if def.Type == TypeKeyword && def.MatchLogic == "" {
		def.MatchLogic = LogicOr
	}
	key := SanitizeKey(def.TagName)
	if key == "" {
		return fmt.Errorf("tagName %q sanitizes to an empty key", def.TagName)
	}
	return s.repo.Upsert(ctx, key, def)
}

// Get returns the definition stored under the sanitized form of name.
func (s *Service) Get(ctx context.Context, name string) (*TagDefinition, error) {
	return s.repo.Get(ctx, SanitizeKey(name))
}

// Delete removes the definition stored under the sanitized form of name.
func (s *Service) Delete(ctx context.Context, name string) error {
	return s.repo.Delete(ctx, SanitizeKey(name))
}

// List returns one page of definitions plus the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*TagDefinition, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListAll returns every persisted definition.
func (s *Service) ListAll(ctx context.Context) ([]*TagDefinition, error) {
	return s.repo.ListAll(ctx)
}

// MigrateLegacy rewrites legacy-format records to the current schema,
// resolving each bare code's display against the supplied terminology index.
// It is idempotent: once the legacy entry is cleared, re-running is a no-op,
// and a legacy record whose key already holds a current-format definition is
// skipped rather than overwritten. Returns the number of migrated tags.
//
// On a storage write failure the legacy entry is left in place so the
// migration can be retried; tags migrated before the failure stay migrated
// (each is written under its own key).
func (s *Service) MigrateLegacy(ctx context.Context, idx *terminology.Index) (int, error) {
	legacy, err := s.repo.LoadLegacy(ctx)
	if err != nil {
		return 0, err
	}
	if len(legacy) == 0 {
		return 0, nil
	}

	migrated := 0
	for _, l := range legacy {
		key := SanitizeKey(l.TagName)
		if key == "" {
			s.logger.Warn().Str("tag", l.TagName).Msg("skipping legacy tag with empty key")
			continue
		}
		if _, err := s.repo.Get(ctx, key); err == nil {
			s.logger.Info().Str("tag", l.TagName).Msg("legacy tag already migrated, skipping")
			continue
		}
		def := l.Upgrade(idx.DisplayFor)
		if err := s.repo.Upsert(ctx, key, def); err != nil {
			return migrated, fmt.Errorf("migrate tag %q: %w", l.TagName, err)
		}
		migrated++
	}

	if err := s.repo.ClearLegacy(ctx); err != nil {
		return migrated, err
	}
	s.logger.Info().Int("migrated", migrated).Msg("legacy tag migration complete")
	return migrated, nil
}
