package terminology

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Service provides catalog import, index loading and code search.
type Service struct {
	repo Repository
}

// NewService creates a new terminology service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ImportCatalog parses one catalog document, flattens it and replaces the
// persisted records for the given system. Returns the number of codes stored.
// Imports are idempotent: re-running with the same document leaves the index
// in the same state.
func (s *Service) ImportCatalog(ctx context.Context, system string, r io.Reader) (int, error) {
	if system != SystemCID10 && system != SystemCIAP2 {
		return 0, fmt.Errorf("unsupported code system: %s", system)
	}
	cat, err := ParseCatalog(r)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", system, err)
	}
	codes := cat.Flatten(system)
	if len(codes) == 0 {
		return 0, fmt.Errorf("import %s: catalog contains no codes", system)
	}
	if err := s.repo.ReplaceSystem(ctx, system, codes); err != nil {
		return 0, err
	}
	return len(codes), nil
}

// LoadIndex reads the full persisted index into memory. Callers hold the
// returned value read-only and inject it where lookups are needed.
func (s *Service) LoadIndex(ctx context.Context) (*Index, error) {
	cid10, err := s.repo.ListBySystem(ctx, SystemCID10)
	if err != nil {
		return nil, err
	}
	ciap2, err := s.repo.ListBySystem(ctx, SystemCIAP2)
	if err != nil {
		return nil, err
	}
	return &Index{CID10: cid10, CIAP2: ciap2}, nil
}

// Search normalizes the query both as a code and as display text and returns
// records matching either form.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*ClinicalCode, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.Search(ctx, NormalizeCode(query), NormalizeDisplay(strings.TrimSpace(query)), limit)
}
