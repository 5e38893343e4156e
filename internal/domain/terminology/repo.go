package terminology

import "context"

// Repository persists the flattened terminology index.
type Repository interface {
	// ReplaceSystem atomically replaces every record of one code system.
	ReplaceSystem(ctx context.Context, system string, codes []*ClinicalCode) error
	ListBySystem(ctx context.Context, system string) ([]*ClinicalCode, error)
	// Search matches the precomputed normalized columns: codeQuery against
	// normalized_code, textQuery against normalized_display.
	Search(ctx context.Context, codeQuery, textQuery string, limit int) ([]*ClinicalCode, error)
}
