package tagging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShadyBS/mvRegulador/internal/domain/tags"
)

// ErrRetrieval marks a failed note-text fetch (network, portal session or
// timeout). It is reported to the caller and not retried; the user retries
// by reselecting the patient.
var ErrRetrieval = errors.New("prontuário indisponível")

// NoteFetcher retrieves the concatenated plain text of a patient's visit
// history over a date range. Implemented by the SIGSS portal client.
type NoteFetcher interface {
	FetchNoteText(ctx context.Context, patientID string, from, to time.Time) (string, error)
}

// TagSource supplies the persisted tag definitions, already in current
// schema. The pipeline only reads.
type TagSource interface {
	ListAll(ctx context.Context) ([]*tags.TagDefinition, error)
}

// Service orchestrates one full tagging pass for a selected patient.
type Service struct {
	notes  NoteFetcher
	tags   TagSource
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new tag evaluation service.
func NewService(notes NoteFetcher, tagSource TagSource, logger zerolog.Logger) *Service {
	return &Service{notes: notes, tags: tagSource, logger: logger, now: time.Now}
}

// Evaluate fetches the patient's note text for the period, extracts the
// code set, applies every configured tag and returns the matches. The
// returned slice is never nil on success. Extraction and matching cannot
// fail; only the text fetch and the definition read can, and those errors
// are wrapped for the transport layer to classify.
func (s *Service) Evaluate(ctx context.Context, patientID string, period Period) ([]TagMatch, error) {
	from, to := period.Window(s.now())

	text, err := s.notes.FetchNoteText(ctx, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	codes := ExtractCodes(text)
	lowerText := strings.ToLower(text)

	defs, err := s.tags.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tag definitions: %w", err)
	}

	matches := make([]TagMatch, 0, len(defs))
	for _, def := range defs {
		if MatchTag(def, codes, lowerText) {
			matches = append(matches, TagMatch{TagName: def.TagName, Colors: def.Colors})
		}
	}

	s.logger.Debug().
		Str("patient", patientID).
		Str("period", string(period)).
		Int("codes", len(codes)).
		Int("matches", len(matches)).
		Msg("tag evaluation complete")

	return matches, nil
}
