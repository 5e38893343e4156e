package tagging

import (
	"fmt"
	"time"

	"github.com/ShadyBS/mvRegulador/internal/domain/tags"
)

// TagMatch is one tag whose rule evaluated true for a patient, ready for
// display. Recomputed per evaluation, never persisted.
type TagMatch struct {
	TagName string      `json:"tagName"`
	Colors  tags.Colors `json:"colors"`
}

// Period names the note-text time window for one evaluation.
type Period string

const (
	PeriodSixMonths Period = "6m"
	PeriodOneYear   Period = "1y"
	PeriodAll       Period = "all"
)

// allTimeStart is the fixed distant-past lower bound used by PeriodAll.
var allTimeStart = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParsePeriod validates a period name; empty selects the given default.
func ParsePeriod(s string, def Period) (Period, error) {
	if s == "" {
		return def, nil
	}
	switch p := Period(s); p {
	case PeriodSixMonths, PeriodOneYear, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q (want 6m, 1y or all)", s)
	}
}

// Window resolves the period to concrete start/end dates relative to now.
func (p Period) Window(now time.Time) (from, to time.Time) {
	switch p {
	case PeriodSixMonths:
		return now.AddDate(0, -6, 0), now
	case PeriodAll:
		return allTimeStart, now
	default:
		return now.AddDate(-1, 0, 0), now
	}
}
