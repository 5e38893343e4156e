package tags

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ShadyBS/mvRegulador/internal/domain/terminology"
)

// Tag types.
const (
	TypeCode    = "code"
	TypeKeyword = "keyword"
)

// Keyword combination logic. OR is the default when unset.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Keyword rule match types.
const (
	MatchContains    = "contains"
	MatchNotContains = "not_contains"
	MatchRegex       = "regex"
)

// Colors holds the display colors for a tag badge.
type Colors struct {
	Bg   string `json:"bg"`
	Text string `json:"text"`
}

// DefaultColors is applied when a definition (or a migrated legacy record)
// carries no colors of its own.
var DefaultColors = Colors{Bg: "#e8eaf6", Text: "#1a237e"}

// Item is one entry of a tag definition. For code tags, Code/Display are
// set; for keyword tags, MatchType/Value. Both shapes share one struct
// because that is how the definitions are persisted.
type Item struct {
	Code      string `json:"code,omitempty"`
	Display   string `json:"display,omitempty"`
	MatchType string `json:"matchType,omitempty"`
	Value     string `json:"value,omitempty"`
}

// TagDefinition is one clinician-authored tag rule. TagName is the unique
// key; the persisted storage key is SanitizeKey(TagName).
type TagDefinition struct {
	TagName    string `json:"tagName"`
	Type       string `json:"type"`
	Items      []Item `json:"items"`
	MatchLogic string `json:"matchLogic,omitempty"`
	Colors     Colors `json:"colors"`
}

// Validate checks a definition at authoring time. Regex rules must compile
// here; the matcher still defends against bad patterns at match time, but a
// definition with an invalid pattern is rejected before it is saved.
func (d *TagDefinition) Validate() error {
	if strings.TrimSpace(d.TagName) == "" {
		return fmt.Errorf("tagName is required")
	}
	if d.Type != TypeCode && d.Type != TypeKeyword {
		return fmt.Errorf("type must be %q or %q, got %q", TypeCode, TypeKeyword, d.Type)
	}
	if len(d.Items) == 0 {
		return fmt.Errorf("items must not be empty")
	}
	if d.MatchLogic != "" && d.MatchLogic != LogicAnd && d.MatchLogic != LogicOr {
		return fmt.Errorf("matchLogic must be %q or %q, got %q", LogicAnd, LogicOr, d.MatchLogic)
	}
	for i, item := range d.Items {
		switch d.Type {
		case TypeCode:
			if item.Code == "" {
				return fmt.Errorf("items[%d]: code is required for code tags", i)
			}
		case TypeKeyword:
			switch item.MatchType {
			case MatchContains, MatchNotContains:
				if item.Value == "" {
					return fmt.Errorf("items[%d]: value is required", i)
				}
			case MatchRegex:
				if _, err := regexp.Compile("(?i)" + item.Value); err != nil {
					return fmt.Errorf("items[%d]: invalid pattern: %w", i, err)
				}
			default:
				return fmt.Errorf("items[%d]: unknown matchType %q", i, item.MatchType)
			}
		}
	}
	return nil
}

// SanitizeKey derives the storage key for a tag name: diacritics stripped,
// lower-cased, runs of non-alphanumerics collapsed to one underscore.
func SanitizeKey(name string) string {
	normalized := terminology.NormalizeDisplay(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(normalized))
	lastUnderscore := false
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// LegacyTag is the pre-schema tag record: a bare name plus code strings,
// with no type, items or colors.
type LegacyTag struct {
	TagName string   `json:"tagName"`
	Codes   []string `json:"codes"`
}

// DecodeDefinition parses a persisted record as the current schema. A record
// without both type and items is not current-format and is rejected; callers
// that may encounter legacy data fall back to DecodeLegacy through
// DecodeAny. This is the single place format detection happens.
func DecodeDefinition(data []byte) (*TagDefinition, error) {
	var def TagDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode tag definition: %w", err)
	}
	if def.Type == "" || def.Items == nil {
		return nil, fmt.Errorf("not a current-format tag definition")
	}
	return &def, nil
}

// DecodeAny attempts the current schema first, then the legacy shape.
// Exactly one of the returns is non-nil on success.
func DecodeAny(data []byte) (*TagDefinition, *LegacyTag, error) {
	if def, err := DecodeDefinition(data); err == nil {
		return def, nil, nil
	}
	var legacy LegacyTag
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, nil, fmt.Errorf("decode tag record: %w", err)
	}
	if legacy.TagName == "" || len(legacy.Codes) == 0 {
		return nil, nil, fmt.Errorf("tag record matches neither current nor legacy schema")
	}
	return nil, &legacy, nil
}

// DisplayNotFound is the display placeholder used when a legacy code cannot
// be resolved against the terminology index.
const DisplayNotFound = "(descrição não encontrada)"

// Upgrade converts a legacy record to the current schema, resolving each
// bare code's display through the supplied lookup.
func (l *LegacyTag) Upgrade(lookup func(code string) (string, bool)) *TagDefinition {
	items := make([]Item, 0, len(l.Codes))
	for _, code := range l.Codes {
		display, ok := lookup(code)
		if !ok {
			display = DisplayNotFound
		}
		items = append(items, Item{Code: code, Display: display})
	}
	return &TagDefinition{
		TagName:    l.TagName,
		Type:       TypeCode,
		Items:      items,
		MatchLogic: LogicOr,
		Colors:     DefaultColors,
	}
}
