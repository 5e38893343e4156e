package tagging

import (
	"regexp"
	"strings"

	"github.com/ShadyBS/mvRegulador/internal/domain/tags"
)

// MatchTag reports whether one tag definition applies to a patient, given
// the extracted code set and the lower-cased full note text. It is a total
// function: malformed rules and unknown types evaluate to false, never an
// error.
func MatchTag(def *tags.TagDefinition, codes CodeSet, lowerText string) bool {
	if len(def.Items) == 0 {
		return false
	}
	switch def.Type {
	case tags.TypeCode:
		// One code present is sufficient evidence: code tags are OR over
		// items regardless of matchLogic. Pinned behavior.
		for _, item := range def.Items {
			if codes.Has(item.Code) {
				return true
			}
		}
		return false
	case tags.TypeKeyword:
		if def.MatchLogic == tags.LogicAnd {
			for _, item := range def.Items {
				if !matchKeywordRule(item, lowerText) {
					return false
				}
			}
			return true
		}
		for _, item := range def.Items {
			if matchKeywordRule(item, lowerText) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchKeywordRule(item tags.Item, lowerText string) bool {
	switch item.MatchType {
	case tags.MatchContains:
		return strings.Contains(lowerText, strings.ToLower(item.Value))
	case tags.MatchNotContains:
		return !strings.Contains(lowerText, strings.ToLower(item.Value))
	case tags.MatchRegex:
		re, ok := compileRule(item.Value)
		if !ok {
			return false
		}
		return re.MatchString(lowerText)
	default:
		return false
	}
}

// compileRule is the single compile-or-reject boundary for user-authored
// patterns: a pattern that does not compile degrades to a rule that never
// matches. Authoring-time validation rejects such patterns up front, but
// records written by older clients may still carry them.
func compileRule(pattern string) (*regexp.Regexp, bool) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, false
	}
	return re, true
}
