package tagging

import (
	"regexp"
	"strings"
)

// CodeSet is the set of normalized diagnostic codes extracted from one
// patient's note text for one evaluation pass. Codes are upper-case and
// stored in both notations (dotted and undotted) where both exist.
type CodeSet map[string]struct{}

// Has reports whether the exact code string is present.
func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Clinical notes label diagnostic codes inconsistently: "CID - Z00.0",
// "CID10: Z000", "Diagnóstico: I10", "HD F41.1", bare "K58" inside free
// text, "CIAP - A97". Three independent scans plus dual-form expansion
// maximize recall while keeping the match semantics exact-string.
var (
	// Marker keyword followed by optional punctuation and a CID-shaped code.
	// \x{00A0} covers the non-breaking spaces the portal renders.
	cidMarkerRe = regexp.MustCompile(`(?i)(?:CID(?:[-\x{00A0} ]?10)?|DIAGN[ÓO]STICO|HD)[\s\x{00A0}]*[-:.]?[\s\x{00A0}]*([A-Za-z][0-9]{2,3}(?:\.[0-9]{1,2})?)`)

	// Isolated code token with no marker. The letter must be followed by at
	// least two digits, which keeps short alphabetic abbreviations out.
	standaloneRe = regexp.MustCompile(`\b([A-Za-z][0-9]{2,3}(?:\.[0-9]{1,2})?)\b`)

	// CIAP marker followed by a letter and exactly two digits.
	ciapMarkerRe = regexp.MustCompile(`(?i)CIAP[-\x{00A0} ]?2?[\s\x{00A0}]*[-:.]?[\s\x{00A0}]*([A-Za-z][0-9]{2})\b`)

	undottedRe = regexp.MustCompile(`^[A-Z][0-9]{3}$`)
	dottedRe   = regexp.MustCompile(`^[A-Z][0-9]{2}\.[0-9]$`)
)

// ExtractCodes scans the note text and returns every diagnostic code it
// references, normalized and expanded to both notations. It never fails;
// empty input yields an empty set.
func ExtractCodes(text string) CodeSet {
	codes := make(CodeSet)
	if text == "" {
		return codes
	}
	for _, re := range []*regexp.Regexp{cidMarkerRe, standaloneRe, ciapMarkerRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			codes.add(m[1])
		}
	}
	return codes
}

// add normalizes one raw token and inserts it together with its dual form:
// "Z000" also yields "Z00.0" and vice versa, so a tag stored in either
// notation matches text rendered in the other.
func (s CodeSet) add(token string) {
	code := strings.ToUpper(strings.TrimSpace(token))
	code = strings.TrimSuffix(code, ".")
	if code == "" {
		return
	}
	s[code] = struct{}{}
	switch {
	case undottedRe.MatchString(code):
		s[code[:3]+"."+code[3:]] = struct{}{}
	case dottedRe.MatchString(code):
		s[strings.Replace(code, ".", "", 1)] = struct{}{}
	}
}
