package terminology

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ClinicalCode is one entry of the flattened terminology index. It is created
// once per catalog import and never mutated afterwards; the normalized fields
// are precomputed so search does no per-query normalization of the corpus.
type ClinicalCode struct {
	Code              string `db:"code" json:"code"`
	Display           string `db:"display" json:"display"`
	System            string `db:"system" json:"system"`
	NormalizedCode    string `db:"normalized_code" json:"normalizedCode"`
	NormalizedDisplay string `db:"normalized_display" json:"normalizedDisplay"`
}

// Code system identifiers for the two supported catalogs.
const (
	SystemCID10 = "CID-10"
	SystemCIAP2 = "CIAP-2"
)

// NewClinicalCode builds a ClinicalCode with its normalized fields filled in.
func NewClinicalCode(system, code, display string) *ClinicalCode {
	return &ClinicalCode{
		Code:              code,
		Display:           display,
		System:            system,
		NormalizedCode:    NormalizeCode(code),
		NormalizedDisplay: NormalizeDisplay(display),
	}
}

// NormalizeCode strips every non-alphanumeric character and lower-cases the
// rest, so "Z00.0" and "z000" normalize to the same key.
func NormalizeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// stripDiacritics decomposes the text and drops combining marks, so
// "Hipertensão" becomes "Hipertensao".
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeDisplay strips diacritics and lower-cases the text. The catalog
// descriptions are Brazilian Portuguese, so accent-insensitive matching is
// what clinicians expect when searching.
func NormalizeDisplay(text string) string {
	out, _, err := transform.String(stripDiacritics, text)
	if err != nil {
		// The transform chain cannot fail on valid UTF-8; fall back to the
		// raw text rather than dropping the record.
		out = text
	}
	return strings.ToLower(out)
}
