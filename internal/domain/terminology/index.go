package terminology

import "strings"

// Index is the in-memory flattened terminology index. It is loaded once and
// passed read-only into the consumers that need code lookups (tag authoring
// search, legacy tag migration); nothing mutates it after construction.
type Index struct {
	CID10 []*ClinicalCode `json:"cid10"`
	CIAP2 []*ClinicalCode `json:"ciap2"`
}

// All returns both systems as one slice, CID-10 first.
func (ix *Index) All() []*ClinicalCode {
	out := make([]*ClinicalCode, 0, len(ix.CID10)+len(ix.CIAP2))
	out = append(out, ix.CID10...)
	out = append(out, ix.CIAP2...)
	return out
}

// Search normalizes the query both as a code and as display text and returns
// every record whose normalized code contains the code form or whose
// normalized display contains the text form. An empty query matches nothing.
func (ix *Index) Search(query string) []*ClinicalCode {
	codeQ := NormalizeCode(query)
	textQ := NormalizeDisplay(strings.TrimSpace(query))
	if codeQ == "" && textQ == "" {
		return nil
	}
	var out []*ClinicalCode
	for _, c := range ix.All() {
		if codeQ != "" && strings.Contains(c.NormalizedCode, codeQ) {
			out = append(out, c)
			continue
		}
		if textQ != "" && strings.Contains(c.NormalizedDisplay, textQ) {
			out = append(out, c)
		}
	}
	return out
}

// DisplayFor resolves the display text for a bare code string, comparing in
// normalized form so either notation ("Z00.0" or "z000") resolves. The two
// systems are not distinguished; the first hit wins, CID-10 before CIAP-2.
func (ix *Index) DisplayFor(code string) (string, bool) {
	want := NormalizeCode(code)
	if want == "" {
		return "", false
	}
	for _, c := range ix.All() {
		if c.NormalizedCode == want {
			return c.Display, true
		}
	}
	return "", false
}
