package terminology

import (
	"encoding/json"
	"fmt"
	"io"
)

// Catalog mirrors the hierarchical JSON documents the CID-10 and CIAP-2
// releases are distributed in: a compose block with one or more include
// sections, each carrying a flat concept list.
type Catalog struct {
	Compose CatalogCompose `json:"compose"`
}

type CatalogCompose struct {
	Include []CatalogInclude `json:"include"`
}

type CatalogInclude struct {
	System  string           `json:"system"`
	Concept []CatalogConcept `json:"concept"`
}

type CatalogConcept struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

// ParseCatalog decodes one catalog document.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var cat Catalog
	if err := json.NewDecoder(r).Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(cat.Compose.Include) == 0 {
		return nil, fmt.Errorf("catalog has no include sections")
	}
	return &cat, nil
}

// Flatten turns the compose/include/concept hierarchy into the flat list of
// ClinicalCode records used by search and migration. Concepts without a code
// are skipped; a concept without a display keeps an empty display rather
// than being dropped, so lookups by code still resolve.
func (c *Catalog) Flatten(system string) []*ClinicalCode {
	var out []*ClinicalCode
	for _, inc := range c.Compose.Include {
		for _, concept := range inc.Concept {
			if concept.Code == "" {
				continue
			}
			out = append(out, NewClinicalCode(system, concept.Code, concept.Display))
		}
	}
	return out
}
