package terminology

import "testing"

func testIndex() *Index {
	return &Index{
		CID10: []*ClinicalCode{
			NewClinicalCode(SystemCID10, "I10", "Hipertensão essencial"),
			NewClinicalCode(SystemCID10, "Z00.0", "Exame médico geral"),
			NewClinicalCode(SystemCID10, "E11.9", "Diabetes mellitus tipo 2"),
		},
		CIAP2: []*ClinicalCode{
			NewClinicalCode(SystemCIAP2, "K86", "Hipertensão sem complicações"),
			NewClinicalCode(SystemCIAP2, "A97", "Sem doença"),
		},
	}
}

func TestIndexSearch_ByCode(t *testing.T) {
	ix := testIndex()
	results := ix.Search("z00.0")
	if len(results) != 1 || results[0].Code != "Z00.0" {
		t.Fatalf("expected Z00.0, got %+v", results)
	}
}

func TestIndexSearch_ByDisplayAccentInsensitive(t *testing.T) {
	ix := testIndex()
	results := ix.Search("hipertensao")
	if len(results) != 2 {
		t.Fatalf("expected 2 results across systems, got %d", len(results))
	}
}

func TestIndexSearch_Empty(t *testing.T) {
	ix := testIndex()
	if results := ix.Search(""); results != nil {
		t.Errorf("expected no results for empty query, got %d", len(results))
	}
	if results := ix.Search("  "); results != nil {
		t.Errorf("expected no results for blank query, got %d", len(results))
	}
}

func TestIndexDisplayFor(t *testing.T) {
	ix := testIndex()

	display, ok := ix.DisplayFor("I10")
	if !ok || display != "Hipertensão essencial" {
		t.Errorf("DisplayFor(I10) = %q, %v", display, ok)
	}

	// Either notation resolves.
	if display, ok = ix.DisplayFor("Z000"); !ok || display != "Exame médico geral" {
		t.Errorf("DisplayFor(Z000) = %q, %v", display, ok)
	}

	if _, ok = ix.DisplayFor("X99"); ok {
		t.Error("expected miss for unknown code")
	}
	if _, ok = ix.DisplayFor(""); ok {
		t.Error("expected miss for empty code")
	}
}
