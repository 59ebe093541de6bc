package main

import "testing"

func TestParseReferences(t *testing.T) {
	refs, err := parseReferences([]string{
		"River=https://en.wikipedia.org/wiki/River",
		" E=mc2 = https://en.wikipedia.org/wiki/Mass%E2%80%93energy_equivalence",
	})
	if err != nil {
		t.Fatalf("parseReferences: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}
	if refs[0].Title != "River" || refs[0].URL != "https://en.wikipedia.org/wiki/River" {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1].Title != "E=mc2" {
		t.Errorf("refs[1].Title = %q, want %q", refs[1].Title, "E=mc2")
	}
}

func TestParseReferences_Empty(t *testing.T) {
	refs, err := parseReferences(nil)
	if err != nil {
		t.Fatalf("parseReferences: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("got %d refs, want 0", len(refs))
	}
}

func TestParseReferences_Invalid(t *testing.T) {
	for _, in := range []string{"River", "=https://x", "River="} {
		if _, err := parseReferences([]string{in}); err == nil {
			t.Errorf("parseReferences(%q): expected error", in)
		}
	}
}
