package mapping

import "testing"

// ============================================================================
// Resolver Precedence Tests
// ============================================================================

func TestResolver_Precedence(t *testing.T) {
	rules := []Rule{
		{Original: "FNAME", Mapped: "FIRST", Vendor: "V1", Client: "C1"},
		{Original: "FNAME", Mapped: "FNAME_VENDOR", Vendor: "V1"},
		{Original: "FNAME", Mapped: "FNAME_CLIENT", Client: "C1"},
		{Original: "FNAME", Mapped: "FNAME_GLOBAL"},
	}

	tests := []struct {
		name   string
		vendor string
		client string
		want   string
	}{
		{"vendor and client beats all", "V1", "C1", "FIRST"},
		{"vendor only", "V1", "C9", "FNAME_VENDOR"},
		{"client only", "V9", "C1", "FNAME_CLIENT"},
		{"global fallback", "V9", "C9", "FNAME_GLOBAL"},
		{"no scope at all", "", "", "FNAME_GLOBAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(rules, tt.vendor, tt.client)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := r.Resolve("FNAME")
			if !got.Matched {
				t.Fatal("expected a match")
			}
			if got.Mapped != tt.want {
				t.Errorf("Resolve(FNAME) = %q, want %q", got.Mapped, tt.want)
			}
		})
	}
}

func TestResolver_SpecPrecedenceProperty(t *testing.T) {
	// The exact property from the mapping design: a (V1,C1)-scoped rule and a
	// global rule for the same header.
	rules := []Rule{
		{Original: "FNAME", Mapped: "FIRST", Vendor: "V1", Client: "C1"},
		{Original: "FNAME", Mapped: "FNAME_GLOBAL"},
	}

	r1, _ := NewResolver(rules, "V1", "C1")
	if got := r1.Resolve("FNAME"); got.Mapped != "FIRST" {
		t.Errorf("(V1,C1) resolution = %q, want FIRST", got.Mapped)
	}

	r2, _ := NewResolver(rules, "V2", "C1")
	if got := r2.Resolve("FNAME"); got.Mapped != "FNAME_GLOBAL" {
		t.Errorf("(V2,C1) resolution = %q, want FNAME_GLOBAL", got.Mapped)
	}
}

func TestResolver_CaseInsensitiveAndUpperCased(t *testing.T) {
	rules := []Rule{{Original: "fname", Mapped: "first"}}

	r, err := NewResolver(rules, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := r.Resolve("FnAmE")
	if !got.Matched {
		t.Fatal("case-insensitive match failed")
	}
	if got.Mapped != "FIRST" {
		t.Errorf("mapped header must be upper-cased, got %q", got.Mapped)
	}
	if got.Original != "FNAME" {
		t.Errorf("original must be upper-cased, got %q", got.Original)
	}
}

func TestResolver_Unmapped(t *testing.T) {
	r, err := NewResolver(nil, "V1", "C1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := r.Resolve("MYSTERY")
	if got.Matched {
		t.Error("unknown header must resolve as unmapped, not matched")
	}
	if got.Mapped != "" {
		t.Errorf("unmapped resolution must not carry a name, got %q", got.Mapped)
	}
}

func TestResolver_ConflictingSameTierRejected(t *testing.T) {
	rules := []Rule{
		{Original: "FNAME", Mapped: "A", Vendor: "V1"},
		{Original: "FNAME", Mapped: "B", Vendor: "V1"},
	}
	if _, err := NewResolver(rules, "V1", ""); err == nil {
		t.Error("duplicate natural key at one tier must be rejected")
	}
}

func TestResolver_OutOfScopeRulesIgnored(t *testing.T) {
	rules := []Rule{
		{Original: "FNAME", Mapped: "OTHER", Vendor: "V2"},
	}
	r, err := NewResolver(rules, "V1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Resolve("FNAME"); got.Matched {
		t.Errorf("rule scoped to another vendor must not apply, got %q", got.Mapped)
	}
}
