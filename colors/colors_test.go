package colors

import "testing"

func TestAssignDeterministic(t *testing.T) {
	a := Map{}.Assign([]string{"Pro", "Basic", "Plus"})
	b := Map{}.Assign([]string{"Plus", "Pro", "Basic"})

	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("got %d and %d entries, want 3", len(a), len(b))
	}
	for plan, color := range a {
		if b[plan] != color {
			t.Fatalf("plan %q color differs by input order: %q vs %q", plan, color, b[plan])
		}
	}
}

func TestAssignDeduplicates(t *testing.T) {
	m := Map{}.Assign([]string{"Basic", "Basic", "Pro"})
	if len(m) != 2 {
		t.Fatalf("got %d entries, want 2", len(m))
	}
}

func TestAssignCyclesPalette(t *testing.T) {
	plans := make([]string, len(palette)+3)
	for i := range plans {
		plans[i] = string(rune('a' + i))
	}
	m := Map{}.Assign(plans)
	if len(m) != len(plans) {
		t.Fatalf("got %d entries, want %d", len(m), len(plans))
	}
	for plan, c := range m {
		if c == "" {
			t.Fatalf("plan %q has empty color", plan)
		}
	}
}

func TestLookupFallback(t *testing.T) {
	m := Map{}.Assign([]string{"Basic"})
	if got := Lookup(m, "Basic"); got != m["Basic"] {
		t.Fatalf("Lookup(Basic) = %q, want %q", got, m["Basic"])
	}
	if got := Lookup(m, "Unknown"); got != fallback {
		t.Fatalf("Lookup(Unknown) = %q, want fallback %q", got, fallback)
	}
}
