package routing

import "testing"

func mustRule(t *testing.T, pattern, host string, port, priority int, strip bool) RoutingRule {
	t.Helper()
	r, err := New(pattern, host, port, "", strip, priority, false, false)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestLookupFirstMatchInPriorityOrder(t *testing.T) {
	rules := []RoutingRule{
		mustRule(t, "/api/*", "h1", 8081, 1, false),
		mustRule(t, "/admin", "h3", 8083, 50, false),
		mustRule(t, "/*", "h2", 8080, 100, false),
	}
	tbl := NewTable(rules)

	if r, ok := tbl.Lookup("/api/users"); !ok || r.TargetHost != "h1" {
		t.Fatalf("expected /api/users to route to h1, got %+v ok=%v", r, ok)
	}
	if r, ok := tbl.Lookup("/admin"); !ok || r.TargetHost != "h3" {
		t.Fatalf("expected /admin to route to h3, got %+v ok=%v", r, ok)
	}
	if r, ok := tbl.Lookup("/anything"); !ok || r.TargetHost != "h2" {
		t.Fatalf("expected /anything to route to h2 (catch-all), got %+v ok=%v", r, ok)
	}
}

func TestLookupNoMatch(t *testing.T) {
	tbl := NewTable([]RoutingRule{mustRule(t, "/admin", "h1", 80, 1, false)})
	if _, ok := tbl.Lookup("/other"); ok {
		t.Error("expected no match")
	}
}

func TestSortStableOnTies(t *testing.T) {
	// Same priority and specificity (both exact): insertion order must hold.
	rules := []RoutingRule{
		mustRule(t, "/a", "first", 80, 10, false),
		mustRule(t, "/a", "second", 80, 10, false),
	}
	tbl := NewTable(rules)
	snap := tbl.Snapshot()
	if len(snap) != 2 || snap[0].TargetHost != "first" || snap[1].TargetHost != "second" {
		t.Fatalf("expected insertion order preserved, got %+v", snap)
	}
}

func TestSortSpecificityBreaksPriorityTies(t *testing.T) {
	rules := []RoutingRule{
		mustRule(t, "/a/*", "wildcard", 80, 10, false),
		mustRule(t, "/a/exact", "exact", 80, 10, false),
	}
	tbl := NewTable(rules)
	snap := tbl.Snapshot()
	if snap[0].TargetHost != "exact" {
		t.Fatalf("exact pattern must sort before wildcard at equal priority, got %+v", snap)
	}
}

func TestReplaceIsAtomic(t *testing.T) {
	tbl := NewTable([]RoutingRule{mustRule(t, "/a", "old", 80, 1, false)})
	snap := tbl.Snapshot()
	tbl.Replace([]RoutingRule{mustRule(t, "/a", "new", 80, 1, false)})
	// The snapshot taken before Replace must be unaffected by it.
	if snap[0].TargetHost != "old" {
		t.Fatalf("pre-replace snapshot must stay old, got %+v", snap)
	}
	if got := tbl.Snapshot(); got[0].TargetHost != "new" {
		t.Fatalf("post-replace snapshot must reflect new rules, got %+v", got)
	}
}

func TestLookupEquivalentToFirstSortedMatch(t *testing.T) {
	rules := []RoutingRule{
		mustRule(t, "/x/*", "wild", 80, 5, false),
		mustRule(t, "/x/y", "exact", 80, 5, false),
		mustRule(t, "/*", "catchall", 80, 200, false),
	}
	tbl := NewTable(rules)
	for _, path := range []string{"/x/y", "/x/z", "/q"} {
		want, wantOK := LookupIn(tbl.Snapshot(), path)
		got, gotOK := tbl.Lookup(path)
		if want != got || wantOK != gotOK {
			t.Fatalf("Lookup(%q) diverged from first-match-in-sorted-snapshot: %+v/%v vs %+v/%v", path, got, gotOK, want, wantOK)
		}
	}
}
