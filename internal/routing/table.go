package routing

import (
	"sort"
	"sync/atomic"
)

// Table is an ordered, concurrency-safe routing table. Readers call
// Snapshot to get the current sorted rule list without ever observing a
// partially-sorted state; writers call Replace to publish a new rule set.
// The published slice is swapped behind an atomic pointer so Snapshot never
// blocks on a writer and a request already in flight keeps the rules it
// looked up under, even if the table is edited a moment later.
type Table struct {
	published atomic.Pointer[[]RoutingRule]
}

// NewTable builds a Table from the given rules, sorted immediately.
func NewTable(rules []RoutingRule) *Table {
	t := &Table{}
	t.Replace(rules)
	return t
}

// Replace sorts rules and atomically publishes them as the new table
// contents. Insertion order (the index within rules) is the final sort
// tiebreaker, so Replace must be called with the rules in the order the
// caller wants ties broken.
func (t *Table) Replace(rules []RoutingRule) {
	sorted := make([]RoutingRule, len(rules))
	for i, r := range rules {
		r.insertionIdx = i
		sorted[i] = r
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.specificity() != b.specificity() {
			return a.specificity() > b.specificity()
		}
		return a.insertionIdx < b.insertionIdx
	})
	t.published.Store(&sorted)
}

// Snapshot returns the currently published, sorted rule list. The slice is
// never mutated after publication, so callers may retain it for the
// lifetime of one request without additional synchronization.
func (t *Table) Snapshot() []RoutingRule {
	p := t.published.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Lookup returns the first rule in the current snapshot matching path, in
// sorted order, and true — or the zero value and false if none match. It
// performs no allocation beyond the Snapshot call itself.
func (t *Table) Lookup(path string) (RoutingRule, bool) {
	for _, r := range t.Snapshot() {
		if r.Matches(path) {
			return r, true
		}
	}
	return RoutingRule{}, false
}

// LookupIn is the same search as Lookup but against an already-taken
// snapshot, letting the Mode Dispatcher take one atomic snapshot and use it
// for both the "did anything match" check and the handoff to the Route
// Handler without a second atomic load in between.
func LookupIn(rules []RoutingRule, path string) (RoutingRule, bool) {
	for _, r := range rules {
		if r.Matches(path) {
			return r, true
		}
	}
	return RoutingRule{}, false
}
