package config

import (
	"sync"

	"github.com/me-sharif-hasan/tunneller/internal/routing"
	"github.com/me-sharif-hasan/tunneller/pkg/errors"
)

// Listener is invoked synchronously whenever the rule set changes, after
// the rebuilt table has been published, so a caller can react before the
// next CONNECT is dispatched. The Mode Dispatcher does not depend on it: it
// reads Table() directly.
type Listener func(table *routing.Table)

// Store is the process-wide Config singleton described in spec.md §3/§4.I.
// All reads and writes are serialized through mu so that a reader never
// observes a Document mid-mutation, and so that a rule-list edit and its
// listener notification happen as one atomic step relative to other
// mutations (not relative to readers of the already-published routing
// table, which go through Table.Snapshot's own atomic pointer).
type Store struct {
	mu       sync.RWMutex
	doc      Document
	table    *routing.Table
	listener Listener
}

// New builds a Store from doc, validating every rule. An invalid document
// (as could come from a hand-edited config file) is rejected wholesale.
func New(doc Document) (*Store, error) {
	rules, err := toRules(doc.Routes)
	if err != nil {
		return nil, err
	}
	return &Store{
		doc:   doc,
		table: routing.NewTable(rules),
	}, nil
}

func toRules(specs []RuleSpec) ([]routing.RoutingRule, error) {
	rules := make([]routing.RoutingRule, 0, len(specs))
	for _, s := range specs {
		priority := routing.DefaultPriority
		if s.Priority != nil {
			priority = *s.Priority
		}
		r, err := routing.New(s.PathPattern, s.TargetHost, s.TargetPort, s.Description, s.StripPrefix, priority, s.ForwardHost, s.UseSSL)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// SetListener installs the single rule-change notification slot, replacing
// any previous listener. It does not fire for the rules already published.
func (s *Store) SetListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Table returns the live routing table. The Mode Dispatcher calls
// Table().Snapshot() to take its atomic, per-request read.
func (s *Store) Table() *routing.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Domain returns the agent's registered hostname.
func (s *Store) Domain() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Domain
}

// Mode returns the current dispatch mode.
func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Mode
}

// RawTarget returns the RAW-mode backend.
func (s *Store) RawTarget() RawTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RawTarget{Host: s.doc.RawTargetHost, Port: s.doc.RawTargetPort}
}

// SignalAddr returns the relay's signal host/port.
func (s *Store) SignalAddr() (host string, port int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.SignalHost, s.doc.SignalPort
}

// DataPort returns the relay's data-channel port.
func (s *Store) DataPort() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.DataPort
}

// AutoReconnect reports whether the control loop should reconnect after a
// clean or errored disconnect.
func (s *Store) AutoReconnect() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.AutoReconnect
}

// ForceConnectionClose reports whether the route handler should force
// "Connection: close" toward the backend.
func (s *Store) ForceConnectionClose() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ForceConnectionClose
}

// MonitoringEnabled reports whether per-pattern stats are surfaced on the
// admin API's /status response.
func (s *Store) MonitoringEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.MonitoringEnabled
}

// Snapshot returns a copy of the full persisted document, e.g. for Save.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := s.doc
	doc.Routes = append([]RuleSpec(nil), s.doc.Routes...)
	return doc
}

// SetDomain validates and publishes a new agent hostname.
func (s *Store) SetDomain(domain string) error {
	if domain == "" {
		return errors.NewValidationError("domain must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Domain = domain
	return nil
}

// SetSignal validates and publishes a new relay signal address.
func (s *Store) SetSignal(host string, port int) error {
	if host == "" {
		return errors.NewValidationError("signalHost must not be empty")
	}
	if port < 1 || port > 65535 {
		return errors.NewValidationError("signalPort must be in [1, 65535]")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SignalHost = host
	s.doc.SignalPort = port
	return nil
}

// SetMode validates and publishes a new dispatch mode.
func (s *Store) SetMode(mode Mode) error {
	if mode != ModeRaw && mode != ModeRouting {
		return errors.NewValidationError("mode must be RAW or ROUTING")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Mode = mode
	return nil
}

// SetRawTarget validates and publishes the RAW-mode backend.
func (s *Store) SetRawTarget(host string, port int) error {
	if host == "" {
		return errors.NewValidationError("rawTarget host must not be empty")
	}
	if port < 1 || port > 65535 {
		return errors.NewValidationError("rawTarget port must be in [1, 65535]")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.RawTargetHost = host
	s.doc.RawTargetPort = port
	return nil
}

// AddRule validates rule, appends it, re-sorts and publishes the table, and
// fires the listener — all before returning, so the caller's next CONNECT
// is guaranteed to see the new rule.
func (s *Store) AddRule(spec RuleSpec) error {
	priority := routing.DefaultPriority
	if spec.Priority != nil {
		priority = *spec.Priority
	}
	rule, err := routing.New(spec.PathPattern, spec.TargetHost, spec.TargetPort, spec.Description, spec.StripPrefix, priority, spec.ForwardHost, spec.UseSSL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Routes = append(s.doc.Routes, spec)
	return s.rebuildAndNotifyLocked(rule)
}

// RemoveRule deletes the rule at index i (as returned by the admin API's
// GET /routes listing) and republishes the table.
func (s *Store) RemoveRule(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.doc.Routes) {
		return errors.NewValidationError("route index out of range")
	}
	s.doc.Routes = append(s.doc.Routes[:i], s.doc.Routes[i+1:]...)
	return s.rebuildAndNotifyLocked(routing.RoutingRule{})
}

// ReplaceRule validates and overwrites the rule at index i.
func (s *Store) ReplaceRule(i int, spec RuleSpec) error {
	priority := routing.DefaultPriority
	if spec.Priority != nil {
		priority = *spec.Priority
	}
	rule, err := routing.New(spec.PathPattern, spec.TargetHost, spec.TargetPort, spec.Description, spec.StripPrefix, priority, spec.ForwardHost, spec.UseSSL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.doc.Routes) {
		return errors.NewValidationError("route index out of range")
	}
	s.doc.Routes[i] = spec
	return s.rebuildAndNotifyLocked(rule)
}

// rebuildAndNotifyLocked must be called with mu held. The rule argument is
// informational only (used by callers that already validated a single new
// or replaced rule); the rebuild always derives the full set from s.doc.
func (s *Store) rebuildAndNotifyLocked(_ routing.RoutingRule) error {
	rules, err := toRules(s.doc.Routes)
	if err != nil {
		return err
	}
	s.table.Replace(rules)
	if s.listener != nil {
		s.listener(s.table)
	}
	return nil
}
