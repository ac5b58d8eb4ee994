// Package routing holds the routing table: immutable rule values ordered by
// priority and specificity, looked up by path on every routed request.
package routing

import (
	"strconv"
	"strings"

	"github.com/me-sharif-hasan/tunneller/pkg/constants"
	"github.com/me-sharif-hasan/tunneller/pkg/errors"
)

// exactSpecificity and wildcardBaseSpecificity implement the ordering rule:
// exact patterns always outrank wildcard ones, and among wildcards a longer
// pattern outranks a shorter one.
const (
	exactSpecificity        = 10000
	wildcardBaseSpecificity = 1000
)

// RoutingRule is an immutable routing table entry. Construct with New, never
// mutate a value after creation.
type RoutingRule struct {
	PathPattern  string
	TargetHost   string
	TargetPort   int
	Description  string
	StripPrefix  bool
	Priority     int
	ForwardHost  bool
	UseSSL       bool
	insertionIdx int
}

// New builds a RoutingRule, normalizing PathPattern to start with "/".
// priority is stored as given (0 is a valid priority); callers substitute
// DefaultPriority themselves when no explicit value was supplied.
func New(pathPattern, targetHost string, targetPort int, description string, stripPrefix bool, priority int, forwardHost, useSSL bool) (RoutingRule, error) {
	r := RoutingRule{
		PathPattern: normalizePattern(pathPattern),
		TargetHost:  targetHost,
		TargetPort:  targetPort,
		Description: description,
		StripPrefix: stripPrefix,
		Priority:    priority,
		ForwardHost: forwardHost,
		UseSSL:      useSSL,
	}
	if err := r.Validate(); err != nil {
		return RoutingRule{}, err
	}
	return r, nil
}

func normalizePattern(p string) string {
	if p == "" {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Validate enforces the Data Model invariants so a mutation boundary (admin
// API, CLI, JSON load) can reject before publishing.
func (r RoutingRule) Validate() error {
	if r.PathPattern == "" {
		return errors.NewValidationError("pathPattern must not be empty")
	}
	if r.TargetHost == "" {
		return errors.NewValidationError("targetHost must not be empty")
	}
	if r.TargetPort < 1 || r.TargetPort > 65535 {
		return errors.NewValidationError("targetPort must be in [1, 65535], got " + strconv.Itoa(r.TargetPort))
	}
	return nil
}

// isWildcard reports whether the pattern ends in the "/*" wildcard suffix.
func (r RoutingRule) isWildcard() bool {
	return strings.HasSuffix(r.PathPattern, "/*")
}

// wildcardPrefix returns the pattern with its trailing "/*" removed. Only
// meaningful when isWildcard() is true.
func (r RoutingRule) wildcardPrefix() string {
	return strings.TrimSuffix(r.PathPattern, "/*")
}

// Matches reports whether path is routed by this rule. Exact patterns match
// by equality; wildcard patterns match the bare prefix or the prefix plus a
// "/"-delimited suffix — "/api/*" matches "/api" and "/api/x" but not
// "/apistore".
func (r RoutingRule) Matches(path string) bool {
	if !r.isWildcard() {
		return path == r.PathPattern
	}
	prefix := r.wildcardPrefix()
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// RewritePath applies stripPrefix, forced to begin with "/". When
// r.StripPrefix is false it returns path unchanged.
func (r RoutingRule) RewritePath(path string) string {
	if !r.StripPrefix {
		return path
	}
	if !r.isWildcard() {
		return "/"
	}
	prefix := r.wildcardPrefix()
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		rest = "/"
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}

// specificity is the secondary sort key: exact patterns outrank wildcard
// ones, and among wildcards a longer pattern outranks a shorter one.
func (r RoutingRule) specificity() int {
	if !r.isWildcard() {
		return exactSpecificity
	}
	return wildcardBaseSpecificity + len(r.PathPattern)
}

// DefaultPriority is the priority applied to a rule whose caller did not
// supply one explicitly. 0 is a distinct, valid priority (see spec Open
// Questions) — callers must track "was an explicit value given" themselves
// rather than treating the zero value as "use the default".
const DefaultPriority = constants.DefaultRulePriority
