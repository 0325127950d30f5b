package rbac

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const wildcardSegment = "*"

type compiledRule struct {
	rule      RouteRule
	segments  []string
	wildcards int
}

// routeTable resolves a request path to the most specific RouteRule.
type routeTable struct {
	rules []compiledRule
}

func newRouteTable(catalog *Catalog, rules []RouteRule) (*routeTable, error) {
	seen := make(map[string]struct{}, len(rules))
	t := &routeTable{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		if strings.TrimSpace(rule.Pattern) == "" {
			return nil, fmt.Errorf("%w: route pattern required", ErrInvalidDefinition)
		}
		pattern, ok := normalizeRoute(rule.Pattern)
		if !ok {
			return nil, fmt.Errorf("%w: malformed route %s", ErrInvalidDefinition, rule.Pattern)
		}
		if _, dup := seen[pattern]; dup {
			return nil, fmt.Errorf("%w: duplicate route %s", ErrInvalidDefinition, pattern)
		}
		seen[pattern] = struct{}{}
		if !rule.Public && len(rule.AnyOf) == 0 {
			return nil, fmt.Errorf("%w: route %s must be public or list permissions", ErrInvalidDefinition, pattern)
		}
		for _, p := range rule.AnyOf {
			if !catalog.Contains(p) {
				return nil, fmt.Errorf("route %s: %w", pattern, &UnknownPermissionError{Permission: p})
			}
		}
		rule.Pattern = pattern
		rule.AnyOf = append([]Permission(nil), rule.AnyOf...)
		segs := splitRoute(pattern)
		wild := 0
		for _, s := range segs {
			if s == wildcardSegment {
				wild++
			}
		}
		t.rules = append(t.rules, compiledRule{rule: rule, segments: segs, wildcards: wild})
	}
	return t, nil
}

// match returns the rule with the most matched segments; ties go to the rule
// with fewer wildcards. route must already be normalized.
func (t *routeTable) match(route string) (RouteRule, bool) {
	segs := splitRoute(route)
	var best *compiledRule
	for i := range t.rules {
		candidate := &t.rules[i]
		if !candidate.matches(segs) {
			continue
		}
		if best == nil ||
			len(candidate.segments) > len(best.segments) ||
			(len(candidate.segments) == len(best.segments) && candidate.wildcards < best.wildcards) {
			best = candidate
		}
	}
	if best == nil {
		return RouteRule{}, false
	}
	return best.rule, true
}

func (c compiledRule) matches(segs []string) bool {
	if len(c.segments) > len(segs) {
		return false
	}
	for i, s := range c.segments {
		if s != wildcardSegment && s != segs[i] {
			return false
		}
	}
	return true
}

func (t *routeTable) list() []RouteRule {
	out := make([]RouteRule, 0, len(t.rules))
	for _, r := range t.rules {
		rule := r.rule
		rule.AnyOf = append([]Permission(nil), rule.AnyOf...)
		out = append(out, rule)
	}
	return out
}

// normalizeRoute strips query strings and fragments, percent-decodes the path
// once and cleans it. It reports false for paths that could be read
// differently by a proxy and the backend: encoded separators, backslashes,
// double encoding, control characters or invalid escapes.
func normalizeRoute(route string) (string, bool) {
	route = strings.TrimSpace(route)
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	lower := strings.ToLower(route)
	if strings.Contains(route, `\`) || strings.Contains(lower, "%2f") || strings.Contains(lower, "%5c") {
		return "", false
	}
	decoded, err := url.PathUnescape(route)
	if err != nil || hasEscape(decoded) {
		return "", false
	}
	for _, r := range decoded {
		if r < 0x20 || r == 0x7f {
			return "", false
		}
	}
	if !strings.HasPrefix(decoded, "/") {
		decoded = "/" + decoded
	}
	cleaned := path.Clean(decoded)
	for _, seg := range splitRoute(cleaned) {
		if seg == ".." {
			return "", false
		}
	}
	return cleaned, true
}

// hasEscape reports whether s still holds a percent escape after decoding.
func hasEscape(s string) bool {
	for i := 0; i+2 < len(s); i++ {
		if s[i] == '%' && isHex(s[i+1]) && isHex(s[i+2]) {
			return true
		}
	}
	return false
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func splitRoute(route string) []string {
	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
