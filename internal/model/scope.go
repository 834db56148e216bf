package model

import (
	"fmt"
	"strings"
)

type Scope string

const (
	ScopeView   Scope = "view"
	ScopeUpload Scope = "upload"
)

// AllScopes is the fixed universe of capabilities, in canonical order.
var AllScopes = []Scope{ScopeView, ScopeUpload}

func (s Scope) Valid() bool {
	return s == ScopeView || s == ScopeUpload
}

// ParseScopes normalizes raw scope names into canonical order without duplicates.
// Unknown names are returned separately so callers can decide whether to reject or drop them.
func ParseScopes(raw []string) (scopes []Scope, unknown []string) {
	seen := map[Scope]bool{}
	for _, value := range raw {
		s := Scope(strings.ToLower(strings.TrimSpace(value)))
		if s == "" {
			continue
		}
		if !s.Valid() {
			unknown = append(unknown, value)
			continue
		}
		seen[s] = true
	}

	scopes = make([]Scope, 0, len(seen))
	for _, s := range AllScopes {
		if seen[s] {
			scopes = append(scopes, s)
		}
	}

	return scopes, unknown
}

// IntersectScopes returns the members of requested that are also in allowed and in the
// universe, in canonical order.
func IntersectScopes(requested []Scope, allowed []Scope) []Scope {
	out := make([]Scope, 0, len(AllScopes))
	for _, s := range AllScopes {
		if ContainsScope(requested, s) && ContainsScope(allowed, s) {
			out = append(out, s)
		}
	}
	return out
}

func ContainsScope(scopes []Scope, target Scope) bool {
	for _, s := range scopes {
		if s == target {
			return true
		}
	}
	return false
}

func ScopeStrings(scopes []Scope) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, string(s))
	}
	return out
}

func ScopesFromStrings(raw []string) ([]Scope, error) {
	scopes, unknown := ParseScopes(raw)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, unknown[0])
	}
	return scopes, nil
}
