package domain

import (
	"slices"
	"strings"
)

// Scope is the grouping dimension of a report.
type Scope string

// ScopeClients and related constants define the supported report scopes.
const (
	ScopeClients  Scope = "CLIENTS"
	ScopeProjects Scope = "PROJECTS"
	ScopeTasks    Scope = "TASKS"
)

// Scopes returns every supported scope in canonical order.
func Scopes() []Scope {
	return []Scope{ScopeClients, ScopeProjects, ScopeTasks}
}

// ParseScope parses a scope name case-insensitively.
func ParseScope(raw string) (Scope, error) {
	scope := Scope(strings.ToUpper(strings.TrimSpace(raw)))
	if !scope.Valid() {
		return "", ErrInvalidScope
	}
	return scope, nil
}

// Valid reports whether s is a supported scope.
func (s Scope) Valid() bool {
	return slices.Contains(Scopes(), s)
}

// ScopeNames returns the lower-case wire names of every scope.
func ScopeNames() []string {
	names := make([]string, 0, len(Scopes()))
	for _, scope := range Scopes() {
		names = append(names, strings.ToLower(string(scope)))
	}
	return names
}
