package service

import "strings"

// CapabilityFunc reports whether an organizational role may create, edit and
// retire rosters.
type CapabilityFunc func(actorRole string) bool

// NewCapabilityTable builds a CapabilityFunc from the roles allowed to manage
// rosters. Roles compare case-insensitively.
func NewCapabilityTable(roles []string) CapabilityFunc {
	table := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = normalizeRole(role)
		if role == "" {
			continue
		}
		table[role] = struct{}{}
	}

	return func(actorRole string) bool {
		_, ok := table[normalizeRole(actorRole)]
		return ok
	}
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// Actor is the member performing an administrative action.
type Actor struct {
	ID   string
	Role string
}
