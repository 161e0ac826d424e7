package chat

import (
	"strings"

	"github.com/samber/lo"
)

// FilterContacts returns the contacts whose display name contains query,
// case-insensitively. An empty query returns the full list unchanged
// (server order is preserved; no client-side reordering by recency).
func FilterContacts(contacts []Contact, query string) []Contact {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return contacts
	}
	return lo.Filter(contacts, func(c Contact, _ int) bool {
		return strings.Contains(strings.ToLower(c.DisplayName()), q)
	})
}
