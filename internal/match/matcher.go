// Package match classifies free-text transaction descriptions into
// categories using the keyword rules defined on each category.
package match

import (
	"strings"

	"kakeibo/internal/core"
)

// Matcher holds a snapshot of category rules. It is pure: the same snapshot
// and description always produce the same result, so a Matcher may be shared
// across goroutines once built.
type Matcher struct {
	categories []core.Category
}

// New builds a matcher over a category snapshot. The slice order is the
// creation order and doubles as the tie-break order: when several categories
// match a description, the first-defined one wins.
func New(categories []core.Category) *Matcher {
	return &Matcher{categories: categories}
}

// Classify returns the id of the first category of the given type whose
// keywords occur in the description, case-insensitively. The second return
// reports whether any category matched; no match is not an error.
func (m *Matcher) Classify(description string, txType core.FlowType) (int64, bool) {
	desc := strings.ToLower(description)
	for _, c := range m.categories {
		if c.Type != txType {
			continue
		}
		for _, kw := range c.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(desc, strings.ToLower(kw)) {
				return c.ID, true
			}
		}
	}
	return 0, false
}

// Resolve looks up a category id by exact, case-sensitive name among
// categories of the given type. Used when an import row names its category
// explicitly.
func (m *Matcher) Resolve(name string, txType core.FlowType) (int64, bool) {
	for _, c := range m.categories {
		if c.Type == txType && c.Name == name {
			return c.ID, true
		}
	}
	return 0, false
}
