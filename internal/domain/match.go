package domain

import (
	"sort"
	"strings"
)

// Match is the outcome of resolving a raw site token.
type Match struct {
	Code string
	// Ambiguous is set when the token also contains a catalog code that is
	// not part of the chosen one, e.g. "peav@oldb / lull@lull".
	Ambiguous  bool
	Candidates []string
}

// SiteMatcher resolves free-text site labels to catalog codes by substring
// containment. The longest contained code wins; equal lengths fall back to
// catalog order.
type SiteMatcher struct {
	codes []string // longest first, then catalog order
}

// NewSiteMatcher builds a matcher over the catalog's codes.
func NewSiteMatcher(c *Catalog) *SiteMatcher {
	codes := c.Codes()
	sort.SliceStable(codes, func(i, j int) bool {
		return len(codes[i]) > len(codes[j])
	})
	return &SiteMatcher{codes: codes}
}

// Resolve returns the matched code for token. ok is false when no catalog
// code occurs in the token.
func (m *SiteMatcher) Resolve(token string) (Match, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return Match{}, false
	}

	var candidates []string
	for _, code := range m.codes {
		if strings.Contains(token, code) {
			candidates = append(candidates, code)
		}
	}
	if len(candidates) == 0 {
		return Match{}, false
	}

	winner := candidates[0]
	match := Match{Code: winner}
	if len(candidates) > 1 {
		match.Candidates = candidates
		for _, other := range candidates[1:] {
			if !strings.Contains(winner, other) {
				match.Ambiguous = true
				break
			}
		}
	}
	return match, true
}
