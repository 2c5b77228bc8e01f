// Package identity decides whether competitor records denote the same person.
package identity

import (
	"strings"

	"github.com/okian/tatami/internal/domain/types"
)

// SameCompetitor reports whether a and b are the same physical person.
//
// Ids match when both are present and equal. Otherwise the normalized
// (name, club) pairs must be equal with neither part empty; a name alone
// never matches. The relation is symmetric.
func SameCompetitor(a, b types.Competitor) bool {
	if a.ID != "" && a.ID == b.ID {
		return true
	}
	an, ac := normalize(a.Name), normalize(a.Club)
	if an == "" || ac == "" {
		return false
	}
	return an == normalize(b.Name) && ac == normalize(b.Club)
}

// FindRosterOverlap returns the competitors of a that also appear in b,
// in a's roster order, each listed once.
func FindRosterOverlap(a, b types.Category) []types.Competitor {
	var out []types.Competitor
	for _, ca := range a.Roster {
		for _, cb := range b.Roster {
			if SameCompetitor(ca, cb) {
				out = append(out, ca)
				break
			}
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
