package core

import (
	"sort"

	"github.com/filmgrain/groupwatch/internal/domain"
)

// Elect picks the authoritative member for a roster: earliest JoinedAt
// wins, equal timestamps break by identifier so every peer agrees without
// a consensus round. Pure; callers re-invoke it on every roster change.
func Elect(members []domain.Member) (string, bool) {
	if len(members) == 0 {
		return "", false
	}
	sorted := make([]domain.Member, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].JoinedAt != sorted[j].JoinedAt {
			return sorted[i].JoinedAt < sorted[j].JoinedAt
		}
		return sorted[i].Identifier < sorted[j].Identifier
	})
	return sorted[0].Identifier, true
}
