package contact

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// MaxSuggestions bounds the "did you mean" list returned by FindByName.
const MaxSuggestions = 3

// FindByName resolves a display name (normalized comparison).
// On a miss it returns up to MaxSuggestions display names ordered by edit distance.
func FindByName(contacts []Contact, name string) (Contact, []string, bool) {
	want := Normalize(name)
	if want == "" {
		return Contact{}, nil, false
	}

	for _, c := range contacts {
		if Normalize(c.DisplayName) == want {
			return c, nil, true
		}
	}

	type scored struct {
		name string
		dist int
	}
	candidates := make([]scored, 0, len(contacts))
	for _, c := range contacts {
		if c.DisplayName == "" {
			continue
		}
		d := levenshtein.ComputeDistance(want, Normalize(c.DisplayName))
		// Anything needing more edits than the query has runes is noise.
		if d > len([]rune(want)) {
			continue
		}
		candidates = append(candidates, scored{name: c.DisplayName, dist: d})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	suggestions := make([]string, 0, MaxSuggestions)
	for _, s := range candidates {
		if len(suggestions) == MaxSuggestions {
			break
		}
		suggestions = append(suggestions, s.name)
	}
	return Contact{}, suggestions, false
}
