package registry

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSuggestDistance caps edit distance for did-you-mean hints.
const maxSuggestDistance = 3

// SuggestFilter finds the closest known filter name. Edit distance is tried
// first; a fuzzy subsequence match covers truncated names such as
// "money_with" -> "money_with_currency".
func (r *Registry) SuggestFilter(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	limit := min(maxSuggestDistance, max(1, len(name)/2))

	best, bestDist := "", limit+1
	for _, cand := range r.filterNames {
		d := fuzzy.LevenshteinDistance(name, cand)
		if d < bestDist {
			best, bestDist = cand, d
		}
	}
	if best != "" {
		return best, true
	}

	if len(name) < 4 {
		return "", false
	}
	ranks := fuzzy.RankFindFold(name, r.filterNames)
	if len(ranks) == 0 {
		return "", false
	}
	sort.Sort(ranks)
	return ranks[0].Target, true
}
