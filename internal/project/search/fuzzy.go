package search

import (
	"sort"
	"strings"
)

// PathMatch is one candidate from fuzzy path matching, with the byte
// positions that matched so a picker can highlight them.
type PathMatch struct {
	Path      string
	Score     float64
	Positions []int
}

// FuzzyPaths ranks candidate paths against a subsequence query, the way
// a file picker filters as the user types. An empty query returns all
// candidates in input order with a neutral score.
func FuzzyPaths(query string, candidates []string) []PathMatch {
	if query == "" {
		out := make([]PathMatch, len(candidates))
		for i, c := range candidates {
			out[i] = PathMatch{Path: c, Score: 1}
		}
		return out
	}

	var out []PathMatch
	for _, candidate := range candidates {
		score, positions := fuzzyScore(query, candidate)
		if score > 0 {
			out = append(out, PathMatch{Path: candidate, Score: score, Positions: positions})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// fuzzyScore matches query as a case-insensitive subsequence of target
// and scores the match. Consecutive runs, hits on word or path segment
// starts, and early first hits all score higher; a target that is mostly
// matched beats a long target with scattered hits.
func fuzzyScore(query, target string) (float64, []int) {
	q := strings.ToLower(query)
	t := strings.ToLower(target)
	if len(q) > len(t) {
		return 0, nil
	}
	if q == t {
		positions := make([]int, len(q))
		for i := range positions {
			positions[i] = i
		}
		return 1, positions
	}

	positions := make([]int, 0, len(q))
	qi := 0
	for ti := 0; ti < len(t) && qi < len(q); ti++ {
		if t[ti] == q[qi] {
			positions = append(positions, ti)
			qi++
		}
	}
	if qi != len(q) {
		return 0, nil
	}

	score := float64(len(q)) / float64(len(t)) * 0.5

	if len(q) > 1 {
		consecutive := 0
		for i := 1; i < len(positions); i++ {
			if positions[i] == positions[i-1]+1 {
				consecutive++
			}
		}
		score += float64(consecutive) / float64(len(q)-1) * 0.3
	}

	boundaries := 0
	for _, idx := range positions {
		if idx == 0 || isSegmentStart(t[idx-1]) {
			boundaries++
		}
	}
	score += float64(boundaries) / float64(len(q)) * 0.15

	score += (1 - float64(positions[0])/float64(len(t))) * 0.05

	if score > 0.95 {
		score = 0.95
	}
	return score, positions
}

func isSegmentStart(prev byte) bool {
	switch prev {
	case '/', '\\', '_', '-', '.', ' ':
		return true
	}
	return false
}
