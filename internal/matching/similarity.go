package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// ContainmentScore is the distance given when one string contains the other.
const ContainmentScore = 0.1

// Distance returns a normalized edit distance in [0, 1] between two strings,
// compared lower-cased and trimmed. Identical strings score 0, containment
// scores ContainmentScore, and anything else scores the Levenshtein distance
// divided by the longer string's length. An empty string against a non-empty
// one scores 1.
func Distance(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 0
	}
	// Every string contains "", so this case is checked before containment
	// and scores as fully different instead of ContainmentScore.
	if a == "" || b == "" {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return ContainmentScore
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

// TextScore is the worse of the tag and description distances. Taking the
// maximum means both fields must look alike; one matching field cannot carry
// unrelated text on the other.
func TextScore(rowTag, itemTag, rowDesc, itemDesc string) float64 {
	return max(Distance(rowTag, itemTag), Distance(rowDesc, itemDesc))
}
