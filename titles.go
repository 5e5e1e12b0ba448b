package slideflow

import (
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// titleContinuationScore is the similarity, 0 to 100, from which two
// consecutive slide titles count as one topic continued.
const titleContinuationScore = 92

// normalizeTitle prepares a title for fuzzy comparison: NFKC-normalized,
// lowercased, whitespace collapsed.
func normalizeTitle(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// titleSimilarity scores two titles from 0 (unrelated) to 100 (identical)
// using the edit distance of their normalized forms.
func titleSimilarity(a, b string) int {
	a, b = normalizeTitle(a), normalizeTitle(b)
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	d := levenshtein.Distance(a, b, nil)
	return 100 - (100*d+longest/2)/longest
}
