package reason

import "strings"

// wordOverlap computes the overlap ratio between two hypotheses: the number
// of distinct words shared by both over the number of distinct words in
// either. Comparison is lowercase and whitespace-tokenized. Two empty
// hypotheses count as identical.
func wordOverlap(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	shared := 0
	union := len(wordsB)
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
