package keyword

// TokenJaccard computes the Jaccard index between the token sets of two strings.
// Returns 1.0 for two empty strings.
func TokenJaccard(a, b string) float64 {
	ta := TokenizeText(a)
	tb := TokenizeText(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}
	seen := make(map[string]bool, len(ta))
	for _, t := range ta {
		seen[t] = true
	}
	union := len(seen)
	both := 0
	counted := make(map[string]bool, len(tb))
	for _, t := range tb {
		if counted[t] {
			continue
		}
		counted[t] = true
		if seen[t] {
			both++
		} else {
			union++
		}
	}
	return float64(both) / float64(union)
}

// Levenshtein computes the edit distance between two strings, by rune.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// LevenshteinRatio normalizes edit distance to a similarity in [0,1], where 1.0
// means identical strings.
func LevenshteinRatio(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(longest)
}
