package textnorm

// Similarity scores how close two metadata strings are after normalization,
// on a [0,1] scale. Input that is empty, or normalizes to empty, on either
// side scores 0; identical non-empty normalized forms score 1. Otherwise the score is 1 - d/maxLen where d is the optimal
// string alignment Damerau-Levenshtein distance (unit-cost insert, delete,
// substitute, and adjacent transposition). Counting transpositions keeps
// typo'd titles from scraped metadata ("hlelo" vs "hello") above the plain
// Levenshtein score. Symmetric in its arguments.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	na := Normalize(a)
	nb := Normalize(b)
	// Bracket-only junk normalizes to "", and two empty strings are not a
	// perfect match, so the empty check runs before the equality check.
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	ra := []rune(na)
	rb := []rune(nb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	d := osaDistance(ra, rb)
	return 1 - float64(d)/float64(maxLen)
}

// osaDistance computes the optimal string alignment variant of the
// Damerau-Levenshtein distance. Each substring may be transposed at most
// once, which is all the tolerance catalog typos need.
func osaDistance(a, b []rune) int {
	la, lb := len(a), len(b)

	prev2 := make([]int, lb+1) // row i-2
	prev := make([]int, lb+1)  // row i-1
	curr := make([]int, lb+1)  // row i

	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}

			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if tr := prev2[j-2] + 1; tr < min {
					min = tr
				}
			}

			curr[j] = min
		}
		prev2, prev, curr = prev, curr, prev2
	}

	return prev[lb]
}
