package matching

import "unicode/utf8"

// CharacterOverlap returns the number of characters shared by a and b
// (counted as multisets) divided by the longer length
func CharacterOverlap(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}

	counts := make(map[rune]int, la)
	for _, r := range a {
		counts[r]++
	}

	shared := 0
	for _, r := range b {
		if counts[r] > 0 {
			counts[r]--
			shared++
		}
	}

	return float64(shared) / float64(longest)
}

// containmentRatio returns the shorter length over the longer length
func containmentRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	return float64(min(la, lb)) / float64(longest)
}

func commonPrefixLength(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
