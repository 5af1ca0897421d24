package wakedetector

// damerauLevenshtein computes the Damerau-Levenshtein distance between a
// and b: the minimum number of insertions, deletions, substitutions, and
// adjacent transpositions needed to turn a into b. Wake-phrase ASR errors
// are dominated by transpositions ("raevn" for "raven"), which a plain
// Levenshtein distance charges two edits for but this charges one, and
// doubled letters, which cost one insertion under either distance.
func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// d[i][j] = distance between a[:i] and b[:j].
	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			best := min3(del, ins, sub)

			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				trans := d[i-2][j-2] + cost
				if trans < best {
					best = trans
				}
			}

			d[i][j] = best
		}
	}

	return d[la][lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// fuzzyMatch reports whether phrase appears within text (as a contiguous
// run of len(phrase) runes, slid across text) within maxDistance edits,
// and if so the rune offset and length of the best-matching window and its
// distance.
func fuzzyMatch(text, phrase string, maxDistance int) (offset int, length int, distance int, ok bool) {
	rt := []rune(text)
	rp := []rune(phrase)
	if len(rp) == 0 {
		return 0, 0, 0, false
	}

	best := -1
	bestLen := 0
	bestDist := maxDistance + 1

	// Slide a window of length len(phrase) (+/- maxDistance tolerance for
	// inserted/deleted characters) across text.
	for start := 0; start < len(rt); start++ {
		for winLen := len(rp) - maxDistance; winLen <= len(rp)+maxDistance; winLen++ {
			if winLen <= 0 || start+winLen > len(rt) {
				continue
			}
			window := string(rt[start : start+winLen])
			dist := damerauLevenshtein(window, phrase)
			if dist <= bestDist {
				bestDist = dist
				best = start
				bestLen = winLen
			}
		}
	}

	if best == -1 || bestDist > maxDistance {
		return 0, 0, 0, false
	}
	return best, bestLen, bestDist, true
}
