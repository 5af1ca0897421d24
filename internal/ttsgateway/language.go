package ttsgateway

// charSets maps a language code to the set of runes considered
// characteristic of it, beyond plain ASCII letters.
var charSets = map[string][]rune{
	"es": []rune("áéíóúñ¿¡"),
	"fr": []rune("àâçéèêëîïôûùü"),
	"de": []rune("äöüß"),
}

// DetectLanguage implements spec.md §4.3's "cheap heuristic: longest-match
// over per-language character sets", falling back to defaultLanguage when
// no language-specific characters are found.
func DetectLanguage(text, defaultLanguage string) string {
	counts := make(map[string]int, len(charSets))
	for _, r := range text {
		for lang, set := range charSets {
			for _, c := range set {
				if r == c {
					counts[lang]++
				}
			}
		}
	}

	best := defaultLanguage
	bestCount := 0
	for lang, n := range counts {
		if n > bestCount {
			best, bestCount = lang, n
		}
	}
	return best
}
