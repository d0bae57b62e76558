package contextstore

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gelsogrove/shopME-sub006/intent"
)

// Ordinal words per language, mapped to 1-based positions. Each language's
// map is independent: identical spellings across languages (es/it/pt all have
// "quinto") are looked up per map and must not be assumed to share entries.
var (
	englishOrdinals = map[string]int{
		"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	}
	italianOrdinals = map[string]int{
		"primo": 1, "prima": 1, "secondo": 2, "seconda": 2,
		"terzo": 3, "terza": 3, "quarto": 4, "quarta": 4,
		"quinto": 5, "quinta": 5,
	}
	spanishOrdinals = map[string]int{
		"primero": 1, "primera": 1, "primer": 1, "segundo": 2, "segunda": 2,
		"tercero": 3, "tercera": 3, "tercer": 3, "cuarto": 4, "cuarta": 4,
		"quinto": 5, "quinta": 5,
	}
	portugueseOrdinals = map[string]int{
		"primeiro": 1, "primeira": 1, "segundo": 2, "segunda": 2,
		"terceiro": 3, "terceira": 3, "quarto": 4, "quarta": 4,
		"quinto": 5, "quinta": 5,
	}
)

var ordinalMaps = []map[string]int{
	englishOrdinals, italianOrdinals, spanishOrdinals, portugueseOrdinals,
}

var ordinalDigits = regexp.MustCompile(`\b(\d+)\b`)

// IsOrdinalReference reports whether a message reads as an ordinal or
// numeric pick ("2", "the first one", "el segundo"). The routing engine uses
// it to recognize an answer to an open disambiguation question.
func IsOrdinalReference(message string) bool {
	return parseOrdinal(intent.Normalize(message)) > 0
}

// parseOrdinal extracts a 1-based position from a reference like "2",
// "the first one" or "il primo". Returns 0 when no ordinal is present.
func parseOrdinal(reference string) int {
	if m := ordinalDigits.FindString(reference); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			return n
		}
	}

	for _, word := range strings.Fields(reference) {
		word = strings.Trim(word, ".,!?;:")
		for _, ordinals := range ordinalMaps {
			if n, ok := ordinals[word]; ok {
				return n
			}
		}
	}
	return 0
}
