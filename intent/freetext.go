package intent

import (
	"strings"
	"sync"
)

// vocabulary collects every keyword the classifier knows, across all
// languages, for fast membership checks.
var vocabulary = sync.OnceValue(func() map[string]struct{} {
	out := make(map[string]struct{})
	for _, kw := range keywordSets {
		for _, groups := range [][]string{kw.cartNouns, kw.addVerbs, kw.removeVerbs, kw.viewVerbs, kw.stopWords} {
			for _, word := range groups {
				out[word] = struct{}{}
			}
		}
	}
	return out
})

// FreeText returns the tokens of a message that are not recognized cart
// vocabulary in any supported language: cart nouns, verbs, articles,
// quantity words and numerals are all removed. What survives is the best
// available guess at a free-text product mention, or "" when the message is
// pure command vocabulary.
func FreeText(message string) string {
	known := vocabulary()

	var kept []string
	for _, word := range strings.Fields(Normalize(message)) {
		word = strings.Trim(word, ".,!?;:")
		if word == "" {
			continue
		}
		if _, ok := known[word]; ok {
			continue
		}
		if _, ok := numberWords[word]; ok {
			continue
		}
		if digitPattern.MatchString(word) {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}
