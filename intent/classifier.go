// Package intent turns free-text chat messages into structured cart intents.
//
// Classification is keyword-based and deliberately conservative: a message
// with no recognized cart noun in any supported language is never treated as
// a cart intent, whatever else it says. This keeps ordinary product questions
// ("do you have mozzarella?") from mutating carts.
package intent

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gelsogrove/shopME-sub006/types"
)

// Confidence tiers. These are fixed by contract, not tuned.
const (
	// ConfidenceViewDefault applies when a cart noun is present with no
	// recognizable verb.
	ConfidenceViewDefault = 0.6
	// ConfidenceViewExplicit applies when a view verb matched.
	ConfidenceViewExplicit = 0.8
	// ConfidenceMutation applies when an add or remove verb matched.
	ConfidenceMutation = 0.9
)

var digitPattern = regexp.MustCompile(`\b(\d+)\b`)

// stripDiacritics removes combining marks so "añade" and "anade" compare equal.
var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Classify parses a raw chat message into a CartIntent. It is pure and
// deterministic: no I/O, no shared state.
func Classify(message string) types.CartIntent {
	normalized := Normalize(message)

	kw, noun := findCartNoun(normalized)
	if kw == nil {
		return types.CartIntent{
			Action:     types.IntentNone,
			Confidence: 0,
			Language:   types.LangUnknown,
		}
	}

	result := types.CartIntent{
		Language:          kw.language,
		ExtractedQuantity: extractQuantity(normalized),
	}

	// Verb sets are scanned in fixed priority: add beats remove beats view.
	if idx, verb, ok := findVerb(normalized, kw.addVerbs); ok {
		result.Action = types.IntentAdd
		result.Confidence = ConfidenceMutation
		result.ExtractedProductReference = extractProductReference(normalized, idx+len(verb), noun, kw)
		return result
	}
	if _, _, ok := findVerb(normalized, kw.removeVerbs); ok {
		result.Action = types.IntentRemove
		result.Confidence = ConfidenceMutation
		return result
	}
	if _, _, ok := findVerb(normalized, kw.viewVerbs); ok {
		result.Action = types.IntentView
		result.Confidence = ConfidenceViewExplicit
		return result
	}

	// Cart noun with no verb: assume the customer wants to look at it.
	result.Action = types.IntentView
	result.Confidence = ConfidenceViewDefault
	return result
}

// Normalize lowercases a message and strips diacritics. Exposed because the
// routing engine applies the same normalization before pattern checks.
func Normalize(message string) string {
	lowered := strings.ToLower(strings.TrimSpace(message))
	stripped, _, err := transform.String(stripDiacritics, lowered)
	if err != nil {
		return lowered
	}
	return stripped
}

// findCartNoun scans every language's cart nouns and returns the first
// matching keyword set along with the matched noun.
func findCartNoun(msg string) (*languageKeywords, string) {
	for i := range keywordSets {
		kw := &keywordSets[i]
		for _, noun := range kw.cartNouns {
			if _, ok := findWord(msg, noun); ok {
				return kw, noun
			}
		}
	}
	return nil, ""
}

// findVerb returns the position and text of the first verb from the set that
// appears as a whole word in the message.
func findVerb(msg string, verbs []string) (int, string, bool) {
	best := -1
	var bestVerb string
	for _, verb := range verbs {
		if idx, ok := findWord(msg, verb); ok {
			if best == -1 || idx < best {
				best = idx
				bestVerb = verb
			}
		}
	}
	if best == -1 {
		return 0, "", false
	}
	return best, bestVerb, true
}

// findWord locates word as a whole word (letter/digit boundaries) in msg.
func findWord(msg, word string) (int, bool) {
	from := 0
	for {
		idx := strings.Index(msg[from:], word)
		if idx < 0 {
			return 0, false
		}
		idx += from
		if isBoundary(msg, idx-1) && isBoundary(msg, idx+len(word)) {
			return idx, true
		}
		from = idx + len(word)
	}
}

func isBoundary(msg string, i int) bool {
	if i < 0 || i >= len(msg) {
		return true
	}
	r := rune(msg[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// extractQuantity finds the first numeral or spelled-out number (one through
// ten, any supported language) in the message. Absent a quantity, 1.
func extractQuantity(msg string) int {
	if m := digitPattern.FindString(msg); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			return n
		}
	}
	for _, word := range strings.Fields(msg) {
		if n, ok := numberWords[strings.Trim(word, ".,!?;:")]; ok {
			return n
		}
	}
	return 1
}

// extractProductReference pulls the product mention out of an add message:
// the text following the verb, minus the cart noun, stop words and quantity
// tokens. References of two characters or fewer are discarded as noise.
func extractProductReference(msg string, afterVerb int, noun string, kw *languageKeywords) string {
	if afterVerb >= len(msg) {
		return ""
	}
	tail := msg[afterVerb:]

	stop := make(map[string]struct{}, len(kw.stopWords))
	for _, w := range kw.stopWords {
		stop[w] = struct{}{}
	}

	var kept []string
	for _, word := range strings.Fields(tail) {
		word = strings.Trim(word, ".,!?;:")
		if word == "" || word == noun {
			continue
		}
		if _, isStop := stop[word]; isStop {
			continue
		}
		if _, isNumber := numberWords[word]; isNumber {
			continue
		}
		if digitPattern.MatchString(word) {
			continue
		}
		kept = append(kept, word)
	}

	ref := strings.Join(kept, " ")
	if len(ref) <= 2 {
		return ""
	}
	return ref
}
