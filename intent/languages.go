package intent

import "github.com/gelsogrove/shopME-sub006/types"

// languageKeywords holds the keyword sets used to detect a cart intent in one
// language. All entries are lowercase with diacritics stripped, matching the
// normalization applied to incoming messages.
type languageKeywords struct {
	language types.Language

	// cartNouns are the words that make a message cart-related at all.
	// Without one of these the classifier refuses to see a cart intent,
	// trading recall for precision on ordinary product chit-chat.
	cartNouns []string

	addVerbs    []string
	removeVerbs []string
	viewVerbs   []string

	// stopWords are articles and prepositions stripped from an extracted
	// product reference.
	stopWords []string
}

// keywordSets is scanned in order; the first set whose cart noun matches
// determines the message language.
var keywordSets = []languageKeywords{
	{
		language:    types.LangItalian,
		cartNouns:   []string{"carrello"},
		addVerbs:    []string{"aggiungi", "aggiungere", "aggiungilo", "metti", "mettere", "inserisci"},
		removeVerbs: []string{"togli", "rimuovi", "rimuovere", "elimina", "leva"},
		viewVerbs:   []string{"mostra", "mostrami", "vedi", "visualizza", "vedere", "guarda"},
		stopWords: []string{
			"il", "lo", "la", "i", "gli", "le", "un", "uno", "una",
			"al", "allo", "alla", "ai", "agli", "alle", "nel", "nello", "nella",
			"di", "del", "dello", "della", "dei", "degli", "delle", "mio", "a", "in", "e",
		},
	},
	{
		language:    types.LangEnglish,
		cartNouns:   []string{"cart", "basket"},
		addVerbs:    []string{"add", "put", "insert", "place"},
		removeVerbs: []string{"remove", "delete", "drop", "take"},
		viewVerbs:   []string{"show", "view", "see", "display", "check"},
		stopWords: []string{
			"a", "an", "the", "some", "of", "to", "in", "into", "my", "me", "please", "and",
		},
	},
	{
		language:    types.LangSpanish,
		cartNouns:   []string{"carrito", "cesta"},
		addVerbs:    []string{"anade", "anadir", "agrega", "agregar", "pon", "poner", "mete"},
		removeVerbs: []string{"quita", "quitar", "elimina", "remueve", "saca"},
		viewVerbs:   []string{"muestra", "muestrame", "ver", "ensena", "mira"},
		stopWords: []string{
			"el", "la", "los", "las", "un", "una", "unos", "unas",
			"al", "a", "en", "de", "del", "mi", "por", "favor", "y",
		},
	},
	{
		language:    types.LangPortuguese,
		cartNouns:   []string{"carrinho", "cesto"},
		addVerbs:    []string{"adiciona", "adicionar", "coloca", "colocar", "poe", "insere"},
		removeVerbs: []string{"remove", "remover", "tira", "retira", "exclui"},
		viewVerbs:   []string{"mostra", "mostrar", "ver", "exibe", "veja"},
		stopWords: []string{
			"o", "a", "os", "as", "um", "uma", "ao", "aos",
			"no", "na", "nos", "nas", "de", "do", "da", "em", "meu", "e",
		},
	},
}

// numberWords maps spelled-out quantities (one through ten, all four
// languages, diacritics stripped) to their value. Overlaps between languages
// are harmless: identical spellings always carry the same value.
var numberWords = map[string]int{
	// English
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	// Italian
	"uno": 1, "una": 1, "due": 2, "tre": 3, "quattro": 4, "cinque": 5,
	"sei": 6, "sette": 7, "otto": 8, "nove": 9, "dieci": 10,
	// Spanish
	"un": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	// Portuguese (spellings shared with Spanish or Italian are listed once above)
	"um": 1, "uma": 1, "dois": 2, "duas": 2, "oito": 8, "dez": 10,
}
