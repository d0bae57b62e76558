package types

// Language identifies the language a chat message was written in, as far as
// the keyword-based classifier can tell.
type Language string

const (
	// LangItalian is Italian.
	LangItalian Language = "it"
	// LangEnglish is English.
	LangEnglish Language = "en"
	// LangSpanish is Spanish.
	LangSpanish Language = "es"
	// LangPortuguese is Portuguese.
	LangPortuguese Language = "pt"
	// LangUnknown means no supported language could be detected.
	LangUnknown Language = "unknown"
)

// IntentAction is the cart action a message expresses.
type IntentAction string

const (
	// IntentAdd means the customer wants to put something in the cart.
	IntentAdd IntentAction = "add"
	// IntentRemove means the customer wants to take something out.
	IntentRemove IntentAction = "remove"
	// IntentView means the customer wants to see the cart.
	IntentView IntentAction = "view"
	// IntentNone means the message expresses no cart intent at all.
	IntentNone IntentAction = "none"
)

// CartIntent is the structured interpretation of a single chat message.
// It is derived fresh per message and never persisted.
type CartIntent struct {
	Action     IntentAction `json:"action"`
	Confidence float64      `json:"confidence"` // [0,1]
	Language   Language     `json:"language"`

	// ExtractedQuantity is the quantity the customer asked for.
	// Defaults to 1 when the message carries a cart action but no
	// explicit quantity; zero when there is no cart action at all.
	ExtractedQuantity int `json:"extracted_quantity,omitempty"`

	// ExtractedProductReference is the free-text product mention that
	// followed the verb, if any. Only populated for add intents.
	ExtractedProductReference string `json:"extracted_product_reference,omitempty"`
}

// HasCartIntent reports whether the message expressed any cart action.
func (i CartIntent) HasCartIntent() bool {
	return i.Action != IntentNone
}
