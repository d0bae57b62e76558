// Package routing picks an execution path for a classified chat message.
//
// The decision combines three signals: the structured cart intent, the shape
// of the message itself (product codes, free-text product mentions), and the
// live conversation context (an open disambiguation question). Rules are
// evaluated in a fixed priority order; the first match wins, so two rules
// never compete on confidence.
package routing

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gelsogrove/shopME-sub006/contextstore"
	"github.com/gelsogrove/shopME-sub006/events"
	"github.com/gelsogrove/shopME-sub006/intent"
	"github.com/gelsogrove/shopME-sub006/logger"
	"github.com/gelsogrove/shopME-sub006/types"
)

// Confidence levels assigned by each rule. Fixed tiers, not tuned scores.
const (
	ConfidenceDirectCommand = 0.95
	ConfidenceProductCode   = 0.9
	ConfidenceContextLookup = 0.85
	ConfidenceProductLookup = 0.8
	ConfidenceMixedSignals  = 0.6
	ConfidenceFallback      = 0.3
)

// searchThenAddThreshold is the minimum intent confidence for committing to
// the search-then-add flow instead of a plain product lookup.
const searchThenAddThreshold = 0.7

// codePattern matches a structured product code ("moz-01", "sku1234") after
// message normalization. Deliberately loose: a false positive still lands on
// the direct path, where an unknown code fails cleanly.
var codePattern = regexp.MustCompile(`\b[a-z]{2,6}-?\d{2,6}\b`)

// clearPattern matches the empty-the-cart verbs of every supported language.
// The intent classifier does not model "clear" as a distinct action, so the
// engine recognizes these directly.
var clearPattern = regexp.MustCompile(`\b(svuota|svuotare|clear|empty|vacia|vaciar|esvazia|esvaziar|limpa)\b`)

// smalltalk words are never product mentions. Without this list every
// greeting would look like a product lookup instead of falling through to
// the low-confidence default.
var smalltalk = map[string]struct{}{
	"ciao": {}, "hello": {}, "hi": {}, "hey": {}, "hola": {}, "ola": {},
	"grazie": {}, "thanks": {}, "thank": {}, "gracias": {}, "obrigado": {}, "obrigada": {},
	"ok": {}, "okay": {}, "yes": {}, "si": {}, "sim": {}, "no": {}, "nao": {},
	"buongiorno": {}, "buonasera": {}, "buenas": {}, "buenos": {}, "bom": {}, "boa": {},
	"dia": {}, "dias": {}, "tarde": {}, "sera": {}, "morning": {}, "good": {},
}

// Engine turns a message into a RoutingDecision.
type Engine struct {
	contexts *contextstore.Service
	bus      *events.EventBus
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventBus emits a routing.decided event for every decision.
func WithEventBus(bus *events.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// NewEngine builds an Engine. The context store supplies the live
// disambiguation window used by the context-lookup rule; it may be nil, in
// which case that rule never fires.
func NewEngine(contexts *contextstore.Service, opts ...Option) *Engine {
	e := &Engine{contexts: contexts}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Route classifies the message and applies the decision rules in priority
// order. It never fails: an unclassifiable message routes to the search path
// at low confidence, because dropping a paying customer's request is worse
// than an unnecessary search.
func (e *Engine) Route(ctx context.Context, message, customerID, workspaceID string) types.RoutingDecision {
	ci := intent.Classify(message)
	normalized := intent.Normalize(message)

	code := ProductCode(message)
	productName := ProductMention(message, ci)
	clear := IsClearCommand(message)

	decision := e.decide(ctx, ci, customerID, workspaceID, normalized, code, productName, clear)
	decision.Intent = ci

	logger.DebugContext(ctx, "routing decision",
		"path", decision.Path,
		"action", decision.Action,
		"confidence", decision.Confidence,
		"rationale", logger.RedactMessage(decision.Rationale),
	)
	events.NewEmitter(e.bus, customerID, workspaceID).RoutingDecided(decision)

	return decision
}

func (e *Engine) decide(ctx context.Context, ci types.CartIntent, customerID, workspaceID, normalized, code, productName string, clear bool) types.RoutingDecision {
	explicitView := ci.Action == types.IntentView && ci.Confidence >= intent.ConfidenceViewExplicit

	// Rule 1: explicit show/clear of the cart, nothing else in the message.
	if (explicitView || clear) && productName == "" && code == "" {
		return types.RoutingDecision{
			Path:       types.PathDirectFunction,
			Action:     types.ActionDirectFunction,
			Confidence: ConfidenceDirectCommand,
			Rationale:  "explicit cart command with no product mention",
		}
	}

	// Rule 2: a structured product code plus a cart action skips the search.
	if code != "" && (ci.HasCartIntent() || clear) {
		return types.RoutingDecision{
			Path:       types.PathDirectFunction,
			Action:     types.ActionDirectFunction,
			Confidence: ConfidenceProductCode,
			Rationale:  fmt.Sprintf("product code %q with a cart action", code),
		}
	}

	// Rule 3: a confident add with a free-text name must go through search,
	// because the name still has to be resolved against the catalog.
	if productName != "" && ci.Action == types.IntentAdd && ci.Confidence > searchThenAddThreshold {
		return types.RoutingDecision{
			Path:       types.PathSearchAugmented,
			Action:     types.ActionSearchThenAdd,
			Confidence: ci.Confidence,
			Rationale:  fmt.Sprintf("add intent with free-text product %q", productName),
		}
	}

	// Rule 4: the customer is answering an open disambiguation question.
	if contextstore.IsOrdinalReference(normalized) && e.hasLiveDisambiguation(ctx, customerID, workspaceID) {
		return types.RoutingDecision{
			Path:       types.PathDirectFunction,
			Action:     types.ActionContextLookup,
			Confidence: ConfidenceContextLookup,
			Rationale:  "ordinal answer to an open disambiguation question",
		}
	}

	// Rule 5: a product mention with no cart intent is a lookup, not yet a
	// mutation.
	if productName != "" && !ci.HasCartIntent() && !clear {
		return types.RoutingDecision{
			Path:       types.PathSearchAugmented,
			Action:     types.ActionDisambiguation,
			Confidence: ConfidenceProductLookup,
			Rationale:  fmt.Sprintf("product mention %q without a cart action", productName),
		}
	}

	// Rule 6: a cart command and a product mention in the same breath.
	if productName != "" && (ci.HasCartIntent() || clear) {
		return types.RoutingDecision{
			Path:       types.PathHybrid,
			Action:     types.ActionDirectFunction,
			Confidence: ConfidenceMixedSignals,
			Rationale:  "cart command mixed with a product mention",
		}
	}

	// Rule 7: nothing matched. Search is the path least likely to silently
	// drop the request.
	return types.RoutingDecision{
		Path:       types.PathSearchAugmented,
		Action:     types.ActionDisambiguation,
		Confidence: ConfidenceFallback,
		Rationale:  "unclassified message, defaulting to search",
	}
}

// hasLiveDisambiguation reports whether an unexpired candidate list is stored
// for the customer. Context store failures are treated as "no context": the
// decision degrades to a lower rule instead of failing the turn.
func (e *Engine) hasLiveDisambiguation(ctx context.Context, customerID, workspaceID string) bool {
	if e.contexts == nil {
		return false
	}
	cc, err := e.contexts.Get(ctx, customerID, workspaceID)
	if err != nil {
		logger.WarnContext(ctx, "context lookup failed during routing", "error", err)
		return false
	}
	return cc != nil && len(cc.LastProductCandidates) > 0
}

// IsClearCommand reports whether the message asks to empty the cart, in any
// supported language.
func IsClearCommand(message string) bool {
	return clearPattern.MatchString(intent.Normalize(message))
}

// ProductCode returns the first structured product code in the message, or
// "" when none is present.
func ProductCode(message string) string {
	return codePattern.FindString(intent.Normalize(message))
}

// ProductMention extracts the free-text product name from a message: the
// tokens that survive vocabulary, clear-verb, ordinal and smalltalk
// filtering. Ordinals are excluded so "aggiungi il secondo" reads as an
// answer to a disambiguation question, not as a product called "secondo".
func ProductMention(message string, ci types.CartIntent) string {
	source := ci.ExtractedProductReference
	if source == "" {
		source = intent.FreeText(message)
	}

	var kept []string
	for _, word := range strings.Fields(source) {
		if clearPattern.MatchString(word) {
			continue
		}
		if _, ok := smalltalk[word]; ok {
			continue
		}
		if contextstore.IsOrdinalReference(word) {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}
