package types

// RoutePath is the execution strategy chosen for a message.
type RoutePath string

const (
	// PathDirectFunction executes a cart function directly, no catalog search.
	PathDirectFunction RoutePath = "direct_function"
	// PathSearchAugmented resolves a free-text product name against the
	// catalog before (or instead of) mutating the cart.
	PathSearchAugmented RoutePath = "search_augmented"
	// PathHybrid is chosen when the message carries mixed signals and both
	// strategies are plausible.
	PathHybrid RoutePath = "hybrid"
)

// RouteAction refines the path with the concrete step to take.
type RouteAction string

const (
	// ActionSearchThenAdd searches the catalog, then adds the resolved product.
	ActionSearchThenAdd RouteAction = "search_then_add"
	// ActionDirectFunction calls the cart function for the classified intent.
	ActionDirectFunction RouteAction = "direct_function"
	// ActionDisambiguation asks the customer to pick from shown candidates.
	ActionDisambiguation RouteAction = "disambiguation"
	// ActionContextLookup resolves an ordinal answer against the last
	// candidate list stored in conversation context.
	ActionContextLookup RouteAction = "context_lookup"
)

// RoutingDecision is the ephemeral outcome of routing a single message.
type RoutingDecision struct {
	Path       RoutePath   `json:"path"`
	Action     RouteAction `json:"action"`
	Confidence float64     `json:"confidence"`
	Rationale  string      `json:"rationale"`

	// Intent carries the classification the decision was based on, so the
	// dispatcher does not need to classify twice.
	Intent CartIntent `json:"intent"`
}
