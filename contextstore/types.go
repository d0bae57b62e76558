package contextstore

import (
	"time"

	"github.com/gelsogrove/shopME-sub006/types"
)

// ContextKind classifies what a conversation context is remembering, and
// drives its time-to-live: disambiguation windows are short, the rest long.
type ContextKind string

const (
	// KindDisambiguation holds a candidate list awaiting an ordinal answer.
	KindDisambiguation ContextKind = "disambiguation"
	// KindCartOperation holds the outcome of the last cart operation.
	KindCartOperation ContextKind = "cart_operation"
	// KindGeneral is everything else worth remembering between turns.
	KindGeneral ContextKind = "general"
)

// Default context windows.
const (
	// DefaultDisambiguationTTL bounds how long an ordinal answer can refer
	// back to a shown candidate list.
	DefaultDisambiguationTTL = 5 * time.Minute
	// DefaultGeneralTTL bounds all other conversation memory.
	DefaultGeneralTTL = 30 * time.Minute
	// DefaultSweepInterval is how often the background sweep evicts
	// expired contexts.
	DefaultSweepInterval = 60 * time.Second
)

// ConversationContext is the short-lived, per-conversation memory carried
// across turns. Exactly one live instance exists per (customer, workspace);
// every update overwrites it wholesale.
type ConversationContext struct {
	CustomerID  string      `json:"customer_id"`
	WorkspaceID string      `json:"workspace_id"`
	Kind        ContextKind `json:"kind"`

	// LastProductCandidates is the ordered list the customer was last
	// shown, the target of ordinal references like "the second one".
	LastProductCandidates []types.ProductCandidate `json:"last_product_candidates,omitempty"`

	// LastSearchQuery is the query that produced the candidates.
	LastSearchQuery string `json:"last_search_query,omitempty"`

	// LastCartOperationResult feeds the next turn's routing decision.
	LastCartOperationResult *types.CartOperationResult `json:"last_cart_operation_result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the context is past its window at the given time.
func (c *ConversationContext) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Key returns the store key for a (customer, workspace) pair.
func Key(customerID, workspaceID string) string {
	return workspaceID + ":" + customerID
}
