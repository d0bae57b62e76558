// Package engine wires the classifier, routing engine, lock manager and
// state synchronizer into the full message-to-cart flow: route a chat
// message, run the chosen path, mutate the cart under the per-customer lock,
// resync the cached state and record the outcome in conversation context.
package engine

import (
	"context"
	"fmt"

	"github.com/gelsogrove/shopME-sub006/cartstate"
	"github.com/gelsogrove/shopME-sub006/contextstore"
	"github.com/gelsogrove/shopME-sub006/events"
	"github.com/gelsogrove/shopME-sub006/lock"
	"github.com/gelsogrove/shopME-sub006/logger"
	"github.com/gelsogrove/shopME-sub006/routing"
	"github.com/gelsogrove/shopME-sub006/storage"
	"github.com/gelsogrove/shopME-sub006/types"
)

// DefaultSearchLimit caps how many catalog candidates a free-text search
// brings back for disambiguation.
const DefaultSearchLimit = 5

// SmartCartRouter is the facade callers talk to. Route answers "what would
// you do with this message"; HandleMessage actually does it.
type SmartCartRouter struct {
	store       storage.CartStorage
	catalog     storage.CatalogSearch
	contexts    *contextstore.Service
	locks       *lock.Manager
	states      *cartstate.Synchronizer
	routes      *routing.Engine
	bus         *events.EventBus
	searchLimit int
}

// Option configures a SmartCartRouter.
type Option func(*SmartCartRouter)

// WithEventBus attaches an event bus for observability events.
func WithEventBus(bus *events.EventBus) Option {
	return func(r *SmartCartRouter) { r.bus = bus }
}

// WithSearchLimit overrides the candidate cap for free-text searches.
func WithSearchLimit(n int) Option {
	return func(r *SmartCartRouter) {
		if n > 0 {
			r.searchLimit = n
		}
	}
}

// NewSmartCartRouter assembles the facade from its collaborators.
func NewSmartCartRouter(
	store storage.CartStorage,
	catalog storage.CatalogSearch,
	contexts *contextstore.Service,
	locks *lock.Manager,
	states *cartstate.Synchronizer,
	opts ...Option,
) *SmartCartRouter {
	r := &SmartCartRouter{
		store:       store,
		catalog:     catalog,
		contexts:    contexts,
		locks:       locks,
		states:      states,
		searchLimit: DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.routes = routing.NewEngine(contexts, routing.WithEventBus(r.bus))
	return r
}

// Route classifies a message and picks an execution path without running it.
func (r *SmartCartRouter) Route(ctx context.Context, message, customerID, workspaceID string) types.RoutingDecision {
	return r.routes.Route(ctx, message, customerID, workspaceID)
}

// HandleMessage routes a message and executes the decision end to end.
// Business-rule failures (unknown product, insufficient stock, ambiguous
// reference) come back as Success=false results; only infrastructure
// failures are returned as errors.
func (r *SmartCartRouter) HandleMessage(ctx context.Context, message, customerID, workspaceID string) (*types.CartOperationResult, error) {
	ctx = logger.WithCustomer(ctx, customerID, workspaceID)
	decision := r.routes.Route(ctx, message, customerID, workspaceID)

	var (
		result *types.CartOperationResult
		err    error
	)
	switch decision.Action {
	case types.ActionSearchThenAdd:
		result, err = r.searchThenAdd(ctx, decision, customerID, workspaceID)
	case types.ActionContextLookup:
		result, err = r.contextLookup(ctx, decision, message, customerID, workspaceID)
	case types.ActionDisambiguation:
		result, err = r.productLookup(ctx, decision, message, customerID, workspaceID)
	default:
		result, err = r.runDirect(ctx, decision, message, customerID, workspaceID)
	}
	if err != nil {
		logger.ErrorContext(ctx, "message handling failed",
			"action", decision.Action,
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

// runDirect executes the direct-function path: show, clear, or a mutation
// addressed by an exact product code.
func (r *SmartCartRouter) runDirect(ctx context.Context, decision types.RoutingDecision, message, customerID, workspaceID string) (*types.CartOperationResult, error) {
	if routing.IsClearCommand(message) {
		return r.clearCart(ctx, customerID, workspaceID)
	}

	if code := routing.ProductCode(message); code != "" && decision.Intent.Action != types.IntentView {
		candidate, err := r.catalog.FindByCode(ctx, workspaceID, code)
		if err != nil {
			return nil, fmt.Errorf("code lookup failed: %w", err)
		}
		if candidate == nil {
			return &types.CartOperationResult{
				Operation: operationFor(decision.Intent.Action),
				Message:   fmt.Sprintf("no product with code %q", code),
			}, nil
		}
		if decision.Intent.Action == types.IntentRemove {
			return r.removeProduct(ctx, customerID, workspaceID, candidate)
		}
		return r.addProduct(ctx, customerID, workspaceID, candidate, quantityOf(decision.Intent))
	}

	return r.viewCart(ctx, customerID, workspaceID)
}

// searchThenAdd resolves a free-text product name against the catalog, then
// adds it. More than one plausible match turns into a disambiguation
// question instead of a guess.
func (r *SmartCartRouter) searchThenAdd(ctx context.Context, decision types.RoutingDecision, customerID, workspaceID string) (*types.CartOperationResult, error) {
	query := decision.Intent.ExtractedProductReference
	candidates, err := r.catalog.SearchProducts(ctx, workspaceID, query, r.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	switch len(candidates) {
	case 0:
		return &types.CartOperationResult{
			Operation: types.OpAdd,
			Message:   fmt.Sprintf("nothing in the catalog matched %q", query),
		}, nil
	case 1:
		return r.addProduct(ctx, customerID, workspaceID, &candidates[0], quantityOf(decision.Intent))
	default:
		if err := r.contexts.SaveProductCandidates(ctx, customerID, workspaceID, candidates, query); err != nil {
			logger.WarnContext(ctx, "failed to save disambiguation candidates", "error", err)
		}
		return &types.CartOperationResult{
			Operation:  types.OpAdd,
			Message:    fmt.Sprintf("%d products matched %q, which one?", len(candidates), query),
			Candidates: candidates,
		}, nil
	}
}

// contextLookup resolves an ordinal answer ("the second one") against the
// candidate list stored by a previous turn, then applies the cart action.
func (r *SmartCartRouter) contextLookup(ctx context.Context, decision types.RoutingDecision, message, customerID, workspaceID string) (*types.CartOperationResult, error) {
	candidate, err := r.contexts.ResolveReference(ctx, customerID, workspaceID, message)
	if err != nil {
		return nil, fmt.Errorf("reference resolution failed: %w", err)
	}
	if candidate == nil {
		return &types.CartOperationResult{
			Operation: types.OpAdd,
			Message:   "could not tell which of the shown products was meant",
		}, nil
	}

	if decision.Intent.Action == types.IntentRemove {
		return r.removeProduct(ctx, customerID, workspaceID, candidate)
	}
	return r.addProduct(ctx, customerID, workspaceID, candidate, quantityOf(decision.Intent))
}

// productLookup handles a product mention with no cart action: search the
// catalog and remember the candidates so a follow-up ordinal can pick one.
func (r *SmartCartRouter) productLookup(ctx context.Context, decision types.RoutingDecision, message, customerID, workspaceID string) (*types.CartOperationResult, error) {
	query := routing.ProductMention(message, decision.Intent)
	if query == "" {
		query = message
	}

	candidates, err := r.catalog.SearchProducts(ctx, workspaceID, query, r.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}
	if len(candidates) == 0 {
		return &types.CartOperationResult{
			Operation: types.OpView,
			Message:   fmt.Sprintf("nothing in the catalog matched %q", query),
		}, nil
	}

	if err := r.contexts.SaveProductCandidates(ctx, customerID, workspaceID, candidates, query); err != nil {
		logger.WarnContext(ctx, "failed to save disambiguation candidates", "error", err)
	}
	return &types.CartOperationResult{
		Success:    true,
		Operation:  types.OpView,
		Message:    fmt.Sprintf("found %d products for %q", len(candidates), query),
		Candidates: candidates,
	}, nil
}

// addProduct adds quantity units of a product under the customer's lock,
// enforcing the stock ceiling against the quantity already in the cart.
func (r *SmartCartRouter) addProduct(ctx context.Context, customerID, workspaceID string, candidate *types.ProductCandidate, quantity int) (*types.CartOperationResult, error) {
	result, err := lock.Do(ctx, r.locks, customerID, workspaceID, types.OpAdd, func(ctx context.Context) (*types.CartOperationResult, error) {
		cart, err := r.store.GetCart(ctx, customerID, workspaceID)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			cart, err = r.store.CreateCart(ctx, customerID, workspaceID)
			if err != nil {
				return nil, err
			}
		}

		existing := 0
		for _, item := range cart.Items {
			if item.ProductID == candidate.ID {
				existing = item.Quantity
			}
		}
		total := existing + quantity

		if total > candidate.StockQuantity {
			return &types.CartOperationResult{
				Operation: types.OpAdd,
				Message:   fmt.Sprintf("only %d of %q in stock, cart already holds %d", candidate.StockQuantity, candidate.Name, existing),
			}, nil
		}

		if err := r.store.UpsertCartItem(ctx, cart.ID, candidate.ID, total); err != nil {
			return nil, err
		}
		return &types.CartOperationResult{
			Success:   true,
			Operation: types.OpAdd,
			Message:   fmt.Sprintf("added %d x %q", quantity, candidate.Name),
			AddedItem: &types.CartLineItem{
				ProductID:   candidate.ID,
				ProductName: candidate.Name,
				ProductCode: candidate.Code,
				Quantity:    quantity,
				UnitPrice:   candidate.Price,
				LineTotal:   float64(quantity) * candidate.Price,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	r.finishMutation(ctx, result, customerID, workspaceID, types.OpAdd)
	return result, nil
}

// removeProduct deletes a product's line under the customer's lock.
func (r *SmartCartRouter) removeProduct(ctx context.Context, customerID, workspaceID string, candidate *types.ProductCandidate) (*types.CartOperationResult, error) {
	result, err := lock.Do(ctx, r.locks, customerID, workspaceID, types.OpRemove, func(ctx context.Context) (*types.CartOperationResult, error) {
		cart, err := r.store.GetCart(ctx, customerID, workspaceID)
		if err != nil {
			return nil, err
		}
		inCart := false
		if cart != nil {
			for _, item := range cart.Items {
				if item.ProductID == candidate.ID {
					inCart = true
				}
			}
		}
		if !inCart {
			return &types.CartOperationResult{
				Operation: types.OpRemove,
				Message:   fmt.Sprintf("%q is not in the cart", candidate.Name),
			}, nil
		}

		if err := r.store.RemoveCartItem(ctx, cart.ID, candidate.ID); err != nil {
			return nil, err
		}
		return &types.CartOperationResult{
			Success:   true,
			Operation: types.OpRemove,
			Message:   fmt.Sprintf("removed %q", candidate.Name),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	r.finishMutation(ctx, result, customerID, workspaceID, types.OpRemove)
	return result, nil
}

// clearCart empties the cart under the customer's lock.
func (r *SmartCartRouter) clearCart(ctx context.Context, customerID, workspaceID string) (*types.CartOperationResult, error) {
	result, err := lock.Do(ctx, r.locks, customerID, workspaceID, types.OpClear, func(ctx context.Context) (*types.CartOperationResult, error) {
		cart, err := r.store.GetCart(ctx, customerID, workspaceID)
		if err != nil {
			return nil, err
		}
		if cart == nil || len(cart.Items) == 0 {
			return &types.CartOperationResult{
				Success:   true,
				Operation: types.OpClear,
				Message:   "the cart is already empty",
			}, nil
		}
		if err := r.store.ClearCart(ctx, cart.ID); err != nil {
			return nil, err
		}
		return &types.CartOperationResult{
			Success:   true,
			Operation: types.OpClear,
			Message:   "cart emptied",
		}, nil
	})
	if err != nil {
		return nil, err
	}
	r.finishMutation(ctx, result, customerID, workspaceID, types.OpClear)
	return result, nil
}

// viewCart serves the cached cart state, resyncing if stale.
func (r *SmartCartRouter) viewCart(ctx context.Context, customerID, workspaceID string) (*types.CartOperationResult, error) {
	state, err := r.states.GetCartState(ctx, customerID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("cart state lookup failed: %w", err)
	}
	return &types.CartOperationResult{
		Success:      true,
		Operation:    types.OpView,
		Message:      fmt.Sprintf("the cart holds %d items", state.TotalItemCount),
		CartSnapshot: state,
	}, nil
}

// finishMutation resyncs the cached state after a mutation attempt and
// attaches the fresh snapshot. The resync takes its own lock, so it must run
// after the mutation's lock is released, never inside it.
func (r *SmartCartRouter) finishMutation(ctx context.Context, result *types.CartOperationResult, customerID, workspaceID string, op types.CartOperationType) {
	state, err := r.states.SyncCartState(ctx, customerID, workspaceID, op)
	if err != nil {
		logger.WarnContext(ctx, "post-mutation resync failed", "operation", op, "error", err)
		return
	}
	result.CartSnapshot = state
}

// operationFor maps an intent action to the cart operation it implies.
func operationFor(action types.IntentAction) types.CartOperationType {
	switch action {
	case types.IntentAdd:
		return types.OpAdd
	case types.IntentRemove:
		return types.OpRemove
	default:
		return types.OpView
	}
}

// quantityOf returns the intent's quantity, defaulting to one.
func quantityOf(intent types.CartIntent) int {
	if intent.ExtractedQuantity > 0 {
		return intent.ExtractedQuantity
	}
	return 1
}
