package contextstore

import (
	"context"
	"time"

	"github.com/gelsogrove/shopME-sub006/intent"
	"github.com/gelsogrove/shopME-sub006/logger"
	"github.com/gelsogrove/shopME-sub006/types"
)

// Service is the conversation context store: domain operations layered over a
// keyed Backend, plus the single background sweep that evicts expired
// contexts. Absence of context is always a valid state — every lookup method
// returns nil rather than an error when nothing (live) is stored.
type Service struct {
	backend Backend

	disambiguationTTL time.Duration
	generalTTL        time.Duration
	sweepInterval     time.Duration

	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDisambiguationTTL overrides the disambiguation window (default 5m).
func WithDisambiguationTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.disambiguationTTL = ttl
	}
}

// WithGeneralTTL overrides the general context window (default 30m).
func WithGeneralTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.generalTTL = ttl
	}
}

// WithSweepInterval overrides the background sweep interval (default 60s).
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Service) {
		s.sweepInterval = interval
	}
}

// WithClock replaces the time source, for TTL tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a context store service over the given backend.
func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend:           backend,
		disambiguationTTL: DefaultDisambiguationTTL,
		generalTTL:        DefaultGeneralTTL,
		sweepInterval:     DefaultSweepInterval,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the live context for the pair, or nil when none exists.
func (s *Service) Get(ctx context.Context, customerID, workspaceID string) (*ConversationContext, error) {
	return s.backend.Get(ctx, Key(customerID, workspaceID))
}

// SaveProductCandidates stores the candidate list the customer was just
// shown, opening a short disambiguation window for ordinal answers.
func (s *Service) SaveProductCandidates(ctx context.Context, customerID, workspaceID string, candidates []types.ProductCandidate, originQuery string) error {
	return s.save(ctx, customerID, workspaceID, func(cc *ConversationContext) {
		cc.Kind = KindDisambiguation
		cc.LastProductCandidates = candidates
		cc.LastSearchQuery = originQuery
	})
}

// SaveCartOperationResult stores the outcome of a cart operation so the next
// turn's routing decision can see it.
func (s *Service) SaveCartOperationResult(ctx context.Context, customerID, workspaceID string, result *types.CartOperationResult) error {
	return s.save(ctx, customerID, workspaceID, func(cc *ConversationContext) {
		cc.Kind = KindCartOperation
		cc.LastCartOperationResult = result
	})
}

// ResolveReference maps an ordinal reference ("2", "the first one",
// "il secondo") onto the last saved candidate list. Returns nil when no live
// candidate list exists or the ordinal is out of range.
func (s *Service) ResolveReference(ctx context.Context, customerID, workspaceID, reference string) (*types.ProductCandidate, error) {
	cc, err := s.Get(ctx, customerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if cc == nil || len(cc.LastProductCandidates) == 0 {
		return nil, nil
	}

	position := parseOrdinal(intent.Normalize(reference))
	if position < 1 || position > len(cc.LastProductCandidates) {
		return nil, nil
	}

	candidate := cc.LastProductCandidates[position-1]
	return &candidate, nil
}

// Clear removes any stored context for the pair.
func (s *Service) Clear(ctx context.Context, customerID, workspaceID string) error {
	return s.backend.Delete(ctx, Key(customerID, workspaceID))
}

// StartSweeper launches the background eviction loop. It stops when ctx is
// cancelled. This is the only path that removes expired general contexts;
// disambiguation contexts are additionally evicted lazily on Get.
func (s *Service) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evicted, err := s.backend.Sweep(ctx)
				if err != nil {
					logger.WarnContext(ctx, "context sweep failed", "error", err)
					continue
				}
				if evicted > 0 {
					logger.DebugContext(ctx, "context sweep evicted expired entries", "count", evicted)
				}
			}
		}
	}()
}

// save overwrites the context for the pair, recomputing ExpiresAt from the
// (possibly changed) kind. CreatedAt survives across overwrites of a live
// context.
func (s *Service) save(ctx context.Context, customerID, workspaceID string, mutate func(*ConversationContext)) error {
	now := s.now()

	existing, err := s.Get(ctx, customerID, workspaceID)
	if err != nil {
		return err
	}

	cc := &ConversationContext{
		CustomerID:  customerID,
		WorkspaceID: workspaceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil {
		cc.CreatedAt = existing.CreatedAt
		cc.LastProductCandidates = existing.LastProductCandidates
		cc.LastSearchQuery = existing.LastSearchQuery
		cc.LastCartOperationResult = existing.LastCartOperationResult
	}

	mutate(cc)
	cc.ExpiresAt = now.Add(s.ttlFor(cc.Kind))

	return s.backend.Set(ctx, Key(customerID, workspaceID), cc)
}

func (s *Service) ttlFor(kind ContextKind) time.Duration {
	if kind == KindDisambiguation {
		return s.disambiguationTTL
	}
	return s.generalTTL
}
