package cartstate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gelsogrove/shopME-sub006/events"
	"github.com/gelsogrove/shopME-sub006/logger"
	"github.com/gelsogrove/shopME-sub006/types"
)

// validateConcurrency bounds how many cached states are validated at once
// during a background pass.
const validateConcurrency = 4

// amountEpsilon absorbs float formatting noise when comparing money totals.
const amountEpsilon = 1e-9

// Severity grades an inconsistency.
type Severity string

const (
	// SeverityError marks a provable corruption: checksum, total or
	// quantity mismatch. Error-severity findings trigger auto-repair.
	SeverityError Severity = "error"
	// SeverityWarning marks conditions worth logging but self-resolving,
	// like a cache entry older than its freshness TTL.
	SeverityWarning Severity = "warning"
)

// Inconsistency is one finding from validating a cached state.
type Inconsistency struct {
	Field    string
	Severity Severity
	Expected string
	Actual   string
	Message  string
}

// Report is the outcome of validating one cached cart state.
type Report struct {
	IsValid         bool
	Errors          []string
	Warnings        []string
	Inconsistencies []Inconsistency
}

func (r *Report) add(inc Inconsistency) {
	r.Inconsistencies = append(r.Inconsistencies, inc)
	if inc.Severity == SeverityError {
		r.IsValid = false
		r.Errors = append(r.Errors, inc.Message)
	} else {
		r.Warnings = append(r.Warnings, inc.Message)
	}
}

// Validate recomputes checksum and totals for the pair's cached state and
// reports every mismatch. An error-severity finding automatically triggers
// ForceRefresh: cached state is never trusted once proven wrong.
func (s *Synchronizer) Validate(ctx context.Context, customerID, workspaceID string) (*Report, error) {
	cached, err := s.cache.Get(ctx, Key(customerID, workspaceID))
	if err != nil {
		return nil, err
	}

	report := &Report{IsValid: true}
	if cached == nil {
		return report, nil
	}

	s.checkState(cached, report)

	emitter := events.NewEmitter(s.bus, customerID, workspaceID)
	emitter.ValidationCompleted(len(report.Errors), len(report.Warnings))

	if !report.IsValid {
		emitter.InconsistencyDetected(len(report.Errors), len(report.Warnings))
		logger.WarnContext(ctx, "cached cart state failed validation, refreshing",
			"customer_id", customerID,
			"workspace_id", workspaceID,
			"errors", strings.Join(report.Errors, "; "))

		if s.refreshLimiter.Allow() {
			if _, err := s.ForceRefresh(ctx, customerID, workspaceID); err != nil {
				logger.ErrorContext(ctx, "auto-refresh of inconsistent cart state failed",
					"customer_id", customerID,
					"workspace_id", workspaceID,
					"error", err)
			}
		}
	}

	return report, nil
}

// ValidateAll runs a validation pass over every cached state.
func (s *Synchronizer) ValidateAll(ctx context.Context) error {
	states, err := s.cache.List(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(validateConcurrency)

	for _, state := range states {
		state := state
		g.Go(func() error {
			_, err := s.Validate(ctx, state.CustomerID, state.WorkspaceID)
			return err
		})
	}
	return g.Wait()
}

// StartValidator launches the periodic validation loop. It stops when ctx is
// cancelled.
func (s *Synchronizer) StartValidator(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.validateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.ValidateAll(ctx); err != nil {
					logger.WarnContext(ctx, "cart state validation pass failed", "error", err)
				}
			}
		}
	}()
}

// checkState performs the actual integrity checks against a cached state.
func (s *Synchronizer) checkState(cached *types.CartState, report *Report) {
	var sumAmount float64
	var sumCount int

	for _, item := range cached.Items {
		if item.Quantity <= 0 {
			report.add(Inconsistency{
				Field:    "quantity",
				Severity: SeverityError,
				Expected: "> 0",
				Actual:   fmt.Sprintf("%d", item.Quantity),
				Message:  fmt.Sprintf("line %s has non-positive quantity %d", item.ID, item.Quantity),
			})
		}

		expectedLine := float64(item.Quantity) * item.UnitPrice
		if math.Abs(expectedLine-item.LineTotal) > amountEpsilon {
			report.add(Inconsistency{
				Field:    "line_total",
				Severity: SeverityError,
				Expected: fmt.Sprintf("%.2f", expectedLine),
				Actual:   fmt.Sprintf("%.2f", item.LineTotal),
				Message:  fmt.Sprintf("line %s total %.2f does not match quantity*price %.2f", item.ID, item.LineTotal, expectedLine),
			})
		}

		sumAmount += item.LineTotal
		sumCount += item.Quantity
	}

	if math.Abs(sumAmount-cached.TotalAmount) > amountEpsilon {
		report.add(Inconsistency{
			Field:    "total_amount",
			Severity: SeverityError,
			Expected: fmt.Sprintf("%.2f", sumAmount),
			Actual:   fmt.Sprintf("%.2f", cached.TotalAmount),
			Message:  fmt.Sprintf("total amount %.2f does not match item sum %.2f", cached.TotalAmount, sumAmount),
		})
	}
	if sumCount != cached.TotalItemCount {
		report.add(Inconsistency{
			Field:    "total_item_count",
			Severity: SeverityError,
			Expected: fmt.Sprintf("%d", sumCount),
			Actual:   fmt.Sprintf("%d", cached.TotalItemCount),
			Message:  fmt.Sprintf("item count %d does not match quantity sum %d", cached.TotalItemCount, sumCount),
		})
	}

	expectedChecksum, err := Checksum(cached)
	if err != nil {
		report.add(Inconsistency{
			Field:    "checksum",
			Severity: SeverityError,
			Message:  fmt.Sprintf("checksum could not be recomputed: %v", err),
		})
	} else if expectedChecksum != cached.Checksum {
		report.add(Inconsistency{
			Field:    "checksum",
			Severity: SeverityError,
			Expected: expectedChecksum,
			Actual:   cached.Checksum,
			Message:  "stored checksum does not match recomputed state",
		})
	}

	if s.now().Sub(cached.LastUpdated) > s.cacheTTL {
		report.add(Inconsistency{
			Field:    "last_updated",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("cached state is stale (last updated %s ago)", s.now().Sub(cached.LastUpdated).Round(time.Second)),
		})
	}
}
