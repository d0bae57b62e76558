package logger

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields. Values stored under these keys are
// automatically extracted and attached to log records by ContextHandler.
const (
	// ContextKeyCustomerID identifies the customer the work is for.
	ContextKeyCustomerID contextKey = "customer_id"

	// ContextKeyWorkspaceID identifies the workspace (tenant).
	ContextKeyWorkspaceID contextKey = "workspace_id"

	// ContextKeyOperation identifies the cart operation being executed.
	ContextKeyOperation contextKey = "operation"

	// ContextKeyRequestID identifies the individual request.
	ContextKeyRequestID contextKey = "request_id"
)

// allContextKeys lists every key the handler extracts from context.
var allContextKeys = []contextKey{
	ContextKeyCustomerID,
	ContextKeyWorkspaceID,
	ContextKeyOperation,
	ContextKeyRequestID,
}

// WithCustomer returns a new context carrying the customer and workspace IDs.
func WithCustomer(ctx context.Context, customerID, workspaceID string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyCustomerID, customerID)
	return context.WithValue(ctx, ContextKeyWorkspaceID, workspaceID)
}

// WithOperation returns a new context carrying the cart operation label.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, ContextKeyOperation, operation)
}

// WithRequestID returns a new context carrying the request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}
