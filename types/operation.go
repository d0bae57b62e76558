package types

import "fmt"

// CartOperationType identifies the kind of cart mutation or read being
// performed. It is a closed set: switch statements over it should be
// exhaustive.
type CartOperationType string

const (
	// OpAdd adds a product (or increases its quantity) in the cart.
	OpAdd CartOperationType = "add"
	// OpRemove removes a product (or decreases its quantity) from the cart.
	OpRemove CartOperationType = "remove"
	// OpClear empties the cart entirely.
	OpClear CartOperationType = "clear"
	// OpView reads the cart without mutating it.
	OpView CartOperationType = "view"
)

// IsMutation reports whether the operation changes cart contents.
func (t CartOperationType) IsMutation() bool {
	switch t {
	case OpAdd, OpRemove, OpClear:
		return true
	case OpView:
		return false
	}
	return false
}

// Valid reports whether t is one of the defined operation types.
func (t CartOperationType) Valid() bool {
	switch t {
	case OpAdd, OpRemove, OpClear, OpView:
		return true
	}
	return false
}

// ParseCartOperationType converts a string into a CartOperationType.
func ParseCartOperationType(s string) (CartOperationType, error) {
	t := CartOperationType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown cart operation type %q", s)
	}
	return t, nil
}
