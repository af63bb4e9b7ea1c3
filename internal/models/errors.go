package models

import (
	"errors"
	"fmt"
)

// ErrAlreadyCancelled is returned when cancelling an order that is already
// cancelled. Repeated cancellation attempts must never restore stock twice.
var ErrAlreadyCancelled = errors.New("order already cancelled")

// NotFoundError identifies a missing entity by kind and id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// ProductUnavailableError is returned when a product exists but is not
// purchasable.
type ProductUnavailableError struct {
	Name string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product unavailable: %s", e.Name)
}

// InsufficientStockError names the offending product so the client can act
// on it.
type InsufficientStockError struct {
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

// TerminalStateError is returned when a transition is attempted out of a
// terminal order status.
type TerminalStateError struct {
	State OrderStatus
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("order is in terminal state %q", e.State)
}

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
