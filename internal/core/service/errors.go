package service

import (
	"errors"
	"fmt"

	"github.com/rinkworks/venuepos/internal/core/domain"
)

var (
	ErrEmptyCart            = errors.New("cart is empty, nothing to commit")
	ErrNoCustomer           = errors.New("no customer selected")
	ErrNoOperator           = errors.New("no acting operator")
	ErrDuplicateCommit      = errors.New("duplicate commit attempt")
	ErrStockExhausted       = errors.New("insufficient stock")
	ErrInsufficientCapacity = errors.New("insufficient event capacity")
)

// ValidationError rejects a commit before any I/O. No side effects exist.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "commit validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError means the sale header write failed: nothing durable was
// created and the operator may retry with the cart intact.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PartialCommitError marks a sale that exists without its lines. It needs
// operator-visible reconciliation and must never pass as a clean success.
type PartialCommitError struct {
	SaleID string
	Err    error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("sale %s committed without lines: %v", e.SaleID, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// LoyaltyUpdateError is non-fatal: the sale stands, the points do not.
type LoyaltyUpdateError struct {
	CustomerID string
	Err        error
}

func (e *LoyaltyUpdateError) Error() string {
	return fmt.Sprintf("loyalty update failed for customer %s: %v", e.CustomerID, e.Err)
}

func (e *LoyaltyUpdateError) Unwrap() error { return e.Err }

// LineWarning records one failed per-line side effect on an otherwise
// committed sale.
type LineWarning struct {
	ItemID   string
	Kind     domain.ItemKind
	RefID    string
	Quantity int
	Err      error
}

func (w LineWarning) String() string {
	return fmt.Sprintf("%s x%d: %v", w.ItemID, w.Quantity, w.Err)
}
