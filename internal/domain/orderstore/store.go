// Package orderstore owns the canonical order collection for the admin session.
package orderstore

import (
	"context"

	"github.com/modulhaus/backoffice/internal/schema"
)

// StatusUpdate captures a status change to be committed against an order.
// PrevVersion must match the stored version; a mismatch means another admin
// committed first and the update is rejected with a conflict.
type StatusUpdate struct {
	OrderID     string
	Fulfillment schema.FulfillmentStatus
	Payment     schema.PaymentStatus
	PrevVersion uint64
}

// Query scopes order lookups.
type Query struct {
	CustomerID   string
	Fulfillments []schema.FulfillmentStatus
	Limit        int
}

// Store defines the contract for the canonical order collection.
// Implementations return clones; mutating a returned order never changes
// stored state.
type Store interface {
	Put(ctx context.Context, order schema.Order) (schema.Order, error)
	Get(ctx context.Context, orderID string) (schema.Order, error)
	List(ctx context.Context, query Query) ([]schema.Order, error)
	UpdateStatus(ctx context.Context, update StatusUpdate) (schema.Order, error)
}
