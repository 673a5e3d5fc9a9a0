// Package schema defines the canonical domain types shared across the back-office core.
package schema

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/modulhaus/backoffice/errs"
)

// FulfillmentStatus captures the physical production/delivery state of an order.
type FulfillmentStatus string

const (
	// FulfillmentPending marks a freshly placed order awaiting review.
	FulfillmentPending FulfillmentStatus = "Pending"
	// FulfillmentProcessing marks an order accepted by the back office.
	FulfillmentProcessing FulfillmentStatus = "Processing"
	// FulfillmentInProduction marks an order being manufactured.
	FulfillmentInProduction FulfillmentStatus = "InProduction"
	// FulfillmentShipped marks an order in transit to the customer site.
	FulfillmentShipped FulfillmentStatus = "Shipped"
	// FulfillmentDelivered marks an order delivered to the customer site.
	FulfillmentDelivered FulfillmentStatus = "Delivered"
	// FulfillmentCompleted marks an order fully closed out.
	FulfillmentCompleted FulfillmentStatus = "Completed"
	// FulfillmentCancelled marks a cancelled order. Cancelled is a sink state.
	FulfillmentCancelled FulfillmentStatus = "Cancelled"
)

// FulfillmentStatuses enumerates every valid fulfillment status.
func FulfillmentStatuses() []FulfillmentStatus {
	return []FulfillmentStatus{
		FulfillmentPending,
		FulfillmentProcessing,
		FulfillmentInProduction,
		FulfillmentShipped,
		FulfillmentDelivered,
		FulfillmentCompleted,
		FulfillmentCancelled,
	}
}

// Validate rejects values outside the closed fulfillment variant set.
func (s FulfillmentStatus) Validate() error {
	switch s {
	case FulfillmentPending, FulfillmentProcessing, FulfillmentInProduction,
		FulfillmentShipped, FulfillmentDelivered, FulfillmentCompleted, FulfillmentCancelled:
		return nil
	}
	return errs.New("schema/fulfillment", errs.CodeUnknownStatus,
		errs.WithMessage("unknown fulfillment status "+string(s)))
}

// Terminal reports whether no further transition is permitted from s.
func (s FulfillmentStatus) Terminal() bool {
	return s == FulfillmentCancelled
}

// PaymentStatus captures the customer's cumulative payment progress.
type PaymentStatus string

const (
	// PaymentPending marks an order with no payment received.
	PaymentPending PaymentStatus = "Pending"
	// PaymentPartial50 marks the 50% installment received.
	PaymentPartial50 PaymentStatus = "Partial50"
	// PaymentPartial90 marks the 90% installment received.
	PaymentPartial90 PaymentStatus = "Partial90"
	// PaymentFull100 marks the order fully paid.
	PaymentFull100 PaymentStatus = "Full100"
)

// PaymentStatuses enumerates every valid payment status in rank order.
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentPending, PaymentPartial50, PaymentPartial90, PaymentFull100}
}

// Validate rejects values outside the closed payment variant set.
func (s PaymentStatus) Validate() error {
	if _, ok := paymentRanks[s]; !ok {
		return errs.New("schema/payment", errs.CodeUnknownStatus,
			errs.WithMessage("unknown payment status "+string(s)))
	}
	return nil
}

// Rank returns the position of s in the monotonic payment ordering.
// Unknown statuses report -1.
func (s PaymentStatus) Rank() int {
	rank, ok := paymentRanks[s]
	if !ok {
		return -1
	}
	return rank
}

var paymentRanks = map[PaymentStatus]int{
	PaymentPending:   0,
	PaymentPartial50: 1,
	PaymentPartial90: 2,
	PaymentFull100:   3,
}

// Order is the canonical record for a storefront order.
type Order struct {
	ID                string            `json:"id"`
	CustomerID        string            `json:"customerId"`
	ProductRef        string            `json:"productRef"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	Fulfillment       FulfillmentStatus `json:"fulfillmentStatus"`
	Payment           PaymentStatus     `json:"paymentStatus"`
	CreatedAt         time.Time         `json:"createdAt"`
	EstimatedDelivery *time.Time        `json:"estimatedDelivery,omitempty"`

	// Version increases on every committed status change and is checked
	// on store updates to surface concurrent-admin conflicts.
	Version uint64 `json:"version"`
}

// Validate checks the identity and status invariants of the order.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errs.New("schema/order", errs.CodeInvalid, errs.WithMessage("order id required"))
	}
	if strings.TrimSpace(o.CustomerID) == "" {
		return errs.New("schema/order", errs.CodeInvalid,
			errs.WithMessage("customer id required"), errs.WithOrder(o.ID))
	}
	if o.TotalAmount.IsNegative() {
		return errs.New("schema/order", errs.CodeInvalid,
			errs.WithMessage("total amount must be non-negative"), errs.WithOrder(o.ID))
	}
	if err := o.Fulfillment.Validate(); err != nil {
		return err
	}
	if err := o.Payment.Validate(); err != nil {
		return err
	}
	return nil
}

// Clone returns an independent copy of the order.
func (o Order) Clone() Order {
	clone := o
	if o.EstimatedDelivery != nil {
		estimated := *o.EstimatedDelivery
		clone.EstimatedDelivery = &estimated
	}
	return clone
}
