// Package lifecycle implements the order status state machine and the
// derived progress/financial calculations.
//
// Everything here is a pure transform: callers own persistence and any
// downstream effects (audit entry, notification, broadcast).
package lifecycle

import (
	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/schema"
)

// TransitionRequest names the status values an admin wants to move an order to.
// At least one of the two fields must be set.
type TransitionRequest struct {
	Fulfillment *schema.FulfillmentStatus
	Payment     *schema.PaymentStatus
}

// Empty reports whether the request carries no status change at all.
func (r TransitionRequest) Empty() bool {
	return r.Fulfillment == nil && r.Payment == nil
}

// Transition applies the requested status change to a copy of the order.
//
// A request is rejected entirely when it would violate either invariant:
// Cancelled is a sink state (no fulfillment or payment move leaves it), and
// payment status only moves forward. On rejection the returned order is the
// zero value and the input order is untouched.
func Transition(order schema.Order, req TransitionRequest) (schema.Order, error) {
	if req.Empty() {
		return schema.Order{}, errs.New("lifecycle/transition", errs.CodeInvalid,
			errs.WithMessage("at least one status change required"), errs.WithOrder(order.ID))
	}
	if err := order.Fulfillment.Validate(); err != nil {
		return schema.Order{}, err
	}
	if err := order.Payment.Validate(); err != nil {
		return schema.Order{}, err
	}

	if order.Fulfillment.Terminal() {
		return schema.Order{}, errs.New("lifecycle/transition", errs.CodeInvalidTransition,
			errs.WithMessage("order is cancelled"), errs.WithOrder(order.ID))
	}

	// Validate both requested values before applying either; rejection is
	// all-or-nothing.
	if req.Fulfillment != nil {
		if err := req.Fulfillment.Validate(); err != nil {
			return schema.Order{}, err
		}
	}
	if req.Payment != nil {
		if err := req.Payment.Validate(); err != nil {
			return schema.Order{}, err
		}
		if req.Payment.Rank() < order.Payment.Rank() {
			return schema.Order{}, errs.New("lifecycle/transition", errs.CodePaymentRegression,
				errs.WithMessage("payment status "+string(order.Payment)+" cannot regress to "+string(*req.Payment)),
				errs.WithOrder(order.ID))
		}
	}

	next := order.Clone()
	if req.Fulfillment != nil {
		next.Fulfillment = *req.Fulfillment
	}
	if req.Payment != nil {
		next.Payment = *req.Payment
	}
	return next, nil
}

// FulfillmentOf is a convenience for building transition requests inline.
func FulfillmentOf(s schema.FulfillmentStatus) *schema.FulfillmentStatus { return &s }

// PaymentOf is a convenience for building transition requests inline.
func PaymentOf(s schema.PaymentStatus) *schema.PaymentStatus { return &s }
