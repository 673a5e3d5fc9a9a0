package lifecycle

import (
	"github.com/shopspring/decimal"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/schema"
)

// Fixed completion percentages per fulfillment status. Delivered and Completed
// both render as done; Cancelled renders as no progress.
var fulfillmentProgress = map[schema.FulfillmentStatus]int{
	schema.FulfillmentPending:      10,
	schema.FulfillmentProcessing:   30,
	schema.FulfillmentInProduction: 50,
	schema.FulfillmentShipped:      75,
	schema.FulfillmentDelivered:    100,
	schema.FulfillmentCompleted:    100,
	schema.FulfillmentCancelled:    0,
}

var paymentPercent = map[schema.PaymentStatus]int{
	schema.PaymentPending:   0,
	schema.PaymentPartial50: 50,
	schema.PaymentPartial90: 90,
	schema.PaymentFull100:   100,
}

// Progress maps a fulfillment status to a completion percentage in [0,100].
// Unknown statuses report 0 alongside an unknown_status diagnostic.
func Progress(status schema.FulfillmentStatus) (int, error) {
	percent, ok := fulfillmentProgress[status]
	if !ok {
		return 0, errs.New("lifecycle/progress", errs.CodeUnknownStatus,
			errs.WithMessage("unknown fulfillment status "+string(status)))
	}
	return percent, nil
}

// PaymentSplit is the paid/remaining breakdown of an order total.
type PaymentSplit struct {
	Percent   int             `json:"percent"`
	Paid      decimal.Decimal `json:"paidAmount"`
	Remaining decimal.Decimal `json:"remainingAmount"`
}

// SplitPayment derives the paid/remaining amounts for the payment status.
//
// Amounts are recomputed from the source values on every call; nothing is
// accumulated, so repeated calls cannot drift. Paid plus remaining always
// equals the total exactly. Unknown statuses report a zero split alongside an
// unknown_status diagnostic.
func SplitPayment(status schema.PaymentStatus, total decimal.Decimal) (PaymentSplit, error) {
	if total.IsNegative() {
		return PaymentSplit{}, errs.New("lifecycle/progress", errs.CodeInvalid,
			errs.WithMessage("total amount must be non-negative"))
	}
	percent, ok := paymentPercent[status]
	if !ok {
		return PaymentSplit{Percent: 0, Paid: decimal.Zero, Remaining: total},
			errs.New("lifecycle/progress", errs.CodeUnknownStatus,
				errs.WithMessage("unknown payment status "+string(status)))
	}
	// Multiply by the percent expressed as an exact decimal (e.g. 0.90)
	// instead of dividing, so the arithmetic stays exact.
	paid := total.Mul(decimal.New(int64(percent), -2))
	return PaymentSplit{
		Percent:   percent,
		Paid:      paid,
		Remaining: total.Sub(paid),
	}, nil
}
