package schema

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFulfillmentStatusValidate(t *testing.T) {
	for _, status := range FulfillmentStatuses() {
		if err := status.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v", status, err)
		}
	}
	if err := FulfillmentStatus("Teleported").Validate(); err == nil {
		t.Error("expected error for unknown fulfillment status")
	}
}

func TestTerminalStatus(t *testing.T) {
	if !FulfillmentCancelled.Terminal() {
		t.Error("Cancelled must be terminal")
	}
	for _, status := range FulfillmentStatuses() {
		if status != FulfillmentCancelled && status.Terminal() {
			t.Errorf("%q must not be terminal", status)
		}
	}
}

func TestPaymentRankOrdering(t *testing.T) {
	ranked := []PaymentStatus{PaymentPending, PaymentPartial50, PaymentPartial90, PaymentFull100}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Rank() <= ranked[i-1].Rank() {
			t.Errorf("Rank(%q)=%d not above Rank(%q)=%d",
				ranked[i], ranked[i].Rank(), ranked[i-1], ranked[i-1].Rank())
		}
	}
	if PaymentStatus("Partial75").Rank() != -1 {
		t.Error("unknown payment status must rank -1")
	}
}

func TestOrderValidate(t *testing.T) {
	order := Order{
		ID:          "ord-1",
		CustomerID:  "cust-1",
		ProductRef:  "cabin-40",
		TotalAmount: decimal.NewFromInt(100000),
		Fulfillment: FulfillmentPending,
		Payment:     PaymentPending,
	}
	if err := order.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	bad := order
	bad.TotalAmount = decimal.NewFromInt(-1)
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative amount")
	}

	bad = order
	bad.Payment = "Partial75"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown payment status")
	}
}

func TestOrderCloneIsIndependent(t *testing.T) {
	eta := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	order := Order{
		ID:                "ord-1",
		TotalAmount:       decimal.NewFromInt(500),
		EstimatedDelivery: &eta,
	}

	clone := order.Clone()
	if clone.EstimatedDelivery == order.EstimatedDelivery {
		t.Error("clone shares EstimatedDelivery pointer")
	}
	*clone.EstimatedDelivery = clone.EstimatedDelivery.AddDate(1, 0, 0)
	if !order.EstimatedDelivery.Equal(eta) {
		t.Error("mutating clone leaked into original")
	}
}

func TestActivityCategoryValidate(t *testing.T) {
	for _, category := range []ActivityCategory{
		CategoryOrders, CategoryProducts, CategoryProjects,
		CategoryContracts, CategoryUsers, CategorySystem,
	} {
		if !category.Validate() {
			t.Errorf("Validate(%q) = false", category)
		}
	}
	if ActivityCategory("finance").Validate() {
		t.Error("unknown category must not validate")
	}
}
