package lifecycle

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/schema"
)

func TestProgressMapping(t *testing.T) {
	tests := []struct {
		status schema.FulfillmentStatus
		want   int
	}{
		{schema.FulfillmentPending, 10},
		{schema.FulfillmentProcessing, 30},
		{schema.FulfillmentInProduction, 50},
		{schema.FulfillmentShipped, 75},
		{schema.FulfillmentDelivered, 100},
		{schema.FulfillmentCompleted, 100},
		{schema.FulfillmentCancelled, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got, err := Progress(tt.status)
			if err != nil {
				t.Fatalf("Progress() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Progress(%s) = %d, want %d", tt.status, got, tt.want)
			}
		})
	}
}

func TestProgressUnknownStatus(t *testing.T) {
	got, err := Progress(schema.FulfillmentStatus("Lost"))
	if got != 0 {
		t.Errorf("unknown status progress = %d, want 0", got)
	}
	if !errs.HasCode(err, errs.CodeUnknownStatus) {
		t.Errorf("expected unknown_status diagnostic, got %v", err)
	}
}

func TestSplitPaymentScenario(t *testing.T) {
	// 100000 at Partial90 splits into 90000 paid / 10000 remaining.
	split, err := SplitPayment(schema.PaymentPartial90, decimal.NewFromInt(100000))
	if err != nil {
		t.Fatalf("SplitPayment() error = %v", err)
	}
	if split.Percent != 90 {
		t.Errorf("percent = %d, want 90", split.Percent)
	}
	if !split.Paid.Equal(decimal.NewFromInt(90000)) {
		t.Errorf("paid = %s, want 90000", split.Paid)
	}
	if !split.Remaining.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("remaining = %s, want 10000", split.Remaining)
	}
}

func TestSplitPaymentRoundTrips(t *testing.T) {
	totals := []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(1),
		decimal.NewFromInt(100000),
		decimal.RequireFromString("74999.99"),
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("123456789.45"),
	}
	for _, status := range schema.PaymentStatuses() {
		for _, total := range totals {
			split, err := SplitPayment(status, total)
			if err != nil {
				t.Fatalf("SplitPayment(%s, %s) error = %v", status, total, err)
			}
			if sum := split.Paid.Add(split.Remaining); !sum.Equal(total) {
				t.Errorf("SplitPayment(%s, %s): paid %s + remaining %s = %s",
					status, total, split.Paid, split.Remaining, sum)
			}
			if split.Paid.IsNegative() || split.Remaining.IsNegative() {
				t.Errorf("SplitPayment(%s, %s): negative component", status, total)
			}
		}
	}
}

func TestSplitPaymentRepeatedCallsDoNotDrift(t *testing.T) {
	total := decimal.RequireFromString("33333.33")
	first, err := SplitPayment(schema.PaymentPartial50, total)
	if err != nil {
		t.Fatalf("SplitPayment() error = %v", err)
	}
	for i := 0; i < 1000; i++ {
		again, err := SplitPayment(schema.PaymentPartial50, total)
		if err != nil {
			t.Fatalf("SplitPayment() error = %v", err)
		}
		if !again.Paid.Equal(first.Paid) || !again.Remaining.Equal(first.Remaining) {
			t.Fatalf("call %d drifted: %s/%s", i, again.Paid, again.Remaining)
		}
	}
}

func TestSplitPaymentUnknownStatus(t *testing.T) {
	total := decimal.NewFromInt(500)
	split, err := SplitPayment(schema.PaymentStatus("Partial75"), total)
	if !errs.HasCode(err, errs.CodeUnknownStatus) {
		t.Fatalf("expected unknown_status diagnostic, got %v", err)
	}
	if split.Percent != 0 || !split.Paid.Equal(decimal.Zero) || !split.Remaining.Equal(total) {
		t.Errorf("unknown status split = %+v", split)
	}
}

func TestSplitPaymentNegativeTotal(t *testing.T) {
	if _, err := SplitPayment(schema.PaymentPending, decimal.NewFromInt(-1)); !errs.HasCode(err, errs.CodeInvalid) {
		t.Errorf("expected invalid_request, got %v", err)
	}
}
