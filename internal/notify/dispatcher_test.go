package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/schema"
)

func TestNotifyCreatesRecord(t *testing.T) {
	d := NewDispatcher(0)

	n, err := d.Notify("cust-1", "ord-1", "Your order has shipped", schema.NotificationOrderStatus, "Greta")
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if n.ID == "" {
		t.Error("expected generated id")
	}
	if n.Read {
		t.Error("new notification must start unread")
	}
	if n.CustomerID != "cust-1" || n.OrderID != "ord-1" || n.SenderName != "Greta" {
		t.Errorf("unexpected record: %+v", n)
	}
}

func TestNotifyRejectsMalformedInput(t *testing.T) {
	d := NewDispatcher(0)
	if _, err := d.Notify("", "ord-1", "hello", schema.NotificationGeneral, ""); !errs.HasCode(err, errs.CodeInvalid) {
		t.Errorf("missing customer: got %v", err)
	}
	if _, err := d.Notify("cust-1", "ord-1", "  ", schema.NotificationGeneral, ""); !errs.HasCode(err, errs.CodeInvalid) {
		t.Errorf("missing message: got %v", err)
	}
}

func TestNotifyDefaultsType(t *testing.T) {
	d := NewDispatcher(0)
	n, err := d.Notify("cust-1", "", "welcome", "", "Greta")
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if n.Type != schema.NotificationGeneral {
		t.Errorf("type = %q, want general", n.Type)
	}
}

func TestListForNewFirstOrdering(t *testing.T) {
	d := NewDispatcher(0)
	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	for i := 0; i < 3; i++ {
		if _, err := d.Notify("cust-1", "ord-1", fmt.Sprintf("update %d", i), schema.NotificationOrderStatus, "Greta"); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
	}

	list := d.ListFor("cust-1")
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].Message != "update 2" || list[2].Message != "update 0" {
		t.Errorf("ordering wrong: %q .. %q", list[0].Message, list[2].Message)
	}
}

func TestListForUnknownCustomerIsEmpty(t *testing.T) {
	d := NewDispatcher(0)
	if got := d.ListFor("ghost"); len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	d := NewDispatcher(0)
	n, err := d.Notify("cust-1", "ord-1", "hello", schema.NotificationGeneral, "")
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if err := d.MarkRead(n.ID); err != nil {
		t.Fatalf("first MarkRead() error = %v", err)
	}
	if err := d.MarkRead(n.ID); err != nil {
		t.Fatalf("second MarkRead() error = %v", err)
	}
	if got := d.ListFor("cust-1"); !got[0].Read {
		t.Error("notification not marked read")
	}
}

func TestMarkReadUnknownID(t *testing.T) {
	d := NewDispatcher(0)
	if err := d.MarkRead("missing"); !errs.HasCode(err, errs.CodeNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestRetentionEvictsOldest(t *testing.T) {
	d := NewDispatcher(5)
	for i := 0; i < 8; i++ {
		if _, err := d.Notify("cust-1", "", fmt.Sprintf("msg %d", i), schema.NotificationGeneral, ""); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
	}
	list := d.ListFor("cust-1")
	if len(list) != 5 {
		t.Fatalf("len = %d, want 5", len(list))
	}
	if list[0].Message != "msg 7" || list[4].Message != "msg 3" {
		t.Errorf("retention window wrong: %q .. %q", list[0].Message, list[4].Message)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	d := NewDispatcher(0)
	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	for i := 0; i < 3; i++ {
		customer := "cust-1"
		if i == 2 {
			customer = "cust-2"
		}
		if _, err := d.Notify(customer, "", fmt.Sprintf("msg %d", i), schema.NotificationGeneral, ""); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
	}

	restored := NewDispatcher(0)
	restored.Restore(d.All())

	got := restored.ListFor("cust-1")
	if len(got) != 2 || got[0].Message != "msg 1" || got[1].Message != "msg 0" {
		t.Errorf("restored cust-1 list wrong: %v", got)
	}
	if len(restored.ListFor("cust-2")) != 1 {
		t.Error("restored cust-2 list wrong")
	}

	// MarkRead still resolves restored ids.
	if err := restored.MarkRead(got[0].ID); err != nil {
		t.Errorf("MarkRead() after restore error = %v", err)
	}
}
