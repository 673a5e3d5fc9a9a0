// Package notify maintains per-customer notification lists fed by the
// admin console.
package notify

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/schema"
	"github.com/modulhaus/backoffice/internal/telemetry"
)

// DefaultRetention caps the notifications kept per customer. The oldest
// entries are evicted beyond this cap.
const DefaultRetention = 200

// Dispatcher appends customer notifications and serves read queries.
type Dispatcher struct {
	mu         sync.RWMutex
	byCustomer map[string][]*schema.CustomerNotification
	byID       map[string]*schema.CustomerNotification
	retention  int
	now        func() time.Time

	dispatchCounter metric.Int64Counter
	evictionCounter metric.Int64Counter
}

// NewDispatcher creates a dispatcher retaining at most retention notifications
// per customer; non-positive values select DefaultRetention.
func NewDispatcher(retention int) *Dispatcher {
	if retention <= 0 {
		retention = DefaultRetention
	}
	d := new(Dispatcher)
	d.byCustomer = make(map[string][]*schema.CustomerNotification)
	d.byID = make(map[string]*schema.CustomerNotification)
	d.retention = retention
	d.now = func() time.Time { return time.Now().UTC() }

	meter := otel.Meter("notify")
	d.dispatchCounter, _ = meter.Int64Counter("notify.notifications.dispatched",
		metric.WithDescription("Number of customer notifications dispatched"),
		metric.WithUnit("{notification}"))
	d.evictionCounter, _ = meter.Int64Counter("notify.notifications.evicted",
		metric.WithDescription("Number of notifications evicted at the per-customer cap"),
		metric.WithUnit("{notification}"))

	return d
}

// Notify creates a notification for the customer and prepends it to their
// list (new-first ordering). It fails only on malformed input.
func (d *Dispatcher) Notify(customerID, orderID, message string, typ schema.NotificationType, senderName string) (schema.CustomerNotification, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return schema.CustomerNotification{}, errs.New("notify/dispatch", errs.CodeInvalid,
			errs.WithMessage("customer id required"))
	}
	if strings.TrimSpace(message) == "" {
		return schema.CustomerNotification{}, errs.New("notify/dispatch", errs.CodeInvalid,
			errs.WithMessage("message required"))
	}
	if typ == "" {
		typ = schema.NotificationGeneral
	}

	notification := &schema.CustomerNotification{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		OrderID:    strings.TrimSpace(orderID),
		Message:    message,
		Type:       typ,
		Timestamp:  d.now(),
		Read:       false,
		SenderName: strings.TrimSpace(senderName),
	}

	d.mu.Lock()
	list := d.byCustomer[customerID]
	list = append([]*schema.CustomerNotification{notification}, list...)
	evicted := 0
	for len(list) > d.retention {
		oldest := list[len(list)-1]
		delete(d.byID, oldest.ID)
		list = list[:len(list)-1]
		evicted++
	}
	d.byCustomer[customerID] = list
	d.byID[notification.ID] = notification
	d.mu.Unlock()

	ctx := context.Background()
	if d.dispatchCounter != nil {
		d.dispatchCounter.Add(ctx, 1, metric.WithAttributes(
			telemetry.AttrEnvironment.String(telemetry.Environment()),
			telemetry.AttrNotificationType.String(string(typ))))
	}
	if d.evictionCounter != nil && evicted > 0 {
		d.evictionCounter.Add(ctx, int64(evicted), metric.WithAttributes(
			telemetry.AttrEnvironment.String(telemetry.Environment())))
	}

	return *notification, nil
}

// ListFor returns the customer's notifications, most recent first and
// unfiltered; read/unread filtering is a consumer concern.
func (d *Dispatcher) ListFor(customerID string) []schema.CustomerNotification {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := d.byCustomer[strings.TrimSpace(customerID)]
	out := make([]schema.CustomerNotification, 0, len(list))
	for _, n := range list {
		out = append(out, *n)
	}
	return out
}

// MarkRead flags the notification as read. Marking an already-read
// notification is a no-op success; only an unknown id is an error.
func (d *Dispatcher) MarkRead(notificationID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.byID[strings.TrimSpace(notificationID)]
	if !ok {
		return errs.New("notify/mark-read", errs.CodeNotFound,
			errs.WithMessage("notification not found"))
	}
	n.Read = true
	return nil
}

// All returns every retained notification, most recent first, for persistence.
func (d *Dispatcher) All() []schema.CustomerNotification {
	d.mu.RLock()
	out := make([]schema.CustomerNotification, 0, len(d.byID))
	for _, list := range d.byCustomer {
		for _, n := range list {
			out = append(out, *n)
		}
	}
	d.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Restore replaces all state from persisted notifications, preserving
// new-first ordering per customer and enforcing the retention cap.
func (d *Dispatcher) Restore(notifications []schema.CustomerNotification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byCustomer = make(map[string][]*schema.CustomerNotification)
	d.byID = make(map[string]*schema.CustomerNotification)
	for i := range notifications {
		n := notifications[i]
		if n.CustomerID == "" || n.ID == "" {
			continue
		}
		if len(d.byCustomer[n.CustomerID]) >= d.retention {
			continue
		}
		stored := &n
		d.byCustomer[n.CustomerID] = append(d.byCustomer[n.CustomerID], stored)
		d.byID[n.ID] = stored
	}
}
