// Package syncbus implements the in-process broadcast channel that keeps
// independently-held order copies in sync.
//
// The admin mutation path publishes an order status event; every customer
// view that registered a handler sees it within the same logical turn. There
// is no queue and no replay buffer: delivery is synchronous, in registration
// order, to the handlers registered at publish time.
package syncbus

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/observability"
	"github.com/modulhaus/backoffice/internal/telemetry"
)

// EventName is the single well-known broadcast identifier carried by the bus.
const EventName = "order.status.changed"

// Event is the payload broadcast when an order's fulfillment status changes.
type Event struct {
	OrderID   string `json:"orderId"`
	NewStatus string `json:"newStatus"`
}

// Handler receives broadcast events. A panicking handler is isolated and does
// not prevent delivery to later-registered handlers.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans order status events out to registered handlers.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	nextID uint64
	closed bool

	publishedCounter metric.Int64Counter
	subscriberGauge  metric.Int64UpDownCounter
	fanoutHistogram  metric.Int64Histogram
	panicCounter     metric.Int64Counter
	publishDuration  metric.Float64Histogram
}

// New constructs an empty bus.
func New() *Bus {
	b := new(Bus)

	meter := otel.Meter("syncbus")
	b.publishedCounter, _ = meter.Int64Counter("syncbus.events.published",
		metric.WithDescription("Number of order status events broadcast"),
		metric.WithUnit("{event}"))
	b.subscriberGauge, _ = meter.Int64UpDownCounter("syncbus.subscribers",
		metric.WithDescription("Number of registered handlers"),
		metric.WithUnit("{subscriber}"))
	b.fanoutHistogram, _ = meter.Int64Histogram("syncbus.fanout.size",
		metric.WithDescription("Number of handlers per broadcast"),
		metric.WithUnit("{subscriber}"))
	b.panicCounter, _ = meter.Int64Counter("syncbus.handler.panics",
		metric.WithDescription("Number of handler panics isolated during delivery"),
		metric.WithUnit("{panic}"))
	b.publishDuration, _ = meter.Float64Histogram("syncbus.publish.duration",
		metric.WithDescription("Latency of synchronous broadcast delivery"),
		metric.WithUnit("ms"))

	return b
}

// Subscribe registers a handler and returns its unsubscribe function.
// Handlers registered after a publish do not retroactively receive it.
func (b *Bus) Subscribe(handler Handler) (func(), error) {
	if handler == nil {
		return nil, errs.New("syncbus/subscribe", errs.CodeInvalid, errs.WithMessage("handler required"))
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errs.New("syncbus/subscribe", errs.CodeUnavailable, errs.WithMessage("bus closed"))
	}
	b.nextID++
	sub := &subscription{id: b.nextID, handler: handler}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	if b.subscriberGauge != nil {
		b.subscriberGauge.Add(context.Background(), 1,
			metric.WithAttributes(telemetry.AttrEnvironment.String(telemetry.Environment())))
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { b.remove(sub.id) })
	}
	return unsubscribe, nil
}

// Publish synchronously invokes every handler registered at publish time, in
// registration order. A handler panic is recovered and delivery continues with
// the next handler; the bus never raises for a well-formed event.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if evt.OrderID == "" {
		return errs.New("syncbus/publish", errs.CodeInvalid, errs.WithMessage("order id required"))
	}

	start := time.Now()
	result := "success"
	defer func() {
		if b.publishDuration != nil {
			attrs := telemetry.OperationResultAttributes(telemetry.Environment(), "syncbus.publish", result)
			b.publishDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0,
				metric.WithAttributes(attrs...))
		}
	}()

	// Snapshot the registration-ordered handler list; handlers added or
	// removed by a running handler take effect for the NEXT publish.
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		result = "bus_closed"
		return errs.New("syncbus/publish", errs.CodeUnavailable, errs.WithMessage("bus closed"))
	}
	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.RUnlock()

	if b.fanoutHistogram != nil {
		b.fanoutHistogram.Record(ctx, int64(len(snapshot)),
			metric.WithAttributes(telemetry.AttrEnvironment.String(telemetry.Environment())))
	}

	for _, sub := range snapshot {
		if sub == nil || sub.handler == nil {
			continue
		}
		handler := sub.handler
		if recovered := panics.Try(func() { handler(evt) }); recovered != nil {
			if b.panicCounter != nil {
				b.panicCounter.Add(ctx, 1,
					metric.WithAttributes(telemetry.AttrEnvironment.String(telemetry.Environment())))
			}
			observability.Log().Error("syncbus: handler panic isolated",
				observability.F("event", EventName),
				observability.F("orderId", evt.OrderID),
				observability.F("panic", recovered.Value))
		}
	}

	if b.publishedCounter != nil {
		b.publishedCounter.Add(ctx, 1, metric.WithAttributes(
			telemetry.AttrEnvironment.String(telemetry.Environment()),
			telemetry.AttrFulfillmentStatus.String(evt.NewStatus)))
	}
	return nil
}

// SubscriberCount reports the number of currently-registered handlers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops every subscription; further publishes and subscriptions fail.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	dropped := len(b.subs)
	b.subs = nil
	b.mu.Unlock()

	if b.subscriberGauge != nil && dropped > 0 {
		b.subscriberGauge.Add(context.Background(), int64(-dropped),
			metric.WithAttributes(telemetry.AttrEnvironment.String(telemetry.Environment())))
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	for i, sub := range b.subs {
		if sub != nil && sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			b.mu.Unlock()
			if b.subscriberGauge != nil {
				b.subscriberGauge.Add(context.Background(), -1,
					metric.WithAttributes(telemetry.AttrEnvironment.String(telemetry.Environment())))
			}
			return
		}
	}
	b.mu.Unlock()
}
