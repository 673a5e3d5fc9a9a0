// Package console implements the admin-side order mutation path: transition,
// persist, audit, notify, broadcast. Every status mutation MUST route through
// this service; bypassing it leaves customer views holding stale copies with
// no reconciliation.
package console

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/audit"
	"github.com/modulhaus/backoffice/internal/bus/syncbus"
	"github.com/modulhaus/backoffice/internal/domain/orderstore"
	"github.com/modulhaus/backoffice/internal/lifecycle"
	"github.com/modulhaus/backoffice/internal/notify"
	"github.com/modulhaus/backoffice/internal/observability"
	"github.com/modulhaus/backoffice/internal/schema"
	"github.com/modulhaus/backoffice/internal/telemetry"
)

// Actor identifies the staff member performing a mutation.
type Actor struct {
	ID   string
	Name string
}

// ActorFunc resolves the currently authenticated actor. A nil result maps to
// the audit logger's system identity.
type ActorFunc func() *Actor

// Service wires the order lifecycle core together for the admin console.
type Service struct {
	store         orderstore.Store
	activity      *audit.Logger
	notifications *notify.Dispatcher
	bus           *syncbus.Bus
	persister     Persister
	actor         ActorFunc

	transitionCounter metric.Int64Counter
	rejectionCounter  metric.Int64Counter
}

// Config collects the service collaborators. Store, Activity, Notifications
// and Bus are required; Persister and Actor are optional collaborators.
type Config struct {
	Store         orderstore.Store
	Activity      *audit.Logger
	Notifications *notify.Dispatcher
	Bus           *syncbus.Bus
	Persister     Persister
	Actor         ActorFunc
}

// NewService constructs the console service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errs.New("console/new", errs.CodeInvalid, errs.WithMessage("order store required"))
	}
	if cfg.Activity == nil {
		return nil, errs.New("console/new", errs.CodeInvalid, errs.WithMessage("activity logger required"))
	}
	if cfg.Notifications == nil {
		return nil, errs.New("console/new", errs.CodeInvalid, errs.WithMessage("notification dispatcher required"))
	}
	if cfg.Bus == nil {
		return nil, errs.New("console/new", errs.CodeInvalid, errs.WithMessage("sync bus required"))
	}

	s := &Service{
		store:         cfg.Store,
		activity:      cfg.Activity,
		notifications: cfg.Notifications,
		bus:           cfg.Bus,
		persister:     cfg.Persister,
		actor:         cfg.Actor,
	}

	meter := otel.Meter("console")
	s.transitionCounter, _ = meter.Int64Counter("console.transitions.applied",
		metric.WithDescription("Number of order status transitions committed"),
		metric.WithUnit("{transition}"))
	s.rejectionCounter, _ = meter.Int64Counter("console.transitions.rejected",
		metric.WithDescription("Number of order status transitions rejected"),
		metric.WithUnit("{transition}"))

	return s, nil
}

// CreateOrder registers a new order and records the privileged mutation.
func (s *Service) CreateOrder(ctx context.Context, order schema.Order) (schema.Order, error) {
	if order.Fulfillment == "" {
		order.Fulfillment = schema.FulfillmentPending
	}
	if order.Payment == "" {
		order.Payment = schema.PaymentPending
	}
	stored, err := s.store.Put(ctx, order)
	if err != nil {
		return schema.Order{}, err
	}
	actorID, actorName := s.resolveActor()
	s.activity.Log(actorID, actorName, "order.create",
		fmt.Sprintf("order %s created for customer %s", stored.ID, stored.CustomerID),
		schema.CategoryOrders)
	return stored, nil
}

// Order returns the current canonical copy of an order.
func (s *Service) Order(ctx context.Context, orderID string) (schema.Order, error) {
	return s.store.Get(ctx, orderID)
}

// Orders lists orders for console views.
func (s *Service) Orders(ctx context.Context, query orderstore.Query) ([]schema.Order, error) {
	return s.store.List(ctx, query)
}

// ApplyTransition runs the full admin mutation path. Failure is all-or-nothing:
// a rejected or unpersisted transition emits no audit entry, no notification
// and no broadcast, and leaves the stored order untouched.
func (s *Service) ApplyTransition(ctx context.Context, orderID string, req lifecycle.TransitionRequest) (schema.Order, error) {
	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return schema.Order{}, err
	}

	next, err := lifecycle.Transition(order, req)
	if err != nil {
		s.countRejection(ctx, err)
		return schema.Order{}, err
	}

	if s.persister != nil {
		persisted, err := s.persister.PersistOrder(ctx, next)
		if err != nil {
			s.countRejection(ctx, err)
			return schema.Order{}, errs.New("console/apply", errs.CodeIo,
				errs.WithMessage("persist order"), errs.WithOrder(orderID), errs.WithCause(err))
		}
		next = persisted
	}

	committed, err := s.store.UpdateStatus(ctx, orderstore.StatusUpdate{
		OrderID:     orderID,
		Fulfillment: next.Fulfillment,
		Payment:     next.Payment,
		PrevVersion: order.Version,
	})
	if err != nil {
		s.countRejection(ctx, err)
		return schema.Order{}, err
	}

	actorID, actorName := s.resolveActor()
	s.activity.Log(actorID, actorName, "order.status.update",
		transitionDetail(order, committed), schema.CategoryOrders)

	if _, err := s.notifications.Notify(committed.CustomerID, committed.ID,
		customerMessage(order, committed), schema.NotificationOrderStatus, actorName); err != nil {
		// Input is well-formed by construction; log rather than unwind.
		observability.Log().Error("console: dispatch notification",
			observability.F("orderId", committed.ID),
			observability.F("error", err))
	}

	if err := s.bus.Publish(ctx, syncbus.Event{
		OrderID:   committed.ID,
		NewStatus: string(committed.Fulfillment),
	}); err != nil {
		observability.Log().Error("console: broadcast status",
			observability.F("orderId", committed.ID),
			observability.F("error", err))
	}

	if s.transitionCounter != nil {
		s.transitionCounter.Add(ctx, 1, metric.WithAttributes(
			telemetry.TransitionAttributes(telemetry.Environment(),
				string(committed.Fulfillment), string(committed.Payment), "success")...))
	}
	return committed, nil
}

// Progress derives the rendering widgets for an order: completion percent and
// the paid/remaining split.
func (s *Service) Progress(ctx context.Context, orderID string) (OrderProgress, error) {
	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return OrderProgress{}, err
	}
	percent, err := lifecycle.Progress(order.Fulfillment)
	if err != nil {
		observability.Log().Warn("console: unknown fulfillment status",
			observability.F("orderId", orderID),
			observability.F("status", order.Fulfillment))
	}
	split, err := lifecycle.SplitPayment(order.Payment, order.TotalAmount)
	if err != nil && errs.HasCode(err, errs.CodeUnknownStatus) {
		observability.Log().Warn("console: unknown payment status",
			observability.F("orderId", orderID),
			observability.F("status", order.Payment))
		err = nil
	}
	if err != nil {
		return OrderProgress{}, err
	}
	return OrderProgress{Completion: percent, Payment: split}, nil
}

// OrderProgress bundles the derived widgets rendered next to an order.
type OrderProgress struct {
	Completion int                    `json:"completionPercent"`
	Payment    lifecycle.PaymentSplit `json:"payment"`
}

// Notifications returns a customer's notification list, most recent first.
func (s *Service) Notifications(customerID string) []schema.CustomerNotification {
	return s.notifications.ListFor(customerID)
}

// MarkNotificationRead marks a notification read; repeat calls are no-ops.
func (s *Service) MarkNotificationRead(notificationID string) error {
	return s.notifications.MarkRead(notificationID)
}

// Activity returns the retained audit log in insertion order.
func (s *Service) Activity() []schema.ActivityLogEntry {
	return s.activity.Entries()
}

func (s *Service) resolveActor() (string, string) {
	if s.actor == nil {
		return "", ""
	}
	actor := s.actor()
	if actor == nil {
		return "", ""
	}
	return actor.ID, actor.Name
}

func (s *Service) countRejection(ctx context.Context, err error) {
	if s.rejectionCounter == nil {
		return
	}
	s.rejectionCounter.Add(ctx, 1, metric.WithAttributes(
		telemetry.AttrEnvironment.String(telemetry.Environment()),
		telemetry.AttrErrorCode.String(string(errs.CodeOf(err)))))
}

func transitionDetail(before, after schema.Order) string {
	detail := fmt.Sprintf("order %s", after.ID)
	if before.Fulfillment != after.Fulfillment {
		detail += fmt.Sprintf(": fulfillment %s -> %s", before.Fulfillment, after.Fulfillment)
	}
	if before.Payment != after.Payment {
		detail += fmt.Sprintf(": payment %s -> %s", before.Payment, after.Payment)
	}
	return detail
}

func customerMessage(before, after schema.Order) string {
	if before.Fulfillment != after.Fulfillment {
		switch after.Fulfillment {
		case schema.FulfillmentProcessing:
			return "Your order is being processed."
		case schema.FulfillmentInProduction:
			return "Your building has entered production."
		case schema.FulfillmentShipped:
			return "Your order has shipped."
		case schema.FulfillmentDelivered:
			return "Your order has been delivered."
		case schema.FulfillmentCompleted:
			return "Your order is complete. Thank you!"
		case schema.FulfillmentCancelled:
			return "Your order has been cancelled."
		}
	}
	if before.Payment != after.Payment {
		return fmt.Sprintf("Payment status updated to %s.", after.Payment)
	}
	return fmt.Sprintf("Order status updated to %s.", after.Fulfillment)
}
