// Package telemetry provides semantic conventions and OpenTelemetry wiring
// for back-office observability.
package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// Semantic convention attribute keys for back-office telemetry.
// Following OpenTelemetry naming conventions: namespace.attribute_name

const (
	// AttrEnvironment specifies the deployment environment (dev/staging/prod) for every metric.
	AttrEnvironment = attribute.Key("environment")
	// AttrFulfillmentStatus labels order metrics with the fulfillment state (Pending, Shipped, ...).
	AttrFulfillmentStatus = attribute.Key("order.fulfillment_status")
	// AttrPaymentStatus labels order metrics with the payment state (Pending, Partial50, ...).
	AttrPaymentStatus = attribute.Key("order.payment_status")
	// AttrCategory labels audit metrics with the console area touched (orders, contracts, ...).
	AttrCategory = attribute.Key("activity.category")
	// AttrNotificationType differentiates customer notification classes.
	AttrNotificationType = attribute.Key("notification.type")
	// AttrOperation differentiates specific core operations (transition, publish, ...).
	AttrOperation = attribute.Key("operation")
	// AttrResult records the outcome of an operation (success, error class, etc.).
	AttrResult = attribute.Key("result")
	// AttrErrorCode categorizes failures by structured error code.
	AttrErrorCode = attribute.Key("error.code")
)

var (
	environmentMu     sync.RWMutex
	globalEnvironment string
)

// SetEnvironment records the deployment environment stamped onto metrics.
func SetEnvironment(env string) {
	environmentMu.Lock()
	globalEnvironment = env
	environmentMu.Unlock()
}

// Environment returns the configured deployment environment, defaulting to development.
func Environment() string {
	environmentMu.RLock()
	defer environmentMu.RUnlock()
	if globalEnvironment == "" {
		return "development"
	}
	return globalEnvironment
}

// OperationResultAttributes returns common attributes for operation metrics.
func OperationResultAttributes(environment, operation, result string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrOperation.String(operation),
		AttrResult.String(result),
	}
}

// TransitionAttributes returns attributes for order transition metrics.
func TransitionAttributes(environment, fulfillment, payment, result string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrResult.String(result),
	}
	if fulfillment != "" {
		attrs = append(attrs, AttrFulfillmentStatus.String(fulfillment))
	}
	if payment != "" {
		attrs = append(attrs, AttrPaymentStatus.String(payment))
	}
	return attrs
}
