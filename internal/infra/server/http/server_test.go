package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/modulhaus/backoffice/internal/audit"
	"github.com/modulhaus/backoffice/internal/bus/syncbus"
	"github.com/modulhaus/backoffice/internal/console"
	"github.com/modulhaus/backoffice/internal/domain/orderstore"
	"github.com/modulhaus/backoffice/internal/notify"
	"github.com/modulhaus/backoffice/internal/schema"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	service, err := console.NewService(console.Config{
		Store:         orderstore.NewMemoryStore(),
		Activity:      audit.NewLogger(),
		Notifications: notify.NewDispatcher(0),
		Bus:           syncbus.New(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewHandler(service)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createTestOrder(t *testing.T, handler http.Handler) {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/orders", `{
		"id": "ord-1",
		"customerId": "cust-1",
		"productRef": "cabin-40",
		"totalAmount": "100000",
		"fulfillmentStatus": "InProduction",
		"paymentStatus": "Partial50"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	handler := newTestHandler(t)
	createTestOrder(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/orders/ord-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get order status = %d", rec.Code)
	}
	var order schema.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.ID != "ord-1" || order.Fulfillment != schema.FulfillmentInProduction {
		t.Errorf("order = %+v", order)
	}
}

func TestGetUnknownOrderIs404(t *testing.T) {
	handler := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodGet, "/orders/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestApplyStatusTransition(t *testing.T) {
	handler := newTestHandler(t)
	createTestOrder(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/orders/ord-1/status",
		`{"fulfillmentStatus": "Shipped"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("transition status = %d body = %s", rec.Code, rec.Body)
	}
	var order schema.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.Fulfillment != schema.FulfillmentShipped {
		t.Errorf("fulfillment = %q", order.Fulfillment)
	}

	// The transition lands in the activity feed and notifications.
	rec = doJSON(t, handler, http.MethodGet, "/activity", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "order.status.update") {
		t.Errorf("activity = %d %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, handler, http.MethodGet, "/customers/cust-1/notifications", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ord-1") {
		t.Errorf("notifications = %d %s", rec.Code, rec.Body)
	}
}

func TestRejectedTransitionIs400(t *testing.T) {
	handler := newTestHandler(t)
	createTestOrder(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/orders/ord-1/status",
		`{"paymentStatus": "Pending"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("payment regression status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/orders/ord-1/status", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty request status = %d, want 400", rec.Code)
	}
}

func TestProgressEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	createTestOrder(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/orders/ord-1/progress", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	var progress struct {
		Completion int `json:"completionPercent"`
		Payment    struct {
			Percent int `json:"percent"`
		} `json:"payment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.Completion != 50 || progress.Payment.Percent != 50 {
		t.Errorf("progress = %+v", progress)
	}
}

func TestListOrdersFilters(t *testing.T) {
	handler := newTestHandler(t)
	createTestOrder(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/orders?customerId=cust-1&status=InProduction", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ord-1") {
		t.Errorf("filtered list = %d %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodGet, "/orders?customerId=someone-else", "")
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "ord-1") {
		t.Errorf("mismatched filter = %d %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodGet, "/orders?limit=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	handler := newTestHandler(t)
	createTestOrder(t, handler)
	doJSON(t, handler, http.MethodPost, "/orders/ord-1/status", `{"fulfillmentStatus": "Shipped"}`)

	rec := doJSON(t, handler, http.MethodGet, "/customers/cust-1/notifications", "")
	var listing struct {
		Notifications []schema.CustomerNotification `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if len(listing.Notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(listing.Notifications))
	}

	id := listing.Notifications[0].ID
	rec = doJSON(t, handler, http.MethodPost, "/notifications/"+id+"/read", "")
	if rec.Code != http.StatusOK {
		t.Errorf("mark read status = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/notifications/ghost/read", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown notification status = %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodDelete, "/orders", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) {
		t.Errorf("Allow header = %q", allow)
	}
}
