// Package httpserver exposes the admin console's HTTP surface: order views,
// status transitions, activity history and customer notifications.
package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/console"
	"github.com/modulhaus/backoffice/internal/domain/orderstore"
	"github.com/modulhaus/backoffice/internal/lifecycle"
	"github.com/modulhaus/backoffice/internal/schema"
)

const (
	maxJSONBodyBytes int64 = 1 << 20 // 1 MiB

	ordersPath        = "/orders"
	orderDetailPrefix = ordersPath + "/"

	activityPath = "/activity"

	customersPrefix     = "/customers/"
	notificationsPrefix = "/notifications/"
)

type handlerFunc func(http.ResponseWriter, *http.Request)

type httpServer struct {
	service *console.Service
}

// NewHandler creates the HTTP handler for admin console operations.
func NewHandler(service *console.Service) http.Handler {
	server := &httpServer{service: service}
	mux := http.NewServeMux()

	mux.Handle(ordersPath, server.methodHandlers(map[string]handlerFunc{
		http.MethodGet:  server.listOrders,
		http.MethodPost: server.createOrder,
	}))
	mux.Handle(orderDetailPrefix, http.HandlerFunc(server.handleOrder))

	mux.Handle(activityPath, server.methodHandlers(map[string]handlerFunc{
		http.MethodGet: server.getActivity,
	}))

	mux.Handle(customersPrefix, http.HandlerFunc(server.handleCustomer))
	mux.Handle(notificationsPrefix, http.HandlerFunc(server.handleNotification))

	return withCORS(mux)
}

func (s *httpServer) methodHandlers(handlers map[string]handlerFunc) http.Handler {
	allowed := allowedMethods(handlers)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler(w, r)
			return
		}
		methodNotAllowed(w, allowed...)
	})
}

func allowedMethods(handlers map[string]handlerFunc) []string {
	if len(handlers) == 0 {
		return nil
	}
	allowed := make([]string, 0, len(handlers))
	for method := range handlers {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	return allowed
}

func (s *httpServer) listOrders(w http.ResponseWriter, r *http.Request) {
	query := orderstore.Query{
		CustomerID: strings.TrimSpace(r.URL.Query().Get("customerId")),
	}
	for _, raw := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			query.Fulfillments = append(query.Fulfillments, schema.FulfillmentStatus(trimmed))
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		query.Limit = limit
	}

	orders, err := s.service.Orders(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []schema.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type orderPayload struct {
	ID                string  `json:"id"`
	CustomerID        string  `json:"customerId"`
	ProductRef        string  `json:"productRef"`
	TotalAmount       string  `json:"totalAmount"`
	Fulfillment       string  `json:"fulfillmentStatus"`
	Payment           string  `json:"paymentStatus"`
	EstimatedDelivery *string `json:"estimatedDelivery,omitempty"`
}

func (s *httpServer) createOrder(w http.ResponseWriter, r *http.Request) {
	limitRequestBody(w, r)
	payload, err := decodeOrderPayload(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	total, err := decimal.NewFromString(strings.TrimSpace(payload.TotalAmount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "totalAmount must be a decimal string")
		return
	}
	order := schema.Order{
		ID:          strings.TrimSpace(payload.ID),
		CustomerID:  strings.TrimSpace(payload.CustomerID),
		ProductRef:  strings.TrimSpace(payload.ProductRef),
		TotalAmount: total,
		Fulfillment: schema.FulfillmentStatus(strings.TrimSpace(payload.Fulfillment)),
		Payment:     schema.PaymentStatus(strings.TrimSpace(payload.Payment)),
	}
	if payload.EstimatedDelivery != nil {
		eta, err := time.Parse(time.RFC3339, *payload.EstimatedDelivery)
		if err != nil {
			writeError(w, http.StatusBadRequest, "estimatedDelivery must be RFC3339")
			return
		}
		order.EstimatedDelivery = &eta
	}

	created, err := s.service.CreateOrder(r.Context(), order)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *httpServer) handleOrder(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, orderDetailPrefix), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "order id required")
		return
	}

	id, action, hasAction := strings.Cut(rest, "/")
	id = strings.TrimSpace(id)
	if id == "" {
		writeError(w, http.StatusNotFound, "order id required")
		return
	}

	if !hasAction {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		order, err := s.service.Order(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
		return
	}

	switch strings.TrimSpace(action) {
	case "status":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.applyStatus(w, r, id)
	case "progress":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		progress, err := s.service.Progress(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	default:
		writeError(w, http.StatusNotFound, "unsupported action")
	}
}

type statusPayload struct {
	Fulfillment *string `json:"fulfillmentStatus,omitempty"`
	Payment     *string `json:"paymentStatus,omitempty"`
}

func (s *httpServer) applyStatus(w http.ResponseWriter, r *http.Request, id string) {
	limitRequestBody(w, r)
	defer func() {
		_ = r.Body.Close()
	}()
	var payload statusPayload
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&payload); err != nil {
		writeDecodeError(w, err)
		return
	}

	var req lifecycle.TransitionRequest
	if payload.Fulfillment != nil {
		req.Fulfillment = lifecycle.FulfillmentOf(schema.FulfillmentStatus(strings.TrimSpace(*payload.Fulfillment)))
	}
	if payload.Payment != nil {
		req.Payment = lifecycle.PaymentOf(schema.PaymentStatus(strings.TrimSpace(*payload.Payment)))
	}

	order, err := s.service.ApplyTransition(r.Context(), id, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *httpServer) getActivity(w http.ResponseWriter, _ *http.Request) {
	entries := s.service.Activity()
	if entries == nil {
		entries = []schema.ActivityLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

func (s *httpServer) handleCustomer(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, customersPrefix), "/")
	customerID, resource, ok := strings.Cut(rest, "/")
	customerID = strings.TrimSpace(customerID)
	if customerID == "" || !ok || resource != "notifications" {
		writeError(w, http.StatusNotFound, "unknown resource")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	notifications := s.service.Notifications(customerID)
	if notifications == nil {
		notifications = []schema.CustomerNotification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (s *httpServer) handleNotification(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, notificationsPrefix), "/")
	id, action, ok := strings.Cut(rest, "/")
	id = strings.TrimSpace(id)
	if id == "" || !ok || action != "read" {
		writeError(w, http.StatusNotFound, "unknown resource")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := s.service.MarkNotificationRead(id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read", "id": id})
}

func (s *httpServer) writeServiceError(w http.ResponseWriter, err error) {
	switch errs.CodeOf(err) {
	case errs.CodeNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case errs.CodeConflict:
		writeError(w, http.StatusConflict, err.Error())
	case errs.CodeInvalid, errs.CodeInvalidTransition, errs.CodePaymentRegression, errs.CodeUnknownStatus:
		writeError(w, http.StatusBadRequest, err.Error())
	case errs.CodeIo, errs.CodeUnavailable:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeOrderPayload(r *http.Request) (orderPayload, error) {
	defer func() {
		_ = r.Body.Close()
	}()
	var payload orderPayload
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

func limitRequestBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if isRequestTooLarge(err) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func isRequestTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": message})
}

func withCORS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
