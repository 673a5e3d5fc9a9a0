package orderstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/schema"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// MemoryStore is the in-memory implementation of the order Store.
// It is explicitly constructed and handed to callers; there is no ambient
// global collection.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*entry
}

type entry struct {
	mu    sync.Mutex
	order schema.Order
}

// NewMemoryStore creates an empty memory-backed order store.
func NewMemoryStore() *MemoryStore {
	store := new(MemoryStore)
	store.records = make(map[string]*entry)
	return store
}

// Put inserts a new order, initialising its version counter.
// Inserting an id that already exists fails with a conflict.
func (s *MemoryStore) Put(ctx context.Context, order schema.Order) (schema.Order, error) {
	if err := order.Validate(); err != nil {
		return schema.Order{}, err
	}
	if err := ctxErr(ctx, "put"); err != nil {
		return schema.Order{}, err
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.Version = 1

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[order.ID]; exists {
		return schema.Order{}, errs.New("orderstore/put", errs.CodeConflict,
			errs.WithMessage("order already exists"), errs.WithOrder(order.ID))
	}
	e := new(entry)
	e.order = order.Clone()
	s.records[order.ID] = e
	return e.order.Clone(), nil
}

// Get returns a clone of the stored order.
func (s *MemoryStore) Get(ctx context.Context, orderID string) (schema.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return schema.Order{}, errs.New("orderstore/get", errs.CodeInvalid, errs.WithMessage("order id required"))
	}
	if err := ctxErr(ctx, "get"); err != nil {
		return schema.Order{}, err
	}

	s.mu.RLock()
	e, ok := s.records[orderID]
	s.mu.RUnlock()
	if !ok {
		return schema.Order{}, errs.New("orderstore/get", errs.CodeNotFound,
			errs.WithMessage("order not found"), errs.WithOrder(orderID))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.order.Clone(), nil
}

// List retrieves orders matching the query, most recently created first.
func (s *MemoryStore) List(ctx context.Context, query Query) ([]schema.Order, error) {
	if err := ctxErr(ctx, "list"); err != nil {
		return nil, err
	}
	limit := clampLimit(query.Limit, defaultListLimit, maxListLimit)

	wantStatus := make(map[schema.FulfillmentStatus]struct{}, len(query.Fulfillments))
	for _, status := range query.Fulfillments {
		wantStatus[status] = struct{}{}
	}

	s.mu.RLock()
	matched := make([]schema.Order, 0, len(s.records))
	for _, e := range s.records {
		e.mu.Lock()
		order := e.order.Clone()
		e.mu.Unlock()
		if query.CustomerID != "" && order.CustomerID != query.CustomerID {
			continue
		}
		if len(wantStatus) > 0 {
			if _, ok := wantStatus[order.Fulfillment]; !ok {
				continue
			}
		}
		matched = append(matched, order)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// UpdateStatus commits a status change when the caller's version matches the
// stored one, bumping the version. A mismatch leaves the record unchanged and
// reports a conflict so the admin can reload and retry.
func (s *MemoryStore) UpdateStatus(ctx context.Context, update StatusUpdate) (schema.Order, error) {
	if strings.TrimSpace(update.OrderID) == "" {
		return schema.Order{}, errs.New("orderstore/update", errs.CodeInvalid, errs.WithMessage("order id required"))
	}
	if err := update.Fulfillment.Validate(); err != nil {
		return schema.Order{}, err
	}
	if err := update.Payment.Validate(); err != nil {
		return schema.Order{}, err
	}
	if err := ctxErr(ctx, "update"); err != nil {
		return schema.Order{}, err
	}

	s.mu.RLock()
	e, ok := s.records[update.OrderID]
	s.mu.RUnlock()
	if !ok {
		return schema.Order{}, errs.New("orderstore/update", errs.CodeNotFound,
			errs.WithMessage("order not found"), errs.WithOrder(update.OrderID))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.order.Version != update.PrevVersion {
		return schema.Order{}, errs.New("orderstore/update", errs.CodeConflict,
			errs.WithMessage(fmt.Sprintf("version mismatch: have %d, want %d", e.order.Version, update.PrevVersion)),
			errs.WithOrder(update.OrderID),
			errs.WithRemediation("reload the order and retry"))
	}
	e.order.Fulfillment = update.Fulfillment
	e.order.Payment = update.Payment
	e.order.Version = update.PrevVersion + 1
	return e.order.Clone(), nil
}

func ctxErr(ctx context.Context, op string) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("order store %s context: %w", op, ctx.Err())
	default:
		return nil
	}
}

func clampLimit(value, fallback, maximum int) int {
	if value <= 0 {
		return fallback
	}
	if value > maximum {
		return maximum
	}
	return value
}
