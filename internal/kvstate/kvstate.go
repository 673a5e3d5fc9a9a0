// Package kvstate maps the engine's durable state onto a shared key-value
// namespace. Other back-office surfaces read and write the same keys, so the
// key names and JSON shapes here are a compatibility contract.
package kvstate

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/schema"
)

// Keys in the shared namespace. The engine owns the first two; the session
// keys belong to the authentication surface and are read-only here.
const (
	KeyActivityLogs  = "adminActivityLogs"
	KeyNotifications = "customerNotifications"

	KeyAdminAuthenticated = "adminAuthenticated"
	KeyAdminUserData      = "adminUserData"
)

// Store is the minimal key-value contract the codec runs on. A missing key
// yields errs.CodeNotFound.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// AdminUser is the session payload stored by the authentication surface.
type AdminUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Codec reads and writes the engine's slice of the shared namespace.
type Codec struct {
	store Store
}

// NewCodec wraps a key-value store.
func NewCodec(store Store) *Codec {
	return &Codec{store: store}
}

// SaveActivityLogs persists the retained audit log. Callers hand over at most
// the logger's capacity; anything longer is truncated to the newest window so
// a foreign writer can never inflate the key.
func (c *Codec) SaveActivityLogs(ctx context.Context, entries []schema.ActivityLogEntry) error {
	if len(entries) > 100 {
		entries = entries[len(entries)-100:]
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return errs.New("kvstate/save-activity", errs.CodeIo,
			errs.WithMessage("encode activity logs"), errs.WithCause(err))
	}
	if err := c.store.Set(ctx, KeyActivityLogs, raw); err != nil {
		return errs.New("kvstate/save-activity", errs.CodeIo,
			errs.WithMessage("write activity logs"), errs.WithCause(err))
	}
	return nil
}

// LoadActivityLogs loads the persisted audit log. A missing key is an empty
// log, not an error.
func (c *Codec) LoadActivityLogs(ctx context.Context) ([]schema.ActivityLogEntry, error) {
	raw, err := c.store.Get(ctx, KeyActivityLogs)
	if err != nil {
		if errs.HasCode(err, errs.CodeNotFound) {
			return nil, nil
		}
		return nil, errs.New("kvstate/load-activity", errs.CodeIo,
			errs.WithMessage("read activity logs"), errs.WithCause(err))
	}
	var entries []schema.ActivityLogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errs.New("kvstate/load-activity", errs.CodeIo,
			errs.WithMessage("decode activity logs"), errs.WithCause(err))
	}
	return entries, nil
}

// SaveNotifications persists the full notification set.
func (c *Codec) SaveNotifications(ctx context.Context, notifications []schema.CustomerNotification) error {
	raw, err := json.Marshal(notifications)
	if err != nil {
		return errs.New("kvstate/save-notifications", errs.CodeIo,
			errs.WithMessage("encode notifications"), errs.WithCause(err))
	}
	if err := c.store.Set(ctx, KeyNotifications, raw); err != nil {
		return errs.New("kvstate/save-notifications", errs.CodeIo,
			errs.WithMessage("write notifications"), errs.WithCause(err))
	}
	return nil
}

// LoadNotifications loads the persisted notification set; a missing key is an
// empty set.
func (c *Codec) LoadNotifications(ctx context.Context) ([]schema.CustomerNotification, error) {
	raw, err := c.store.Get(ctx, KeyNotifications)
	if err != nil {
		if errs.HasCode(err, errs.CodeNotFound) {
			return nil, nil
		}
		return nil, errs.New("kvstate/load-notifications", errs.CodeIo,
			errs.WithMessage("read notifications"), errs.WithCause(err))
	}
	var notifications []schema.CustomerNotification
	if err := json.Unmarshal(raw, &notifications); err != nil {
		return nil, errs.New("kvstate/load-notifications", errs.CodeIo,
			errs.WithMessage("decode notifications"), errs.WithCause(err))
	}
	return notifications, nil
}

// AdminAuthenticated reports whether the session key marks an authenticated
// admin. The key is owned by the authentication surface; absence means false.
func (c *Codec) AdminAuthenticated(ctx context.Context) (bool, error) {
	raw, err := c.store.Get(ctx, KeyAdminAuthenticated)
	if err != nil {
		if errs.HasCode(err, errs.CodeNotFound) {
			return false, nil
		}
		return false, errs.New("kvstate/session", errs.CodeIo,
			errs.WithMessage("read session flag"), errs.WithCause(err))
	}
	// The writing surface stores the literal string "true".
	return string(raw) == "true" || string(raw) == `"true"`, nil
}

// AdminUserData returns the logged-in admin, or nil when no session exists.
func (c *Codec) AdminUserData(ctx context.Context) (*AdminUser, error) {
	raw, err := c.store.Get(ctx, KeyAdminUserData)
	if err != nil {
		if errs.HasCode(err, errs.CodeNotFound) {
			return nil, nil
		}
		return nil, errs.New("kvstate/session", errs.CodeIo,
			errs.WithMessage("read session user"), errs.WithCause(err))
	}
	var user AdminUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, errs.New("kvstate/session", errs.CodeIo,
			errs.WithMessage("decode session user"), errs.WithCause(err))
	}
	return &user, nil
}
