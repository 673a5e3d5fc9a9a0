// Package audit records privileged console mutations in a bounded activity log.
package audit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/modulhaus/backoffice/internal/schema"
	"github.com/modulhaus/backoffice/internal/telemetry"
)

// Capacity bounds the retained log. On overflow the oldest entry is evicted;
// insertion order is the ordering authority, not timestamps.
const Capacity = 100

// Well-known identity substituted for system-originated events.
const (
	SystemActorID   = "system"
	SystemActorName = "System"
)

// Logger is the bounded in-memory activity log.
type Logger struct {
	mu       sync.Mutex
	entries  []schema.ActivityLogEntry
	capacity int
	now      func() time.Time

	entryCounter    metric.Int64Counter
	evictionCounter metric.Int64Counter
}

// NewLogger creates an activity logger retaining the most recent Capacity entries.
func NewLogger() *Logger {
	l := new(Logger)
	l.capacity = Capacity
	l.now = func() time.Time { return time.Now().UTC() }

	meter := otel.Meter("audit")
	l.entryCounter, _ = meter.Int64Counter("audit.entries.recorded",
		metric.WithDescription("Number of activity log entries recorded"),
		metric.WithUnit("{entry}"))
	l.evictionCounter, _ = meter.Int64Counter("audit.entries.evicted",
		metric.WithDescription("Number of activity log entries evicted at capacity"),
		metric.WithUnit("{entry}"))

	return l
}

// Log appends an audit entry and returns it. A missing actor is recorded
// under the well-known system identity rather than failing.
func (l *Logger) Log(actorID, actorName, action, detail string, category schema.ActivityCategory) schema.ActivityLogEntry {
	actorID = strings.TrimSpace(actorID)
	actorName = strings.TrimSpace(actorName)
	if actorID == "" && actorName == "" {
		actorID = SystemActorID
		actorName = SystemActorName
	} else if actorID == "" {
		actorID = SystemActorID
	} else if actorName == "" {
		actorName = actorID
	}
	if !category.Validate() {
		category = schema.CategorySystem
	}

	entry := schema.ActivityLogEntry{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		ActorName: actorName,
		Action:    strings.TrimSpace(action),
		Detail:    detail,
		Category:  category,
		Timestamp: l.now(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	evicted := 0
	if len(l.entries) > l.capacity {
		evicted = len(l.entries) - l.capacity
		l.entries = append(l.entries[:0:0], l.entries[evicted:]...)
	}
	l.mu.Unlock()

	ctx := context.Background()
	if l.entryCounter != nil {
		l.entryCounter.Add(ctx, 1, metric.WithAttributes(
			telemetry.AttrEnvironment.String(telemetry.Environment()),
			telemetry.AttrCategory.String(string(category))))
	}
	if l.evictionCounter != nil && evicted > 0 {
		l.evictionCounter.Add(ctx, int64(evicted), metric.WithAttributes(
			telemetry.AttrEnvironment.String(telemetry.Environment())))
	}
	return entry
}

// Entries returns the retained log in insertion order, oldest first.
func (l *Logger) Entries() []schema.ActivityLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]schema.ActivityLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of retained entries.
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Restore replaces the retained log, e.g. when loading persisted state.
// Only the most recent Capacity entries by position are kept.
func (l *Logger) Restore(entries []schema.ActivityLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(entries) > l.capacity {
		entries = entries[len(entries)-l.capacity:]
	}
	l.entries = make([]schema.ActivityLogEntry, len(entries))
	copy(l.entries, entries)
}
