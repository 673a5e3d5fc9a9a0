// Package wsserver pushes order status broadcasts to customer-facing
// connections over WebSocket. Delivery on the bus stays synchronous; each
// connection buffers events and drops on overflow so a slow reader can never
// stall the publisher.
package wsserver

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/modulhaus/backoffice/internal/bus/syncbus"
	"github.com/modulhaus/backoffice/internal/config"
	"github.com/modulhaus/backoffice/internal/observability"
	"github.com/modulhaus/backoffice/internal/telemetry"
)

const writeTimeout = 5 * time.Second

// Bridge upgrades HTTP requests and relays bus broadcasts to each connection.
type Bridge struct {
	bus        *syncbus.Bus
	writeRate  rate.Limit
	writeBurst int
	queueSize  int

	connectionGauge metric.Int64UpDownCounter
	pushCounter     metric.Int64Counter
	dropCounter     metric.Int64Counter
}

// NewBridge constructs a Bridge using the sync tuning from cfg.
func NewBridge(bus *syncbus.Bus, cfg config.SyncConfig) *Bridge {
	b := &Bridge{
		bus:        bus,
		writeRate:  rate.Limit(cfg.WriteRate),
		writeBurst: cfg.WriteBurst,
		queueSize:  cfg.QueueSize,
	}
	if b.writeRate <= 0 {
		b.writeRate = rate.Limit(20)
	}
	if b.writeBurst <= 0 {
		b.writeBurst = 40
	}
	if b.queueSize <= 0 {
		b.queueSize = 64
	}

	meter := otel.Meter("wsserver")
	b.connectionGauge, _ = meter.Int64UpDownCounter("ws.connections.active",
		metric.WithDescription("Open customer sync connections"),
		metric.WithUnit("{connection}"))
	b.pushCounter, _ = meter.Int64Counter("ws.events.pushed",
		metric.WithDescription("Status events pushed to customer connections"),
		metric.WithUnit("{event}"))
	b.dropCounter, _ = meter.Int64Counter("ws.events.dropped",
		metric.WithDescription("Status events dropped at full connection buffers"),
		metric.WithUnit("{event}"))

	return b
}

// ServeHTTP upgrades the request and relays broadcasts until the peer
// disconnects.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		observability.Log().Warn("ws accept", observability.F("error", err))
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "shutdown")
	}()

	if b.connectionGauge != nil {
		b.connectionGauge.Add(r.Context(), 1, metric.WithAttributes(
			telemetry.AttrEnvironment.String(telemetry.Environment())))
		defer b.connectionGauge.Add(context.Background(), -1, metric.WithAttributes(
			telemetry.AttrEnvironment.String(telemetry.Environment())))
	}

	queue := make(chan syncbus.Event, b.queueSize)
	unsubscribe, err := b.bus.Subscribe(func(evt syncbus.Event) {
		select {
		case queue <- evt:
		default:
			// Buffer full: drop for this connection rather than block the
			// synchronous fan-out.
			if b.dropCounter != nil {
				b.dropCounter.Add(context.Background(), 1, metric.WithAttributes(
					telemetry.AttrEnvironment.String(telemetry.Environment())))
			}
		}
	})
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "bus unavailable")
		return
	}
	defer unsubscribe()

	// CloseRead discards inbound frames and cancels the context on close.
	ctx := conn.CloseRead(r.Context())
	limiter := rate.NewLimiter(b.writeRate, b.writeBurst)

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-queue:
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			if err := b.writeEvent(ctx, conn, evt); err != nil {
				if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
					observability.Log().Warn("ws write",
						observability.F("orderId", evt.OrderID),
						observability.F("error", err))
				}
				return
			}
			if b.pushCounter != nil {
				b.pushCounter.Add(ctx, 1, metric.WithAttributes(
					telemetry.AttrEnvironment.String(telemetry.Environment())))
			}
		}
	}
}

func (b *Bridge) writeEvent(ctx context.Context, conn *websocket.Conn, evt syncbus.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
