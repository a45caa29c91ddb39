// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log/slog"
    "net"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/volunteer-slot-sync/internal/queue"
    "github.com/iliyamo/volunteer-slot-sync/internal/slot"
)

// Publisher sends slot.updated events.  It dials per publish: a function
// instance may sit idle for a long time between invocations and a cached
// connection would be dead by then.
type Publisher struct {
    URL    string
    Logger *slog.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
    if logger == nil {
        logger = slog.Default()
    }
    return &Publisher{URL: url, Logger: logger}
}

// NewSlotUpdatedEvent builds the event announcing out.
func NewSlotUpdatedEvent(out slot.Outcome, now time.Time) q.SlotUpdatedEvent {
    return q.SlotUpdatedEvent{
        EventID:     uuid.NewString(),
        RequestID:   out.RequestID,
        TableID:     out.TableID,
        RowID:       out.RowID,
        PreviousQty: out.Previous,
        NewQty:      out.Quantity,
        Published:   out.Succeeded(),
        UpdatedAt:   now.UTC().Format(time.RFC3339),
    }
}

// SlotUpdated implements slot.Notifier.
func (p *Publisher) SlotUpdated(ctx context.Context, out slot.Outcome) error {
    return p.Publish(ctx, NewSlotUpdatedEvent(out, time.Now()))
}

// defaultDialTimeout bounds dial and handshake when ctx has no deadline.
const defaultDialTimeout = 5 * time.Second

// dial opens a broker connection whose TCP dial and AMQP handshake both end
// at ctx's deadline.  amqp clears the socket deadline once the handshake
// completes.
func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, error) {
    return amqp.DialConfig(p.URL, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial: func(network, addr string) (net.Conn, error) {
            var d net.Dialer
            conn, err := d.DialContext(ctx, network, addr)
            if err != nil {
                return nil, err
            }
            deadline, ok := ctx.Deadline()
            if !ok {
                deadline = time.Now().Add(defaultDialTimeout)
            }
            if err := conn.SetDeadline(deadline); err != nil {
                _ = conn.Close()
                return nil, err
            }
            return conn, nil
        },
    })
}

// Publish sends event to the slot.updated queue as a persistent message.
func (p *Publisher) Publish(ctx context.Context, event q.SlotUpdatedEvent) error {
    conn, err := p.dial(ctx)
    if err != nil {
        p.Logger.Warn("rabbitmq: dial failed", "err", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.Logger.Warn("rabbitmq: channel open failed", "err", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        q.SlotUpdatedQueue, // name
        true,               // durable
        false,              // autoDelete
        false,              // exclusive
        false,              // noWait
        nil,                // args
    ); err != nil {
        p.Logger.Warn("rabbitmq: queue declare failed", "err", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    event.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", q.SlotUpdatedQueue, false, false, pub); err != nil {
        p.Logger.Warn("rabbitmq: publish failed", "err", err)
        return err
    }
    return nil
}
