// Package queue also contains the background consumer that listens to the
// slot.updated queue and appends one line per event to <dir>/slot.log.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains slot.updated into a log file.
type Consumer struct {
    URL    string
    LogDir string
    Logger *slog.Logger
}

// Start connects to RabbitMQ, declares the slot.updated queue (durable) and
// consumes it until ctx is cancelled.  Connection failures are retried with
// exponential backoff capped at 30s; a message that cannot be handled is
// rejected without requeue so the loop keeps going.
func (c *Consumer) Start(ctx context.Context) error {
    logger := c.logger()
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            logger.Warn("slot-consumer: dial failed", "err", err, "retry_in", backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logger.Warn("slot-consumer: consume loop ended, reconnecting", "err", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        return fmt.Errorf("set qos: %w", err)
    }
    if _, err := ch.QueueDeclare(SlotUpdatedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, SlotUpdatedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.HandleMessage(d.Body); err != nil {
            c.logger().Error("slot-consumer: handle message failed", "err", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// HandleMessage decodes one event and appends it to slot.log.
func (c *Consumer) HandleMessage(body []byte) error {
    var ev SlotUpdatedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(c.LogDir, "slot.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders ev as a single human-friendly log line.
func FormatLine(ev SlotUpdatedEvent) string {
    state := "published"
    if !ev.Published {
        state = "NOT published"
    }
    return fmt.Sprintf("[%s] Slot updated | table_id=%s | row_id=%s | qty=%d->%d | table %s | request_id=%s | event_id=%s\n",
        ev.UpdatedAt, ev.TableID, ev.RowID, ev.PreviousQty, ev.NewQty, state, ev.RequestID, ev.EventID)
}

func (c *Consumer) logger() *slog.Logger {
    if c.Logger == nil {
        return slog.Default()
    }
    return c.Logger
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
