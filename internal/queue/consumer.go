package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

const activityLogFile = "activity.log"

// Consumer reads events from the queue and appends one line per event to
// LogDir/activity.log.  Malformed messages are rejected without requeue.
type Consumer struct {
    URL    string
    Queue  string
    LogDir string
    Log    *zap.Logger
}

// NewConsumer returns a Consumer for the given broker, queue and directory.
func NewConsumer(url, queue, logDir string, log *zap.Logger) *Consumer {
    return &Consumer{URL: url, Queue: queue, LogDir: logDir, Log: log}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.  It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.DialConfig(c.URL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
        if err != nil {
            c.Log.Warn("event consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return nil
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return nil
        }
        c.Log.Warn("event consumer: loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return nil
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("event consumer: set QoS failed", zap.Error(err))
    }
    if err := declareQueue(ch, c.Queue); err != nil {
        return err
    }
    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    c.Log.Info("event consumer: listening", zap.String("queue", c.Queue))

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handleMessage(d.Body); err != nil {
                c.Log.Error("event consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handleMessage(body []byte) error {
    var ev Event
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.LogDir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.LogDir, activityLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev) + "\n"); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders an event as a single human-readable line.
func FormatLine(ev Event) string {
    parts := []string{
        fmt.Sprintf("[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type),
        "event_id=" + ev.ID,
    }
    add := func(key string, v uint64) {
        if v != 0 {
            parts = append(parts, fmt.Sprintf("%s=%d", key, v))
        }
    }
    add("booking_id", ev.BookingID)
    add("account_id", ev.AccountID)
    add("service_id", ev.ServiceID)
    add("customer_id", ev.CustomerID)
    add("provider_id", ev.ProviderID)
    if ev.PreviousStatus != "" {
        parts = append(parts, fmt.Sprintf("status=%s->%s", ev.PreviousStatus, ev.Status))
    } else if ev.Status != "" {
        parts = append(parts, "status="+ev.Status)
    }
    if ev.TotalAmount != nil {
        parts = append(parts, "total="+ev.TotalAmount.StringFixed(2))
    }
    if ev.ScheduledDate != nil {
        parts = append(parts, "scheduled="+ev.ScheduledDate.UTC().Format(time.RFC3339))
    }
    return strings.Join(parts, " | ")
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
