package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

const dialTimeout = 3 * time.Second

// Publisher sends events to a durable queue on the default exchange.  A
// connection is opened per publish, which keeps the publisher stateless at
// the cost of a round trip; event volume here is one per write request.
type Publisher struct {
    URL   string
    Queue string
    Log   *zap.Logger
}

// NewPublisher returns a Publisher for url and queue.
func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
    return &Publisher{URL: url, Queue: queue, Log: log}
}

// Publish marshals ev and sends it as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
    if err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := declareQueue(ch, p.Queue); err != nil {
        return err
    }

    msg := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.ID,
        Type:         string(ev.Type),
        Timestamp:    ev.OccurredAt,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, msg); err != nil {
        return fmt.Errorf("rabbitmq publish: %w", err)
    }
    if p.Log != nil {
        p.Log.Debug("event published",
            zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)))
    }
    return nil
}

// Discard drops every event.  It is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

func declareQueue(ch *amqp.Channel, name string) error {
    if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare %s: %w", name, err)
    }
    return nil
}
