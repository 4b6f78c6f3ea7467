package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange lifecycle events are published to.
const DefaultExchange = "attendance.events"

// AMQPQueue publishes to a durable topic exchange with the event type as
// routing key. Consume binds a durable queue to every routing key.
type AMQPQueue struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	queue    string
}

// DialAMQP connects to url and declares the exchange.
func DialAMQP(url, exchange, queue string) (*AMQPQueue, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if queue == "" {
		queue = exchange + ".audit"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPQueue{conn: conn, ch: ch, exchange: exchange, queue: queue}, nil
}

// Publish sends msg as a persistent JSON message.
func (q *AMQPQueue) Publish(ctx context.Context, msg Message) error {
	body, err := serialize(msg)
	if err != nil {
		return err
	}
	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ch.PublishWithContext(publishCtx, q.exchange, msg.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    msg.ID,
		Type:         msg.Type,
		Timestamp:    msg.At,
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume declares the consumer queue, binds it and acks each delivery
// once it has been handed to the caller.
func (q *AMQPQueue) Consume(ctx context.Context) (<-chan Message, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(q.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", q.queue, err)
	}
	if err := ch.QueueBind(q.queue, "#", q.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind queue %s: %w", q.queue, err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, q.queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume %s: %w", q.queue, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer ch.Close()
		for d := range deliveries {
			msg, err := deserialize(string(d.Body))
			if err != nil {
				_ = d.Nack(false, false)
				continue
			}
			select {
			case out <- msg:
				_ = d.Ack(false)
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			}
		}
	}()
	return out, nil
}

// Close closes the publishing channel and the connection.
func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	_ = q.ch.Close()
	return q.conn.Close()
}
