package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bayni/apiserver/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultExchange = "bayni.events"

// RabbitMQClient publishes events to a topic exchange keyed by channel name
// and consumes them through one queue per channel and consumer group.
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel

	// publishMu serializes publishes on the shared AMQP channel.
	publishMu sync.Mutex

	exchange        string
	group           string
	queueDurable    bool
	queueAutoDelete bool
}

// NewRabbitMQClient dials RabbitMQ and declares the event exchange.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = defaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	fail := func(err error) (*RabbitMQClient, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			return fail(err)
		}
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare exchange %s: %w", exchange, err))
	}

	return &RabbitMQClient{
		conn:            conn,
		channel:         ch,
		exchange:        exchange,
		group:           cfg.ConsumerGroup,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
	}, nil
}

// Publish routes a persistent message to the exchange with the channel as
// routing key.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := uuid.NewString()
	msg := amqp.Publishing{
		ContentType:  contentType(attrs),
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Type:         channel,
		Headers:      headers,
		Body:         data,
	}

	r.publishMu.Lock()
	defer r.publishMu.Unlock()
	if err := r.channel.PublishWithContext(ctx, r.exchange, channel, false, false, msg); err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe consumes the group's queue for channel until ctx is done. A
// message whose handler fails is requeued once and dropped if it fails
// again on redelivery.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	queue, err := r.bindQueue(channel)
	if err != nil {
		return err
	}

	consumerTag := "consumer-" + uuid.NewString()
	deliveries, err := r.channel.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) bindQueue(channel string) (string, error) {
	name := queueName(channel, r.group)
	if _, err := r.channel.QueueDeclare(name, r.queueDurable, r.queueAutoDelete, false, false, nil); err != nil {
		return "", fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := r.channel.QueueBind(name, channel, r.exchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s: %w", name, err)
	}
	return name, nil
}

func queueName(channel, group string) string {
	if group == "" {
		return channel
	}
	return channel + "." + group
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}

func contentType(attrs map[string]string) string {
	if ct := attrs[AttrContentType]; ct != "" {
		return ct
	}
	return "application/octet-stream"
}
