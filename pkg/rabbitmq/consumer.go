package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	EventsExchange = "events"
	ExchangeKind   = "topic"
	QueueName      = "ticketing-service.events"
	DeadLetterName = "ticketing-service.events.dlx"
)

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewConsumer binds the catalog queue to every event.* key. Messages rejected
// without requeue are routed to the dead-letter exchange.
func NewConsumer(url string, prefetch int) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	fail := func(step string, err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq %s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(EventsExchange, ExchangeKind, true, false, false, false, nil); err != nil {
		return fail("exchange declare", err)
	}
	if err := ch.ExchangeDeclare(DeadLetterName, "fanout", true, false, false, false, nil); err != nil {
		return fail("dead-letter exchange declare", err)
	}
	if _, err := ch.QueueDeclare(DeadLetterName, true, false, false, false, nil); err != nil {
		return fail("dead-letter queue declare", err)
	}
	if err := ch.QueueBind(DeadLetterName, "", DeadLetterName, false, nil); err != nil {
		return fail("dead-letter queue bind", err)
	}

	q, err := ch.QueueDeclare(QueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": DeadLetterName,
	})
	if err != nil {
		return fail("queue declare", err)
	}

	if err := ch.QueueBind(q.Name, "event.*", EventsExchange, false, nil); err != nil {
		return fail("queue bind", err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return fail("qos", err)
		}
	}

	return &Consumer{conn: conn, channel: ch}, nil
}

func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(
		QueueName,
		"",    // consumer tag
		false, // auto-ack = false, we ack manually after processing
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}

	log.Info().Str("queue", QueueName).Msg("consuming catalog events")
	return msgs, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
