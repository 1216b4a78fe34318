package bus

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Обменник переменных.
const (
	ExchangePV Exchange = "beamline.pv"
)

// Очереди.
const (
	// QueuePVUpdates — объявления и изменения переменных (для мониторинга).
	QueuePVUpdates Queue = "pv.updates"

	// QueuePVWrites — внешние записи переменных (потребляет контроллер).
	QueuePVWrites Queue = "pv.writes"
)

// Routing keys.
const (
	RoutingKeyDeclared RoutingKey = "declared"
	RoutingKeyUpdate   RoutingKey = "update"
	RoutingKeyWrite    RoutingKey = "write"
)

// SetupTopology создаёт обменник, очереди и привязки.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangePV), // name
			"direct",           // type
			true,               // durable
			false,              // auto-deleted
			false,              // internal
			false,              // no-wait
			nil,                // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangePV, err)
		}

		queues := []Queue{QueuePVUpdates, QueuePVWrites}
		for _, q := range queues {
			_, err := ch.QueueDeclare(
				string(q), // name
				true,      // durable
				false,     // delete when unused
				false,     // exclusive
				false,     // no-wait
				nil,       // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q, err)
			}
		}

		bindings := []struct {
			queue      Queue
			routingKey RoutingKey
		}{
			{QueuePVUpdates, RoutingKeyDeclared},
			{QueuePVUpdates, RoutingKeyUpdate},
			{QueuePVWrites, RoutingKeyWrite},
		}
		for _, b := range bindings {
			err := ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(ExchangePV),   // exchange
				false,                // no-wait
				nil,                  // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}

		return nil
	})
}
