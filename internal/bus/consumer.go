package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RouteFunc маршрутизирует внешнюю запись во владеющую задачу.
// Обычно это Orchestrator.ExternalWrite.
type RouteFunc func(name string, value any) error

// WriteConsumer потребляет внешние записи переменных из pv.writes
// и доставляет их задачам.
type WriteConsumer struct {
	conn     *Connection
	route    RouteFunc
	prefix   string
	prefetch int
	logger   *slog.Logger

	cancelFunc context.CancelFunc
}

// WriteConsumerConfig — конфигурация WriteConsumer.
type WriteConsumerConfig struct {
	// Route — обработчик записей (обязательно).
	Route RouteFunc

	// Prefix — пара {BEAMLINE}:{NAMESPACE}; записи с этим префиксом
	// очищаются до {TASK}:{VAR} перед маршрутизацией.
	Prefix string

	// Prefetch — количество сообщений предварительной загрузки (default: 10).
	Prefetch int
}

// NewWriteConsumer создаёт WriteConsumer.
func NewWriteConsumer(conn *Connection, logger *slog.Logger, cfg WriteConsumerConfig) *WriteConsumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}

	return &WriteConsumer{
		conn:     conn,
		route:    cfg.Route,
		prefix:   cfg.Prefix,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Start запускает потребление. Блокируется до отмены контекста.
//
// При разрыве соединения ждёт переподключения Connection и
// возобновляет потребление.
func (c *WriteConsumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", QueuePVWrites, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer", "queue", QueuePVWrites)
				continue
			}
		}

		c.logger.Info("write consumer started", "queue", QueuePVWrites)

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting", "queue", QueuePVWrites)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

// Stop останавливает consumer.
func (c *WriteConsumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// setupConsume настраивает канал и начинает потребление.
func (c *WriteConsumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(QueuePVWrites), // queue
		"",                    // consumer tag (auto-generated)
		false,                 // auto-ack (мы ack вручную)
		false,                 // exclusive
		false,                 // no-local
		false,                 // no-wait
		nil,                   // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries обрабатывает сообщения из канала.
func (c *WriteConsumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}

			c.handleDelivery(raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение pv.write.
//
// Некорректное сообщение или запись в несуществующую переменную — ack
// с предупреждением: повтор доставки смысла не имеет, это ошибка
// отправителя, а не контроллера.
func (c *WriteConsumer) handleDelivery(raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message",
			"queue", QueuePVWrites,
			"error", err,
		)
		raw.Nack(false, false)
		return
	}

	payload, err := ParsePayload[PVWritePayload](&msg)
	if err != nil {
		c.logger.Error("failed to parse pv.write payload",
			"message_id", msg.ID,
			"error", err,
		)
		raw.Nack(false, false)
		return
	}

	name := payload.Name
	if c.prefix != "" {
		// Отправители могут использовать полное внешнее имя.
		if rest, ok := strings.CutPrefix(name, c.prefix+":"); ok {
			name = rest
		}
	}

	if err := c.route(name, payload.Value); err != nil {
		c.logger.Warn("external write rejected",
			"name", payload.Name,
			"error", err,
		)
	}

	raw.Ack(false)
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload может быть уже распарсен как map или быть raw json
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
