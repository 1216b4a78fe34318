package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
)

// MessageType — тип сообщения на шине.
type MessageType string

// Типы сообщений.
const (
	// MessageTypePVDeclared — переменная объявлена (один раз при создании задачи).
	MessageTypePVDeclared MessageType = "pv.declared"

	// MessageTypePVUpdate — новое значение переменной.
	MessageTypePVUpdate MessageType = "pv.update"

	// MessageTypePVWrite — внешний запрос записи переменной.
	MessageTypePVWrite MessageType = "pv.write"
)

// Message — конверт сообщения на шине.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// PVDeclaredPayload — payload объявления переменной.
type PVDeclaredPayload struct {
	// Name — полное внешнее имя: {PREFIX}:{TASK}:{VAR}.
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Initial any      `json:"initial,omitempty"`
	Unit    string   `json:"unit,omitempty"`
	Prec    int      `json:"prec,omitempty"`
	Low     float64  `json:"low,omitempty"`
	High    float64  `json:"high,omitempty"`
	States  []string `json:"states,omitempty"`
}

// PVUpdatePayload — payload изменения значения.
type PVUpdatePayload struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// PVWritePayload — payload внешней записи.
// Name — без префикса beamline, в формате {TASK}:{VAR}.
type PVWritePayload struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Publisher публикует объявления и значения переменных в RabbitMQ.
//
// Реализует pv.Publisher. Полные имена строятся как
// {BEAMLINE}:{NAMESPACE}:{TASK}:{VAR}.
type Publisher struct {
	conn   *Connection
	prefix string
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
// prefix — пара {BEAMLINE}:{NAMESPACE} из конфигурации beamline; может быть пустым.
func NewPublisher(conn *Connection, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		logger: logger,
	}
}

// externalName добавляет префикс beamline к имени {TASK}:{VAR}.
func (p *Publisher) externalName(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + ":" + name
}

// Publish объявляет переменную на шине. name — {TASK}:{VAR}.
func (p *Publisher) Publish(ctx context.Context, name string, spec domain.VariableSpec) error {
	payload := PVDeclaredPayload{
		Name:    p.externalName(name),
		Type:    string(spec.Type),
		Initial: spec.Initial,
		Unit:    spec.Unit,
		Prec:    spec.Precision,
		Low:     spec.Low,
		High:    spec.High,
		States:  spec.States,
	}
	return p.publish(ctx, RoutingKeyDeclared, MessageTypePVDeclared, payload)
}

// PushUpdate отправляет новое значение переменной. name — {TASK}:{VAR}.
//
// Вызывается синхронно из горутин задач на каждое изменение, поэтому
// ошибка публикации не останавливает задачу — только логируется.
func (p *Publisher) PushUpdate(name string, value any) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := PVUpdatePayload{
		Name:  p.externalName(name),
		Value: value,
	}
	if err := p.publish(ctx, RoutingKeyUpdate, MessageTypePVUpdate, payload); err != nil {
		p.logger.Warn("failed to push variable update",
			"name", payload.Name,
			"error", err,
		)
	}
}

// publish сериализует и публикует одно сообщение.
func (p *Publisher) publish(ctx context.Context, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangePV), // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangePV, routingKey, err)
		}

		p.logger.Debug("published message",
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}
