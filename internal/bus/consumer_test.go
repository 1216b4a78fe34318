package bus

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeAcknowledger считает подтверждения доставки.
type fakeAcknowledger struct {
	acks  int
	nacks int
}

func (a *fakeAcknowledger) Ack(_ uint64, _ bool) error { a.acks++; return nil }

func (a *fakeAcknowledger) Nack(_ uint64, _, _ bool) error { a.nacks++; return nil }

func (a *fakeAcknowledger) Reject(_ uint64, _ bool) error { return nil }

func writeDelivery(t *testing.T, ack *fakeAcknowledger, name string, value any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(&Message{
		ID:      "msg-1",
		Type:    MessageTypePVWrite,
		Payload: PVWritePayload{Name: name, Value: value},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestWriteConsumer_RoutesWrite(t *testing.T) {
	var gotName string
	var gotValue any
	c := NewWriteConsumer(nil, slog.Default(), WriteConsumerConfig{
		Route: func(name string, value any) error {
			gotName = name
			gotValue = value
			return nil
		},
	})

	ack := &fakeAcknowledger{}
	c.handleDelivery(writeDelivery(t, ack, "T1:SETPOINT", 2.5))

	if gotName != "T1:SETPOINT" || gotValue != 2.5 {
		t.Errorf("unexpected route: %s=%v", gotName, gotValue)
	}
	if ack.acks != 1 || ack.nacks != 0 {
		t.Errorf("expected 1 ack, got acks=%d nacks=%d", ack.acks, ack.nacks)
	}
}

func TestWriteConsumer_IntegerPayloadDecodesAsFloat(t *testing.T) {
	var gotValue any
	c := NewWriteConsumer(nil, slog.Default(), WriteConsumerConfig{
		Route: func(_ string, value any) error {
			gotValue = value
			return nil
		},
	})

	// Целое в JSON приходит в маршрут как float64; приведение к
	// int-переменной выполняет pv на стороне задачи.
	ack := &fakeAcknowledger{}
	c.handleDelivery(writeDelivery(t, ack, "T1:NSTEPS", 7))

	if gotValue != float64(7) {
		t.Errorf("expected float64(7), got %v (%T)", gotValue, gotValue)
	}
}

func TestWriteConsumer_StripsBeamlinePrefix(t *testing.T) {
	var gotName string
	c := NewWriteConsumer(nil, slog.Default(), WriteConsumerConfig{
		Prefix: "SPARC:TEST",
		Route: func(name string, _ any) error {
			gotName = name
			return nil
		},
	})

	ack := &fakeAcknowledger{}
	c.handleDelivery(writeDelivery(t, ack, "SPARC:TEST:T1:SETPOINT", 1.0))
	if gotName != "T1:SETPOINT" {
		t.Errorf("expected prefix stripped, got %s", gotName)
	}

	// Имя без префикса проходит как есть
	c.handleDelivery(writeDelivery(t, ack, "T1:SETPOINT", 1.0))
	if gotName != "T1:SETPOINT" {
		t.Errorf("expected bare name preserved, got %s", gotName)
	}
}

func TestWriteConsumer_RejectedWriteStillAcked(t *testing.T) {
	c := NewWriteConsumer(nil, slog.Default(), WriteConsumerConfig{
		Route: func(string, any) error {
			return errors.New("task not found")
		},
	})

	ack := &fakeAcknowledger{}
	c.handleDelivery(writeDelivery(t, ack, "GHOST:VAR", 1.0))

	// Ошибка отправителя: повтор доставки смысла не имеет
	if ack.acks != 1 || ack.nacks != 0 {
		t.Errorf("expected ack despite rejection, got acks=%d nacks=%d", ack.acks, ack.nacks)
	}
}

func TestWriteConsumer_MalformedMessageNacked(t *testing.T) {
	c := NewWriteConsumer(nil, slog.Default(), WriteConsumerConfig{
		Route: func(string, any) error { return nil },
	})

	ack := &fakeAcknowledger{}
	c.handleDelivery(amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	if ack.nacks != 1 || ack.acks != 0 {
		t.Errorf("expected nack for malformed message, got acks=%d nacks=%d", ack.acks, ack.nacks)
	}
}

func TestParsePayload(t *testing.T) {
	// Payload после json.Unmarshal конверта приходит как map
	body, _ := json.Marshal(&Message{
		ID:      "msg-1",
		Type:    MessageTypePVWrite,
		Payload: PVWritePayload{Name: "T1:X", Value: 3.0},
	})
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	payload, err := ParsePayload[PVWritePayload](&msg)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.Name != "T1:X" || payload.Value != 3.0 {
		t.Errorf("unexpected payload: %+v", payload)
	}
}
