package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Параметры переподключения.
const (
	redialBaseDelay = time.Second
	redialMaxDelay  = 30 * time.Second
)

// Connection — AMQP-соединение контроллера с автоматическим redial.
//
// Разрыв соединения не фатален: supervise-горутина переоткрывает
// соединение и канал с экспоненциальной задержкой, потребители
// узнают о переподключении через ReconnectNotify.
type Connection struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool

	done        chan struct{}
	reconnected chan struct{}
}

// NewConnection подключается к RabbitMQ и запускает supervise-горутину.
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	c := &Connection{
		url:         url,
		logger:      logger,
		done:        make(chan struct{}),
		reconnected: make(chan struct{}, 1),
	}

	if err := c.dial(); err != nil {
		return nil, err
	}

	go c.supervise()
	return c, nil
}

// dial открывает соединение и канал, замещая текущие.
func (c *Connection) dial() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	c.logger.Info("connected to RabbitMQ")
	return nil
}

// supervise следит за соединением и восстанавливает его при разрыве.
// Завершается при Close.
func (c *Connection) supervise() {
	for {
		c.mu.RLock()
		conn := c.conn
		closed := c.closed
		c.mu.RUnlock()

		if closed {
			return
		}

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.done:
			return
		case amqpErr := <-notifyClose:
			if amqpErr != nil {
				c.logger.Warn("connection lost", "error", amqpErr)
			}
		}

		if !c.redial() {
			return
		}
	}
}

// redial восстанавливает соединение с экспоненциальной задержкой.
// Возвращает false, если соединение было закрыто через Close.
func (c *Connection) redial() bool {
	delay := redialBaseDelay

	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		if err := c.dial(); err != nil {
			c.logger.Warn("redial failed", "error", err, "next_attempt_in", delay)
			delay = min(delay*2, redialMaxDelay)
			continue
		}

		// Будим потребителей; пропущенное уведомление не теряется,
		// канал буферизован на один сигнал.
		select {
		case c.reconnected <- struct{}{}:
		default:
		}
		return true
	}
}

// Channel возвращает текущий AMQP-канал.
// После переподключения канал меняется: держать его дольше одной
// операции нельзя.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// ReconnectNotify возвращает канал уведомлений о переподключении.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	return c.reconnected
}

// IsConnected сообщает, живо ли соединение в данный момент.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// WithChannel выполняет fn с текущим каналом.
func (c *Connection) WithChannel(_ context.Context, fn func(ch *amqp.Channel) error) error {
	ch := c.Channel()
	if ch == nil {
		return fmt.Errorf("no channel available")
	}
	return fn(ch)
}

// Close закрывает соединение и останавливает supervise-горутину.
// Повторный Close безопасен.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	ch := c.channel
	c.mu.Unlock()

	var firstErr error
	if ch != nil {
		if err := ch.Close(); err != nil {
			firstErr = fmt.Errorf("close channel: %w", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close connection: %w", err)
		}
	}

	if firstErr == nil {
		c.logger.Info("bus connection closed")
	}
	return firstErr
}
