package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/infn-epics/epik8s-beamline-controller/internal/device"
)

// Motor — симулированный мотор.
//
// Перемещение моделируется линейно по времени с постоянной скоростью;
// позиция вычисляется лениво при чтении, без фоновой горутины.
type Motor struct {
	name  string
	group string

	mu        sync.Mutex
	origin    float64   // позиция на момент начала перемещения
	target    float64   // целевая позиция
	startedAt time.Time // начало перемещения; zero — стоим
	speed     float64   // единиц в секунду
}

// NewMotor создаёт симулированный мотор.
// Атрибут speed задаёт скорость перемещения (по умолчанию 10 ед/с).
func NewMotor(req device.Request) *Motor {
	return &Motor{
		name:  req.Name,
		group: req.Group,
		speed: req.Attributes.Float("speed", 10),
	}
}

// Name возвращает имя устройства.
func (m *Motor) Name() string { return m.name }

// Group возвращает группу устройства.
func (m *Motor) Group() string { return m.group }

// Move начинает перемещение к позиции.
func (m *Motor) Move(_ context.Context, position float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.origin = m.positionLocked(time.Now())
	m.target = position
	m.startedAt = time.Now()
	return nil
}

// Position возвращает текущую позицию.
func (m *Motor) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positionLocked(time.Now())
}

// Moving сообщает, идёт ли перемещение.
func (m *Motor) Moving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startedAt.IsZero() {
		return false
	}
	return m.positionLocked(time.Now()) != m.target
}

// Stop останавливает мотор в текущей позиции.
func (m *Motor) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.origin = m.positionLocked(time.Now())
	m.target = m.origin
	m.startedAt = time.Time{}
	return nil
}

// positionLocked вычисляет позицию на момент now. Вызывается под m.mu.
func (m *Motor) positionLocked(now time.Time) float64 {
	if m.startedAt.IsZero() {
		return m.origin
	}

	distance := m.target - m.origin
	travelled := m.speed * now.Sub(m.startedAt).Seconds()
	if travelled >= math.Abs(distance) {
		return m.target
	}
	if distance < 0 {
		return m.origin - travelled
	}
	return m.origin + travelled
}
