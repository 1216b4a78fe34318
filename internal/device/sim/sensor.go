package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/infn-epics/epik8s-beamline-controller/internal/device"
)

// Sensor — симулированный датчик.
//
// Показание — синусоида вокруг базового значения; амплитуда и период
// задаются атрибутами amplitude и period_sec.
type Sensor struct {
	name  string
	group string

	base      float64
	amplitude float64
	period    time.Duration
	start     time.Time

	mu     sync.Mutex
	frozen *float64 // фиксированное значение после Stop
}

// NewSensor создаёт симулированный датчик.
func NewSensor(req device.Request) *Sensor {
	period := req.Attributes.Float("period_sec", 10)
	if period <= 0 {
		period = 10
	}
	return &Sensor{
		name:      req.Name,
		group:     req.Group,
		base:      req.Attributes.Float("base", 0),
		amplitude: req.Attributes.Float("amplitude", 1),
		period:    time.Duration(period * float64(time.Second)),
		start:     time.Now(),
	}
}

// Name возвращает имя устройства.
func (s *Sensor) Name() string { return s.name }

// Group возвращает группу устройства.
func (s *Sensor) Group() string { return s.group }

// Read возвращает текущее показание.
func (s *Sensor) Read(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen != nil {
		return *s.frozen, nil
	}

	phase := 2 * math.Pi * float64(time.Since(s.start)) / float64(s.period)
	return s.base + s.amplitude*math.Sin(phase), nil
}

// Stop фиксирует показание датчика на текущем значении.
func (s *Sensor) Stop(ctx context.Context) error {
	v, _ := s.Read(ctx)

	s.mu.Lock()
	s.frozen = &v
	s.mu.Unlock()
	return nil
}
